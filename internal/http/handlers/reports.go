package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"busticket/internal/http/middleware"
	"busticket/internal/repositories"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /api/reports/earnings?start_date=&end_date=&operator_id=
func (h *Handler) GetEarningsReport(c *gin.Context) {
	var operatorID int64
	if raw := strings.TrimSpace(c.Query("operator_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid operator_id", nil)
			return
		}
		operatorID = id
	}

	svc := services.ReportsService{
		Earnings: repositories.EarningRepository{DB: h.q()},
		Location: h.Env.Location,
		Now:      h.now,
	}
	report, err := svc.OperatorEarnings(c.Request.Context(), middleware.GetRequestContext(c), services.EarningsFilter{
		StartDate:  c.Query("start_date"),
		EndDate:    c.Query("end_date"),
		OperatorID: operatorID,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"earnings": report, "count": len(report)})
}
