package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"busticket/internal/domain"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	authKey         = "auth"
	CronTokenHeader = "X-Cron-Token"
)

type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier checks bearer tokens signed with the shared HS256 secret or,
// when a JWKS URL is configured, with the issuer's published keys.
type TokenVerifier struct {
	secret []byte
	jwks   *keyfunc.JWKS
}

func NewTokenVerifier(secret, jwksURL string) (*TokenVerifier, error) {
	v := &TokenVerifier{secret: []byte(secret)}
	if jwksURL == "" {
		return v, nil
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}
	v.jwks = jwks
	return v, nil
}

// Close stops the background JWKS refresh.
func (v *TokenVerifier) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func (v *TokenVerifier) keyFor(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); ok {
		if len(v.secret) == 0 {
			return nil, errors.New("hmac tokens not accepted")
		}
		return v.secret, nil
	}
	if v.jwks != nil {
		return v.jwks.Keyfunc(t)
	}
	return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
}

// Parse validates tokenStr and returns the caller it identifies.
func (v *TokenVerifier) Parse(tokenStr string) (domain.RequestContext, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, v.keyFor, jwt.WithExpirationRequired())
	if err != nil {
		return domain.RequestContext{}, err
	}
	if !token.Valid {
		return domain.RequestContext{}, errors.New("invalid token")
	}
	uid := claims.UserID
	if uid == 0 && claims.Subject != "" {
		uid, _ = strconv.ParseInt(claims.Subject, 10, 64)
	}
	if uid <= 0 {
		return domain.RequestContext{}, errors.New("token has no user id")
	}
	role := claims.Role
	if role == "" {
		role = domain.RolePassenger
	}
	return domain.RequestContext{UserID: uid, Role: role}, nil
}

func bearer(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func abortUnauthorized(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"code":       "unauthorized",
		"request_id": GetRequestID(c),
	})
}

// Auth requires a valid bearer token.
func Auth(v *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearer(c)
		if tok == "" {
			abortUnauthorized(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		rc, err := v.Parse(tok)
		if err != nil {
			abortUnauthorized(c, http.StatusUnauthorized, "invalid token")
			return
		}
		rc.RequestID = GetRequestID(c)
		c.Set(authKey, rc)
		c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := GetRequestContext(c)
		if rc.IsAdmin() || slices.Contains(roles, rc.Role) {
			c.Next()
			return
		}
		abortUnauthorized(c, http.StatusForbidden, "insufficient role")
	}
}

// CronOrAdmin lets a scheduler in with the shared cron token, or an admin with a bearer token.
func CronOrAdmin(v *TokenVerifier, cronToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if got := c.GetHeader(CronTokenHeader); got != "" && cronToken != "" &&
			subtle.ConstantTimeCompare([]byte(got), []byte(cronToken)) == 1 {
			c.Set(authKey, domain.RequestContext{Role: domain.RoleAdmin, RequestID: GetRequestID(c)})
			c.Next()
			return
		}
		tok := bearer(c)
		if tok == "" {
			abortUnauthorized(c, http.StatusUnauthorized, "missing credentials")
			return
		}
		rc, err := v.Parse(tok)
		if err != nil {
			abortUnauthorized(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if !rc.IsAdmin() {
			abortUnauthorized(c, http.StatusForbidden, "insufficient role")
			return
		}
		rc.RequestID = GetRequestID(c)
		c.Set(authKey, rc)
		c.Next()
	}
}

// GetRequestContext returns the authenticated caller, or a zero value.
func GetRequestContext(c *gin.Context) domain.RequestContext {
	if v, ok := c.Get(authKey); ok {
		if rc, ok := v.(domain.RequestContext); ok {
			return rc
		}
	}
	return domain.RequestContext{RequestID: GetRequestID(c)}
}
