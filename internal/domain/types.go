package domain

// ID is used across domain entities.
type ID int64

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID    int64  `json:"userId"`
	Role      string `json:"role"`
	RequestID string `json:"requestId,omitempty"`
}

func (rc RequestContext) IsAdmin() bool { return rc.Role == RoleAdmin }

// CanAccessOwnedBy reports whether the caller may act on a resource owned by userID.
func (rc RequestContext) CanAccessOwnedBy(userID int64) bool {
	return rc.IsAdmin() || (rc.UserID > 0 && rc.UserID == userID)
}
