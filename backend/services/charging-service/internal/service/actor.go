package service

import (
	apperrors "campusev/backend/libs/errors"
)

// Roles recognised by the charging service.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleVisitor = "visitor"
)

// Actor is the caller identity forwarded by the gateway. The zero Actor is an
// anonymous caller: it may browse but never touch a session.
type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsZero() bool { return a.UserID == 0 && a.Role == "" }

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanAccess reports whether the actor may act on a resource owned by ownerID.
func (a Actor) CanAccess(ownerID int64) bool {
	if a.UserID <= 0 {
		return false
	}
	return a.IsAdmin() || a.UserID == ownerID
}

func (a Actor) authorize(ownerID int64) error {
	if a.UserID <= 0 {
		return errAnonymous
	}
	if a.CanAccess(ownerID) {
		return nil
	}
	return apperrors.New(apperrors.CodeForbidden, "session belongs to another user")
}

var errAnonymous = apperrors.New(apperrors.CodeUnauthorized, "authentication required")

// ResolveUser picks the user a request acts for. A non-admin identity always
// wins over the requested id and may not name someone else. Anonymous
// callers keep the requested id, which only read paths accept.
func (a Actor) ResolveUser(requested int64) (int64, error) {
	switch {
	case a.UserID == 0:
		return requested, nil
	case requested == 0 || requested == a.UserID:
		return a.UserID, nil
	case a.IsAdmin():
		return requested, nil
	default:
		return 0, apperrors.New(apperrors.CodeForbidden, "user_id does not match the authenticated user")
	}
}
