package models

import "time"

// Campus roles. Admins are provisioned out of band.
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleVisitor = "visitor"
	RoleAdmin   = "admin"
)

// User is a campus account.
type User struct {
	ID           int64      `json:"id"`
	SchoolID     string     `json:"school_id,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Name         string     `json:"name,omitempty"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// SelfServiceRole reports whether role may be chosen at signup.
func SelfServiceRole(role string) bool {
	switch role {
	case RoleStudent, RoleStaff, RoleVisitor:
		return true
	}
	return false
}
