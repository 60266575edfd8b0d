package domain

import "time"

// Role of an account
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleForeman  Role = "foreman" // capocantiere
	RoleEmployee Role = "employee"
)

// ParseRole maps free text to a Role; unknown values become RoleEmployee
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleForeman:
		return Role(s)
	default:
		return RoleEmployee
	}
}

// Employee is a worker or an administrator account
type Employee struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

// IsAdmin reports whether the account has the admin role
func (e Employee) IsAdmin() bool {
	return e.Role == RoleAdmin
}
