package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the tenant-scoped role stored on a profile.
type Role string

const (
	RoleSchoolAdmin Role = "school_admin"
	RoleAccountant  Role = "accountant"
	RoleTeacher     Role = "teacher"
	RoleParent      Role = "parent"
	RoleStudent     Role = "student"
)

// JWTClaims is the payload of bearer tokens issued by the identity provider.
// The subject carries the user id; user_id is accepted for older tokens.
type JWTClaims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the authenticated user id.
func (c *JWTClaims) Identity() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

// Profile links an authenticated user to a school and a role.
type Profile struct {
	UserID    string    `db:"user_id" json:"user_id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Role      Role      `db:"role" json:"role"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasRole reports whether the profile holds one of roles.
func (p *Profile) HasRole(roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
