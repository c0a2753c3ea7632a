package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles recognised by the RBAC middleware.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleStudent    UserRole = "STUDENT"
)

// JWTClaims represents the access token payload issued by the identity provider.
// For instructors and students UserID is the id of their instructor or student record.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the caller has full access.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// Acts reports whether the caller holds role and owns the record id.
func (c *JWTClaims) Acts(role UserRole, id string) bool {
	return c != nil && c.Role == role && c.UserID == id
}
