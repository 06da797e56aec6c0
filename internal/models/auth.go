package models

import "github.com/golang-jwt/jwt/v5"

// UserRole scopes what an authenticated user may do.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleOrganizer UserRole = "ORGANIZER"
)

// JWTClaims is the access-token payload.
type JWTClaims struct {
	UserID string   `json:"uid"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
