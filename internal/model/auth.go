package model

import "github.com/golang-jwt/jwt/v5"

// OwnerClaims are JWT claims for survey owners
type OwnerClaims struct {
	OwnerID  string `json:"ownerId"`
	TenantID string `json:"tenantId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for owner login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token    string `json:"token"`
	OwnerID  string `json:"ownerId"`
	TenantID string `json:"tenantId"`
}
