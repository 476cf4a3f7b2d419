package model

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginResponse struct {
	Token     string     `json:"token"`
	Clinician *Clinician `json:"clinician"`
}

// TokenClaims are the JWT claims issued on login. Role gates the
// redaction layer, nothing else in this service.
type TokenClaims struct {
	jwt.RegisteredClaims
	ClinicianID uuid.UUID `json:"clinician_id"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
}
