package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and role, matching spec.md §6's
// {token, role} success shape.
type LoginResponse struct {
	Token     string   `json:"token"`
	Role      UserRole `json:"role"`
	Username  string   `json:"username"`
	ExpiresIn int64    `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
}

// RegisterRequest submits a registration request; approval is an external
// workflow, this core only consumes its eventual result (a Student +
// HelpDeskAssistant record).
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Degree   Degree `json:"degree" validate:"required,oneof=BSc MSc"`
}

// RegisterResponse acknowledges a submitted registration.
type RegisterResponse struct {
	RegistrationID string `json:"registration_id"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// ResetPasswordRequest initiates the reset flow.
type ResetPasswordRequest struct {
	Username string `json:"username" validate:"required"`
}

// ConfirmResetPasswordRequest completes the reset flow.
type ConfirmResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}
