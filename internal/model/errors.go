package model

import "errors"

var (
	// Identity errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrPhoneTaken         = errors.New("phone number already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")

	// Token errors
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenIssuerMismatch   = errors.New("token issuer mismatch")
	ErrTokenAudienceMismatch = errors.New("token audience mismatch")
	ErrTokenExpired          = errors.New("token expired")

	// Password errors
	ErrPasswordMismatch = errors.New("current password is incorrect")
	ErrPasswordReused   = errors.New("new password must differ from current password")
	ErrPasswordPolicy   = errors.New("password does not meet policy")

	// Generic errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)
