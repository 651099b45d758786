package auth

import "errors"

var (
	// ErrTokenInvalid covers bad signatures, wrong algorithms, expiry and
	// missing claims.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrInvalidRole is returned for role names outside viewer, operator
	// and admin.
	ErrInvalidRole = errors.New("auth: invalid role")
)
