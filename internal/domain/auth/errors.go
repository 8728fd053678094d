package auth

import "errors"

var (
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrTokenRevoked           = errors.New("token has been revoked")
	ErrOperatorNotRegistered  = errors.New("no operator is registered for this google account")
	ErrGoogleEmailNotVerified = errors.New("google email is not verified")
	ErrInvalidOAuthState      = errors.New("invalid oauth state")
	ErrGoogleSignInDisabled   = errors.New("google sign-in is not configured")
)
