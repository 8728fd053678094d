package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/visitor"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrTokenRevoked):
		Unauthorized(w, "Token revoked")
	case errors.Is(err, auth.ErrOperatorNotRegistered):
		Forbidden(w, "No operator is registered for this account")
	case errors.Is(err, auth.ErrGoogleEmailNotVerified):
		Forbidden(w, "Google email not verified")
	case errors.Is(err, auth.ErrInvalidOAuthState):
		BadRequest(w, "Invalid OAuth state", nil)
	case errors.Is(err, auth.ErrGoogleSignInDisabled):
		NotFound(w, "Google sign-in is not configured")

	// Operator errors
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "Operator not found")
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Insufficient permissions")

	// Presence and visitor errors
	case errors.Is(err, presence.ErrPersonIDRequired):
		BadRequest(w, "Person id is required", nil)
	case errors.Is(err, visitor.ErrInvalidID):
		BadRequest(w, "Visitor id must be a UUID", nil)

	// Punch errors
	case errors.Is(err, punch.ErrInvalidPageToken):
		BadRequest(w, "Invalid page token", nil)

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
