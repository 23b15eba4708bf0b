package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/tasks-api/internal/api/middleware"
	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/service"
	"github.com/phrazzld/tasks-api/internal/service/auth"
	"github.com/phrazzld/tasks-api/internal/store"
)

// genericErrorMessage is the only message a 500 response ever carries.
const genericErrorMessage = "Internal Server Error"

// MapErrorToStatusCode maps internal errors to HTTP status codes. Anything
// unrecognised is a 500.
func MapErrorToStatusCode(err error) int {
	var validationErr *domain.ValidationError

	switch {
	case err == nil:
		return http.StatusInternalServerError

	case auth.IsUnauthenticated(err):
		return http.StatusUnauthorized

	case errors.As(err, &validationErr),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrTaskNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns the client-facing message for err. Validation
// messages name the offending field; 5xx messages never carry detail.
func GetSafeErrorMessage(err error) string {
	var validationErr *domain.ValidationError

	switch {
	case err == nil:
		return genericErrorMessage

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid email or password"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"

	case errors.Is(err, middleware.ErrMalformedAuthHeader):
		return "Authorization header must be of the form: Bearer <token>"

	case errors.Is(err, auth.ErrMissingToken):
		return "Authorization header with Bearer token is required"

	case auth.IsUnauthenticated(err):
		return "Invalid or expired token"

	case errors.As(err, &validationErr):
		return validationErr.Error()

	case errors.Is(err, domain.ErrValidation):
		return err.Error()

	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	default:
		return genericErrorMessage
	}
}

// HandleAPIError is the single error boundary: it maps err to a status and a
// safe message, logs the redacted detail and writes the error envelope.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError {
		message = genericErrorMessage
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
