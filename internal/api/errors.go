package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/verbdrill/internal/api/shared"
	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/domain/srs"
	"github.com/phrazzld/verbdrill/internal/identity"
	"github.com/phrazzld/verbdrill/internal/service/review"
	"github.com/phrazzld/verbdrill/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case identity.IsAuthError(err):
		return http.StatusUnauthorized

	case errors.As(err, &validationErrs),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, store.ErrInvalidNamespace):
		return http.StatusBadRequest

	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict

	case store.IsUnavailableError(err):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(validationErrs)
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, srs.ErrInvalidQuality):
		return "Quality must be between 0 and 5"
	case errors.Is(err, review.ErrUnknownItem):
		return "Unknown item"
	case errors.Is(err, review.ErrCategoryMismatch):
		return "Category does not match item"
	case errors.Is(err, domain.ErrInvalidCategory):
		return "Invalid category"
	case errors.Is(err, domain.ErrEmptyItemID):
		return "Item ID is required"
	case errors.Is(err, store.ErrInvalidNamespace):
		return "Invalid namespace"
	case errors.Is(err, domain.ErrInvalidFormat):
		return "Malformed progress data"
	case errors.Is(err, domain.ErrValidation):
		return "Invalid request"
	case errors.Is(err, store.ErrConflict):
		return "Concurrent update, please retry"
	case errors.Is(err, store.ErrStoreUnavailable):
		return "Store unavailable"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a short message
// naming the first failing field.
func SanitizeValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Validation error"
	}
	fe := errs[0]
	return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// respondWithServiceError maps err onto a status and writes the response.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
