package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/tarikstafford/reve-app-sub000/internal/api/shared"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/service"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	case errors.Is(err, service.ErrEntityNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrTaskNotFailed),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrStaleTransition):
		return http.StatusConflict

	case isValidationError(err):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

func isValidationError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInvalidID) ||
		errors.Is(err, domain.ErrInvalidEntityType) ||
		errors.Is(err, domain.ErrInvalidTaskStatus) ||
		errors.Is(err, domain.ErrEmptyEntityTitle) ||
		errors.Is(err, domain.ErrEmptyImagePrompt) ||
		errors.Is(err, store.ErrInvalidEntity) ||
		errors.Is(err, errInvalidPagination)
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this resource"
	case errors.Is(err, service.ErrEntityNotFound), errors.Is(err, store.ErrEntityNotFound):
		return "Entity not found"
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, store.ErrQueueTaskNotFound):
		return "Queue task not found"
	case errors.Is(err, service.ErrTaskNotFailed):
		return "Only failed tasks can be retried"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"
	case errors.As(err, &verrs):
		return SanitizeValidationError(err)
	case errors.Is(err, domain.ErrEmptyEntityTitle):
		return "Invalid title: required field"
	case errors.Is(err, domain.ErrEmptyImagePrompt):
		return "Invalid image_prompt: required field"
	case errors.Is(err, domain.ErrInvalidEntityType):
		return "Invalid entity type"
	case errors.Is(err, domain.ErrInvalidTaskStatus):
		return "Invalid task status"
	case errors.Is(err, errInvalidPagination):
		return "Invalid pagination parameters"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case isValidationError(err):
		return "Validation error"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a message naming the
// first offending field, without echoing the rejected value.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", jsonFieldName(fe), getValidationTagMessage(fe.Tag()))
}

func jsonFieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return fe.StructField()
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "required_with":
		return "all parts are required together"
	default:
		return "validation failed"
	}
}

// HandleAPIError maps err to a status code and safe message, logs the
// redacted detail and writes the response. defaultMsg replaces the generic
// message for 500s when set.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		msg = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err)
}
