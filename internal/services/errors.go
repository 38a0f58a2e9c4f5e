package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/core/functions"
)

// DomainError is an error with a stable code the API layer renders as is.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func notFound(what string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", what+" not found", nil)
}

func validation(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

func forbidden(message string) *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", message, nil)
}

func invalidState(message string) *DomainError {
	return domainError(http.StatusConflict, "INVALID_STATE", message, nil)
}

// remoteFailure wraps a failed remote function call.
func remoteFailure(err error) error {
	var remote *functions.RemoteError
	if errors.As(err, &remote) {
		return domainError(http.StatusBadGateway, "REMOTE_FUNCTION_FAILED", remote.Message, map[string]any{
			"function": remote.Function,
			"status":   remote.Status,
		})
	}
	return domainError(http.StatusBadGateway, "REMOTE_FUNCTION_FAILED", err.Error(), nil)
}

// lookupErr turns a collection miss into a NOT_FOUND domain error.
func lookupErr(what string, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return notFound(what)
	}
	return err
}

// MapError returns the HTTP status, code and message for any error.
func MapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
