// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. Codes are lowercase snake_case and stable: clients branch on
// them programmatically, so they must never change meaning.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentinel-app/sentinel-backend/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeNoContacts       = "no_contacts"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// failFromService maps a service-layer error onto the HTTP envelope. The
// zero active contacts case gets its own code so the mobile client can
// steer the user into contact setup instead of showing a generic error.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNoActiveContacts):
		fail(c, http.StatusBadRequest, ErrCodeNoContacts, err.Error())
	case errors.Is(err, services.ErrMissingContactFields),
		errors.Is(err, services.ErrInvalidRelationship),
		errors.Is(err, services.ErrInvalidAlertType),
		errors.Is(err, services.ErrInvalidAlertStatus),
		errors.Is(err, services.ErrMessageTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrDuplicatePhone):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrContactNotFound),
		errors.Is(err, services.ErrAlertNotFound),
		errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrContactAccessDenied),
		errors.Is(err, services.ErrAlertAccessDenied):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
