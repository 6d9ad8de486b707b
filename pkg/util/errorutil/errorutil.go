package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

// Error codes carried in the response envelope.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeIllegalTransition  = "ILLEGAL_TRANSITION"
	CodeInvalidRating      = "INVALID_RATING"
	CodeAlreadyEvaluated   = "ALREADY_EVALUATED"
	CodeUnknownStatus      = "UNKNOWN_STATUS"
	CodeNetwork            = "NETWORK_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodeRequestTimeout     = "REQUEST_TIMEOUT"
	CodeRouteNotRegistered = "ROUTE_NOT_FOUND"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewIllegalTransition reports an action attempted from a status that does not allow it.
func NewIllegalTransition(current, requested, action string) error {
	return NewDomainError(CodeIllegalTransition,
		fmt.Sprintf("cannot %s: ticket is %s, %s not reachable", action, current, requested),
		http.StatusConflict,
		map[string]any{"current": current, "requested": requested, "action": action})
}

func NewInvalidRating(rating int) error {
	return NewDomainError(CodeInvalidRating, "rating must be between 1 and 5", http.StatusUnprocessableEntity,
		map[string]any{"rating": rating})
}

func NewAlreadyEvaluated(ticketID int64) error {
	return NewDomainError(CodeAlreadyEvaluated, "ticket already evaluated", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

// NewUnknownStatus flags a status value outside the enum, which only corrupted data can produce.
func NewUnknownStatus(status string) error {
	return NewDomainError(CodeUnknownStatus, fmt.Sprintf("unknown status %q", status), http.StatusInternalServerError,
		map[string]any{"status": status})
}

// NewNetworkError reports an unreachable backing dependency.
func NewNetworkError(dependency string, err error) error {
	return &DomainError{
		Code:       CodeNetwork,
		Message:    fmt.Sprintf("%s unavailable", dependency),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{
			Code:       codeForStatus(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// HasCode reports whether err carries the given DomainError code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeRouteNotRegistered
	case http.StatusConflict:
		return CodeConflict
	case http.StatusRequestTimeout:
		return CodeRequestTimeout
	case http.StatusServiceUnavailable:
		return CodeNetwork
	}
	if status >= 500 {
		return CodeInternal
	}
	return CodeValidation
}
