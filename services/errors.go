package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced by the quotation core. Handlers map Status straight to
// the HTTP response; Code lets callers and tests branch without string matching.
const (
	CodeValidation          = "validation_error"
	CodeStateConflict       = "state_conflict"
	CodeNotFound            = "not_found"
	CodeExpired             = "expired"
	CodeDuplicateSubmission = "duplicate_submission"
	CodeInvalidTransition   = "invalid_transition"
	CodeNotComparable       = "not_comparable"
	CodeInternal            = "internal_error"
)

// ServiceError is the error type returned by all quotation core operations.
type ServiceError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsServiceError unwraps err into a *ServiceError, wrapping unknown errors as
// internal so transactional failures always surface as 5xx.
func AsServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return &ServiceError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: err.Error()}
}

func validationError(message string, details interface{}) *ServiceError {
	return &ServiceError{Status: http.StatusBadRequest, Code: CodeValidation, Message: message, Details: details}
}

func stateConflictError(message string, details interface{}) *ServiceError {
	return &ServiceError{Status: http.StatusConflict, Code: CodeStateConflict, Message: message, Details: details}
}

func notFoundError(message string) *ServiceError {
	return &ServiceError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

func expiredError(message string) *ServiceError {
	return &ServiceError{Status: http.StatusConflict, Code: CodeExpired, Message: message}
}

func duplicateSubmissionError(message string) *ServiceError {
	return &ServiceError{Status: http.StatusConflict, Code: CodeDuplicateSubmission, Message: message}
}

func invalidTransitionError(message string) *ServiceError {
	return &ServiceError{Status: http.StatusConflict, Code: CodeInvalidTransition, Message: message}
}

func notComparableError(message string) *ServiceError {
	return &ServiceError{Status: http.StatusConflict, Code: CodeNotComparable, Message: message}
}

func internalError(err error) *ServiceError {
	return &ServiceError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: err.Error()}
}
