package models

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Authentication errors
	ErrorCodeMissingAPIKey  ErrorCode = "MISSING_API_KEY"
	ErrorCodeInvalidAPIKey  ErrorCode = "INVALID_API_KEY"
	ErrorCodeInactiveAPIKey ErrorCode = "INACTIVE_API_KEY"

	// Rate limiting errors
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Request errors
	ErrorCodeMalformedJSON    ErrorCode = "MALFORMED_JSON"
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Ledger read-path errors
	ErrorCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrorCodeObjectUnavailable ErrorCode = "OBJECT_UNAVAILABLE"
	ErrorCodeMalformedValue    ErrorCode = "MALFORMED_VALUE"

	// Ledger write-path and transport errors
	ErrorCodeLedgerRejected   ErrorCode = "LEDGER_REJECTED"
	ErrorCodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"

	// Internal errors
	ErrorCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Field   string    `json:"field,omitempty"`
}

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Error         ErrorDetail `json:"error"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// HTTPStatusCode returns the appropriate HTTP status code for each error type
func (e ErrorCode) HTTPStatusCode() int {
	switch e {
	case ErrorCodeMissingAPIKey, ErrorCodeInvalidAPIKey, ErrorCodeInactiveAPIKey:
		return http.StatusUnauthorized
	case ErrorCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorCodeMalformedJSON, ErrorCodeValidationFailed:
		return http.StatusBadRequest
	case ErrorCodeNotFound, ErrorCodeObjectUnavailable:
		return http.StatusNotFound
	case ErrorCodeLedgerRejected:
		return http.StatusUnprocessableEntity
	case ErrorCodeMalformedValue, ErrorCodeTransportFailure:
		return http.StatusBadGateway
	case ErrorCodeDatabaseError, ErrorCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// AppError represents an application error with context
type AppError struct {
	Code       ErrorCode
	Message    string
	Details    string
	Field      string
	Cause      error
	Context    map[string]interface{}
	StatusCode int
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: code.HTTPStatusCode(),
		Context:    make(map[string]interface{}),
	}
}

// NewAppErrorWithCause creates a new application error with underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: code.HTTPStatusCode(),
		Context:    make(map[string]interface{}),
	}
}

// NewAppErrorWithDetails creates a new application error with details
func NewAppErrorWithDetails(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: code.HTTPStatusCode(),
		Context:    make(map[string]interface{}),
	}
}

// NewValidationError creates a field-level validation error
func NewValidationError(field, reason string) *AppError {
	e := NewAppErrorWithDetails(ErrorCodeValidationFailed, "Validation failed", reason)
	e.Field = field
	return e
}

// NewNotFoundError reports an identifier with no resolvable address
func NewNotFoundError(identifier string) *AppError {
	return NewAppErrorWithDetails(ErrorCodeNotFound, "Droplet not found", identifier)
}

// NewTransportError reports a failed RPC round trip
func NewTransportError(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeTransportFailure, message, cause)
}

// NewDatabaseError creates a database error
func NewDatabaseError(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeDatabaseError, message, cause)
}

// Abort markers raised by the on-chain program when a mutating call is
// rejected. Known markers translate to stable user-facing sentences;
// anything unrecognized falls back to the raw message.
const (
	abortAlreadyClaimed = "E_ALREADY_CLAIMED"
	abortExpired        = "E_DROPLET_EXPIRED"
	abortClosed         = "E_DROPLET_CLOSED"
	abortLimitReached   = "E_RECEIVER_LIMIT_REACHED"
	abortNotFound       = "E_DROPLET_NOT_FOUND"
)

// TranslateLedgerRejection maps a raw program abort message to one of the
// five known user-facing reasons, or returns the raw message unchanged.
func TranslateLedgerRejection(raw string) string {
	switch {
	case strings.Contains(raw, abortAlreadyClaimed):
		return "You have already claimed from this droplet"
	case strings.Contains(raw, abortExpired):
		return "This droplet has expired"
	case strings.Contains(raw, abortClosed):
		return "This droplet is closed"
	case strings.Contains(raw, abortLimitReached):
		return "Droplet has reached its recipient limit"
	case strings.Contains(raw, abortNotFound):
		return "Droplet not found. Please check the ID"
	default:
		return raw
	}
}

// NewLedgerRejectedError wraps a program abort with its translated reason
func NewLedgerRejectedError(raw string) *AppError {
	return NewAppErrorWithDetails(ErrorCodeLedgerRejected, TranslateLedgerRejection(raw), raw)
}

// HandleError handles application errors and sends appropriate HTTP response
func HandleError(c *gin.Context, err error, logger interface{}) {
	var appErr *AppError
	var correlationID string

	// Extract correlation ID from context
	if ctx := c.Request.Context(); ctx != nil {
		if cid := ctx.Value("correlation_id"); cid != nil {
			correlationID = cid.(string)
		}
	}
	if correlationID == "" {
		if cid := c.GetString("correlation_id"); cid != "" {
			correlationID = cid
		}
	}

	// Convert error to AppError if needed
	if appError, ok := err.(*AppError); ok {
		appErr = appError
	} else {
		appErr = NewAppErrorWithCause(ErrorCodeInternalError, "Internal server error", err)
	}

	// Add request context to error
	appErr.WithContext("method", c.Request.Method).
		WithContext("path", c.Request.URL.Path).
		WithContext("client_ip", c.ClientIP())

	// Log the error with appropriate level
	if l, ok := logger.(interface {
		WithContext(context.Context) interface {
			Error(string, ...zap.Field)
			Warn(string, ...zap.Field)
		}
	}); ok {
		contextLogger := l.WithContext(c.Request.Context())

		logFields := []zap.Field{
			zap.String("error_code", string(appErr.Code)),
			zap.String("error_message", appErr.Message),
			zap.Any("error_context", appErr.Context),
		}

		if appErr.Cause != nil {
			logFields = append(logFields, zap.Error(appErr.Cause))
		}

		if appErr.StatusCode >= 500 {
			contextLogger.Error("Application error", logFields...)
		} else {
			contextLogger.Warn("Client error", logFields...)
		}
	}

	response := &ErrorResponse{
		Error: ErrorDetail{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
			Field:   appErr.Field,
		},
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}

	c.JSON(appErr.StatusCode, response)
}
