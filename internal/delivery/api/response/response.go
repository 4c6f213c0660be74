package response

import (
	"net/http"

	deliverycontext "tasktracker/internal/delivery/context"

	"github.com/labstack/echo/v4"
)

// ErrorResponse defines the structure for error responses.
// Detail repeats the message for clients that read a top-level detail field.
type ErrorResponse struct {
	Error  *ErrorInfo `json:"error"`
	Detail string     `json:"detail"`
	Meta   *MetaInfo  `json:"meta"`
}

// ErrorInfo contains detailed error information
type ErrorInfo struct {
	Code    string `json:"code"`              // Machine-readable error code, e.g., "VALIDATION_FAILED"
	Message string `json:"message"`           // User-friendly error message
	Details any    `json:"details,omitempty"` // Additional error context (only for 4xx errors)
}

// MetaInfo represents response metadata
type MetaInfo struct {
	RequestID string `json:"request_id"` // Request tracking ID
}

// MessageResponse is the body of acknowledgement-only endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// Success writes data as the bare response body.
func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, data)
}

// Message acknowledges a request with a short text.
func Message(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, MessageResponse{Message: message})
}

// NoContent returns 204 without a body.
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Error returns an error response. 401 responses carry a Bearer challenge.
func Error(c echo.Context, statusCode int, errorCode string, message string, details any) error {
	// Details should not be included for 5xx errors or authentication/authorization errors
	if statusCode >= http.StatusInternalServerError ||
		statusCode == http.StatusUnauthorized ||
		statusCode == http.StatusForbidden {
		details = nil
	}

	if statusCode == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}

	return c.JSON(statusCode, ErrorResponse{
		Error: &ErrorInfo{
			Code:    errorCode,
			Message: message,
			Details: details,
		},
		Detail: message,
		Meta: &MetaInfo{
			RequestID: deliverycontext.GetRequestID(c),
		},
	})
}

// InternalServerError returns a 500 error
func InternalServerError(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusInternalServerError, errorCode, message, nil)
}
