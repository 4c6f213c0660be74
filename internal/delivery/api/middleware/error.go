package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"tasktracker/internal/delivery/api/response"
	"tasktracker/internal/delivery/api/validator"
	deliverycontext "tasktracker/internal/delivery/context"
	domainerrors "tasktracker/internal/domain/errors"
	"tasktracker/internal/errors"

	"github.com/labstack/echo/v4"
)

// httpErrorCodes names the framework-level failures echo reports itself.
var httpErrorCodes = map[int]string{
	http.StatusBadRequest:            "INVALID_REQUEST",
	http.StatusUnauthorized:          "UNAUTHENTICATED",
	http.StatusNotFound:              "NOT_FOUND",
	http.StatusMethodNotAllowed:      "METHOD_NOT_ALLOWED",
	http.StatusRequestEntityTooLarge: "REQUEST_TOO_LARGE",
	http.StatusUnsupportedMediaType:  "UNSUPPORTED_MEDIA_TYPE",
}

// ErrorMiddleware handles errors in the HTTP pipeline
type ErrorMiddleware struct {
	logger *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger: logger,
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		m.log(c).Warn("Error after response was committed", slog.Any("error", err))

		return
	}

	if validationErr, ok := errors.Find[*validator.ValidationError](err); ok {
		_ = response.Error(c, http.StatusBadRequest, domainerrors.ErrValidationFailed.ErrorCode(), validationErr.Error(), validationErr.Fields)

		return
	}

	if appErr, ok := errors.Find[domainerrors.AppError](err); ok {
		if appErr.HTTPCode() >= http.StatusInternalServerError {
			m.logInternal(c, err)
		}

		var details any
		if appErr.Details() != "" {
			details = appErr.Details()
		}
		_ = response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), details)

		return
	}

	if httpErr, ok := errors.Find[*echo.HTTPError](err); ok {
		if httpErr.Code >= http.StatusInternalServerError {
			m.logInternal(c, err)
			_ = response.InternalServerError(c, domainerrors.ErrInternalError.ErrorCode(), domainerrors.ErrInternalError.Message())

			return
		}

		code, known := httpErrorCodes[httpErr.Code]
		if !known {
			code = "HTTP_ERROR"
		}
		_ = response.Error(c, httpErr.Code, code, httpErrorMessage(httpErr), nil)

		return
	}

	// For 500 errors, do not expose internal error details to the client
	m.logInternal(c, err)
	_ = response.InternalServerError(c, domainerrors.ErrInternalError.ErrorCode(), domainerrors.ErrInternalError.Message())
}

func (m *ErrorMiddleware) log(c echo.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger)
}

func (m *ErrorMiddleware) logInternal(c echo.Context, err error) {
	m.log(c).Error("Unhandled error",
		slog.String("error", fmt.Sprintf("%+v", err)),
		slog.String("path", c.Request().URL.Path),
		slog.String("method", c.Request().Method),
	)
}

func httpErrorMessage(httpErr *echo.HTTPError) string {
	if msg, ok := httpErr.Message.(string); ok && msg != "" {
		return msg
	}

	return http.StatusText(httpErr.Code)
}
