package middleware

import (
	"log/slog"
	"strings"

	deliverycontext "tasktracker/internal/delivery/context"
	domainerrors "tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/service"
	"tasktracker/internal/errors"
	"tasktracker/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const bearerScheme = "bearer"

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	TokenService service.TokenService
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// AuthMiddleware resolves the bearer token on a request to the calling user.
type AuthMiddleware struct {
	tokenSvc service.TokenService
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		tokenSvc: params.TokenService,
		metrics:  params.Metrics,
		logger:   params.Logger,
	}
}

// Authenticate rejects the request with 401 unless it carries a valid,
// unexpired bearer token. On success the caller's ID is available through GetUserID.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			m.metrics.ObserveTokenVerification(metrics.OutcomeMissing)

			return errors.WithStack(domainerrors.ErrUnauthenticated)
		}

		userID, err := m.tokenSvc.Verify(token)
		if err != nil {
			outcome := metrics.OutcomeInvalid
			if errors.Is(err, service.ErrTokenExpired) {
				outcome = metrics.OutcomeExpired
			}
			m.metrics.ObserveTokenVerification(outcome)
			deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).
				Debug("Bearer token rejected", slog.String("outcome", outcome))

			return errors.WithStack(domainerrors.ErrUnauthenticated)
		}

		m.metrics.ObserveTokenVerification(metrics.OutcomeSuccess)
		deliverycontext.SetUserID(c, userID)

		return next(c)
	}
}

// GetUserID returns the caller resolved by Authenticate.
func GetUserID(c echo.Context) (uuid.UUID, bool) {
	return deliverycontext.GetUserID(c)
}

// bearerToken extracts the credential from "Bearer <token>". The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}
