package handler

import (
	"log/slog"
	"net/http"

	"tasktracker/internal/delivery/api/middleware"
	"tasktracker/internal/delivery/api/response"
	domainerrors "tasktracker/internal/domain/errors"
	"tasktracker/internal/errors"
	"tasktracker/internal/infra/metrics"
	"tasktracker/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AccountHandlerParams holds dependencies for AccountHandler, injected by Fx.
type AccountHandlerParams struct {
	fx.In

	AccountUC usecase.AccountUsecase
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// AccountHandler serves registration, sign-in and the current-user lookup.
type AccountHandler struct {
	accountUC usecase.AccountUsecase
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler
func NewAccountHandler(params AccountHandlerParams) *AccountHandler {
	return &AccountHandler{
		accountUC: params.AccountUC,
		metrics:   params.Metrics,
		logger:    params.Logger,
	}
}

// RegisterRequest represents the request body for account registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents the request body for login.
// Only presence is validated so that malformed emails fail like wrong ones.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,max=255"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// TokenRequest is the OAuth2 password-grant form; username carries the email.
type TokenRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=255"`
	Password string `json:"password" form:"password" validate:"required"`
}

// TokenResponse is the OAuth2 token body without the embedded user.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register handles POST /auth/register.
func (h *AccountHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.accountUC.Register(c.Request().Context(), &usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.metrics.ObserveRegistration(metrics.OutcomeFailure)

		return err
	}
	h.metrics.ObserveRegistration(metrics.OutcomeSuccess)

	return response.Success(c, http.StatusCreated, user)
}

// Login handles POST /auth/login.
func (h *AccountHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	output, err := h.login(c, &usecase.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, output)
}

// Token handles POST /auth/token, the form login used by OAuth2 password-flow clients.
func (h *AccountHandler) Token(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	output, err := h.login(c, &usecase.LoginInput{Email: req.Username, Password: req.Password})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, TokenResponse{
		AccessToken: output.AccessToken,
		TokenType:   output.TokenType,
	})
}

func (h *AccountHandler) login(c echo.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	output, err := h.accountUC.Login(c.Request().Context(), input)
	if err != nil {
		h.metrics.ObserveLogin(metrics.OutcomeFailure)

		return nil, err
	}
	h.metrics.ObserveLogin(metrics.OutcomeSuccess)

	return output, nil
}

// Me handles GET /auth/me.
func (h *AccountHandler) Me(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	user, err := h.accountUC.GetSelf(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, user)
}

// Logout handles POST /auth/logout. Tokens are stateless, so the client
// discards its copy and the server only acknowledges.
func (h *AccountHandler) Logout(c echo.Context) error {
	if _, ok := middleware.GetUserID(c); !ok {
		return errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	return response.Message(c, "Logged out successfully")
}
