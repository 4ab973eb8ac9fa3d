package handlers

import (
	"errors"
	"net/http"

	"github.com/aidrelay/aidrelay/services/account"
	"github.com/aidrelay/aidrelay/services/auth"
	"github.com/aidrelay/aidrelay/services/logging"
	"github.com/aidrelay/aidrelay/services/session"
	"github.com/aidrelay/aidrelay/services/token"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type ConfirmRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type NewPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
	Token       string `json:"token"`
}

// AuthHandler maps the account lifecycle onto HTTP. Internal failure
// distinctions are collapsed to the generic statuses of the API
// contract and never echoed to the client.
type AuthHandler struct {
	auth     *auth.Service
	sessions *session.Service
	logger   *logging.Service
}

func NewAuthHandler(authSvc *auth.Service, sessions *session.Service, logger *logging.Service) *AuthHandler {
	return &AuthHandler{
		auth:     authSvc,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/register", h.Register)
	e.POST("/register/confirm", h.ConfirmRegistration)
	e.POST("/login", h.Login)
	e.POST("/password/token", h.RequestPasswordReset)
	e.POST("/password/new", h.ResetPassword)

	me := e.Group("/me", h.auth.RequireSession())
	me.GET("", h.Me)
	me.GET("/cookie", h.RenewCookie)
	me.DELETE("/cookie", h.DeleteCookie)
	me.POST("/password", h.ChangePassword)
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.auth.Register(req.Email, req.Name, req.Password)
	switch {
	case err == nil:
		return c.NoContent(http.StatusAccepted)
	case errors.Is(err, auth.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrDuplicateEmail):
		return echo.NewHTTPError(http.StatusConflict, "an account with this email already exists")
	default:
		h.logger.Error("registration failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}
}

func (h *AuthHandler) ConfirmRegistration(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.auth.Confirm(req.Email, req.Token); err != nil {
		if isTokenError(err) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		h.logger.Error("account confirmation failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "confirmation failed")
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cred, err := h.auth.Login(req.Email, req.Password)
	switch {
	case err == nil:
		c.SetCookie(h.sessions.Cookie(cred))
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrAccountNotConfirmed):
		return echo.NewHTTPError(http.StatusForbidden, "account has not been confirmed")
	default:
		h.logger.Error("login failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
}

func (h *AuthHandler) Me(c echo.Context) error {
	identity := auth.CurrentIdentity(c)
	if identity == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, identity.User)
}

func (h *AuthHandler) RenewCookie(c echo.Context) error {
	identity := auth.CurrentIdentity(c)
	if identity == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	cred, err := h.auth.RenewSession(identity.User.ID)
	if err != nil {
		h.logger.Error("session renewal failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "session renewal failed")
	}

	c.SetCookie(h.sessions.Cookie(cred))
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) DeleteCookie(c echo.Context) error {
	h.auth.EndSession(auth.SessionCookieValue(c))
	c.SetCookie(h.sessions.ExpiredCookie())
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	identity := auth.CurrentIdentity(c)
	if identity == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cred, err := h.auth.ChangePassword(identity.User.ID, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		c.SetCookie(h.sessions.Cookie(cred))
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, "password change rejected")
	default:
		h.logger.Error("password change failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "password change failed")
	}
}

// RequestPasswordReset answers 202 no matter what so the endpoint
// cannot be used to probe which emails are registered.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusAccepted)
	}

	if err := h.auth.RequestPasswordReset(req.Email); err != nil {
		h.logger.Error("password reset request failed", zap.Error(err))
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req NewPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.auth.ResetPassword(req.Email, req.Token, req.NewPassword)
	switch {
	case err == nil:
		return c.NoContent(http.StatusAccepted)
	case errors.Is(err, auth.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case isTokenError(err):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	default:
		h.logger.Error("password reset failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "password reset failed")
	}
}

func isTokenError(err error) bool {
	return errors.Is(err, token.ErrTokenInvalid) ||
		errors.Is(err, token.ErrTokenExpired) ||
		errors.Is(err, token.ErrTokenPurposeMismatch)
}
