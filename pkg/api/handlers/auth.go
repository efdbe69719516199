package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/jordanlanch/campusflow/pkg/api/errors"
	apimw "github.com/jordanlanch/campusflow/pkg/api/middleware"
	"github.com/jordanlanch/campusflow/pkg/auth"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	auth         *auth.Service
	cookieSecure bool
	validator    *validator.Validate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc *auth.Service, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: authSvc, cookieSecure: cookieSecure, validator: validator.New()}
}

// Register godoc
// @Summary Register a new user
// @Description Create a staff account with email and password. New accounts default to the agente role.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.CreateUserRequest true "Registration data"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.CreateUserRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	resp, err := h.auth.Register(ctx, req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Login godoc
// @Summary Login
// @Description Authenticate with email and password and receive a JWT
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	resp, err := h.auth.Login(ctx, req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Session godoc
// @Summary Exchange a provider session
// @Description Exchange an identity provider session id for a cookie session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.SessionRequest true "Provider session"
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/session [post]
func (h *AuthHandler) Session(c echo.Context) error {
	var req models.SessionRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	u, sess, err := h.auth.ProviderLogin(ctx, req.SessionID)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	c.SetCookie(h.sessionCookie(sess.Token, h.auth.SessionLifetime()))
	return c.JSON(http.StatusOK, u)
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, apimw.CurrentUser(c))
}

// Logout godoc
// @Summary Logout
// @Description Delete the cookie session, if any, and clear the cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	if cookie, err := c.Cookie(apimw.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.auth.Logout(ctx, cookie.Value); err != nil {
			return apierrors.FromDomain(c, err)
		}
	}
	c.SetCookie(h.sessionCookie("", -1))
	return c.JSON(http.StatusOK, models.MessageResponse{Message: auth.MsgLoggedOut})
}

// ForgotPassword godoc
// @Summary Request a password reset
// @Description Send a reset link. The response is the same whether or not the email exists.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.ForgotPasswordRequest true "Email"
// @Success 200 {object} models.MessageResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req models.ForgotPasswordRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	if err := h.auth.ForgotPassword(ctx, req.Email); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: auth.MsgForgotPassword})
}

// ResetPassword godoc
// @Summary Reset password
// @Description Redeem a reset token and set a new password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.ResetPasswordRequest true "Token and new password"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req models.ResetPasswordRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	if err := h.auth.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: auth.MsgPasswordReset})
}

// sessionCookie builds the session cookie. A negative maxAge clears it.
func (h *AuthHandler) sessionCookie(value string, maxAge time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     apimw.SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   int(maxAge.Seconds()),
	}
	if maxAge < 0 {
		cookie.MaxAge = -1
	}
	if !h.cookieSecure {
		cookie.SameSite = http.SameSiteLaxMode
	}
	return cookie
}
