package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fluxo-backend/internal/application"
	"github.com/oksasatya/fluxo-backend/internal/interface/middleware"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
	"github.com/oksasatya/fluxo-backend/pkg/response"
)

// AuthHandler serves registration, login and email confirmation.
type AuthHandler struct {
	Svc     *application.Service
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd,max=72"`
	Name     string `json:"name" binding:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type confirmEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,otp"`
}

type resendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{
		"user":            userView(u),
		"email_confirmed": false,
	}, "registered, check your email for the confirmation code", nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	u, tok, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetAccess(c, tok.AccessToken, tok.ExpiresAt)
	response.OK(c, http.StatusOK, gin.H{
		"access_token": tok.AccessToken,
		"token_type":   "bearer",
		"expires_at":   tok.ExpiresAt,
		"user":         userView(u),
	}, "login successful", nil)
}

// Logout POST /api/auth/logout (auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	sid := c.GetString(middleware.CtxSessionIDKey)
	if err := h.Svc.Logout(c.Request.Context(), uid, sid); err != nil && h.Logger != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Warn("delete session failed")
	}
	h.Cookies.Clear(c)
	response.OK(c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// ConfirmEmail POST /api/auth/confirm-email
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	var req confirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if err := h.Svc.ConfirmEmail(c.Request.Context(), req.Email, req.Code); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"email_confirmed": true}, "email confirmed", nil)
}

// ResendConfirmation POST /api/auth/resend-confirmation
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if err := h.Svc.ResendConfirmation(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"sent": true}, "confirmation code sent", nil)
}
