package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/fluxo-backend/internal/interface/http"
	"github.com/oksasatya/fluxo-backend/internal/interface/middleware"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
)

// AuthModule wires registration, login and email confirmation.
// Public: POST /api/auth/{register,login,confirm-email,resend-confirmation}
// Protected: POST /api/auth/logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	RDB     *redis.Client
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, rdb *redis.Client, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, RDB: rdb, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with IP-based rate limits
	registerLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	confirmLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	resendLimiter := middleware.RateLimit(m.RDB, 5, time.Minute, middleware.KeyByIPAndPath(), nil)

	g := rg.Group("/auth")
	g.POST("/register", registerLimiter, m.Handler.Register)
	g.POST("/login", loginLimiter, m.Handler.Login)
	g.POST("/confirm-email", confirmLimiter, m.Handler.ConfirmEmail)
	g.POST("/resend-confirmation", resendLimiter, m.Handler.ResendConfirmation)

	auth := g.Group("/")
	auth.Use(middleware.Auth(m.RDB, m.JWT))
	{
		auth.POST("/logout", m.Handler.Logout)
	}
}
