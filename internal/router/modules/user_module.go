package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/fluxo-backend/internal/interface/http"
	"github.com/oksasatya/fluxo-backend/internal/interface/middleware"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
)

// UserModule wires the profile routes of the signed-in user.
// Protected: GET/PUT /api/auth/me, PUT /api/auth/me/avatar, POST /api/auth/change-password
type UserModule struct {
	Handler *handlers.UserHandler
	RDB     *redis.Client
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, rdb *redis.Client, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, RDB: rdb, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.Use(middleware.Auth(m.RDB, m.JWT))
	// Apply a softer per-user limiter to all protected routes
	auth.Use(middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/me", m.Handler.GetProfile)
		auth.PUT("/me", m.Handler.UpdateProfile)
		auth.PUT("/me/avatar", m.Handler.UploadAvatar)
		auth.POST("/change-password", middleware.RateLimit(m.RDB, 5, time.Minute, middleware.KeyByUserID(), nil), m.Handler.ChangePassword)
	}
}
