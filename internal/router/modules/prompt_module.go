package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/fluxo-backend/internal/interface/http"
	"github.com/oksasatya/fluxo-backend/internal/interface/middleware"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
)

// PromptModule wires prompt generation and history under /api/prompts (auth).
type PromptModule struct {
	Handler *handlers.PromptHandler
	RDB     *redis.Client
	JWT     *helpers.JWTManager
}

func NewPromptModule(h *handlers.PromptHandler, rdb *redis.Client, jwt *helpers.JWTManager) *PromptModule {
	return &PromptModule{Handler: h, RDB: rdb, JWT: jwt}
}

func (m *PromptModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/prompts")
	g.Use(middleware.Auth(m.RDB, m.JWT))
	g.Use(middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		g.POST("/create", middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByUserID(), nil), m.Handler.Create)
		g.GET("/history", m.Handler.History)
		g.GET("/search", m.Handler.Search)
		g.GET("/styles", m.Handler.Styles)
		g.GET("/limits", m.Handler.Limits)
	}
}
