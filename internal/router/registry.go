package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/fluxo-backend/pkg/response"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Registry collects feature modules and mounts them under /api.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
	checks      map[string]HealthCheck
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api"), checks: map[string]HealthCheck{}}
}

// Use adds middleware applied to every /api route.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// Check registers a named dependency probed by GET /health.
func (r *Registry) Check(name string, fn HealthCheck) {
	if fn != nil {
		r.checks[name] = fn
	}
}

func (r *Registry) RegisterAll() {
	r.Engine.GET("/health", r.health)
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
}

func (r *Registry) health(c *gin.Context) {
	failed := gin.H{}
	for name, check := range r.checks {
		if err := check(c.Request.Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		response.Fail(c, http.StatusServiceUnavailable, "unhealthy", failed)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"status": "ok"}, "healthy", nil)
}
