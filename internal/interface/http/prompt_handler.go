package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fluxo-backend/internal/application"
	"github.com/oksasatya/fluxo-backend/internal/interface/middleware"
	"github.com/oksasatya/fluxo-backend/pkg/response"
)

type PromptHandler struct {
	Svc    *application.PromptService
	Logger *logrus.Logger
}

func NewPromptHandler(svc *application.PromptService, logger *logrus.Logger) *PromptHandler {
	return &PromptHandler{Svc: svc, Logger: logger}
}

type createPromptRequest struct {
	OriginalPrompt string `json:"original_prompt" binding:"required,min=1,max=4000"`
	StyleID        *int   `json:"style_id" binding:"omitempty,gte=1"`
}

type historyQuery struct {
	Limit  int `form:"limit" binding:"omitempty,gte=1,lte=100"`
	Offset int `form:"offset" binding:"omitempty,gte=0"`
}

type searchQuery struct {
	Q    string `form:"q" binding:"required,min=1"`
	Size int    `form:"size" binding:"omitempty,gte=1,lte=50"`
}

// Create POST /api/prompts/create
func (h *PromptHandler) Create(c *gin.Context) {
	var req createPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if strings.TrimSpace(req.OriginalPrompt) == "" {
		response.Fail(c, http.StatusUnprocessableEntity, "invalid payload", gin.H{"original_prompt": "is required"})
		return
	}
	p, err := h.Svc.Create(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), application.CreatePromptInput{
		OriginalPrompt: req.OriginalPrompt,
		StyleID:        req.StyleID,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusCreated, promptView(*p), "prompt generated", nil)
}

// History GET /api/prompts/history?limit=&offset=
func (h *PromptHandler) History(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidPayload(c, err)
		return
	}
	items, err := h.Svc.History(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), q.Limit, q.Offset)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, p := range items {
		out = append(out, promptView(p))
	}
	response.OK(c, http.StatusOK, out, "history", gin.H{"limit": q.Limit, "offset": q.Offset, "count": len(out)})
}

// Search GET /api/prompts/search?q=
func (h *PromptHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidPayload(c, err)
		return
	}
	hits, err := h.Svc.Search(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), q.Q, q.Size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, hits, "search results", gin.H{"count": len(hits)})
}

// Styles GET /api/prompts/styles
func (h *PromptHandler) Styles(c *gin.Context) {
	styles, err := h.Svc.Styles(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	out := make([]gin.H, 0, len(styles))
	for _, s := range styles {
		out = append(out, styleView(s))
	}
	response.OK(c, http.StatusOK, out, "styles", nil)
}

// Limits GET /api/prompts/limits
func (h *PromptHandler) Limits(c *gin.Context) {
	st, err := h.Svc.Limits(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	var last any
	if st.LastRequestDate != nil {
		last = st.LastRequestDate.Format(dateLayout)
	}
	response.OK(c, http.StatusOK, gin.H{
		"daily_limit":        st.DailyLimit,
		"requests_today":     st.RequestsToday,
		"remaining_requests": st.RemainingRequests,
		"last_request_date":  last,
	}, "limits", nil)
}
