package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
)

const dateLayout = "2006-01-02"

func userView(u *entity.User) gin.H {
	var last any
	if u.LastRequestDate != nil {
		last = u.LastRequestDate.Format(dateLayout)
	}
	return gin.H{
		"id":                 u.ID,
		"email":              u.Email,
		"name":               u.Name,
		"avatar_url":         u.AvatarURL,
		"is_email_confirmed": u.IsEmailConfirmed,
		"daily_limit":        u.DailyLimit,
		"requests_today":     u.RequestsToday,
		"last_request_date":  last,
		"created_at":         u.CreatedAt,
		"updated_at":         u.UpdatedAt,
	}
}

func promptView(p entity.PromptRequest) gin.H {
	return gin.H{
		"id":               p.ID,
		"original_prompt":  p.OriginalPrompt,
		"style_id":         p.StyleID,
		"generated_prompt": p.GeneratedPrompt,
		"created_at":       p.CreatedAt,
	}
}

func styleView(s entity.PromptStyle) gin.H {
	return gin.H{
		"id":          s.ID,
		"name":        s.Name,
		"description": s.Description,
	}
}
