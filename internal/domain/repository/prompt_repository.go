package repository

import (
	"context"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
)

// PromptRepository stores generation history and the style catalogue.
type PromptRepository interface {
	Create(ctx context.Context, p *entity.PromptRequest) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]entity.PromptRequest, error)
	ListStyles(ctx context.Context) ([]entity.PromptStyle, error)
	GetStyle(ctx context.Context, id int) (*entity.PromptStyle, error)
}
