package postgres

import (
	"context"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	"github.com/oksasatya/fluxo-backend/internal/domain/repository"
)

type PromptRepository struct {
	db DBTX
}

func NewPromptRepository(db DBTX) *PromptRepository {
	return &PromptRepository{db: db}
}

func (r *PromptRepository) Create(ctx context.Context, p *entity.PromptRequest) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO prompt_requests (user_id, original_prompt, style_id, generated_prompt)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, p.UserID, p.OriginalPrompt, p.StyleID, p.GeneratedPrompt)
	return wrap("create prompt request", row.Scan(&p.ID, &p.CreatedAt))
}

func (r *PromptRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]entity.PromptRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, original_prompt, style_id, generated_prompt, created_at
		FROM prompt_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, wrap("list prompt requests", err)
	}
	defer rows.Close()

	out := make([]entity.PromptRequest, 0, limit)
	for rows.Next() {
		var p entity.PromptRequest
		if err := rows.Scan(&p.ID, &p.UserID, &p.OriginalPrompt, &p.StyleID, &p.GeneratedPrompt, &p.CreatedAt); err != nil {
			return nil, wrap("scan prompt request", err)
		}
		out = append(out, p)
	}
	return out, wrap("iterate prompt requests", rows.Err())
}

func (r *PromptRepository) ListStyles(ctx context.Context) ([]entity.PromptStyle, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description, instruction FROM prompt_styles ORDER BY id`)
	if err != nil {
		return nil, wrap("list prompt styles", err)
	}
	defer rows.Close()

	var out []entity.PromptStyle
	for rows.Next() {
		var s entity.PromptStyle
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Instruction); err != nil {
			return nil, wrap("scan prompt style", err)
		}
		out = append(out, s)
	}
	return out, wrap("iterate prompt styles", rows.Err())
}

func (r *PromptRepository) GetStyle(ctx context.Context, id int) (*entity.PromptStyle, error) {
	s := &entity.PromptStyle{}
	err := r.db.QueryRow(ctx, `SELECT id, name, description, instruction FROM prompt_styles WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Description, &s.Instruction)
	if err != nil {
		return nil, wrap("get prompt style", err)
	}
	return s, nil
}

var _ repository.PromptRepository = (*PromptRepository)(nil)
