package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fluxo-backend/internal/application/quota"
	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	repo "github.com/oksasatya/fluxo-backend/internal/domain/repository"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
)

var (
	ErrStyleNotFound     = errors.New("prompt style not found")
	ErrSearchUnavailable = errors.New("prompt search not configured")
)

const (
	stylesCacheKey        = "prompt:styles"
	stylesCacheTTL        = 10 * time.Minute
	defaultHistoryLimit   = 10
	maxHistoryLimit       = 100
	defaultSearchPageSize = 10
)

// PromptsIndexMapping is the Elasticsearch mapping of the prompt history index.
const PromptsIndexMapping = `{
  "mappings": {
    "properties": {
      "id":               {"type": "keyword"},
      "user_id":          {"type": "keyword"},
      "original_prompt":  {"type": "text"},
      "generated_prompt": {"type": "text"},
      "style_id":         {"type": "integer"},
      "created_at":       {"type": "date"}
    }
  }
}`

// Generator produces the improved prompt text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type PromptService struct {
	Prompts   repo.PromptRepository
	Quota     *quota.Ledger
	Generator Generator
	Redis     *redis.Client
	ES        *elasticsearch.Client
	ESIndex   string
	Logger    *logrus.Logger
}

type CreatePromptInput struct {
	OriginalPrompt string
	StyleID        *int
}

// PromptHit is one search result.
type PromptHit struct {
	ID              string    `json:"id"`
	OriginalPrompt  string    `json:"original_prompt"`
	GeneratedPrompt string    `json:"generated_prompt"`
	StyleID         *int      `json:"style_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// Create runs one metered generation. The quota unit is held while the
// generator runs and is only counted once the request is stored.
func (s *PromptService) Create(ctx context.Context, userID string, in CreatePromptInput) (*entity.PromptRequest, error) {
	var style *entity.PromptStyle
	if in.StyleID != nil {
		st, err := s.Prompts.GetStyle(ctx, *in.StyleID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrStyleNotFound
			}
			return nil, err
		}
		style = st
	}

	res, err := s.Quota.CheckAndReserve(ctx, userID)
	if err != nil {
		return nil, err
	}

	generated, err := s.Generator.Generate(ctx, ApplyStyle(in.OriginalPrompt, style))
	if err != nil {
		s.release(ctx, res)
		return nil, err
	}

	p := &entity.PromptRequest{
		UserID:          userID,
		OriginalPrompt:  in.OriginalPrompt,
		StyleID:         in.StyleID,
		GeneratedPrompt: generated,
	}
	if err := s.Prompts.Create(ctx, p); err != nil {
		s.release(ctx, res)
		return nil, err
	}

	if err := s.Quota.RecordUsage(context.WithoutCancel(ctx), res); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"user_id": userID, "prompt_id": p.ID}).Error("record quota usage failed")
	}
	s.indexPrompt(ctx, p)
	return p, nil
}

func (s *PromptService) release(ctx context.Context, r quota.Reservation) {
	if err := s.Quota.Release(context.WithoutCancel(ctx), r); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", r.UserID).Warn("release quota reservation failed")
	}
}

// ApplyStyle prefixes the prompt with the style instruction.
func ApplyStyle(prompt string, style *entity.PromptStyle) string {
	if style == nil || strings.TrimSpace(style.Instruction) == "" {
		return prompt
	}
	return style.Instruction + ": " + prompt
}

func (s *PromptService) History(ctx context.Context, userID string, limit, offset int) ([]entity.PromptRequest, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.Prompts.ListByUser(ctx, userID, limit, offset)
}

// Styles returns the catalogue, cached in Redis when available.
func (s *PromptService) Styles(ctx context.Context) ([]entity.PromptStyle, error) {
	if s.Redis != nil {
		var cached []entity.PromptStyle
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, stylesCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	styles, err := s.Prompts.ListStyles(ctx)
	if err != nil {
		return nil, err
	}
	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, stylesCacheKey, styles, stylesCacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("cache prompt styles failed")
		}
	}
	return styles, nil
}

func (s *PromptService) Limits(ctx context.Context, userID string) (quota.Status, error) {
	return s.Quota.GetStatus(ctx, userID)
}

func (s *PromptService) indexPrompt(ctx context.Context, p *entity.PromptRequest) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	doc := map[string]any{
		"id":               p.ID,
		"user_id":          p.UserID,
		"original_prompt":  p.OriginalPrompt,
		"generated_prompt": p.GeneratedPrompt,
		"style_id":         p.StyleID,
		"created_at":       p.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: p.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("prompt_id", p.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("prompt_id", p.ID).Warn("es index response error")
	}
}

// Search runs a multi_match over the caller's own prompts.
func (s *PromptService) Search(ctx context.Context, userID, q string, size int) ([]PromptHit, error) {
	if s.ES == nil || s.ESIndex == "" {
		return nil, ErrSearchUnavailable
	}
	if size <= 0 || size > 50 {
		size = defaultSearchPageSize
	}
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"original_prompt^2", "generated_prompt"},
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"user_id": userID},
				},
			},
		},
		"sort": []any{"_score", map[string]any{"created_at": "desc"}},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, errors.New("search failed: " + res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source PromptHit `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]PromptHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
