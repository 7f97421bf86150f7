package memory

import (
	"context"

	"quiniela-service/internal/app"
	"quiniela-service/internal/domain"
)

// AnswerCache is the pass-through used when redis is not configured: every
// read goes straight to the store, so Invalidate has nothing to do.
type AnswerCache struct {
	store app.GameStore
}

func NewAnswerCache(store app.GameStore) *AnswerCache {
	return &AnswerCache{store: store}
}

func (c *AnswerCache) CorrectAnswers(ctx context.Context) (map[int]domain.CorrectAnswer, error) {
	return c.store.CorrectAnswers(ctx)
}

func (c *AnswerCache) Invalidate(context.Context) error { return nil }
