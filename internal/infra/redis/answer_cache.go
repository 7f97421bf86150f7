package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiniela-service/internal/domain"
)

const (
	answersKey   = "quiniela:correct:answers"
	updatedAtKey = "quiniela:correct:updated"
)

// AnswerLoader fetches the declared correct answers from the backing store.
type AnswerLoader interface {
	CorrectAnswers(ctx context.Context) (map[int]domain.CorrectAnswer, error)
}

// AnswerCache caches the correct-answer map as a redis hash
// (HSET quiniela:correct:answers {questionID} {value}) and falls back to the
// loader on a miss. Mutation paths call Invalidate so the next read reloads.
type AnswerCache struct {
	client *redis.Client
	loader AnswerLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAnswerCache(client *redis.Client, loader AnswerLoader, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerCache) CorrectAnswers(ctx context.Context) (map[int]domain.CorrectAnswer, error) {
	answers, err := c.client.HGetAll(ctx, answersKey).Result()
	if err == nil && len(answers) > 0 {
		stamps, _ := c.client.HGetAll(ctx, updatedAtKey).Result()
		return buildFromCache(answers, stamps), nil
	}

	result, err, _ := c.sf.Do(answersKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		answers, err := c.client.HGetAll(ctx, answersKey).Result()
		if err == nil && len(answers) > 0 {
			stamps, _ := c.client.HGetAll(ctx, updatedAtKey).Result()
			return buildFromCache(answers, stamps), nil
		}

		declared, err := c.loader.CorrectAnswers(ctx)
		if err != nil {
			return nil, err
		}
		if len(declared) > 0 {
			ttl := c.ttlWithJitter()
			pipe := c.client.Pipeline()
			for questionID, ca := range declared {
				field := strconv.Itoa(questionID)
				pipe.HSet(ctx, answersKey, field, ca.Answer)
				pipe.HSet(ctx, updatedAtKey, field, ca.UpdatedAt.UnixMilli())
			}
			if ttl > 0 {
				pipe.Expire(ctx, answersKey, ttl)
				pipe.Expire(ctx, updatedAtKey, ttl)
			}
			_, _ = pipe.Exec(ctx)
		}
		return declared, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[int]domain.CorrectAnswer), nil
}

// Invalidate drops the cached map so the next read sees the freshly
// persisted answers.
func (c *AnswerCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, answersKey, updatedAtKey).Err()
}

func buildFromCache(answers, stamps map[string]string) map[int]domain.CorrectAnswer {
	declared := make(map[int]domain.CorrectAnswer, len(answers))
	for field, value := range answers {
		questionID, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		ca := domain.CorrectAnswer{QuestionID: questionID, Answer: value}
		if raw, ok := stamps[field]; ok {
			if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
				ca.UpdatedAt = time.UnixMilli(millis)
			}
		}
		declared[questionID] = ca
	}
	return declared
}

func (c *AnswerCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
