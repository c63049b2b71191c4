package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"mathquiz/internal/domain"
	"mathquiz/internal/infra/memory"
	"mathquiz/internal/quiz"
)

// BatchCache caches generated question batches in Redis as JSON blobs keyed
// by the request parameters, falling back to the wrapped provider on a miss.
// Key scheme: SET quiz:batch:{grade}:{topic}:{difficulty}:{kind}:{count}
type BatchCache struct {
	client *redis.Client
	inner  quiz.BatchProvider
	ttl    time.Duration
	sf     singleflight.Group
}

func NewBatchCache(client *redis.Client, inner quiz.BatchProvider, ttl time.Duration) *BatchCache {
	return &BatchCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
	}
}

func (c *BatchCache) Generate(ctx context.Context, req domain.BatchRequest) ([]domain.Question, error) {
	key := "quiz:" + memory.CacheKey(req)

	if questions, ok := c.lookup(ctx, key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.lookup(ctx, key); ok {
			return questions, nil
		}

		questions, err := c.inner.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return questions, nil
		}

		if data, err := json.Marshal(questions); err == nil {
			// best-effort write; a cache failure must not fail the batch
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *BatchCache) lookup(ctx context.Context, key string) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

// ttlWithJitter spreads expiries by up to 10% so hot keys do not all lapse
// at once. Uses the global rand source; singleflight only serializes calls
// for the same key.
func (c *BatchCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
