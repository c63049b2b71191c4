package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mathquiz/internal/domain"
	"mathquiz/internal/quiz"
)

// BatchCache caches generated question batches with a TTL, so repeated starts
// with the same parameters do not hit the generation backend. Cached entries
// are stored without IDs reassigned; sessions get the ingested batch as-is
// (IDs are batch-local anyway).
type BatchCache struct {
	inner quiz.BatchProvider
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBatch
}

type cachedBatch struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewBatchCache(inner quiz.BatchProvider, ttl time.Duration) *BatchCache {
	return &BatchCache{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedBatch),
	}
}

func (c *BatchCache) Generate(ctx context.Context, req domain.BatchRequest) ([]domain.Question, error) {
	key := CacheKey(req)
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.inner.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			// Empty batches are not cached; the next start retries the backend.
			return questions, nil
		}

		c.mu.Lock()
		c.cache[key] = cachedBatch{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// CacheKey identifies a batch request for caching purposes.
func CacheKey(req domain.BatchRequest) string {
	return fmt.Sprintf("batch:%d:%s:%s:%s:%d", req.Grade, req.Topic, req.Difficulty, req.Kind, req.Count)
}

func (c *BatchCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
