// Package replycache serves repeated generation prompts from the key-value store.
package replycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/db"
	"github.com/kailas-cloud/agroverse/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "reply_cache:"

// store is the consumer interface for the reply cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// entry is the cached payload. Token counts are not stored: a hit costs nothing.
type entry struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// CachedGenerator caches replies keyed by model and prompt fingerprint.
type CachedGenerator struct {
	inner      domain.Generator
	model      string
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Generator,
	model string,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedGenerator {
	return &CachedGenerator{
		inner:      inner,
		model:      model,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Generate returns a cached reply or calls the inner generator.
// Cache hit: Cached=true, zero tokens.
func (c *CachedGenerator) Generate(ctx context.Context, prompt domain.Prompt) (domain.Reply, error) {
	key := c.cacheKey(prompt)

	if reply, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return reply, nil
	}

	c.incCache("miss")

	reply, err := c.inner.Generate(ctx, prompt)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("generate: %w", err)
	}

	c.putToCache(ctx, key, reply)
	return reply, nil
}

// HealthCheck delegates to the inner generator when it supports health checks.
func (c *CachedGenerator) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("inner health check: %w", err)
		}
	}
	return nil
}

func (c *CachedGenerator) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedGenerator) cacheKey(prompt domain.Prompt) string {
	return cacheKeyPrefix + c.model + ":" + prompt.Fingerprint()
}

func (c *CachedGenerator) getFromCache(ctx context.Context, key string) (domain.Reply, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Reply cache read failed", zap.String("key", key), zap.Error(err))
		}
		return domain.Reply{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Text == "" {
		c.logger.Warn("Reply cache entry unreadable", zap.String("key", key), zap.Error(err))
		return domain.Reply{}, false
	}
	return domain.Reply{Text: e.Text, ModelID: e.ModelID, Cached: true}, true
}

func (c *CachedGenerator) putToCache(ctx context.Context, key string, reply domain.Reply) {
	data, err := json.Marshal(entry{Text: reply.Text, ModelID: reply.ModelID})
	if err != nil {
		c.logger.Warn("Reply cache encode failed", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Reply cache write failed", zap.String("key", key), zap.Error(err))
	}
}
