package replycache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/db"
	"github.com/kailas-cloud/agroverse/internal/domain"
)

type mockGenerator struct {
	reply  domain.Reply
	err    error
	calls  int
	health error
}

func (m *mockGenerator) Generate(_ context.Context, _ domain.Prompt) (domain.Reply, error) {
	m.calls++
	return m.reply, m.err
}

func (m *mockGenerator) HealthCheck(_ context.Context) error { return m.health }

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedGenerator(t *testing.T, inner *mockGenerator) (*CachedGenerator, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	cg := New(inner, "gemini-2.0-flash", ms, time.Hour, nil, zap.NewNop())
	return cg, ms
}
