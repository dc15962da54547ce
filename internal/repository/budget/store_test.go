package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/agroverse/internal/db"
)

type mockStore struct {
	values  map[string][]byte
	incr    map[string]int64
	expires map[string]time.Duration
	getErr  error
	incrErr error
	deleted []string
}

func newMockStore() *mockStore {
	return &mockStore{
		values:  map[string][]byte{},
		incr:    map[string]int64{},
		expires: map[string]time.Duration{},
	}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) IncrBy(_ context.Context, key string, val int64) error {
	if m.incrErr != nil {
		return m.incrErr
	}
	m.incr[key] += val
	return nil
}

func (m *mockStore) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	if !nx {
		return errors.New("expected NX expire")
	}
	if _, ok := m.expires[key]; !ok {
		m.expires[key] = ttl
	}
	return nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func TestStore_IncrBySetsTTLByKeyShape(t *testing.T) {
	ms := newMockStore()
	s := New(ms, time.Hour, 24*time.Hour)
	ctx := context.Background()

	daily := "agroverse:budget:openai:daily:2026-10-16"
	monthly := "agroverse:budget:openai:monthly:2026-10"

	if err := s.IncrBy(ctx, daily, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.IncrBy(ctx, daily, 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.IncrBy(ctx, monthly, 150); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ms.incr[daily] != 150 {
		t.Errorf("daily counter = %d, want 150", ms.incr[daily])
	}
	if ms.expires[daily] != time.Hour {
		t.Errorf("daily ttl = %v, want 1h", ms.expires[daily])
	}
	if ms.expires[monthly] != 24*time.Hour {
		t.Errorf("monthly ttl = %v, want 24h", ms.expires[monthly])
	}
}

func TestStore_DefaultTTLs(t *testing.T) {
	s := New(newMockStore(), 0, -1)
	if s.dailyTTL != DefaultDailyTTL || s.monthTTL != DefaultMonthlyTTL {
		t.Errorf("ttls = %v / %v", s.dailyTTL, s.monthTTL)
	}
}

func TestStore_IncrByError(t *testing.T) {
	ms := newMockStore()
	ms.incrErr = errors.New("connection refused")
	s := New(ms, time.Hour, time.Hour)

	if err := s.IncrBy(context.Background(), "k:daily:x", 1); err == nil {
		t.Fatal("expected error")
	}
	if len(ms.expires) != 0 {
		t.Error("expire must not run after a failed increment")
	}
}

func TestStore_Get(t *testing.T) {
	ms := newMockStore()
	ms.values["present"] = []byte("4200")
	ms.values["garbage"] = []byte("not-a-number")
	s := New(ms, time.Hour, time.Hour)
	ctx := context.Background()

	got, err := s.Get(ctx, "present")
	if err != nil || got != 4200 {
		t.Errorf("Get(present) = %d, %v", got, err)
	}

	got, err = s.Get(ctx, "missing")
	if err != nil || got != 0 {
		t.Errorf("Get(missing) = %d, %v", got, err)
	}

	if _, err := s.Get(ctx, "garbage"); err == nil {
		t.Error("expected parse error")
	}
}

func TestStore_GetPropagatesBackendError(t *testing.T) {
	ms := newMockStore()
	ms.getErr = &db.Error{Op: db.OpGet, Err: errors.New("timeout")}
	s := New(ms, time.Hour, time.Hour)

	if _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error")
	}
}

func TestStore_Reset(t *testing.T) {
	ms := newMockStore()
	s := New(ms, time.Hour, time.Hour)

	if err := s.Reset(context.Background(), "agroverse:budget:openai:daily:2026-10-16"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms.deleted) != 1 {
		t.Errorf("deleted = %v", ms.deleted)
	}
}
