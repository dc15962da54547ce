package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockGenerationChecker struct {
	err error
}

func (m *mockGenerationChecker) HealthCheck(_ context.Context) error { return m.err }

type fixedSize int

func (f fixedSize) Len() int { return int(f) }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(fixedSize(5), &mockGenerationChecker{}, "gemini-2.0-flash").
		WithStore("cache", &mockPinger{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["cache"] != CheckOK {
		t.Errorf("expected cache %q, got %q", CheckOK, r.Checks["cache"])
	}
	if r.Checks["generation"] != CheckOK {
		t.Errorf("expected generation %q, got %q", CheckOK, r.Checks["generation"])
	}
	if r.KnowledgeBaseSize != 5 {
		t.Errorf("expected knowledge_base_size 5, got %d", r.KnowledgeBaseSize)
	}
	if r.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q", r.Model)
	}
}

func TestCheck_StoreError(t *testing.T) {
	svc := New(fixedSize(5), &mockGenerationChecker{}, "m").
		WithStore("cache", &mockPinger{}).
		WithStore("journal", &mockPinger{err: errors.New("conn refused")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["journal"] != CheckError {
		t.Errorf("expected journal %q, got %q", CheckError, r.Checks["journal"])
	}
	if r.Checks["cache"] != CheckOK {
		t.Errorf("expected cache %q, got %q", CheckOK, r.Checks["cache"])
	}
}

func TestCheck_GenerationError(t *testing.T) {
	svc := New(fixedSize(5), &mockGenerationChecker{err: errors.New("timeout")}, "m")
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["generation"] != CheckError {
		t.Errorf("expected generation %q, got %q", CheckError, r.Checks["generation"])
	}
}

func TestCheck_NoOptionalComponents(t *testing.T) {
	svc := New(fixedSize(1), nil, "").WithStore("cache", nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 0 {
		t.Errorf("expected no checks, got %v", r.Checks)
	}
}

func TestCheck_EmptyKnowledgeIsUnhealthy(t *testing.T) {
	r := New(fixedSize(0), &mockGenerationChecker{}, "m").Check(context.Background())
	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}

	r = New(nil, nil, "m").Check(context.Background())
	if r.Status != Unhealthy || r.KnowledgeBaseSize != 0 {
		t.Errorf("nil knowledge: %+v", r)
	}
}
