package postgres

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewPool_InvalidDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), "postgres://%zz", zap.NewNop()); err == nil {
		t.Fatal("expected parse error for malformed dsn")
	}
}
