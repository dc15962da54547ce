package risk

import (
	"context"

	"github.com/kailas-cloud/agroverse/internal/domain/hazard"
)

// Journal persists assessment batches.
type Journal interface {
	Append(ctx context.Context, batch hazard.Batch) error
}

// AlertPublisher fans out assessments that reached the alert threshold.
type AlertPublisher interface {
	Publish(ctx context.Context, batch hazard.Batch) error
}
