package advisory

import (
	"context"

	"github.com/kailas-cloud/agroverse/internal/domain"
)

// Generator is the generation gateway as seen by the advisory pipeline.
type Generator interface {
	Generate(ctx context.Context, prompt domain.Prompt) (domain.Reply, error)
}
