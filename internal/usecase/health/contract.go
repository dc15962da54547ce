package health

import "context"

// Pinger checks backing store availability (cache, journal).
type Pinger interface {
	Ping(ctx context.Context) error
}

// GenerationChecker checks generation provider availability.
type GenerationChecker interface {
	HealthCheck(ctx context.Context) error
}

// KnowledgeSizer reports the number of loaded knowledge documents.
type KnowledgeSizer interface {
	Len() int
}
