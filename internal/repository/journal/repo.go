package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/db"
	"github.com/kailas-cloud/agroverse/internal/domain/hazard"
)

const table = "risk_assessments"

const schema = `CREATE TABLE IF NOT EXISTS risk_assessments (
	id           UUID PRIMARY KEY,
	batch_id     TEXT NOT NULL,
	kind         TEXT NOT NULL,
	probability  DOUBLE PRECISION NOT NULL,
	risk_level   TEXT NOT NULL,
	model_type   TEXT NOT NULL,
	factors      JSONB NOT NULL,
	features     JSONB NOT NULL,
	crop_type    TEXT NOT NULL,
	latitude     DOUBLE PRECISION NOT NULL,
	longitude    DOUBLE PRECISION NOT NULL,
	assessed_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS risk_assessments_assessed_at_idx ON risk_assessments (assessed_at DESC);`

var columns = []string{
	"id", "batch_id", "kind", "probability", "risk_level", "model_type",
	"factors", "features", "crop_type", "latitude", "longitude", "assessed_at",
}

// execer is the consumer interface for the journal (ISP). *pgxpool.Pool satisfies it.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repo appends hazard assessments to Postgres.
type Repo struct {
	db     execer
	newID  func() uuid.UUID
	logger *zap.Logger
}

// New creates a journal repository.
func New(e execer, logger *zap.Logger) *Repo {
	return &Repo{db: e, newID: uuid.New, logger: logger}
}

// EnsureSchema creates the journal table when missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return &db.Error{Op: db.OpSchema, Err: err}
	}
	return nil
}

// Append writes one row per assessment of the batch in a single statement.
func (r *Repo) Append(ctx context.Context, batch hazard.Batch) error {
	if len(batch.Assessments) == 0 {
		return nil
	}

	sql, args, err := r.insert(batch)
	if err != nil {
		return fmt.Errorf("build journal insert: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}

	r.logger.Debug("Journaled assessments",
		zap.String("batch_id", batch.ID),
		zap.Int("rows", len(batch.Assessments)),
	)
	return nil
}

func (r *Repo) insert(batch hazard.Batch) (string, []any, error) {
	features, err := json.Marshal(batch.Features.Record())
	if err != nil {
		return "", nil, fmt.Errorf("marshal features: %w", err)
	}

	builder := squirrel.Insert(table).
		Columns(columns...).
		PlaceholderFormat(squirrel.Dollar)

	for i := range batch.Assessments {
		a := &batch.Assessments[i]
		factors, err := json.Marshal(a.Factors())
		if err != nil {
			return "", nil, fmt.Errorf("marshal factors: %w", err)
		}
		builder = builder.Values(
			r.newID(), batch.ID, string(a.Kind()), a.Probability(), string(a.Level()), a.Method(),
			factors, features, batch.Features.CropType, batch.Features.Latitude, batch.Features.Longitude,
			batch.AssessedAt.UTC(),
		)
	}

	return builder.ToSql() //nolint:wrapcheck // wrapped by caller
}
