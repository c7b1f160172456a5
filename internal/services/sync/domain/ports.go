package domain

import (
	"context"

	"github.com/google/uuid"
)

// ManifestRepo persists the run/segment manifest in Postgres
type ManifestRepo interface {
	CreateRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, run Run) error
	AddSegment(ctx context.Context, seg Segment) error
	AddUnresolved(ctx context.Context, items []Unresolved) error

	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (RunDetail, error)
}

// RecordSink receives synchronized rows in batches (ClickHouse)
type RecordSink interface {
	InsertRecords(ctx context.Context, recs []SyncedRecord) error
}

// RunnerPort is what callers of the module see
type RunnerPort interface {
	RunSession(ctx context.Context, sessionDir, cameraDir string) (Run, error)
}

// ReaderPort serves the inspection API
type ReaderPort interface {
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (RunDetail, error)
}
