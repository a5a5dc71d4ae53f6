package store

import (
	"context"
	"errors"
	"time"

	"github.com/tnicklin/leetcode_tracker/models"
)

// ErrNotOpen is returned by operations on a store that is not open.
var ErrNotOpen = errors.New("store is not open")

// Run is one completed batch as it is written to history.
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt time.Time
	Result      models.BatchResult
}

// RunSummary is a row of the run history.
type RunSummary struct {
	ID           string
	StartedAt    time.Time
	CompletedAt  time.Time
	Identities   int
	RecordCount  int
	FailureCount int
}

// Store keeps the history of batch runs. Nothing in it is consulted when
// fetching profiles.
type Store interface {
	Open(ctx context.Context) error
	Close() error
	Shutdown(ctx context.Context) error

	RestoreFromDisk(ctx context.Context, path string) error
	FlushToDisk(ctx context.Context, path string) error

	SaveRun(ctx context.Context, run Run) (string, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	ListRecords(ctx context.Context, runID string) ([]models.ProfileRecord, error)
	ListFailures(ctx context.Context, runID string) ([]models.Failure, error)
}
