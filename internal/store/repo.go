package store

import (
	"context"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

// Repo defines storage operations for report run history.
type Repo interface {
	RecordRun(ctx context.Context, r domain.Run) error
	LastRuns(ctx context.Context) (map[string]domain.Run, error)
	RecentRuns(ctx context.Context, limit int) ([]domain.Run, error)
	Close() error
}
