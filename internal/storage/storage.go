package storage

import (
	"context"

	"github.com/google/uuid"

	"sandglass/internal/timer"
)

// Store persists timer snapshots across daemon restarts along with the
// history of inputs users have typed.
type Store interface {
	Init(ctx context.Context) error

	// SaveTimer inserts or replaces the snapshot keyed by its ID.
	SaveTimer(ctx context.Context, snap timer.Snapshot) error
	GetTimers(ctx context.Context) ([]timer.Snapshot, error)
	DeleteTimer(ctx context.Context, id uuid.UUID) error

	// SaveInput records text in the most-recently-used input history,
	// deduplicated, oldest entries pruned beyond the cap.
	SaveInput(ctx context.Context, text string) error
	RecentInputs(ctx context.Context, limit int) ([]string, error)

	Close() error
}
