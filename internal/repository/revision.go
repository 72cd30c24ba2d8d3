package repository

import (
	"context"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
)

// RevisionRepository stores the per-save content history written by the
// background worker.
type RevisionRepository interface {
	// SaveBatch persists revision rows in one insert.
	SaveBatch(ctx context.Context, revisions []domain.Revision) error

	// FindRecent returns up to limit revisions of a room, newest first.
	FindRecent(ctx context.Context, roomID uint, limit int) ([]domain.Revision, error)
}
