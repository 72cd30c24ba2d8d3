package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
)

// GormRevisionRepository is the GORM implementation of
// repository.RevisionRepository.
type GormRevisionRepository struct {
	db *gorm.DB
}

// NewGormRevisionRepository creates the repository.
func NewGormRevisionRepository(db *gorm.DB) *GormRevisionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRevisionRepository")
	}
	return &GormRevisionRepository{db: db}
}

// SaveBatch inserts revision rows in one statement.
func (r *GormRevisionRepository) SaveBatch(ctx context.Context, revisions []domain.Revision) error {
	if len(revisions) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Create(&revisions).Error
	if err != nil {
		return fmt.Errorf("gorm: save revision batch (size %d): %w", len(revisions), err)
	}
	return nil
}

// FindRecent returns up to limit revisions of a room, newest first.
func (r *GormRevisionRepository) FindRecent(ctx context.Context, roomID uint, limit int) ([]domain.Revision, error) {
	if limit <= 0 {
		limit = 20
	}
	var revisions []domain.Revision
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("saved_at DESC").
		Limit(limit).
		Find(&revisions).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find recent revisions for room %d: %w", roomID, err)
	}
	return revisions, nil
}
