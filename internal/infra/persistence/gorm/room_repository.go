package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
)

// GormRoomRepository is the GORM implementation of repository.RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates the repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// FindByCode fetches the room addressed by the given share code.
func (r *GormRoomRepository) FindByCode(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by code '%s': %w", code, err)
	}
	return &room, nil
}

// FindAllByOwner lists the rooms created by a user, newest first.
func (r *GormRoomRepository) FindAllByOwner(ctx context.Context, ownerID uint) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("created_by = ?", ownerID).
		Order("created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find rooms by owner %d: %w", ownerID, err)
	}
	return rooms, nil
}

// Save creates or updates the room depending on whether ID is set.
func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Save(room).Error
	if err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room (id: %d, code: %s): %w", room.ID, room.Code, err)
	}
	return nil
}

// UpdateContent overwrites content and editor metadata by code. UpdatedAt is
// written explicitly rather than via autoUpdateTime so the value the feed
// carries is exactly the one stored.
func (r *GormRoomRepository) UpdateContent(ctx context.Context, code string, content string, editorID uint, editorEmail string, updatedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"content":        content,
			"last_edited_by": editorID,
			"editor_email":   editorEmail,
			"updated_at":     updatedAt,
			"last_active":    updatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("gorm: update content for room '%s': %w", code, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrRoomNotFound
	}
	return nil
}

// IsCodeExists reports whether a room with the given code already exists.
func (r *GormRoomRepository) IsCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count rooms by code '%s': %w", code, err)
	}
	return count > 0, nil
}

// TouchLastActive bumps LastActive without touching other columns.
func (r *GormRoomRepository) TouchLastActive(ctx context.Context, code string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("code = ?", code).
		UpdateColumn("last_active", at).Error
	if err != nil {
		return fmt.Errorf("gorm: touch last_active for room '%s': %w", code, err)
	}
	return nil
}
