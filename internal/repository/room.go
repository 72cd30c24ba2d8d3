package repository

import (
	"context"
	"time"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
)

// RoomRepository stores and retrieves room records.
type RoomRepository interface {
	// FindByCode fetches the room addressed by the given share code.
	// Returns ErrRoomNotFound when no such room exists.
	FindByCode(ctx context.Context, code string) (*domain.Room, error)

	// FindAllByOwner lists the rooms created by the given user, newest first.
	FindAllByOwner(ctx context.Context, ownerID uint) ([]domain.Room, error)

	// Save creates the room when ID is zero, updates it otherwise. A unique
	// code violation is reported as ErrDuplicateEntry.
	Save(ctx context.Context, room *domain.Room) error

	// UpdateContent overwrites the room's content and editor metadata by code
	// (last-write-wins, no merge). Returns ErrRoomNotFound when the code does
	// not resolve.
	UpdateContent(ctx context.Context, code string, content string, editorID uint, editorEmail string, updatedAt time.Time) error

	// IsCodeExists reports whether a room with the given code already exists.
	IsCodeExists(ctx context.Context, code string) (bool, error)

	// TouchLastActive bumps the room's LastActive timestamp.
	TouchLastActive(ctx context.Context, code string, at time.Time) error
}
