// Package repository declares the storage interfaces the services depend on.
package repository

import (
	"context"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
)

// UserRepository stores and retrieves user records.
type UserRepository interface {
	// FindByEmail looks a user up by their login email. Returns
	// ErrUserNotFound when no such user exists.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByID looks a user up by id. Returns ErrUserNotFound when no such
	// user exists.
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Save creates the user when ID is zero, updates it otherwise. A unique
	// email violation is reported as ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
}
