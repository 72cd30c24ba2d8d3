// Package mocks provides testify mocks of the repository interfaces for
// service and handler tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
)

// MockUserRepository mocks repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockRoomRepository mocks repository.RoomRepository.
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) FindByCode(ctx context.Context, code string) (*domain.Room, error) {
	args := m.Called(ctx, code)
	room, _ := args.Get(0).(*domain.Room)
	return room, args.Error(1)
}

func (m *MockRoomRepository) FindAllByOwner(ctx context.Context, ownerID uint) ([]domain.Room, error) {
	args := m.Called(ctx, ownerID)
	rooms, _ := args.Get(0).([]domain.Room)
	return rooms, args.Error(1)
}

func (m *MockRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepository) UpdateContent(ctx context.Context, code string, content string, editorID uint, editorEmail string, updatedAt time.Time) error {
	args := m.Called(ctx, code, content, editorID, editorEmail, updatedAt)
	return args.Error(0)
}

func (m *MockRoomRepository) IsCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomRepository) TouchLastActive(ctx context.Context, code string, at time.Time) error {
	args := m.Called(ctx, code, at)
	return args.Error(0)
}

// MockRevisionRepository mocks repository.RevisionRepository.
type MockRevisionRepository struct {
	mock.Mock
}

func (m *MockRevisionRepository) SaveBatch(ctx context.Context, revisions []domain.Revision) error {
	args := m.Called(ctx, revisions)
	return args.Error(0)
}

func (m *MockRevisionRepository) FindRecent(ctx context.Context, roomID uint, limit int) ([]domain.Revision, error) {
	args := m.Called(ctx, roomID, limit)
	revisions, _ := args.Get(0).([]domain.Revision)
	return revisions, args.Error(1)
}

// MockStateRepository mocks repository.StateRepository.
type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) GetRoomCache(ctx context.Context, code string) (*domain.Room, error) {
	args := m.Called(ctx, code)
	room, _ := args.Get(0).(*domain.Room)
	return room, args.Error(1)
}

func (m *MockStateRepository) SetRoomCache(ctx context.Context, code string, room *domain.Room, ttlSeconds int) error {
	args := m.Called(ctx, code, room, ttlSeconds)
	return args.Error(0)
}

func (m *MockStateRepository) InvalidateRoomCache(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockStateRepository) PublishUpdate(ctx context.Context, code string, update domain.RoomUpdate) error {
	args := m.Called(ctx, code, update)
	return args.Error(0)
}

func (m *MockStateRepository) FeedChannel(code string) string {
	args := m.Called(code)
	return args.String(0)
}

func (m *MockStateRepository) IncrPresence(ctx context.Context, code string) (int64, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStateRepository) DecrPresence(ctx context.Context, code string) (int64, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStateRepository) GetPresence(ctx context.Context, code string) (int64, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockStateRepository) CleanupRoomState(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}
