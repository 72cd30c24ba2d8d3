package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository/mocks"
	"github.com/abhaypanchalprogrammer/HasText/internal/tasks"
)

// capturingEnqueuer records enqueued asynq tasks instead of touching redis.
type capturingEnqueuer struct {
	mu       sync.Mutex
	enqueued []*asynq.Task
}

func (c *capturingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enqueued = append(c.enqueued, task)
	return &asynq.TaskInfo{}, nil
}

type failingEnqueuer struct{}

func (failingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return nil, assert.AnError
}

func newTestRoomService(roomRepo repository.RoomRepository, stateRepo repository.StateRepository) (*RoomService, *capturingEnqueuer) {
	enq := &capturingEnqueuer{}
	return NewRoomService(roomRepo, stateRepo, enq), enq
}

func TestCreateRoom_Success(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	roomRepo.On("IsCodeExists", mock.Anything, mock.AnythingOfType("string")).Return(false, nil).Once()
	roomRepo.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.Room) bool {
		return len(r.Code) == 6 && r.CreatedBy == uint(5) && r.Name == "notes"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Room).ID = 11
	}).Return(nil).Once()

	room, err := svc.CreateRoom(context.Background(), 5, "notes")

	require.NoError(t, err)
	assert.Equal(t, uint(11), room.ID)
	assert.Len(t, room.Code, 6)
	roomRepo.AssertExpectations(t)
}

func TestCreateRoom_CodeOnlyUsesBase36(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	roomRepo.On("IsCodeExists", mock.Anything, mock.Anything).Return(false, nil)
	roomRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	room, err := svc.CreateRoom(context.Background(), 1, "")
	require.NoError(t, err)
	for _, c := range room.Code {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z'), "unexpected character %q in room code", c)
	}
}

func TestCreateRoom_RetriesOnInsertCollision(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	roomRepo.On("IsCodeExists", mock.Anything, mock.Anything).Return(false, nil)
	// First insert loses the race on the unique index, second succeeds.
	roomRepo.On("Save", mock.Anything, mock.Anything).Return(repository.ErrDuplicateEntry).Once()
	roomRepo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	room, err := svc.CreateRoom(context.Background(), 2, "retry")

	require.NoError(t, err)
	require.NotNil(t, room)
	roomRepo.AssertNumberOfCalls(t, "Save", 2)
}

func TestCreateRoom_RegeneratesOnExistingCode(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	roomRepo.On("IsCodeExists", mock.Anything, mock.Anything).Return(true, nil).Once()
	roomRepo.On("IsCodeExists", mock.Anything, mock.Anything).Return(false, nil).Once()
	roomRepo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.CreateRoom(context.Background(), 2, "")
	require.NoError(t, err)
	roomRepo.AssertNumberOfCalls(t, "IsCodeExists", 2)
}

func TestLoadRoom_CacheHit(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	cached := &domain.Room{ID: 1, Code: "abc123", Content: "cached content"}
	stateRepo.On("GetRoomCache", mock.Anything, "abc123").Return(cached, nil)

	room, err := svc.LoadRoom(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "cached content", room.Content)
	roomRepo.AssertNotCalled(t, "FindByCode")
}

func TestLoadRoom_CacheMissFallsBackToDatabase(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	stateRepo.On("GetRoomCache", mock.Anything, "abc123").Return(nil, repository.ErrNotFound)
	roomRepo.On("FindByCode", mock.Anything, "abc123").Return(&domain.Room{ID: 1, Code: "abc123", Content: "db content"}, nil)
	// Backfill happens on a background goroutine; it may or may not land
	// before the test finishes.
	stateRepo.On("SetRoomCache", mock.Anything, "abc123", mock.Anything, roomCacheTTLSeconds).Return(nil).Maybe()

	room, err := svc.LoadRoom(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "db content", room.Content)
}

func TestLoadRoom_NotFound(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	stateRepo.On("GetRoomCache", mock.Anything, "nosuch").Return(nil, repository.ErrNotFound)
	roomRepo.On("FindByCode", mock.Anything, "nosuch").Return(nil, repository.ErrRoomNotFound)

	_, err := svc.LoadRoom(context.Background(), "nosuch")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinRoom_NotFound(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	stateRepo.On("GetRoomCache", mock.Anything, "zzzzzz").Return(nil, repository.ErrNotFound)
	roomRepo.On("FindByCode", mock.Anything, "zzzzzz").Return(nil, repository.ErrRoomNotFound)

	_, err := svc.JoinRoom(context.Background(), 4, "zzzzzz")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSaveContent_PublishesStoredState(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	savedAt := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	stored := &domain.Room{
		ID:           1,
		Code:         "abc123",
		Name:         "notes",
		Content:      "hello world",
		LastEditedBy: 5,
		EditorEmail:  "alice@example.com",
		UpdatedAt:    savedAt,
	}

	roomRepo.On("UpdateContent", mock.Anything, "abc123", "hello world", uint(5), "alice@example.com", mock.AnythingOfType("time.Time")).Return(nil)
	roomRepo.On("FindByCode", mock.Anything, "abc123").Return(stored, nil)
	stateRepo.On("SetRoomCache", mock.Anything, "abc123", stored, roomCacheTTLSeconds).Return(nil)
	stateRepo.On("PublishUpdate", mock.Anything, "abc123", mock.MatchedBy(func(u domain.RoomUpdate) bool {
		// The feed event must carry exactly the stored timestamp so
		// subscribers can advance their watermarks to the written value.
		return u.UpdatedAt == stored.UpdatedAtString() &&
			u.Content == "hello world" &&
			u.EditorEmail == "alice@example.com"
	})).Return(nil)

	room, err := svc.SaveContent(context.Background(), "abc123", 5, "alice@example.com", "hello world")

	require.NoError(t, err)
	assert.Equal(t, savedAt, room.UpdatedAt)
	stateRepo.AssertExpectations(t)
}

func TestSaveContent_RoomNotFound(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	roomRepo.On("UpdateContent", mock.Anything, "nosuch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(repository.ErrRoomNotFound)

	_, err := svc.SaveContent(context.Background(), "nosuch", 1, "a@b.com", "content")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSaveContent_PublishFailureIsNotFatal(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	stored := &domain.Room{ID: 1, Code: "abc123", Content: "x", UpdatedAt: time.Now().UTC()}
	roomRepo.On("UpdateContent", mock.Anything, "abc123", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	roomRepo.On("FindByCode", mock.Anything, "abc123").Return(stored, nil)
	stateRepo.On("SetRoomCache", mock.Anything, "abc123", stored, roomCacheTTLSeconds).Return(nil)
	stateRepo.On("PublishUpdate", mock.Anything, "abc123", mock.Anything).Return(assert.AnError)

	room, err := svc.SaveContent(context.Background(), "abc123", 1, "a@b.com", "x")

	require.NoError(t, err, "save must succeed even when the feed publish fails")
	assert.Equal(t, "x", room.Content)
}

func TestSaveContent_RecordsRevisionHistory(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, enq := newTestRoomService(roomRepo, stateRepo)

	savedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	stored := &domain.Room{
		ID:           3,
		Code:         "abc123",
		Content:      "hello",
		LastEditedBy: 5,
		EditorEmail:  "alice@example.com",
		UpdatedAt:    savedAt,
	}
	roomRepo.On("UpdateContent", mock.Anything, "abc123", "hello", uint(5), "alice@example.com", mock.Anything).Return(nil)
	roomRepo.On("FindByCode", mock.Anything, "abc123").Return(stored, nil)
	stateRepo.On("SetRoomCache", mock.Anything, "abc123", stored, roomCacheTTLSeconds).Return(nil)
	stateRepo.On("PublishUpdate", mock.Anything, "abc123", mock.Anything).Return(nil)

	// Any save entry point goes through SaveContent, so this one enqueue
	// covers WebSocket and REST saves alike.
	_, err := svc.SaveContent(context.Background(), "abc123", 5, "alice@example.com", "hello")
	require.NoError(t, err)

	require.Len(t, enq.enqueued, 1)
	task := enq.enqueued[0]
	assert.Equal(t, tasks.TypeRevisionPersist, task.Type())

	var payload tasks.RevisionPersistencePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, uint(3), payload.RoomID)
	assert.Equal(t, "abc123", payload.RoomCode)
	assert.Equal(t, "hello", payload.Content)
	assert.Equal(t, "alice@example.com", payload.EditorEmail)
	assert.True(t, payload.SavedAt.Equal(savedAt))
}

func TestSaveContent_EnqueueFailureIsNotFatal(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc := NewRoomService(roomRepo, stateRepo, failingEnqueuer{})

	stored := &domain.Room{ID: 1, Code: "abc123", Content: "x", UpdatedAt: time.Now().UTC()}
	roomRepo.On("UpdateContent", mock.Anything, "abc123", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	roomRepo.On("FindByCode", mock.Anything, "abc123").Return(stored, nil)
	stateRepo.On("SetRoomCache", mock.Anything, "abc123", stored, roomCacheTTLSeconds).Return(nil)
	stateRepo.On("PublishUpdate", mock.Anything, "abc123", mock.Anything).Return(nil)

	room, err := svc.SaveContent(context.Background(), "abc123", 1, "a@b.com", "x")

	require.NoError(t, err, "save must succeed even when the history enqueue fails")
	assert.Equal(t, "x", room.Content)
}

func TestListRoomsOwnedBy(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	svc, _ := newTestRoomService(roomRepo, stateRepo)

	roomRepo.On("FindAllByOwner", mock.Anything, uint(5)).Return([]domain.Room{
		{ID: 2, Code: "bbbbbb"},
		{ID: 1, Code: "aaaaaa"},
	}, nil)

	rooms, err := svc.ListRoomsOwnedBy(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}
