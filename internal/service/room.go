package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
	"github.com/abhaypanchalprogrammer/HasText/internal/tasks"
)

// Room record cache TTL. A stale cache entry only delays the initial load
// view; the feed catches the session up afterwards.
const roomCacheTTLSeconds = 300

// TaskEnqueuer is the asynq client surface the service needs to hand work
// to the background worker.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RoomService handles room creation, lookup, listing, and the
// last-write-wins content save that feeds the change channel.
type RoomService struct {
	roomRepo   repository.RoomRepository
	stateRepo  repository.StateRepository
	taskClient TaskEnqueuer
}

// NewRoomService creates the service.
func NewRoomService(roomRepo repository.RoomRepository, stateRepo repository.StateRepository, taskClient TaskEnqueuer) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for RoomService")
	}
	if taskClient == nil {
		panic("TaskEnqueuer cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo, stateRepo: stateRepo, taskClient: taskClient}
}

// CreateRoom creates a room with a fresh share code. Codes are random
// base-36; a collision that races past the existence check surfaces as a
// duplicate-entry error from the unique index and is retried.
func (s *RoomService) CreateRoom(ctx context.Context, ownerID uint, name string) (*domain.Room, error) {
	logCtx := logrus.WithField("owner_id", ownerID)

	const maxAttempts = 10
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := s.generateUniqueCode(ctx)
		if err != nil {
			logCtx.WithError(err).Error("Failed to generate unique room code")
			return nil, ErrInternalServer
		}

		room := &domain.Room{
			Code:       code,
			Name:       name,
			CreatedBy:  ownerID,
			LastActive: time.Now().UTC(),
		}
		err = s.roomRepo.Save(ctx, room)
		if err == nil {
			logCtx.WithFields(logrus.Fields{"room_id": room.ID, "code": room.Code}).Info("Room created successfully")
			return room, nil
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// Lost the race on the unique index; roll a new code.
			logCtx.WithField("code", code).Warnf("Room code collided on insert, retrying (attempt %d)", attempt+1)
			continue
		}
		logCtx.WithError(err).Error("Failed to save new room to database")
		return nil, ErrInternalServer
	}
	logCtx.Errorf("Failed to create room after %d attempts", maxAttempts)
	return nil, ErrInternalServer
}

// JoinRoom resolves a share code for a user joining from the dashboard.
func (s *RoomService) JoinRoom(ctx context.Context, userID uint, code string) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "code": code})

	room, err := s.LoadRoom(ctx, code)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to resolve room code for join")
		return nil, err
	}
	logCtx.WithField("room_id", room.ID).Info("User joined room")
	return room, nil
}

// ListRoomsOwnedBy lists the rooms a user created, newest first.
func (s *RoomService) ListRoomsOwnedBy(ctx context.Context, ownerID uint) ([]domain.Room, error) {
	rooms, err := s.roomRepo.FindAllByOwner(ctx, ownerID)
	if err != nil {
		logrus.WithField("owner_id", ownerID).WithError(err).Error("Failed to list rooms by owner")
		return nil, ErrInternalServer
	}
	return rooms, nil
}

// LoadRoom fetches a room by code: cache first, database on a miss, with an
// async cache backfill after a database hit.
func (s *RoomService) LoadRoom(ctx context.Context, code string) (*domain.Room, error) {
	logCtx := logrus.WithField("code", code)

	cached, err := s.stateRepo.GetRoomCache(ctx, code)
	if err == nil && cached != nil {
		logCtx.Debug("Room cache hit")
		return cached, nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		logCtx.WithError(err).Warn("Failed to read room cache, falling back to database")
	}

	room, err := s.roomRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to load room from database")
		return nil, ErrInternalServer
	}

	go func(toCache domain.Room) {
		cacheCtx := context.Background()
		if err := s.stateRepo.SetRoomCache(cacheCtx, toCache.Code, &toCache, roomCacheTTLSeconds); err != nil {
			logrus.WithField("code", toCache.Code).WithError(err).Warn("Failed to warm room cache after DB load")
		}
	}(*room)

	return room, nil
}

// SaveContent overwrites the room's content and editor metadata
// unconditionally (last-write-wins, no merge), refreshes the cache, and
// publishes the update event to the change feed. The returned room carries
// the UpdatedAt the feed event carries, so callers can advance their
// watermark to exactly the written value.
func (s *RoomService) SaveContent(ctx context.Context, code string, editorID uint, editorEmail, content string) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"code": code, "editor_id": editorID})

	now := time.Now().UTC()
	err := s.roomRepo.UpdateContent(ctx, code, content, editorID, editorEmail, now)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to save room content")
		return nil, ErrInternalServer
	}

	room, err := s.roomRepo.FindByCode(ctx, code)
	if err != nil {
		logCtx.WithError(err).Error("Failed to re-read room after save")
		// The write landed but we cannot refresh the cache with it; drop the
		// stale entry so the next load hits the database.
		if cacheErr := s.stateRepo.InvalidateRoomCache(ctx, code); cacheErr != nil {
			logCtx.WithError(cacheErr).Warn("Failed to invalidate room cache after re-read failure")
		}
		return nil, ErrInternalServer
	}

	if err := s.stateRepo.SetRoomCache(ctx, code, room, roomCacheTTLSeconds); err != nil {
		// Cache refresh failure is not fatal; the next load falls through to
		// the database.
		logCtx.WithError(err).Warn("Failed to refresh room cache after save")
	}

	update := domain.RoomUpdate{
		RoomCode:    room.Code,
		Name:        room.Name,
		Content:     room.Content,
		EditorID:    room.LastEditedBy,
		EditorEmail: room.EditorEmail,
		UpdatedAt:   room.UpdatedAtString(),
	}
	if err := s.stateRepo.PublishUpdate(ctx, code, update); err != nil {
		// Subscribers miss this event; they re-converge on the next one.
		logCtx.WithError(err).Error("Failed to publish room update to feed")
	}

	s.enqueueRevision(ctx, room, logCtx)

	logCtx.WithField("updated_at", update.UpdatedAt).Info("Room content saved")
	return room, nil
}

// enqueueRevision hands the saved content to the background worker for the
// revision history. Every save path runs through SaveContent, so the history
// covers WebSocket and REST saves alike. A failure here loses one history
// row, not the save.
func (s *RoomService) enqueueRevision(ctx context.Context, room *domain.Room, logCtx *logrus.Entry) {
	payload, err := tasks.NewRevisionPersistenceTask(domain.Revision{
		RoomID:      room.ID,
		RoomCode:    room.Code,
		Content:     room.Content,
		EditorID:    room.LastEditedBy,
		EditorEmail: room.EditorEmail,
		SavedAt:     room.UpdatedAt,
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to build revision persistence task")
		return
	}
	task := asynq.NewTask(tasks.TypeRevisionPersist, payload)
	if _, err := s.taskClient.EnqueueContext(ctx, task, asynq.Queue("default")); err != nil {
		logCtx.WithError(err).Error("Failed to enqueue revision persistence task")
	}
}

// generateUniqueCode rolls a 6-character base-36 code and checks it against
// the store, retrying on collision.
func (s *RoomService) generateUniqueCode(ctx context.Context) (string, error) {
	const letters = "0123456789abcdefghijklmnopqrstuvwxyz"
	const codeLength = 6
	const maxAttempts = 10

	b := make([]byte, codeLength)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for i := range b {
			b[i] = letters[int(b[i])%len(letters)]
		}
		code := string(b)

		exists, err := s.roomRepo.IsCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("database error checking room code: %w", err)
		}
		if !exists {
			return code, nil
		}
		logrus.WithField("code", code).Warnf("Generated room code already exists, retrying (attempt %d)", attempt+1)
	}
	return "", fmt.Errorf("failed to generate a unique room code after %d attempts", maxAttempts)
}
