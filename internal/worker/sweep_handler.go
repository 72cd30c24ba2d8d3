package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
	"github.com/abhaypanchalprogrammer/HasText/internal/tasks"
)

// ActiveRoomSource reports the rooms that currently have connected clients.
// The hub satisfies it.
type ActiveRoomSource interface {
	GetActiveRoomCodes() []string
}

// IdleRoomSweepHandler runs periodically: rooms with connected clients get
// their last_active touched, and rooms whose presence counter leaked past
// their last client get their volatile keys cleaned up.
type IdleRoomSweepHandler struct {
	roomRepo   repository.RoomRepository
	stateRepo  repository.StateRepository
	roomSource ActiveRoomSource
}

// NewIdleRoomSweepHandler creates the handler.
func NewIdleRoomSweepHandler(roomRepo repository.RoomRepository, stateRepo repository.StateRepository, roomSource ActiveRoomSource) *IdleRoomSweepHandler {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for IdleRoomSweepHandler")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for IdleRoomSweepHandler")
	}
	if roomSource == nil {
		panic("ActiveRoomSource cannot be nil for IdleRoomSweepHandler")
	}
	return &IdleRoomSweepHandler{roomRepo: roomRepo, stateRepo: stateRepo, roomSource: roomSource}
}

// ProcessTask implements asynq.Handler.
func (h *IdleRoomSweepHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload tasks.RoomSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal sweep payload: %v: %w", err, asynq.SkipRetry)
	}

	codes := payload.RoomCodes
	if len(codes) == 0 {
		codes = h.roomSource.GetActiveRoomCodes()
	}

	now := time.Now().UTC()
	touched, cleaned := 0, 0
	for _, code := range codes {
		presence, err := h.stateRepo.GetPresence(ctx, code)
		if err != nil {
			logrus.WithField("room", code).WithError(err).Warn("Sweep: failed to read presence")
			continue
		}
		if presence > 0 {
			if err := h.roomRepo.TouchLastActive(ctx, code, now); err != nil {
				logrus.WithField("room", code).WithError(err).Warn("Sweep: failed to touch room last_active")
				continue
			}
			touched++
			continue
		}
		if err := h.stateRepo.CleanupRoomState(ctx, code); err != nil {
			logrus.WithField("room", code).WithError(err).Warn("Sweep: failed to clean up room state")
			continue
		}
		cleaned++
	}

	logrus.WithFields(logrus.Fields{
		"scanned": len(codes),
		"touched": touched,
		"cleaned": cleaned,
	}).Info("Idle room sweep completed")
	return nil
}
