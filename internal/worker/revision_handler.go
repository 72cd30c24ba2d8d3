package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
	"github.com/abhaypanchalprogrammer/HasText/internal/tasks"
)

// RevisionPersistenceHandler writes saved room snapshots into the revision
// history table.
type RevisionPersistenceHandler struct {
	revisionRepo repository.RevisionRepository
}

// NewRevisionPersistenceHandler creates the handler.
func NewRevisionPersistenceHandler(revisionRepo repository.RevisionRepository) *RevisionPersistenceHandler {
	if revisionRepo == nil {
		panic("RevisionRepository cannot be nil for RevisionPersistenceHandler")
	}
	return &RevisionPersistenceHandler{revisionRepo: revisionRepo}
}

// ProcessTask implements asynq.Handler.
func (h *RevisionPersistenceHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload tasks.RevisionPersistencePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// A payload that never unmarshals never will; retrying burns the queue.
		return fmt.Errorf("failed to unmarshal revision payload: %v: %w", err, asynq.SkipRetry)
	}

	rev := domain.Revision{
		RoomID:      payload.RoomID,
		RoomCode:    payload.RoomCode,
		Content:     payload.Content,
		EditorID:    payload.EditorID,
		EditorEmail: payload.EditorEmail,
		SavedAt:     payload.SavedAt,
	}
	if err := h.revisionRepo.SaveBatch(ctx, []domain.Revision{rev}); err != nil {
		return fmt.Errorf("failed to persist revision for room %s: %w", payload.RoomCode, err)
	}

	logrus.WithFields(logrus.Fields{
		"room":      payload.RoomCode,
		"editor_id": payload.EditorID,
	}).Debug("Revision persisted")
	return nil
}
