// Package tasks defines the asynq task types and payloads shared by the
// enqueuing side and the worker.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
)

const (
	// TypeRevisionPersist stores one saved room snapshot into the revision
	// history table.
	TypeRevisionPersist = "revision:persist"

	// TypeRoomSweep is the periodic task that touches active rooms and
	// cleans up volatile state for empty ones.
	TypeRoomSweep = "room:sweep_idle"
)

// RevisionPersistencePayload is the payload of TypeRevisionPersist.
type RevisionPersistencePayload struct {
	RoomID      uint      `json:"room_id"`
	RoomCode    string    `json:"room_code"`
	Content     string    `json:"content"`
	EditorID    uint      `json:"editor_id"`
	EditorEmail string    `json:"editor_email"`
	SavedAt     time.Time `json:"saved_at"`
}

// NewRevisionPersistenceTask builds the payload for a revision task.
func NewRevisionPersistenceTask(rev domain.Revision) ([]byte, error) {
	payload, err := json.Marshal(RevisionPersistencePayload{
		RoomID:      rev.RoomID,
		RoomCode:    rev.RoomCode,
		Content:     rev.Content,
		EditorID:    rev.EditorID,
		EditorEmail: rev.EditorEmail,
		SavedAt:     rev.SavedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal revision payload: %w", err)
	}
	return payload, nil
}

// RoomSweepPayload is the payload of TypeRoomSweep. The periodic entry
// enqueues it empty; fields exist for ad hoc targeted sweeps.
type RoomSweepPayload struct {
	RoomCodes []string `json:"room_codes,omitempty"`
}

// NewRoomSweepTask builds the payload for a sweep task.
func NewRoomSweepTask(codes []string) ([]byte, error) {
	payload, err := json.Marshal(RoomSweepPayload{RoomCodes: codes})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sweep payload: %w", err)
	}
	return payload, nil
}
