package worker

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository/mocks"
	"github.com/abhaypanchalprogrammer/HasText/internal/tasks"
)

func TestRevisionPersistence_SavesRevision(t *testing.T) {
	revisionRepo := new(mocks.MockRevisionRepository)
	handler := NewRevisionPersistenceHandler(revisionRepo)

	savedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	payload, err := tasks.NewRevisionPersistenceTask(domain.Revision{
		RoomID:      1,
		RoomCode:    "abc123",
		Content:     "hello",
		EditorID:    5,
		EditorEmail: "alice@example.com",
		SavedAt:     savedAt,
	})
	require.NoError(t, err)

	revisionRepo.On("SaveBatch", mock.Anything, mock.MatchedBy(func(revs []domain.Revision) bool {
		return len(revs) == 1 && revs[0].RoomCode == "abc123" && revs[0].SavedAt.Equal(savedAt)
	})).Return(nil)

	err = handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeRevisionPersist, payload))
	require.NoError(t, err)
	revisionRepo.AssertExpectations(t)
}

func TestRevisionPersistence_MalformedPayloadSkipsRetry(t *testing.T) {
	revisionRepo := new(mocks.MockRevisionRepository)
	handler := NewRevisionPersistenceHandler(revisionRepo)

	err := handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeRevisionPersist, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	revisionRepo.AssertNotCalled(t, "SaveBatch")
}
