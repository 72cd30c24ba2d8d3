package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository/mocks"
)

func TestListRecentRevisions(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	revisionRepo := new(mocks.MockRevisionRepository)
	svc := NewRevisionService(roomRepo, revisionRepo)

	roomRepo.On("FindByCode", mock.Anything, "abc123").Return(&domain.Room{ID: 7, Code: "abc123"}, nil)
	revisionRepo.On("FindRecent", mock.Anything, uint(7), 5).Return([]domain.Revision{
		{ID: 2, RoomID: 7, Content: "newer"},
		{ID: 1, RoomID: 7, Content: "older"},
	}, nil)

	revisions, err := svc.ListRecent(context.Background(), "abc123", 5)

	require.NoError(t, err)
	assert.Len(t, revisions, 2)
	assert.Equal(t, "newer", revisions[0].Content)
}

func TestListRecentRevisions_DefaultLimit(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	revisionRepo := new(mocks.MockRevisionRepository)
	svc := NewRevisionService(roomRepo, revisionRepo)

	roomRepo.On("FindByCode", mock.Anything, "abc123").Return(&domain.Room{ID: 7, Code: "abc123"}, nil)
	revisionRepo.On("FindRecent", mock.Anything, uint(7), defaultRevisionListLimit).Return([]domain.Revision{}, nil)

	_, err := svc.ListRecent(context.Background(), "abc123", 0)
	require.NoError(t, err)
	revisionRepo.AssertExpectations(t)
}

func TestListRecentRevisions_RoomNotFound(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	revisionRepo := new(mocks.MockRevisionRepository)
	svc := NewRevisionService(roomRepo, revisionRepo)

	roomRepo.On("FindByCode", mock.Anything, "nosuch").Return(nil, repository.ErrRoomNotFound)

	_, err := svc.ListRecent(context.Background(), "nosuch", 10)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	revisionRepo.AssertNotCalled(t, "FindRecent")
}
