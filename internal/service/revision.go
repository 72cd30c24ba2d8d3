package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
)

const defaultRevisionListLimit = 20

// RevisionService exposes the per-save content history written by the
// background worker.
type RevisionService struct {
	roomRepo     repository.RoomRepository
	revisionRepo repository.RevisionRepository
}

// NewRevisionService creates the service.
func NewRevisionService(roomRepo repository.RoomRepository, revisionRepo repository.RevisionRepository) *RevisionService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RevisionService")
	}
	if revisionRepo == nil {
		panic("RevisionRepository cannot be nil for RevisionService")
	}
	return &RevisionService{roomRepo: roomRepo, revisionRepo: revisionRepo}
}

// ListRecent returns up to limit revisions of a room, newest first. A
// non-positive limit falls back to the default.
func (s *RevisionService) ListRecent(ctx context.Context, code string, limit int) ([]domain.Revision, error) {
	logCtx := logrus.WithField("code", code)

	room, err := s.roomRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to resolve room for revision listing")
		return nil, ErrInternalServer
	}

	if limit <= 0 {
		limit = defaultRevisionListLimit
	}
	revisions, err := s.revisionRepo.FindRecent(ctx, room.ID, limit)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list revisions")
		return nil, ErrInternalServer
	}
	return revisions, nil
}
