// Package editor holds the reconciliation guard that keeps a participant's
// view of a room consistent across their own saves and remote feed events.
//
// The change feed is assumed at-least-once, possibly duplicated, possibly
// out of order. The guard makes consumption idempotent and order-tolerant by
// tracking a watermark: the UpdatedAt timestamp of the most recently applied
// write. Self-echo events (the feed reporting a write this session itself
// performed) advance the watermark but never touch the content buffer, so an
// in-progress local edit is never clobbered by its own echo.
package editor

import (
	"sync"
	"time"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
)

// Outcome classifies what ApplyRemote did with a feed event.
type Outcome int

const (
	// Discard means the event was stale, duplicated, or unorderable and was
	// dropped without changing any state.
	Discard Outcome = iota
	// MergeMeta means the event was a newer self-echo: the watermark advanced
	// but the content buffer was left untouched.
	MergeMeta
	// Apply means a newer remote write replaced the content buffer and
	// advanced the watermark.
	Apply
)

// Session is the per-participant editor state for one room: the content
// buffer, the watermark, and the participant's own identity for self-echo
// detection. Methods are safe for use from the hub loop and save goroutines.
type Session struct {
	mu sync.Mutex

	roomCode    string
	userID      uint
	userEmail   string
	content     string
	editorEmail string
	watermark   string
}

// NewSession creates an empty session for the given participant and room.
func NewSession(roomCode string, userID uint, userEmail string) *Session {
	return &Session{
		roomCode:  roomCode,
		userID:    userID,
		userEmail: userEmail,
	}
}

// LoadFrom seeds the buffer and watermark from a freshly fetched room record.
func (s *Session) LoadFrom(room *domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = room.Content
	s.editorEmail = room.EditorEmail
	s.watermark = room.UpdatedAtString()
}

// RecordSave advances the buffer and watermark after a successful save, so
// the matching self-echo arriving via the feed is recognized as already seen.
func (s *Session) RecordSave(content string, savedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = content
	s.editorEmail = s.userEmail
	s.watermark = savedAt.UTC().Format(time.RFC3339Nano)
}

// ApplyRemote reconciles one feed event against the session state.
func (s *Session) ApplyRemote(ev domain.RoomUpdate) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	isSelf := ev.EditorEmail != "" && ev.EditorEmail == s.userEmail
	isNewer := newerThan(ev.UpdatedAt, s.watermark)

	if isSelf {
		if isNewer {
			s.watermark = ev.UpdatedAt
			return MergeMeta
		}
		return Discard
	}
	if !isNewer {
		return Discard
	}
	s.content = ev.Content
	s.editorEmail = ev.EditorEmail
	s.watermark = ev.UpdatedAt
	return Apply
}

// Content returns the current buffer.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Watermark returns the timestamp of the most recently applied write, empty
// if nothing has been applied yet.
func (s *Session) Watermark() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}

// EditorEmail returns the identity of the last applied write's editor.
func (s *Session) EditorEmail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editorEmail
}

// RoomCode returns the room this session is attached to.
func (s *Session) RoomCode() string { return s.roomCode }

// UserID returns the participant's user id.
func (s *Session) UserID() uint { return s.userID }

// UserEmail returns the participant's identity used for self-echo detection.
func (s *Session) UserEmail() string { return s.userEmail }

// newerThan reports whether candidate is strictly later than current.
// Empty strings mean the timestamp is absent. The tie-break policy:
// absent vs absent is not newer; present vs absent is newer; absent vs
// present is not newer; with both present the values are compared as times,
// and a value that fails to parse makes the pair unorderable, which counts
// as not newer.
func newerThan(candidate, current string) bool {
	if candidate == "" {
		return false
	}
	if current == "" {
		return true
	}
	ct, errCandidate := time.Parse(time.RFC3339Nano, candidate)
	wt, errCurrent := time.Parse(time.RFC3339Nano, current)
	if errCandidate != nil || errCurrent != nil {
		return false
	}
	return ct.After(wt)
}
