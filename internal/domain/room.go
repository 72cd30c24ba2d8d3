package domain

import (
	"fmt"
	"strings"
	"time"
)

// Room is a code-addressable shared text document. Content is replaced
// wholesale on every save; rooms are never deleted.
type Room struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Code         string    `gorm:"uniqueIndex:idx_room_code;size:191;not null" json:"code"`
	Name         string    `gorm:"size:191" json:"name"`
	Content      string    `gorm:"type:longtext" json:"content"`
	CreatedBy    uint      `gorm:"index;not null" json:"created_by"`
	LastEditedBy uint      `gorm:"index" json:"last_edited_by"`
	EditorEmail  string    `gorm:"size:191" json:"editor_email"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastActive   time.Time `gorm:"index" json:"last_active"`
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`
}

// DisplayName returns the room name, falling back to one derived from the
// code when no name was given.
func (r *Room) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("Room %s", strings.ToUpper(r.Code))
}

// UpdatedAtString renders the last-write timestamp the way the change feed
// carries it. Zero time means the room has never been saved.
func (r *Room) UpdatedAtString() string {
	if r.UpdatedAt.IsZero() {
		return ""
	}
	return r.UpdatedAt.UTC().Format(time.RFC3339Nano)
}
