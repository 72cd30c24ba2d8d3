package domain

import "time"

// Revision is one historical save of a room's content, written asynchronously
// after each successful save.
type Revision struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RoomID      uint      `gorm:"index;not null" json:"room_id"`
	RoomCode    string    `gorm:"index;size:191;not null" json:"room_code"`
	Content     string    `gorm:"type:longtext" json:"content"`
	EditorID    uint      `gorm:"index;not null" json:"editor_id"`
	EditorEmail string    `gorm:"size:191" json:"editor_email"`
	SavedAt     time.Time `gorm:"index;not null" json:"saved_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
