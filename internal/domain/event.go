package domain

import "encoding/json"

// RoomUpdate is the change-feed event published after every successful save.
// UpdatedAt travels as RFC3339Nano text and may be empty or malformed by the
// time it reaches a subscriber; consumers must not assume it parses.
type RoomUpdate struct {
	RoomCode    string `json:"room_code"`
	Name        string `json:"name,omitempty"`
	Content     string `json:"content"`
	EditorID    uint   `json:"editor_id"`
	EditorEmail string `json:"editor_email"`
	UpdatedAt   string `json:"updated_at"`
}

// Encode serializes the event for the feed channel.
func (u RoomUpdate) Encode() ([]byte, error) {
	return json.Marshal(u)
}

// DecodeRoomUpdate parses a feed payload.
func DecodeRoomUpdate(data []byte) (RoomUpdate, error) {
	var u RoomUpdate
	err := json.Unmarshal(data, &u)
	return u, err
}
