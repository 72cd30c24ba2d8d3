// Package dto defines the WebSocket frame shapes exchanged with clients.
package dto

// SaveFrame is the client's explicit save request.
type SaveFrame struct {
	Type    string `json:"type" binding:"required,eq=save"`
	Content string `json:"content"`
}

// RoomFrame is the initial state sent to a client right after it joins.
type RoomFrame struct {
	Type        string `json:"type"` // "room"
	Code        string `json:"code"`
	Name        string `json:"name"`
	Content     string `json:"content"`
	EditorEmail string `json:"editor_email,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	Presence    int64  `json:"presence"`
}

// UpdateFrame carries a reconciled remote edit to a client.
type UpdateFrame struct {
	Type        string `json:"type"` // "update"
	Content     string `json:"content"`
	EditorEmail string `json:"editor_email"`
	UpdatedAt   string `json:"updated_at"`
}

// AckFrame confirms a save back to its sender with the stored timestamp.
type AckFrame struct {
	Type      string `json:"type"` // "ack"
	UpdatedAt string `json:"updated_at"`
}

// ErrorFrame reports a failure to a client.
type ErrorFrame struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
