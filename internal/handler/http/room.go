package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
	"github.com/abhaypanchalprogrammer/HasText/internal/service"
)

// RoomHandler serves the /api/rooms endpoints.
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler creates the handler.
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService}
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type joinRoomRequest struct {
	Code string `json:"code" binding:"required"`
}

type saveRoomRequest struct {
	Content string `json:"content"`
}

func roomResponse(room *domain.Room) gin.H {
	return gin.H{
		"id":           room.ID,
		"code":         room.Code,
		"name":         room.DisplayName(),
		"content":      room.Content,
		"editor_email": room.EditorEmail,
		"updated_at":   room.UpdatedAtString(),
		"created_at":   room.CreatedAt,
	}
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID, req.Name)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, roomResponse(room))
}

// JoinRoom handles POST /api/rooms/join. It resolves a share code so the
// dashboard can redirect into the room view.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	room, err := h.roomService.JoinRoom(c.Request.Context(), userID, strings.ToLower(strings.TrimSpace(req.Code)))
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, roomResponse(room))
}

// ListRooms handles GET /api/rooms; it returns the rooms the caller created.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	rooms, err := h.roomService.ListRoomsOwnedBy(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	out := make([]gin.H, 0, len(rooms))
	for i := range rooms {
		out = append(out, roomResponse(&rooms[i]))
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

// GetRoom handles GET /api/rooms/:code.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room code is required"})
		return
	}

	room, err := h.roomService.LoadRoom(c.Request.Context(), code)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, roomResponse(room))
}

// SaveRoom handles PUT /api/rooms/:code. It is the REST fallback for clients
// without a live WebSocket; the save still publishes to the change feed.
func (h *RoomHandler) SaveRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room code is required"})
		return
	}

	var req saveRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	room, err := h.roomService.SaveContent(c.Request.Context(), code, userID, currentUserEmail(c), req.Content)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, roomResponse(room))
}
