// Package websocket upgrades authenticated requests into hub clients.
package websocket

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/abhaypanchalprogrammer/HasText/internal/editor"
	"github.com/abhaypanchalprogrammer/HasText/internal/hub"
	"github.com/abhaypanchalprogrammer/HasText/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens via JWT before the upgrade; origins are not restricted.
		return true
	},
}

// Handler serves GET /ws/room/:code.
type Handler struct {
	hub         *hub.Hub
	roomService *service.RoomService
}

// NewHandler creates the handler.
func NewHandler(h *hub.Hub, roomService *service.RoomService) *Handler {
	if h == nil {
		panic("Hub cannot be nil for websocket Handler")
	}
	if roomService == nil {
		panic("RoomService cannot be nil for websocket Handler")
	}
	return &Handler{hub: h, roomService: roomService}
}

// ServeRoom validates the room code, upgrades the connection, and hands the
// client to the hub.
func (h *Handler) ServeRoom(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room code is required"})
		return
	}

	rawID, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	userID, ok := rawID.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	email := c.GetString("user_email")

	logCtx := logrus.WithFields(logrus.Fields{"room": code, "user_id": userID})

	// Reject unknown codes before spending an upgrade on them.
	if _, err := h.roomService.LoadRoom(c.Request.Context(), code); err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		logCtx.WithError(err).Error("Failed to validate room before upgrade")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade writes its own error response.
		logCtx.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	session := editor.NewSession(code, userID, email)
	client := hub.NewClient(h.hub, conn, session)

	if !h.hub.QueueMessage(hub.HubMessage{Type: "register", RoomCode: code, Client: client}) {
		logCtx.Error("Hub channel full, dropping new connection")
		client.CloseConn()
		return
	}

	client.Run()
	logCtx.WithField("conn_id", client.ConnID()).Info("WebSocket client connected")
}
