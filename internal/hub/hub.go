// Package hub coordinates WebSocket clients per room: it holds the room
// membership maps, one change-feed subscription per occupied room, and
// routes saves and feed events through each participant's editor session.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
	"github.com/abhaypanchalprogrammer/HasText/internal/dto"
	"github.com/abhaypanchalprogrammer/HasText/internal/editor"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
	"github.com/abhaypanchalprogrammer/HasText/internal/service"
)

// WebSocket timing constants shared by hub and client.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Room content travels in save
	// frames, so this is generous.
	maxMessageSize = 1 << 20
)

// HubMessage is the envelope passed over the hub's internal channel.
type HubMessage struct {
	Type     string // "register", "unregister", "save", "feed"
	RoomCode string
	Client   *Client           // register/unregister/save
	RawData  []byte            // save: raw client frame
	Update   domain.RoomUpdate // feed
}

// roomSubscription holds one room's redis pub/sub subscription while the
// room has connected clients.
type roomSubscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
}

// Hub maintains the active client set and coordinates message handling.
type Hub struct {
	messageChan chan HubMessage

	rooms   map[string]map[*Client]bool
	roomsMu sync.RWMutex

	subs   map[string]*roomSubscription
	subsMu sync.Mutex

	roomService *service.RoomService
	stateRepo   repository.StateRepository
	redisClient *redis.Client
}

// NewHub creates the hub.
func NewHub(roomService *service.RoomService, stateRepo repository.StateRepository, redisClient *redis.Client) *Hub {
	if roomService == nil {
		panic("RoomService cannot be nil for Hub")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for Hub")
	}
	if redisClient == nil {
		panic("redis client cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		rooms:       make(map[string]map[*Client]bool),
		subs:        make(map[string]*roomSubscription),
		roomService: roomService,
		stateRepo:   stateRepo,
		redisClient: redisClient,
	}
}

// Run is the hub's main event loop; run it in its own goroutine.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "save":
			// Saves do blocking I/O; keep them off the hub loop.
			go h.handleSave(msg)
		case "feed":
			h.handleFeedEvent(msg)
		default:
			log.Warnf("Received unknown message type: %s for room %s", msg.Type, msg.RoomCode)
		}
	}
	log.Info("Hub is shutting down...")
}

// QueueMessage enqueues a message without blocking. Returns false when the
// hub channel is full.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"room":         msg.RoomCode,
		}).Warn("Hub message channel full, dropping message")
		return false
	}
}

// GetActiveRoomCodes returns the codes of rooms with connected clients.
func (h *Hub) GetActiveRoomCodes() []string {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	codes := make([]string, 0, len(h.rooms))
	for code := range h.rooms {
		codes = append(codes, code)
	}
	return codes
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	code := client.RoomCode()
	logCtx := logrus.WithFields(logrus.Fields{
		"room":    code,
		"user_id": client.UserID(),
		"conn_id": client.ConnID(),
	})

	h.roomsMu.Lock()
	first := false
	if _, ok := h.rooms[code]; !ok {
		h.rooms[code] = make(map[*Client]bool)
		first = true
	}
	h.rooms[code][client] = true
	h.roomsMu.Unlock()
	logCtx.Info("Client registered to hub")

	if first {
		h.subscribeRoom(code)
	}

	go h.sendInitialRoom(client)
}

// unregisterClient removes the client from its room and tears it down. It is
// idempotent: presence is decremented only when this call actually removed
// the client, so a duplicate unregister cannot drift the counter.
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	code := client.RoomCode()
	logCtx := logrus.WithFields(logrus.Fields{
		"room":    code,
		"user_id": client.UserID(),
		"conn_id": client.ConnID(),
	})

	removed := false
	empty := false
	h.roomsMu.Lock()
	if roomClients, ok := h.rooms[code]; ok {
		if _, exists := roomClients[client]; exists {
			delete(roomClients, client)
			removed = true
			if len(roomClients) == 0 {
				delete(h.rooms, code)
				empty = true
			}
		}
	}
	h.roomsMu.Unlock()

	if !removed {
		logCtx.Debug("Client already unregistered, skipping")
		return
	}

	client.shutdown()

	if _, err := h.stateRepo.DecrPresence(context.Background(), code); err != nil {
		logCtx.WithError(err).Warn("Failed to decrement presence counter")
	}

	if empty {
		h.unsubscribeRoom(code)
		logCtx.Info("Room empty, feed subscription stopped")
	}
	logCtx.Info("Client unregistered from hub")
}

// sendInitialRoom bumps the room's presence counter, loads the room, seeds
// the client's session, and sends the initial room frame. Presence moves
// before the load so every registered client is counted exactly once; a
// failed load unregisters the client, which decrements it back.
func (h *Hub) sendInitialRoom(client *Client) {
	if client == nil {
		return
	}
	code := client.RoomCode()
	logCtx := logrus.WithFields(logrus.Fields{
		"room":      code,
		"user_id":   client.UserID(),
		"operation": "sendInitialRoom",
	})

	// Background context: loading must not be tied to the upgrade request.
	ctx := context.Background()

	presence, err := h.stateRepo.IncrPresence(ctx, code)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to increment presence counter")
	}

	room, err := h.roomService.LoadRoom(ctx, code)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load room for new client")
		h.sendError(client, "Failed to load room state")
		h.QueueMessage(HubMessage{Type: "unregister", RoomCode: code, Client: client})
		return
	}
	client.Session().LoadFrom(room)

	frame := dto.RoomFrame{
		Type:        "room",
		Code:        room.Code,
		Name:        room.DisplayName(),
		Content:     room.Content,
		EditorEmail: room.EditorEmail,
		UpdatedAt:   room.UpdatedAtString(),
		Presence:    presence,
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal room frame")
		return
	}
	if client.enqueue(payload) {
		logCtx.Info("Initial room frame sent to client channel")
	} else {
		logCtx.Warn("Client gone or send channel full, room frame dropped")
	}
}

// handleSave processes an explicit save from one client.
func (h *Hub) handleSave(msg HubMessage) {
	client := msg.Client
	if client == nil {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room":      msg.RoomCode,
		"user_id":   client.UserID(),
		"operation": "handleSave",
	})

	var frame dto.SaveFrame
	if err := json.Unmarshal(msg.RawData, &frame); err != nil || frame.Type != "save" {
		logCtx.WithError(err).Warn("Invalid save frame from client")
		h.sendError(client, "Invalid save message")
		return
	}

	ctx := context.Background()
	room, err := h.roomService.SaveContent(ctx, msg.RoomCode, client.UserID(), client.Session().UserEmail(), frame.Content)
	if err != nil {
		logCtx.WithError(err).Error("Save failed")
		// Buffer stays as-is on the client; it may retry.
		h.sendError(client, "Save failed")
		return
	}

	client.Session().RecordSave(room.Content, room.UpdatedAt)

	ack := dto.AckFrame{Type: "ack", UpdatedAt: room.UpdatedAtString()}
	if payload, err := json.Marshal(ack); err == nil {
		if !client.enqueue(payload) {
			logCtx.Warn("Client gone or send channel full, ack dropped")
		}
	}
}

// handleFeedEvent fans a feed event out through every attached session's
// reconciliation guard. Stale and self events are dropped per session; only
// sessions whose guard applied the event get a frame.
func (h *Hub) handleFeedEvent(msg HubMessage) {
	h.roomsMu.RLock()
	roomClients, ok := h.rooms[msg.RoomCode]
	clients := make([]*Client, 0, len(roomClients))
	if ok {
		for client := range roomClients {
			clients = append(clients, client)
		}
	}
	h.roomsMu.RUnlock()
	if len(clients) == 0 {
		return
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"room":       msg.RoomCode,
		"updated_at": msg.Update.UpdatedAt,
		"editor":     msg.Update.EditorEmail,
	})

	frame := dto.UpdateFrame{
		Type:        "update",
		Content:     msg.Update.Content,
		EditorEmail: msg.Update.EditorEmail,
		UpdatedAt:   msg.Update.UpdatedAt,
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal update frame")
		return
	}

	applied := 0
	for _, client := range clients {
		switch client.Session().ApplyRemote(msg.Update) {
		case editor.Apply:
			if client.enqueue(payload) {
				applied++
			} else {
				logCtx.WithField("conn_id", client.ConnID()).Warn("Client gone or send channel full during fan-out, skipping")
			}
		case editor.MergeMeta, editor.Discard:
			// Self echo or stale event; nothing goes to the wire.
		}
	}
	logCtx.WithField("applied", applied).Debug("Feed event fanned out")
}

// subscribeRoom opens the room's feed subscription and pumps events into
// the hub channel.
func (h *Hub) subscribeRoom(code string) {
	channel := h.stateRepo.FeedChannel(code)
	logCtx := logrus.WithFields(logrus.Fields{"room": code, "channel": channel})

	pubsub := h.redisClient.Subscribe(context.Background(), channel)
	sub := &roomSubscription{pubsub: pubsub, done: make(chan struct{})}

	h.subsMu.Lock()
	if _, exists := h.subs[code]; exists {
		h.subsMu.Unlock()
		pubsub.Close()
		return
	}
	h.subs[code] = sub
	h.subsMu.Unlock()

	go func() {
		defer close(sub.done)
		for redisMsg := range pubsub.Channel() {
			update, err := domain.DecodeRoomUpdate([]byte(redisMsg.Payload))
			if err != nil {
				logCtx.WithError(err).Warn("Failed to decode feed payload, dropping event")
				continue
			}
			h.QueueMessage(HubMessage{Type: "feed", RoomCode: code, Update: update})
		}
		logCtx.Info("Feed subscription loop exited")
	}()
	logCtx.Info("Feed subscription started")
}

// unsubscribeRoom closes the room's feed subscription.
func (h *Hub) unsubscribeRoom(code string) {
	h.subsMu.Lock()
	sub, ok := h.subs[code]
	if ok {
		delete(h.subs, code)
	}
	h.subsMu.Unlock()
	if !ok {
		return
	}
	if err := sub.pubsub.Close(); err != nil {
		logrus.WithField("room", code).WithError(err).Warn("Failed to close feed subscription")
	}
	<-sub.done
}

// StopAllSubscriptions tears down every feed subscription; called on
// shutdown.
func (h *Hub) StopAllSubscriptions() {
	h.subsMu.Lock()
	subs := h.subs
	h.subs = make(map[string]*roomSubscription)
	h.subsMu.Unlock()

	for code, sub := range subs {
		if err := sub.pubsub.Close(); err != nil {
			logrus.WithField("room", code).WithError(err).Warn("Failed to close feed subscription during shutdown")
		}
		<-sub.done
	}
	logrus.WithField("count", len(subs)).Info("All feed subscriptions stopped")
}

func (h *Hub) sendError(client *Client, message string) {
	payload, err := json.Marshal(dto.ErrorFrame{Type: "error", Message: message})
	if err != nil {
		return
	}
	client.enqueue(payload)
}
