package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abhaypanchalprogrammer/HasText/internal/domain"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository/mocks"
	"github.com/abhaypanchalprogrammer/HasText/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopEnqueuer struct{}

func (nopEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{}, nil
}

// newRoomTestRouter builds a router over mocked repositories with the auth
// middleware replaced by a stub that injects the given identity.
func newRoomTestRouter(roomRepo *mocks.MockRoomRepository, stateRepo *mocks.MockStateRepository, userID uint, email string) *gin.Engine {
	svc := service.NewRoomService(roomRepo, stateRepo, nopEnqueuer{})
	handler := NewRoomHandler(svc)

	router := gin.New()
	authStub := func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("user_email", email)
		c.Next()
	}
	rooms := router.Group("/api/rooms", authStub)
	{
		rooms.POST("", handler.CreateRoom)
		rooms.POST("/join", handler.JoinRoom)
		rooms.GET("", handler.ListRooms)
		rooms.GET("/:code", handler.GetRoom)
		rooms.PUT("/:code", handler.SaveRoom)
	}
	return router
}

func TestCreateRoomEndpoint(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	router := newRoomTestRouter(roomRepo, stateRepo, 5, "alice@example.com")

	roomRepo.On("IsCodeExists", mock.Anything, mock.Anything).Return(false, nil)
	roomRepo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Room).ID = 1
	}).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/rooms", bytes.NewBufferString(`{"name":"scratchpad"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "scratchpad", resp["name"])
	code, ok := resp["code"].(string)
	require.True(t, ok)
	assert.Len(t, code, 6)
}

func TestJoinRoomEndpoint_NormalizesCode(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	router := newRoomTestRouter(roomRepo, stateRepo, 5, "alice@example.com")

	stateRepo.On("GetRoomCache", mock.Anything, "abc123").Return(&domain.Room{ID: 1, Code: "abc123", Name: "notes"}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/rooms/join", bytes.NewBufferString(`{"code":"  ABC123 "}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"abc123"`)
}

func TestGetRoomEndpoint_NotFound(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	router := newRoomTestRouter(roomRepo, stateRepo, 5, "alice@example.com")

	stateRepo.On("GetRoomCache", mock.Anything, "nosuch").Return(nil, repository.ErrNotFound)
	roomRepo.On("FindByCode", mock.Anything, "nosuch").Return(nil, repository.ErrRoomNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/rooms/nosuch", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Room not found")
}

func TestSaveRoomEndpoint(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	router := newRoomTestRouter(roomRepo, stateRepo, 5, "alice@example.com")

	stored := &domain.Room{ID: 1, Code: "abc123", Content: "updated text", EditorEmail: "alice@example.com"}
	roomRepo.On("UpdateContent", mock.Anything, "abc123", "updated text", uint(5), "alice@example.com", mock.Anything).Return(nil)
	roomRepo.On("FindByCode", mock.Anything, "abc123").Return(stored, nil)
	stateRepo.On("SetRoomCache", mock.Anything, "abc123", stored, mock.Anything).Return(nil)
	stateRepo.On("PublishUpdate", mock.Anything, "abc123", mock.Anything).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/api/rooms/abc123", bytes.NewBufferString(`{"content":"updated text"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "updated text")
	roomRepo.AssertExpectations(t)
}

func TestListRoomsEndpoint(t *testing.T) {
	roomRepo := new(mocks.MockRoomRepository)
	stateRepo := new(mocks.MockStateRepository)
	router := newRoomTestRouter(roomRepo, stateRepo, 5, "alice@example.com")

	roomRepo.On("FindAllByOwner", mock.Anything, uint(5)).Return([]domain.Room{
		{ID: 2, Code: "bbbbbb", Name: "second"},
		{ID: 1, Code: "aaaaaa", Name: "first"},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/rooms", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Rooms []map[string]interface{} `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Rooms, 2)
}
