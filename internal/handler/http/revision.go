package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abhaypanchalprogrammer/HasText/internal/service"
)

// RevisionHandler serves the room revision history.
type RevisionHandler struct {
	revisionService *service.RevisionService
}

// NewRevisionHandler creates the handler.
func NewRevisionHandler(revisionService *service.RevisionService) *RevisionHandler {
	if revisionService == nil {
		panic("RevisionService cannot be nil for RevisionHandler")
	}
	return &RevisionHandler{revisionService: revisionService}
}

// ListRevisions handles GET /api/rooms/:code/revisions?limit=N.
func (h *RevisionHandler) ListRevisions(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room code is required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	revisions, err := h.revisionService.ListRecent(c.Request.Context(), code, limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	out := make([]gin.H, 0, len(revisions))
	for _, rev := range revisions {
		out = append(out, gin.H{
			"id":           rev.ID,
			"content":      rev.Content,
			"editor_id":    rev.EditorID,
			"editor_email": rev.EditorEmail,
			"saved_at":     rev.SavedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"revisions": out})
}
