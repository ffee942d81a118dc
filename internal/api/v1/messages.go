package v1

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"forge/pkg/models"
)

const maxPromptLength = 10000

type createMessageRequest struct {
	Value string `json:"value" binding:"required"`
}

func (h *APIHandlers) listMessages(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}
	messages, err := h.repos.Messages.ListByProject(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": len(messages)})
}

// createMessage records the user's prompt and enqueues a run event. The
// response carries the run ID; the outcome arrives later as a new assistant
// message on the project.
func (h *APIHandlers) createMessage(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	value := strings.TrimSpace(req.Value)
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message value is required"})
		return
	}
	if len(value) > maxPromptLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message value is too long"})
		return
	}

	if _, err := h.repos.Projects.Get(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get project"})
		return
	}

	message, err := h.repos.Messages.Create(c.Request.Context(), id, value, models.MessageRoleUser, models.MessageTypeResult, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message"})
		return
	}

	runID, err := h.publisher.PublishRun(models.RunEvent{ProjectID: id, Value: value})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": message, "runId": runID})
}
