package v1

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"forge/pkg/models"
)

type createProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *APIHandlers) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Project name is required"})
		return
	}

	project, err := h.repos.Projects.Create(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *APIHandlers) listProjects(c *gin.Context) {
	projects, err := h.repos.Projects.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "count": len(projects)})
}

func (h *APIHandlers) getProject(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	project, err := h.repos.Projects.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get project"})
		return
	}

	results, err := h.repos.Messages.CountByProject(ctx, id, models.MessageTypeResult)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get project"})
		return
	}
	failures, err := h.repos.Messages.CountByProject(ctx, id, models.MessageTypeError)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get project"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project": project,
		"stats": gin.H{
			"results": results,
			"errors":  failures,
		},
	})
}

func (h *APIHandlers) projectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return 0, false
	}
	return id, true
}
