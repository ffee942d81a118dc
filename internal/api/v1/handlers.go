package v1

import (
	"github.com/gin-gonic/gin"

	"forge/internal/db/repositories"
	"forge/pkg/models"
)

// RunPublisher enqueues a run event and returns its run ID.
type RunPublisher interface {
	PublishRun(event models.RunEvent) (string, error)
}

type APIHandlers struct {
	repos     *repositories.Repositories
	publisher RunPublisher
}

func NewAPIHandlers(repos *repositories.Repositories, publisher RunPublisher) *APIHandlers {
	return &APIHandlers{repos: repos, publisher: publisher}
}

func (h *APIHandlers) RegisterRoutes(group *gin.RouterGroup) {
	projects := group.Group("/projects")
	{
		projects.POST("", h.createProject)
		projects.GET("", h.listProjects)
		projects.GET("/:id", h.getProject)
		projects.GET("/:id/messages", h.listMessages)
		projects.POST("/:id/messages", h.createMessage)
	}
}
