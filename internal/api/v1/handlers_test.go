package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forge/internal/db"
	"forge/internal/db/repositories"
	"forge/pkg/models"
)

type fakePublisher struct {
	events []models.RunEvent
	err    error
}

func (p *fakePublisher) PublishRun(event models.RunEvent) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	event.RunID = "run-1"
	p.events = append(p.events, event)
	return event.RunID, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *repositories.Repositories, *fakePublisher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := repositories.New(db.NewTest(t))
	publisher := &fakePublisher{}

	router := gin.New()
	NewAPIHandlers(repos, publisher).RegisterRoutes(router.Group("/api/v1"))
	return router, repos, publisher
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateProject(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/projects", map[string]string{"name": "my-app"})
	require.Equal(t, http.StatusCreated, w.Code)

	var project models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))
	assert.Equal(t, "my-app", project.Name)
	assert.NotZero(t, project.ID)
}

func TestCreateProjectRejectsBlankName(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/projects", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProjectNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/v1/projects/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetProjectReportsOutcomeCounts(t *testing.T) {
	router, repos, _ := newTestRouter(t)
	ctx := context.Background()
	project, err := repos.Projects.Create(ctx, "demo")
	require.NoError(t, err)

	_, err = repos.Messages.Create(ctx, project.ID, "built it", models.MessageRoleAssistant, models.MessageTypeResult, nil)
	require.NoError(t, err)
	_, err = repos.Messages.Create(ctx, project.ID, "built another", models.MessageRoleAssistant, models.MessageTypeResult, nil)
	require.NoError(t, err)
	_, err = repos.Messages.Create(ctx, project.ID, "something went wrong", models.MessageRoleAssistant, models.MessageTypeError, nil)
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", project.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Project models.Project `json:"project"`
		Stats   struct {
			Results int64 `json:"results"`
			Errors  int64 `json:"errors"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, project.ID, resp.Project.ID)
	assert.Equal(t, int64(2), resp.Stats.Results)
	assert.Equal(t, int64(1), resp.Stats.Errors)
}

func TestCreateMessageEnqueuesRun(t *testing.T) {
	router, repos, publisher := newTestRouter(t)
	project, err := repos.Projects.Create(context.Background(), "demo")
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/messages", project.ID),
		map[string]string{"value": "build a kanban board"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Message models.Message `json:"message"`
		RunID   string         `json:"runId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, models.MessageRoleUser, resp.Message.Role)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, project.ID, publisher.events[0].ProjectID)
	assert.Equal(t, "build a kanban board", publisher.events[0].Value)

	// The prompt is persisted before the event goes out.
	messages, err := repos.Messages.ListByProject(context.Background(), project.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "build a kanban board", messages[0].Content)
}

func TestCreateMessageUnknownProject(t *testing.T) {
	router, _, publisher := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/projects/123/messages",
		map[string]string{"value": "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, publisher.events)
}

func TestCreateMessageValidation(t *testing.T) {
	router, repos, publisher := newTestRouter(t)
	project, err := repos.Projects.Create(context.Background(), "demo")
	require.NoError(t, err)

	tests := []struct {
		name  string
		body  any
		wantC int
	}{
		{"missing value", map[string]string{}, http.StatusBadRequest},
		{"blank value", map[string]string{"value": "  "}, http.StatusBadRequest},
		{"oversized value", map[string]string{"value": string(make([]byte, maxPromptLength+1))}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/messages", project.ID), tt.body)
			assert.Equal(t, tt.wantC, w.Code)
		})
	}
	assert.Empty(t, publisher.events)
}

func TestListMessagesIncludesFragment(t *testing.T) {
	router, repos, _ := newTestRouter(t)
	ctx := context.Background()
	project, err := repos.Projects.Create(ctx, "demo")
	require.NoError(t, err)
	_, err = repos.Messages.Create(ctx, project.ID, "done", models.MessageRoleAssistant, models.MessageTypeResult, &repositories.FragmentInput{
		SandboxURL: "https://sb-1.example.dev",
		Title:      "Kanban Board",
		Files:      models.FileMap{"app/page.tsx": "..."},
	})
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/messages", project.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []models.Message `json:"messages"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	require.NotNil(t, resp.Messages[0].Fragment)
	assert.Equal(t, "Kanban Board", resp.Messages[0].Fragment.Title)
}
