package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "USER"
	MessageRoleAssistant MessageRole = "ASSISTANT"
)

type MessageType string

const (
	MessageTypeResult MessageType = "RESULT"
	MessageTypeError  MessageType = "ERROR"
)

type Project struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Message struct {
	ID        int64       `json:"id" db:"id"`
	ProjectID int64       `json:"project_id" db:"project_id"`
	Content   string      `json:"content" db:"content"`
	Role      MessageRole `json:"role" db:"role"`
	Type      MessageType `json:"type" db:"type"`
	Fragment  *Fragment   `json:"fragment,omitempty" db:"-"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// Fragment is the artifact bundle attached to a successful outcome message.
type Fragment struct {
	ID         int64     `json:"id" db:"id"`
	MessageID  int64     `json:"message_id" db:"message_id"`
	SandboxURL string    `json:"sandbox_url" db:"sandbox_url"`
	Title      string    `json:"title" db:"title"`
	Files      FileMap   `json:"files" db:"files"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// FileMap maps sandbox-relative file paths to full file contents.
// Stored as a JSON object column in SQLite.
type FileMap map[string]string

func (m FileMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *FileMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FileMap", value)
	}

	return json.Unmarshal(bytes, m)
}

// Clone returns a shallow copy so callers can merge without aliasing the original.
func (m FileMap) Clone() FileMap {
	out := make(FileMap, len(m))
	for path, content := range m {
		out[path] = content
	}
	return out
}

type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// WorkflowStep is one checkpointed unit of work within a workflow run.
type WorkflowStep struct {
	ID        int64           `json:"id" db:"id"`
	RunID     string          `json:"run_id" db:"run_id"`
	Name      string          `json:"name" db:"name"`
	Status    StepStatus      `json:"status" db:"status"`
	Output    json.RawMessage `json:"output,omitempty" db:"output"`
	Error     *string         `json:"error,omitempty" db:"error"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// RunEvent is the inbound trigger payload for one workflow invocation.
type RunEvent struct {
	ProjectID int64  `json:"projectId"`
	Value     string `json:"value"`
	RunID     string `json:"runId,omitempty"`
}

// RunResult is the outbound payload returned when a workflow completes.
type RunResult struct {
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Files          FileMap `json:"files"`
	Summary        string  `json:"summary"`
	ProcessingTime string  `json:"processingTime"`
}
