package repositories

import (
	"forge/internal/db"
)

type Repositories struct {
	Projects      *ProjectRepo
	Messages      *MessageRepo
	WorkflowSteps *WorkflowStepRepo
}

func New(database db.Database) *Repositories {
	conn := database.Conn()

	return &Repositories{
		Projects:      NewProjectRepo(conn),
		Messages:      NewMessageRepo(conn),
		WorkflowSteps: NewWorkflowStepRepo(conn),
	}
}
