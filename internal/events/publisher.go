package events

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"forge/pkg/models"
)

// Publisher enqueues run events for the worker pool.
type Publisher struct {
	conn *nats.Conn
}

func NewPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// PublishRun assigns a run ID when the event has none, publishes the event
// and returns the ID so callers can await the matching result subject.
func (p *Publisher) PublishRun(event models.RunEvent) (string, error) {
	if event.RunID == "" {
		event.RunID = uuid.NewString()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	if err := p.conn.Publish(SubjectRun, data); err != nil {
		return "", err
	}
	return event.RunID, nil
}
