package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"forge/internal/logging"
	"forge/pkg/models"
)

const (
	// SubjectRun is where run events are published.
	SubjectRun = "forge.agent.run"
	// subjectResultPrefix is completed by the run ID, so callers can await a
	// specific run's outcome.
	subjectResultPrefix = "forge.agent.result."
	queueGroup          = "forge-workers"
)

// ResultSubject returns the subject a run's outcome is published on.
func ResultSubject(runID string) string {
	return subjectResultPrefix + runID
}

// Connect establishes the shared NATS connection with indefinite reconnects.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("forge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
}

// Runner is the workflow entry point the subscriber drives.
type Runner interface {
	Execute(ctx context.Context, event models.RunEvent) (*models.RunResult, error)
}

// Subscriber consumes run events from a queue group and executes one workflow
// per event. Results go back out on the run's result subject.
type Subscriber struct {
	conn   *nats.Conn
	runner Runner
	sub    *nats.Subscription
}

func NewSubscriber(conn *nats.Conn, runner Runner) *Subscriber {
	return &Subscriber{conn: conn, runner: runner}
}

// Start subscribes and begins processing. Each event runs in its own
// goroutine; the queue group spreads events across worker processes.
func (s *Subscriber) Start(ctx context.Context) error {
	sub, err := s.conn.QueueSubscribe(SubjectRun, queueGroup, func(msg *nats.Msg) {
		var event models.RunEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logging.Error("dropping malformed run event: %v", err)
			return
		}
		if event.RunID == "" {
			event.RunID = uuid.NewString()
		}
		go s.handle(ctx, event)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	logging.Info("subscribed to %s (queue %s)", SubjectRun, queueGroup)
	return nil
}

func (s *Subscriber) handle(ctx context.Context, event models.RunEvent) {
	result, err := s.runner.Execute(ctx, event)
	if err != nil {
		logging.Error("run %s failed: %v", event.RunID, err)
		s.publish(event.RunID, map[string]string{"error": err.Error()})
		return
	}
	s.publish(event.RunID, result)
}

func (s *Subscriber) publish(runID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("failed to encode result for run %s: %v", runID, err)
		return
	}
	if err := s.conn.Publish(ResultSubject(runID), data); err != nil {
		logging.Error("failed to publish result for run %s: %v", runID, err)
	}
}

// Stop unsubscribes; in-flight runs keep going until their context ends.
func (s *Subscriber) Stop() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			logging.Error("failed to unsubscribe: %v", err)
		}
	}
}
