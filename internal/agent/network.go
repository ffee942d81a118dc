package agent

import (
	"context"
	"strings"

	"forge/internal/logging"
)

// Phase is the controller's routing decision for the next round.
type Phase string

const (
	PhaseRunning    Phase = "RUNNING"
	PhaseSummarized Phase = "SUMMARIZED"
	PhaseExhausted  Phase = "EXHAUSTED"
)

// TaskSummaryMarker is the token the coder emits when it considers the task
// complete. Its presence anywhere in a round's text response ends the loop.
const TaskSummaryMarker = "<task_summary>"

// Network drives the coder until it either declares the task done or spends
// its round budget.
type Network struct {
	coder     *Coder
	state     *State
	maxRounds int
}

func NewNetwork(coder *Coder, state *State, maxRounds int) *Network {
	return &Network{coder: coder, state: state, maxRounds: maxRounds}
}

// Run seeds the conversation with the task and iterates rounds. The routing
// check happens before each round, so a summary captured on round N stops the
// loop without an N+1 model call, and a budget of zero never calls the model.
func (n *Network) Run(ctx context.Context, task string, conv *Conversation) (Phase, error) {
	conv.AddUserText(task)

	rounds := 0
	for {
		if n.state.Summary != "" {
			logging.Debug("network routing: summarized after %d rounds", rounds)
			return PhaseSummarized, nil
		}
		if rounds >= n.maxRounds {
			logging.Debug("network routing: exhausted at %d rounds", rounds)
			return PhaseExhausted, nil
		}

		text, err := n.coder.Step(ctx, conv)
		if err != nil {
			return PhaseRunning, err
		}
		rounds++

		if n.state.Summary == "" && strings.Contains(text, TaskSummaryMarker) {
			n.state.Summary = text
		}
	}
}
