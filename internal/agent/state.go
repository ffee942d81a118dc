package agent

import (
	"forge/pkg/models"
)

// State is the shared mutable record threaded through every network round and
// every tool invocation. It is owned by the network controller; nothing else
// holds a reference across rounds.
//
// Summary stays empty until the agent emits the terminal marker and is never
// cleared afterwards. Files only grows: tools add or overwrite entries, never
// delete them, so it always reflects what was durably applied to the sandbox.
type State struct {
	Summary string
	Files   models.FileMap
}

func NewState() *State {
	return &State{
		Files: models.FileMap{},
	}
}
