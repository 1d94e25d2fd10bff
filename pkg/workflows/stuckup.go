package workflows

import "github.com/HKUDS/seabot-go/pkg/seatalk"

// StuckupWorkflow acknowledges stuckup sheet updates.
type StuckupWorkflow struct {
	client Messenger
}

func NewStuckupWorkflow(client Messenger) *StuckupWorkflow {
	return &StuckupWorkflow{client: client}
}

func (w *StuckupWorkflow) Name() string { return "stuckup" }

func (w *StuckupWorkflow) Supports(env *seatalk.Envelope) bool {
	return supportsByKeyword(env, w.Name())
}

func (w *StuckupWorkflow) Process(env *seatalk.Envelope) error {
	return sendText(w.client, env, buildSheetUpdateText(w.Name(), env))
}
