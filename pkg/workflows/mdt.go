package workflows

import "github.com/HKUDS/seabot-go/pkg/seatalk"

// MDTWorkflow acknowledges MDT sheet updates.
type MDTWorkflow struct {
	client Messenger
}

func NewMDTWorkflow(client Messenger) *MDTWorkflow {
	return &MDTWorkflow{client: client}
}

func (w *MDTWorkflow) Name() string { return "mdt" }

func (w *MDTWorkflow) Supports(env *seatalk.Envelope) bool {
	return supportsByKeyword(env, w.Name())
}

func (w *MDTWorkflow) Process(env *seatalk.Envelope) error {
	return sendText(w.client, env, buildSheetUpdateText(w.Name(), env))
}
