package workflows

import "github.com/HKUDS/seabot-go/pkg/seatalk"

// LHPendingRequestWorkflow acknowledges lhpending_request sheet updates.
type LHPendingRequestWorkflow struct {
	client Messenger
}

func NewLHPendingRequestWorkflow(client Messenger) *LHPendingRequestWorkflow {
	return &LHPendingRequestWorkflow{client: client}
}

func (w *LHPendingRequestWorkflow) Name() string { return "lhpending_request" }

func (w *LHPendingRequestWorkflow) Supports(env *seatalk.Envelope) bool {
	return supportsByKeyword(env, w.Name())
}

func (w *LHPendingRequestWorkflow) Process(env *seatalk.Envelope) error {
	return sendText(w.client, env, buildSheetUpdateText(w.Name(), env))
}
