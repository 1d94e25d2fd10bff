package router

import (
	"log"

	"github.com/HKUDS/seabot-go/pkg/chat"
	"github.com/HKUDS/seabot-go/pkg/seatalk"
	"github.com/HKUDS/seabot-go/pkg/workflows"
)

// Router fans one dequeued event out to the automation/workflow branch and
// the chat branch. Each branch is isolated: a panic or error in one is
// logged with the event type and never prevents the other from running.
type Router struct {
	workflowManager *workflows.Manager
	chatWorkflow    *chat.Workflow
}

func New(workflowManager *workflows.Manager, chatWorkflow *chat.Workflow) *Router {
	return &Router{
		workflowManager: workflowManager,
		chatWorkflow:    chatWorkflow,
	}
}

// HandleEvent dispatches one event to every branch.
func (r *Router) HandleEvent(env *seatalk.Envelope) {
	runIsolated("workflow manager", env.EventType, func() error {
		r.workflowManager.Process(env)
		return nil
	})

	if r.chatWorkflow.Supports(env.EventType) {
		runIsolated("chat workflow", env.EventType, func() error {
			return r.chatWorkflow.Process(env)
		})
	} else {
		log.Printf("No chat workflow for event_type=%s", env.EventType)
	}
}

func runIsolated(branch, eventType string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("%s panicked for event_type=%s: %v", branch, eventType, rec)
		}
	}()
	if err := fn(); err != nil {
		log.Printf("%s failed for event_type=%s: %v", branch, eventType, err)
	}
}
