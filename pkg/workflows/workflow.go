package workflows

import (
	"log"
	"strings"

	"github.com/HKUDS/seabot-go/pkg/seatalk"
)

// Messenger is the slice of the SeaTalk client the workflow layer needs.
type Messenger interface {
	SendGroupText(groupID, content, threadID string) error
	SendSingleText(employeeCode, content, threadID string) error
	SetGroupTypingStatus(groupID, threadID string) error
}

// Pipeline is a pluggable event handler: a discovery predicate plus a
// processing action. Process must contain its own failures where it can; the
// Manager isolates whatever still escapes.
type Pipeline interface {
	Name() string
	Supports(env *seatalk.Envelope) bool
	Process(env *seatalk.Envelope) error
}

// Manager runs the base platform automation and every registered workflow
// for each event. Workflows run in their declared order, and one workflow's
// failure never prevents the others from running.
type Manager struct {
	automation *Automation
	pipelines  []Pipeline
}

// NewManager wires the standard workflow set in its stable order.
func NewManager(automation *Automation, ingestion BatchIngestion, client Messenger) *Manager {
	return &Manager{
		automation: automation,
		pipelines: []Pipeline{
			NewBacklogsWorkflow(client, ingestion),
			NewStuckupWorkflow(client),
			NewLHPendingRequestWorkflow(client),
			NewMDTWorkflow(client),
		},
	}
}

// Process handles one event: platform automation first, then each supporting
// workflow, each isolated.
func (m *Manager) Process(env *seatalk.Envelope) {
	if err := m.automation.Process(env); err != nil {
		log.Printf("automation failed for event_type=%s: %v", env.EventType, err)
	}

	for _, wf := range m.pipelines {
		if !wf.Supports(env) {
			continue
		}
		if err := wf.Process(env); err != nil {
			log.Printf("workflow %q failed for event_type=%s: %v", wf.Name(), env.EventType, err)
		}
	}
}

// Pipelines exposes the registered workflows in order.
func (m *Manager) Pipelines() []Pipeline {
	return m.pipelines
}

// supportsByKeyword is the shared discovery rule: either an explicit
// workflow_update event naming this workflow, or the workflow name appearing
// as a trigger token in the message text or interactive callback value.
// Trigger tokens are matched on word boundaries ("admitted" does not trigger
// "mdt"), case-insensitively, in three spellings: name, /name,
// workflow:name.
func supportsByKeyword(env *seatalk.Envelope, name string) bool {
	ctx := seatalk.ExtractContext(env)

	if ctx.EventType == seatalk.EventWorkflowUpdate {
		if wf, ok := env.Event["workflow"].(string); ok && strings.TrimSpace(wf) == name {
			return true
		}
	}

	keyword := strings.ToLower(name)
	triggers := map[string]bool{
		keyword:               true,
		"/" + keyword:         true,
		"workflow:" + keyword: true,
	}

	return containsTriggerToken(ctx.Text, triggers) || containsTriggerToken(ctx.CallbackValue, triggers)
}

func containsTriggerToken(text string, triggers map[string]bool) bool {
	for _, field := range strings.Fields(strings.ToLower(text)) {
		if triggers[strings.Trim(field, ".,!?;:()[]\"'")] {
			return true
		}
	}
	return false
}

// buildSheetUpdateText assembles the one-line acknowledgement for a workflow
// hit: header, then the embedded sheet text (or the raw message text, or a
// fallback), then an optional image reference line.
func buildSheetUpdateText(name string, env *seatalk.Envelope) string {
	ctx := seatalk.ExtractContext(env)
	lines := []string{"[" + name + "] workflow update"}

	switch {
	case ctx.SheetText != "":
		lines = append(lines, ctx.SheetText)
	case ctx.Text != "":
		lines = append(lines, ctx.Text)
	default:
		lines = append(lines, "No sheet text provided.")
	}

	if ctx.SheetImage != "" {
		// The image API wants a base64 payload; surface the reference as text.
		lines = append(lines, "img_1: "+ctx.SheetImage)
	}

	return strings.Join(lines, "\n")
}

// sendText delivers workflow output to the event's origin, group chat first,
// else the sender's single chat.
func sendText(client Messenger, env *seatalk.Envelope, text string) error {
	ctx := seatalk.ExtractContext(env)
	if ctx.GroupID != "" {
		return client.SendGroupText(ctx.GroupID, text, ctx.ThreadID)
	}
	if ctx.EmployeeCode != "" {
		return client.SendSingleText(ctx.EmployeeCode, text, ctx.ThreadID)
	}
	return nil
}
