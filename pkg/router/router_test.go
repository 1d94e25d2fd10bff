package router

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HKUDS/seabot-go/pkg/chat"
	"github.com/HKUDS/seabot-go/pkg/config"
	"github.com/HKUDS/seabot-go/pkg/providers"
	"github.com/HKUDS/seabot-go/pkg/seatalk"
	"github.com/HKUDS/seabot-go/pkg/workflows"
)

type stubMessenger struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubMessenger) record(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, kind)
	return nil
}

func (s *stubMessenger) SendGroupText(_, _, _ string) error  { return s.record("group") }
func (s *stubMessenger) SendSingleText(_, _, _ string) error { return s.record("single") }
func (s *stubMessenger) SetGroupTypingStatus(_, _ string) error {
	return s.record("typing")
}

func (s *stubMessenger) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

type stubProvider struct {
	err      error
	panicMsg string
}

func (p *stubProvider) Complete(_ context.Context, _ string, _ []providers.Turn, msg string) (string, error) {
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.err != nil {
		return "", p.err
	}
	return "reply to " + msg, nil
}

func newTestRouter(provider providers.CompletionProvider, client *stubMessenger) *Router {
	cfg := config.DefaultConfig()
	automation := workflows.NewAutomation(client, &cfg.Bot)
	manager := workflows.NewManager(automation, nil, client)
	chatWorkflow := chat.NewWorkflow(client, provider, &cfg.LLM, &cfg.Bot)
	return New(manager, chatWorkflow)
}

func groupMessage(text string) *seatalk.Envelope {
	return &seatalk.Envelope{
		EventType: seatalk.EventMessageFromBotSubscriber,
		Event: map[string]any{
			"group_id": "g1",
			"message": map[string]any{
				"text": map[string]any{"plain_text": text},
			},
		},
	}
}

type detailedMessenger struct {
	mu    sync.Mutex
	calls [][3]string
}

func (d *detailedMessenger) add(kind, target, thread string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, [3]string{kind, target, thread})
	return nil
}

func (d *detailedMessenger) SendGroupText(groupID, _, threadID string) error {
	return d.add("group", groupID, threadID)
}
func (d *detailedMessenger) SendSingleText(employeeCode, _, threadID string) error {
	return d.add("single", employeeCode, threadID)
}
func (d *detailedMessenger) SetGroupTypingStatus(groupID, threadID string) error {
	return d.add("typing", groupID, threadID)
}

// One threaded group message end to end: typing indicator first, then the
// reply into the same thread, and exactly one history pair retained.
func TestRouterThreadedMessageEndToEnd(t *testing.T) {
	client := &detailedMessenger{}
	cfg := config.DefaultConfig()
	automation := workflows.NewAutomation(client, &cfg.Bot)
	manager := workflows.NewManager(automation, nil, client)
	chatWorkflow := chat.NewWorkflow(client, &stubProvider{}, &cfg.LLM, &cfg.Bot)
	r := New(manager, chatWorkflow)

	r.HandleEvent(&seatalk.Envelope{
		EventType: seatalk.EventNewMessageFromThread,
		Event: map[string]any{
			"group_id": "g1",
			"message": map[string]any{
				"thread_id": "t1",
				"sender":    map[string]any{"employee_code": "e1"},
				"text":      map[string]any{"plain_text": "what changed?"},
			},
		},
	})

	require.Equal(t, [][3]string{
		{"typing", "g1", "t1"},
		{"group", "g1", "t1"},
	}, client.calls)

	history := chatWorkflow.History("g1")
	require.Len(t, history, 2)
	require.Equal(t, "what changed?", history[0].Content)
	require.Equal(t, "reply to what changed?", history[1].Content)
}

func TestRouterRunsBothBranches(t *testing.T) {
	client := &stubMessenger{}
	r := newTestRouter(&stubProvider{}, client)

	r.HandleEvent(groupMessage("hello"))

	// Automation typing indicator plus the chat reply.
	require.Equal(t, []string{"typing", "group"}, client.snapshot())
}

func TestRouterChatFailureDoesNotBlockWorkflows(t *testing.T) {
	client := &stubMessenger{}
	r := newTestRouter(&stubProvider{err: errors.New("llm down")}, client)

	r.HandleEvent(groupMessage("hello"))

	// Workflow branch already ran; the chat error is contained.
	require.Equal(t, []string{"typing"}, client.snapshot())
}

func TestRouterChatPanicIsContained(t *testing.T) {
	client := &stubMessenger{}
	r := newTestRouter(&stubProvider{panicMsg: "boom"}, client)

	require.NotPanics(t, func() {
		r.HandleEvent(groupMessage("hello"))
	})
	require.Equal(t, []string{"typing"}, client.snapshot())
}

func TestRouterNonMessageEventSkipsChat(t *testing.T) {
	client := &stubMessenger{}
	r := newTestRouter(&stubProvider{}, client)

	r.HandleEvent(&seatalk.Envelope{
		EventType: seatalk.EventBotAddedToGroup,
		Event:     map[string]any{"group": map[string]any{"group_id": "g2"}},
	})

	// Welcome message only; the chat branch never fires.
	require.Equal(t, []string{"group"}, client.snapshot())
}
