package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HKUDS/seabot-go/pkg/config"
	"github.com/HKUDS/seabot-go/pkg/providers"
	"github.com/HKUDS/seabot-go/pkg/seatalk"
)

type fakeProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	history [][]providers.Turn
}

func (f *fakeProvider) Complete(_ context.Context, _ string, history []providers.Turn, newMessage string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, newMessage)
	snapshot := make([]providers.Turn, len(history))
	copy(snapshot, history)
	f.history = append(f.history, snapshot)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "echo: " + newMessage, nil
}

type fakeChatMessenger struct {
	mu     sync.Mutex
	groups []string
	single []string
	err    error
}

func (f *fakeChatMessenger) SendGroupText(groupID, content, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, groupID+"|"+content+"|"+threadID)
	return f.err
}

func (f *fakeChatMessenger) SendSingleText(employeeCode, content, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.single = append(f.single, employeeCode+"|"+content+"|"+threadID)
	return f.err
}

func newTestWorkflow(provider *fakeProvider, client *fakeChatMessenger, mention string) *Workflow {
	cfg := config.DefaultConfig()
	if mention != "" {
		cfg.Bot.MentionName = mention
	}
	return NewWorkflow(client, provider, &cfg.LLM, &cfg.Bot)
}

func messageEnvelope(eventType, groupID, employeeCode, text string) *seatalk.Envelope {
	event := map[string]any{
		"message": map[string]any{
			"text": map[string]any{"plain_text": text},
		},
	}
	if groupID != "" {
		event["group_id"] = groupID
	}
	if employeeCode != "" {
		event["employee_code"] = employeeCode
	}
	return &seatalk.Envelope{EventType: eventType, Event: event}
}

func TestChatRepliesToGroupMessage(t *testing.T) {
	provider := &fakeProvider{reply: "  hi there  "}
	client := &fakeChatMessenger{}
	w := newTestWorkflow(provider, client, "")

	env := messageEnvelope(seatalk.EventMessageFromBotSubscriber, "g1", "", "hello bot")
	require.NoError(t, w.Process(env))

	require.Len(t, client.groups, 1)
	require.Equal(t, "g1|hi there|", client.groups[0]) // reply is trimmed

	history := w.History("g1")
	require.Len(t, history, 2)
	require.Equal(t, providers.Turn{Role: "user", Content: "hello bot"}, history[0])
	require.Equal(t, providers.Turn{Role: "assistant", Content: "hi there"}, history[1])
}

func TestChatRepliesToSingleChat(t *testing.T) {
	provider := &fakeProvider{}
	client := &fakeChatMessenger{}
	w := newTestWorkflow(provider, client, "")

	env := messageEnvelope(seatalk.EventMessageFromBotSubscriber, "", "e1", "ping")
	require.NoError(t, w.Process(env))

	require.Empty(t, client.groups)
	require.Len(t, client.single, 1)
	require.Equal(t, "e1|echo: ping|", client.single[0])
}

func TestChatMentionGating(t *testing.T) {
	cases := []struct {
		name      string
		eventType string
		mention   string
		text      string
		replies   bool
	}{
		{"mentioned event without token", seatalk.EventNewMentionedMessage, "@bot", "hello", false},
		{"mentioned event with token", seatalk.EventNewMentionedMessage, "@bot", "hi @bot", true},
		{"default sentinel disables gating", seatalk.EventNewMentionedMessage, config.DefaultMentionName, "hello", true},
		{"subscriber messages never gated", seatalk.EventMessageFromBotSubscriber, "@bot", "hello", true},
		{"thread messages never gated", seatalk.EventNewMessageFromThread, "@bot", "hello", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &fakeProvider{}
			client := &fakeChatMessenger{}
			w := newTestWorkflow(provider, client, tc.mention)

			env := messageEnvelope(tc.eventType, "g1", "", tc.text)
			require.NoError(t, w.Process(env))
			if tc.replies {
				require.Len(t, client.groups, 1)
			} else {
				require.Empty(t, client.groups)
				require.Empty(t, provider.prompts)
			}
		})
	}
}

func TestChatIgnoresEmptyText(t *testing.T) {
	provider := &fakeProvider{}
	client := &fakeChatMessenger{}
	w := newTestWorkflow(provider, client, "")

	env := messageEnvelope(seatalk.EventMessageFromBotSubscriber, "g1", "", "   ")
	require.NoError(t, w.Process(env))
	require.Empty(t, provider.prompts)
	require.Empty(t, client.groups)
}

func TestChatHistoryWindowAndCap(t *testing.T) {
	provider := &fakeProvider{}
	client := &fakeChatMessenger{}
	w := newTestWorkflow(provider, client, "")

	for i := 0; i < 15; i++ {
		env := messageEnvelope(seatalk.EventMessageFromBotSubscriber, "g1", "", fmt.Sprintf("msg-%d", i))
		require.NoError(t, w.Process(env))
	}

	// Retained history is capped at 20 entries, newest last.
	history := w.History("g1")
	require.Len(t, history, historyMaxEntries)
	require.Equal(t, "msg-14", history[len(history)-2].Content)
	require.Equal(t, "echo: msg-14", history[len(history)-1].Content)

	// The prompt only ever sees the trailing window.
	last := provider.history[len(provider.history)-1]
	require.Len(t, last, historyPromptWindow)
	require.Equal(t, "echo: msg-13", last[len(last)-1].Content)
}

func TestChatCompletionFailureLeavesHistoryUntouched(t *testing.T) {
	provider := &fakeProvider{err: errors.New("provider down")}
	client := &fakeChatMessenger{}
	w := newTestWorkflow(provider, client, "")

	env := messageEnvelope(seatalk.EventMessageFromBotSubscriber, "g1", "", "hello")
	require.Error(t, w.Process(env))
	require.Empty(t, client.groups)
	require.Empty(t, w.History("g1"))
}

func TestChatSendFailureLeavesHistoryUntouched(t *testing.T) {
	provider := &fakeProvider{}
	client := &fakeChatMessenger{err: errors.New("api rejected")}
	w := newTestWorkflow(provider, client, "")

	env := messageEnvelope(seatalk.EventMessageFromBotSubscriber, "g1", "", "hello")
	require.Error(t, w.Process(env))
	require.Empty(t, w.History("g1"))
}

func TestChatSeparateConversationKeys(t *testing.T) {
	provider := &fakeProvider{}
	client := &fakeChatMessenger{}
	w := newTestWorkflow(provider, client, "")

	require.NoError(t, w.Process(messageEnvelope(seatalk.EventMessageFromBotSubscriber, "g1", "", "to group")))
	require.NoError(t, w.Process(messageEnvelope(seatalk.EventMessageFromBotSubscriber, "", "e1", "to bot")))

	require.Len(t, w.History("g1"), 2)
	require.Len(t, w.History("e1"), 2)
}

func TestChatConcurrentMessagesSameKey(t *testing.T) {
	provider := &fakeProvider{}
	client := &fakeChatMessenger{}
	w := newTestWorkflow(provider, client, "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			env := messageEnvelope(seatalk.EventMessageFromBotSubscriber, "g1", "", fmt.Sprintf("m-%d", i))
			require.NoError(t, w.Process(env))
		}(i)
	}
	wg.Wait()

	// Every exchange lands as an adjacent user/assistant pair; the per-key
	// lock means pairs never interleave.
	history := w.History("g1")
	require.Len(t, history, 20)
	for i := 0; i < len(history); i += 2 {
		require.Equal(t, "user", history[i].Role)
		require.Equal(t, "assistant", history[i+1].Role)
		require.Equal(t, "echo: "+history[i].Content, history[i+1].Content)
	}
}

func TestExtractTextMediaPlaceholders(t *testing.T) {
	cases := []struct {
		name    string
		message map[string]any
		want    string
	}{
		{"plain text", map[string]any{"text": map[string]any{"plain_text": "hi"}}, "hi"},
		{"content fallback", map[string]any{"text": map[string]any{"content": "hey"}}, "hey"},
		{"image", map[string]any{"tag": "image"}, "[User sent an image]"},
		{"file with name", map[string]any{"tag": "file", "file": map[string]any{"filename": "q3.pdf"}}, "[User sent a file: q3.pdf]"},
		{"file without name", map[string]any{"tag": "file"}, "[User sent a file]"},
		{"video", map[string]any{"tag": "video"}, "[User sent a video]"},
		{"unknown", map[string]any{"tag": "sticker"}, ""},
		{"nil", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractText(tc.message))
		})
	}
}
