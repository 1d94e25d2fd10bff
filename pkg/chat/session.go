package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/HKUDS/seabot-go/pkg/config"
	"github.com/HKUDS/seabot-go/pkg/providers"
	"github.com/HKUDS/seabot-go/pkg/seatalk"
)

const (
	// historyPromptWindow is how many prior turns go into the prompt.
	historyPromptWindow = 10
	// historyMaxEntries bounds retained history per conversation (user and
	// assistant entries both count).
	historyMaxEntries = 20
)

// Messenger is the slice of the SeaTalk client the chat workflow needs.
type Messenger interface {
	SendGroupText(groupID, content, threadID string) error
	SendSingleText(employeeCode, content, threadID string) error
}

// conversation holds one bounded history. Its mutex serializes the whole
// gate-complete-send-append sequence for the key, so concurrent messages to
// the same conversation cannot interleave history appends.
type conversation struct {
	mu    sync.Mutex
	turns []providers.Turn
}

// Workflow is the conversational responder: it decides whether a message
// event deserves a reply, consults the completion provider, sends the reply
// and maintains a sliding per-conversation history. History is in-memory
// only and lost on restart.
type Workflow struct {
	client   Messenger
	provider providers.CompletionProvider
	llm      *config.LLMConfig
	bot      *config.BotConfig

	mu            sync.Mutex
	conversations map[string]*conversation
}

func NewWorkflow(client Messenger, provider providers.CompletionProvider, llm *config.LLMConfig, bot *config.BotConfig) *Workflow {
	return &Workflow{
		client:        client,
		provider:      provider,
		llm:           llm,
		bot:           bot,
		conversations: make(map[string]*conversation),
	}
}

// Supports reports whether the event type carries a conversational message.
func (w *Workflow) Supports(eventType string) bool {
	return seatalk.IsMessageEvent(eventType)
}

// Process handles one message event end to end. Completion failures return
// an error without touching history, so a failed reply never corrupts future
// prompts.
func (w *Workflow) Process(env *seatalk.Envelope) error {
	event := env.Event
	message := subMap(event, "message")

	text := ExtractText(message)
	if text == "" {
		return nil
	}

	groupID := strVal(event, "group_id")
	employeeCode := strVal(event, "employee_code")
	if employeeCode == "" {
		employeeCode = strVal(subMap(message, "sender"), "employee_code")
	}
	threadID := strVal(message, "thread_id")

	key := groupID
	if key == "" {
		key = employeeCode
	}
	if key == "" {
		return nil
	}

	if !w.shouldReply(env.EventType, text) {
		return nil
	}

	conv := w.conversation(key)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	history := conv.turns
	if len(history) > historyPromptWindow {
		history = history[len(history)-historyPromptWindow:]
	}

	reply, err := w.provider.Complete(context.Background(), w.llm.SystemPrompt, history, text)
	if err != nil {
		return err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil
	}

	if groupID != "" {
		err = w.client.SendGroupText(groupID, reply, threadID)
	} else {
		err = w.client.SendSingleText(employeeCode, reply, threadID)
	}
	if err != nil {
		return err
	}

	// History only grows on a confirmed send.
	conv.turns = append(conv.turns,
		providers.Turn{Role: "user", Content: text},
		providers.Turn{Role: "assistant", Content: reply},
	)
	if len(conv.turns) > historyMaxEntries {
		conv.turns = conv.turns[len(conv.turns)-historyMaxEntries:]
	}
	return nil
}

// shouldReply gates replies: only the explicitly-mentioned group message type
// requires the configured mention token, and only once that token has been
// changed from its unset default.
func (w *Workflow) shouldReply(eventType, text string) bool {
	mention := strings.TrimSpace(w.bot.MentionName)
	requiresMention := eventType == seatalk.EventNewMentionedMessage
	if requiresMention && mention != "" && mention != config.DefaultMentionName && !strings.Contains(text, mention) {
		return false
	}
	return true
}

// History returns a copy of the retained turns for a conversation key.
func (w *Workflow) History(key string) []providers.Turn {
	conv := w.conversation(key)
	conv.mu.Lock()
	defer conv.mu.Unlock()
	out := make([]providers.Turn, len(conv.turns))
	copy(out, conv.turns)
	return out
}

func (w *Workflow) conversation(key string) *conversation {
	w.mu.Lock()
	defer w.mu.Unlock()
	conv, ok := w.conversations[key]
	if !ok {
		conv = &conversation{}
		w.conversations[key] = conv
	}
	return conv
}

// ExtractText pulls display text out of a message body: verbatim text
// content, a fixed placeholder for media kinds, else empty.
func ExtractText(message map[string]any) string {
	textObj := subMap(message, "text")
	content := strings.TrimSpace(strVal(textObj, "plain_text"))
	if content == "" {
		content = strings.TrimSpace(strVal(textObj, "content"))
	}
	if content != "" {
		return content
	}

	switch strVal(message, "tag") {
	case "image":
		return "[User sent an image]"
	case "file":
		filename := strings.TrimSpace(strVal(subMap(message, "file"), "filename"))
		if filename != "" {
			return "[User sent a file: " + filename + "]"
		}
		return "[User sent a file]"
	case "video":
		return "[User sent a video]"
	}
	return ""
}

func strVal(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func subMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if sub, ok := m[key].(map[string]any); ok {
		return sub
	}
	return nil
}
