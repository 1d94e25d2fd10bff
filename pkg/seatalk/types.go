package seatalk

import "strings"

// Event types delivered by the SeaTalk callback endpoint.
const (
	EventVerification             = "event_verification"
	EventBotAddedToGroup          = "bot_added_to_group_chat"
	EventInteractiveClick         = "interactive_message_click"
	EventMessageFromBotSubscriber = "message_from_bot_subscriber"
	EventNewMentionedMessage      = "new_mentioned_message_received_from_group_chat"
	EventNewMessageFromThread     = "new_message_received_from_thread"
	EventUserEnterChatroom        = "user_enter_chatroom_with_bot"
	EventWorkflowUpdate           = "workflow_update"
)

var messageEventTypes = map[string]bool{
	EventMessageFromBotSubscriber: true,
	EventNewMentionedMessage:      true,
	EventNewMessageFromThread:     true,
}

// IsMessageEvent reports whether the event type carries a chat message.
func IsMessageEvent(eventType string) bool {
	return messageEventTypes[eventType]
}

// Envelope is the callback payload as delivered by SeaTalk. The nested event
// body varies by type, so it stays a generic map; handlers read it through
// ExtractContext and never mutate it.
type Envelope struct {
	EventType string         `json:"event_type"`
	EventID   string         `json:"event_id,omitempty"`
	Event     map[string]any `json:"event,omitempty"`
}

// Context is the per-event view shared by the automation and workflow
// handlers: identifiers and text pulled out of the envelope's varying shapes.
type Context struct {
	EventType     string
	GroupID       string
	EmployeeCode  string
	ThreadID      string
	Text          string
	CallbackValue string
	SheetText     string
	SheetImage    string
}

// ExtractContext reads the fields handlers care about, tolerating the
// envelope shape differences between event types (group id at the top level
// or under "group", employee code at the top level or on the sender, thread
// id on the event or on the message).
func ExtractContext(env *Envelope) Context {
	ctx := Context{}
	if env == nil {
		return ctx
	}
	ctx.EventType = env.EventType

	event := env.Event
	message := mapField(event, "message")
	sender := mapField(message, "sender")

	textObj := mapField(message, "text")
	text := strField(textObj, "plain_text")
	if text == "" {
		text = strField(textObj, "content")
	}
	ctx.Text = strings.TrimSpace(text)

	ctx.CallbackValue = strings.TrimSpace(strField(event, "value"))

	ctx.GroupID = strField(event, "group_id")
	if ctx.GroupID == "" {
		ctx.GroupID = strField(mapField(event, "group"), "group_id")
	}

	ctx.EmployeeCode = strField(event, "employee_code")
	if ctx.EmployeeCode == "" {
		ctx.EmployeeCode = strField(sender, "employee_code")
	}

	ctx.ThreadID = strField(event, "thread_id")
	if ctx.ThreadID == "" {
		ctx.ThreadID = strField(message, "thread_id")
	}

	sheetUpdate := mapField(event, "sheet_update")
	ctx.SheetText = strings.TrimSpace(strField(sheetUpdate, "text"))
	ctx.SheetImage = strings.TrimSpace(strField(sheetUpdate, "img_1"))

	return ctx
}

func strField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func mapField(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if sub, ok := m[key].(map[string]any); ok {
		return sub
	}
	return nil
}
