package workflows

import (
	"strings"

	"github.com/HKUDS/seabot-go/pkg/config"
	"github.com/HKUDS/seabot-go/pkg/seatalk"
)

type automationAction string

const (
	actionNoop           automationAction = "noop"
	actionSetTyping      automationAction = "set_typing"
	actionSendGroupText  automationAction = "send_group_text"
	actionSendSingleText automationAction = "send_single_text"
)

// decision is the transient outcome of classifying one event: the action plus
// the fields needed to act. Consumed once, never retained.
type decision struct {
	action       automationAction
	groupID      string
	employeeCode string
	threadID     string
	text         string
}

// Automation reacts to platform events with fixed responses: typing
// indicator on incoming messages, welcome texts, click acknowledgements.
type Automation struct {
	client Messenger
	cfg    *config.BotConfig
}

func NewAutomation(client Messenger, cfg *config.BotConfig) *Automation {
	return &Automation{client: client, cfg: cfg}
}

// Process classifies the event and performs at most one outbound call.
func (a *Automation) Process(env *seatalk.Envelope) error {
	d := a.route(env)
	switch d.action {
	case actionSetTyping:
		if d.groupID != "" {
			return a.client.SetGroupTypingStatus(d.groupID, d.threadID)
		}
	case actionSendGroupText:
		if d.groupID != "" && d.text != "" {
			return a.client.SendGroupText(d.groupID, d.text, d.threadID)
		}
	case actionSendSingleText:
		if d.employeeCode != "" && d.text != "" {
			return a.client.SendSingleText(d.employeeCode, d.text, d.threadID)
		}
	}
	return nil
}

// route evaluates the rules in order, first match wins. Each rule reads the
// envelope locations specific to its event type.
func (a *Automation) route(env *seatalk.Envelope) decision {
	event := env.Event
	d := decision{action: actionNoop}

	if seatalk.IsMessageEvent(env.EventType) && a.cfg.SendTypingStatus {
		groupID := eventString(event, "group_id")
		if groupID != "" {
			d.action = actionSetTyping
			d.groupID = groupID
			d.threadID = nestedString(event, "message", "thread_id")
			return d
		}
	}

	if env.EventType == seatalk.EventBotAddedToGroup && a.cfg.SendGroupWelcome {
		groupID := nestedString(event, "group", "group_id")
		if groupID != "" {
			d.action = actionSendGroupText
			d.groupID = groupID
			d.text = a.cfg.GroupWelcomeText
			return d
		}
	}

	if env.EventType == seatalk.EventUserEnterChatroom && a.cfg.SendUserWelcome {
		employeeCode := eventString(event, "employee_code")
		if employeeCode != "" {
			d.action = actionSendSingleText
			d.employeeCode = employeeCode
			d.text = a.cfg.UserWelcomeText
			return d
		}
	}

	if env.EventType == seatalk.EventInteractiveClick {
		value := strings.TrimSpace(eventString(event, "value"))
		if value == "" {
			return d
		}
		text := "Action received: " + value
		if groupID := eventString(event, "group_id"); groupID != "" {
			d.action = actionSendGroupText
			d.groupID = groupID
			d.threadID = eventString(event, "thread_id")
			d.text = text
			return d
		}
		if employeeCode := eventString(event, "employee_code"); employeeCode != "" {
			d.action = actionSendSingleText
			d.employeeCode = employeeCode
			d.threadID = eventString(event, "thread_id")
			d.text = text
		}
	}

	return d
}

func eventString(event map[string]any, key string) string {
	if event == nil {
		return ""
	}
	if s, ok := event[key].(string); ok {
		return s
	}
	return ""
}

func nestedString(event map[string]any, outer, key string) string {
	if event == nil {
		return ""
	}
	if sub, ok := event[outer].(map[string]any); ok {
		return eventString(sub, key)
	}
	return ""
}
