package seatalk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMessageEvent(t *testing.T) {
	require.True(t, IsMessageEvent(EventMessageFromBotSubscriber))
	require.True(t, IsMessageEvent(EventNewMentionedMessage))
	require.True(t, IsMessageEvent(EventNewMessageFromThread))

	require.False(t, IsMessageEvent(EventBotAddedToGroup))
	require.False(t, IsMessageEvent(EventInteractiveClick))
	require.False(t, IsMessageEvent(""))
}

func TestExtractContextGroupMessage(t *testing.T) {
	ctx := ExtractContext(&Envelope{
		EventType: EventNewMentionedMessage,
		Event: map[string]any{
			"group_id": "g1",
			"message": map[string]any{
				"thread_id": "t1",
				"sender":    map[string]any{"employee_code": "e1"},
				"text":      map[string]any{"plain_text": "  hello @bot  "},
			},
		},
	})

	require.Equal(t, EventNewMentionedMessage, ctx.EventType)
	require.Equal(t, "g1", ctx.GroupID)
	require.Equal(t, "e1", ctx.EmployeeCode)
	require.Equal(t, "t1", ctx.ThreadID)
	require.Equal(t, "hello @bot", ctx.Text)
}

func TestExtractContextFallbackLocations(t *testing.T) {
	// Group id nested under "group", text under "content", thread id on the
	// event itself.
	ctx := ExtractContext(&Envelope{
		EventType: EventBotAddedToGroup,
		Event: map[string]any{
			"group":     map[string]any{"group_id": "g2"},
			"thread_id": "t2",
			"message": map[string]any{
				"text": map[string]any{"content": "fallback text"},
			},
		},
	})

	require.Equal(t, "g2", ctx.GroupID)
	require.Equal(t, "t2", ctx.ThreadID)
	require.Equal(t, "fallback text", ctx.Text)
}

func TestExtractContextSheetUpdate(t *testing.T) {
	ctx := ExtractContext(&Envelope{
		EventType: EventWorkflowUpdate,
		Event: map[string]any{
			"sheet_update": map[string]any{
				"text":  "row 7 changed",
				"img_1": "chart.png",
			},
		},
	})

	require.Equal(t, "row 7 changed", ctx.SheetText)
	require.Equal(t, "chart.png", ctx.SheetImage)
}

func TestExtractContextCallbackValue(t *testing.T) {
	ctx := ExtractContext(&Envelope{
		EventType: EventInteractiveClick,
		Event: map[string]any{
			"employee_code": "e3",
			"value":         " approve ",
		},
	})

	require.Equal(t, "e3", ctx.EmployeeCode)
	require.Equal(t, "approve", ctx.CallbackValue)
}

func TestExtractContextEmptyEnvelope(t *testing.T) {
	require.Equal(t, Context{}, ExtractContext(nil))
	require.Equal(t, Context{EventType: "x"}, ExtractContext(&Envelope{EventType: "x"}))
}
