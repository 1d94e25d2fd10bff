package providers

import "context"

// Turn is one prior exchange entry in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionProvider generates a reply from a system prompt, prior turns and
// the new user message. No retries happen at this layer.
type CompletionProvider interface {
	Complete(ctx context.Context, systemPrompt string, history []Turn, newMessage string) (string, error)
}
