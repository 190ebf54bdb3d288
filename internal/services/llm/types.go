package llm

import "errors"

// Conversation roles accepted by the Messages API.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user turn.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage builds an assistant turn.
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Schema describes the JSON document a structured request must produce.
type Schema struct {
	Name        string
	Description string
	// JSON is a JSON Schema object (type, properties, required, ...).
	JSON map[string]any
}

// ErrNoStructuredOutput reports a response that carried no structured payload.
var ErrNoStructuredOutput = errors.New("no structured output in response")
