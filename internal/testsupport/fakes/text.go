package fakes

import (
	"context"
	"encoding/json"
	"sync"

	"mindmovie/internal/questionnaire"
	"mindmovie/internal/services/llm"
	"mindmovie/internal/testsupport"
)

// Text answers chat turns from a script and structured requests with a
// fixed document.
type Text struct {
	// Replies are returned in order; the last one repeats.
	Replies []string
	// Structured is returned by GenerateStructured.
	Structured map[string]any
	// ChatErr and StructuredErr fail the matching call.
	ChatErr       error
	StructuredErr error

	mu              sync.Mutex
	chatCalls       int
	structuredCalls int
}

// NewText returns a Text whose interview finishes after one user turn with
// the sample goals and whose scene request yields n sample scenes.
func NewText(n int) *Text {
	return &Text{
		Replies:    []string{"Hi! Tell me about your health goals.", CompletionReply()},
		Structured: testsupport.SampleSpecMap(n),
	}
}

// CompletionReply is an assistant message ending the interview with the
// sample goals.
func CompletionReply() string {
	doc, err := json.Marshal(testsupport.SampleGoals())
	if err != nil {
		panic(err)
	}
	return "Wonderful, that's everything.\n\n" + questionnaire.CompletionMarker + "\n" + string(doc)
}

// Chat returns the next scripted reply.
func (t *Text) Chat(ctx context.Context, _ []llm.Message, _ string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chatCalls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if t.ChatErr != nil {
		return "", t.ChatErr
	}
	if len(t.Replies) == 0 {
		return "", nil
	}
	idx := min(t.chatCalls-1, len(t.Replies)-1)
	return t.Replies[idx], nil
}

// GenerateStructured returns Structured.
func (t *Text) GenerateStructured(ctx context.Context, _ []llm.Message, _ llm.Schema, _ string) (map[string]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.structuredCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.StructuredErr != nil {
		return nil, t.StructuredErr
	}
	return t.Structured, nil
}

// ChatCalls is the number of Chat invocations.
func (t *Text) ChatCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chatCalls
}

// StructuredCalls is the number of GenerateStructured invocations.
func (t *Text) StructuredCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.structuredCalls
}
