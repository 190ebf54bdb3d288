package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mindmovie/internal/goals"
	"mindmovie/internal/logging"
	"mindmovie/internal/services"
	"mindmovie/internal/services/llm"
	"mindmovie/internal/textutil"
)

// ErrMalformedCompletion marks a completion reply whose goals document could
// not be located or decoded.
var ErrMalformedCompletion = errors.New("malformed questionnaire completion")

// Chatter sends a conversation and returns the assistant's reply.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message, systemPrompt string) (string, error)
}

// InputFunc reads one line from the user. Returning io.EOF or any other
// error ends the interview.
type InputFunc func(ctx context.Context) (string, error)

// OutputFunc displays an assistant message.
type OutputFunc func(message string)

// Engine runs the goal-extraction interview.
type Engine struct {
	client   Chatter
	input    InputFunc
	output   OutputFunc
	logger   *slog.Logger
	messages []llm.Message
}

// NewEngine wires an interview against client. output may be nil.
func NewEngine(client Chatter, input InputFunc, output OutputFunc, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if output == nil {
		output = func(string) {}
	}
	return &Engine{
		client: client,
		input:  input,
		output: output,
		logger: logging.NewComponentLogger(logger, "questionnaire"),
	}
}

// Messages returns a copy of the conversation so far.
func (e *Engine) Messages() []llm.Message {
	return append([]llm.Message(nil), e.messages...)
}

// Run conducts the interview until the model emits the completion marker.
// Empty input lines are skipped without a model call.
func (e *Engine) Run(ctx context.Context) (*goals.ExtractedGoals, error) {
	if e.input == nil {
		return nil, errors.New("questionnaire: input function required")
	}
	logger := logging.WithContext(ctx, e.logger)

	e.messages = []llm.Message{llm.UserMessage(openingMessage)}
	greeting, err := e.client.Chat(ctx, e.messages, SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("questionnaire: opening turn: %w", err)
	}
	e.output(greeting)
	e.messages = append(e.messages, llm.AssistantMessage(greeting))

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := e.input(ctx)
		if err != nil {
			return nil, fmt.Errorf("questionnaire: read input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		e.messages = append(e.messages, llm.UserMessage(line))

		reply, err := e.client.Chat(ctx, e.messages, SystemPrompt)
		if err != nil {
			return nil, fmt.Errorf("questionnaire: turn %d: %w", e.userTurns(), err)
		}
		if strings.Contains(reply, CompletionMarker) {
			logger.Info("questionnaire complete; parsing goals", logging.Int("user_turns", e.userTurns()))
			return ParseCompletion(reply)
		}
		e.output(reply)
		e.messages = append(e.messages, llm.AssistantMessage(reply))
	}
}

func (e *Engine) userTurns() int {
	n := 0
	for _, m := range e.messages {
		if m.Role == llm.RoleUser {
			n++
		}
	}
	return n - 1
}

// ParseCompletion extracts the goals document that follows CompletionMarker.
// The object spans from the first '{' to the last '}' after the marker. A
// missing conversation_id is synthesized.
func ParseCompletion(response string) (*goals.ExtractedGoals, error) {
	idx := strings.Index(response, CompletionMarker)
	if idx < 0 {
		return nil, malformed("completion marker not found in response")
	}
	after := strings.TrimSpace(response[idx+len(CompletionMarker):])

	start := strings.Index(after, "{")
	end := strings.LastIndex(after, "}")
	if start < 0 || end < 0 {
		return nil, malformed("Could not find JSON object after completion marker. Response after marker: " + textutil.Truncate(after, 200))
	}
	raw := ""
	if end >= start {
		raw = after[start : end+1]
	}

	var probe map[string]any
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, malformed(fmt.Sprintf("Invalid JSON after completion marker: %v", err))
	}
	return goals.Parse([]byte(raw))
}

func malformed(msg string) error {
	return services.Wrap(services.ErrValidation, "questionnaire", "parse completion", msg, ErrMalformedCompletion)
}
