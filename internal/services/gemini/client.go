package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mindmovie/internal/services/llm"
	"mindmovie/internal/services/video"
)

const (
	defaultModel         = "gemini-2.5-flash"
	defaultChatMaxTokens = 2048
	defaultMaxTokens     = 4096
	roleModel            = "model"
)

// Config captures Gemini text settings.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// Client adapts the Gemini API to the chat and structured-output calls used
// by the questionnaire and scene generator.
type Client struct {
	client *genai.Client
	cfg    Config
	retry  video.Retrier
	sendFn sender
}

// sender performs one generateContent round trip for history plus text.
type sender func(ctx context.Context, model *genai.GenerativeModel, history []*genai.Content, text string) (*genai.GenerateContentResponse, error)

// NewClient connects to the Gemini API. Close must be called when done.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	retry := video.NewRetrier(0)
	retry.Transient = IsTransient
	return &Client{client: client, cfg: cfg, retry: retry, sendFn: sendMessage}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.cfg.Model }

// Chat sends the conversation and returns the model's text reply.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, systemPrompt string) (string, error) {
	model := c.model(systemPrompt, defaultChatMaxTokens)
	resp, err := c.send(ctx, model, messages)
	if err != nil {
		return "", fmt.Errorf("gemini chat: %w", err)
	}
	return responseText(resp), nil
}

// GenerateStructured requests a JSON response constrained by schema.
func (c *Client) GenerateStructured(ctx context.Context, messages []llm.Message, schema llm.Schema, systemPrompt string) (map[string]any, error) {
	converted, err := ConvertSchema(schema.JSON)
	if err != nil {
		return nil, fmt.Errorf("gemini structured: %w", err)
	}
	model := c.model(systemPrompt, c.cfg.MaxTokens)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = converted

	resp, err := c.send(ctx, model, messages)
	if err != nil {
		return nil, fmt.Errorf("gemini structured: %w", err)
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini structured: %w", llm.ErrNoStructuredOutput)
	}
	var out map[string]any
	if err := llm.DecodeLLMJSON(text, &out); err != nil {
		return nil, fmt.Errorf("gemini structured: decode response: %w", err)
	}
	return out, nil
}

// HealthCheck verifies the key and model with a tiny request.
func (c *Client) HealthCheck(ctx context.Context) error {
	model := c.model("", 16)
	if _, err := model.GenerateContent(ctx, genai.Text("Reply with the word ok.")); err != nil {
		return fmt.Errorf("gemini health: %w", err)
	}
	return nil
}

func (c *Client) model(systemPrompt string, maxTokens int) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.cfg.Model)
	model.SetMaxOutputTokens(int32(maxTokens))
	if prompt := strings.TrimSpace(systemPrompt); prompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt)}}
	}
	return model
}

// send retries transient API failures. Each attempt starts a fresh chat
// session because a failed SendMessage leaves the user turn in History.
func (c *Client) send(ctx context.Context, model *genai.GenerativeModel, messages []llm.Message) (*genai.GenerateContentResponse, error) {
	history, last, err := splitConversation(messages)
	if err != nil {
		return nil, err
	}
	var resp *genai.GenerateContentResponse
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		var sendErr error
		resp, sendErr = c.sendFn(ctx, model, history, last)
		return sendErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func sendMessage(ctx context.Context, model *genai.GenerativeModel, history []*genai.Content, text string) (*genai.GenerateContentResponse, error) {
	session := model.StartChat()
	session.History = append([]*genai.Content(nil), history...)
	return session.SendMessage(ctx, genai.Text(text))
}

// IsTransient reports whether a Gemini API error is worth retrying: rate
// limits, timeouts, and server-side failures. Authentication and
// invalid-argument errors are final.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusRequestTimeout ||
			apiErr.Code == http.StatusTooManyRequests ||
			apiErr.Code >= http.StatusInternalServerError
	}
	switch status.Code(err) {
	case codes.ResourceExhausted, codes.Unavailable, codes.Internal, codes.DeadlineExceeded, codes.Aborted:
		return true
	case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated, codes.NotFound, codes.FailedPrecondition:
		return false
	}
	return video.IsTransient(err)
}

// splitConversation maps messages onto Gemini history plus the final user
// turn that is sent.
func splitConversation(messages []llm.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", errors.New("at least one message required")
	}
	final := messages[len(messages)-1]
	if final.Role != llm.RoleUser {
		return nil, "", fmt.Errorf("last message must come from the user, got %q", final.Role)
	}
	history := make([]*genai.Content, 0, len(messages)-1)
	for _, msg := range messages[:len(messages)-1] {
		role := llm.RoleUser
		if msg.Role == llm.RoleAssistant {
			role = roleModel
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	return history, final.Content, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
