package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	anthropicVersion      = "2023-06-01"
	structuredToolName    = "structured_output"
	defaultBaseURL        = "https://api.anthropic.com/v1"
	defaultModel          = "claude-sonnet-4-20250514"
	defaultHTTPTimeout    = 120 * time.Second
	defaultChatMaxTokens  = 2048
	defaultMaxTokens      = 4096
	defaultRetryBaseDelay = 4 * time.Second
	defaultRetryMaxDelay  = 60 * time.Second
	defaultRetryAttempts  = 3
)

// Config captures the runtime settings required to talk to the Messages API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	TimeoutSeconds int
}

// Client wraps the Anthropic Messages API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default attempt count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a Messages API client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			MaxTokens:      cfg.MaxTokens,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.cfg.MaxTokens <= 0 {
		client.cfg.MaxTokens = defaultMaxTokens
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.cfg.Model }

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("anthropic request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

// Chat sends the conversation and returns the first text block of the reply.
// An empty string is returned when the reply has no text block.
func (c *Client) Chat(ctx context.Context, messages []Message, systemPrompt string) (string, error) {
	if err := c.checkRequest(messages); err != nil {
		return "", fmt.Errorf("llm chat: %w", err)
	}
	payload := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: defaultChatMaxTokens,
		System:    strings.TrimSpace(systemPrompt),
		Messages:  messages,
	}
	resp, err := c.sendWithRetry(ctx, payload, "llm chat")
	if err != nil {
		return "", err
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}

// GenerateStructured forces the model to call a single tool whose input schema
// is schema.JSON and returns the tool input as a map.
func (c *Client) GenerateStructured(ctx context.Context, messages []Message, schema Schema, systemPrompt string) (map[string]any, error) {
	if err := c.checkRequest(messages); err != nil {
		return nil, fmt.Errorf("llm structured: %w", err)
	}
	if len(schema.JSON) == 0 {
		return nil, errors.New("llm structured: schema required")
	}
	description := schema.Description
	if description == "" {
		description = fmt.Sprintf("Output data matching the %s schema.", schema.Name)
	}
	payload := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    strings.TrimSpace(systemPrompt),
		Messages:  messages,
		Tools: []toolDefinition{{
			Name:        structuredToolName,
			Description: description,
			InputSchema: schema.JSON,
		}},
		ToolChoice: &toolChoice{Type: "tool", Name: structuredToolName},
	}
	resp, err := c.sendWithRetry(ctx, payload, "llm structured")
	if err != nil {
		return nil, err
	}
	for _, block := range resp.Content {
		if block.Type != "tool_use" || block.Name != structuredToolName {
			continue
		}
		return decodeToolInput(block.Input)
	}
	return nil, fmt.Errorf("llm structured: %w: expected tool_use block %q (stop_reason=%q)", ErrNoStructuredOutput, structuredToolName, resp.StopReason)
}

// HealthCheck issues a minimal request to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	payload := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: 16,
		Messages:  []Message{UserMessage("Reply with the word ok.")},
	}
	resp, err := c.sendWithRetry(ctx, payload, "llm health")
	if err != nil {
		return err
	}
	if len(resp.Content) == 0 {
		return errors.New("llm health: empty response")
	}
	return nil
}

func (c *Client) checkRequest(messages []Message) error {
	if c.cfg.APIKey == "" {
		return errors.New("api key required")
	}
	if len(messages) == 0 {
		return errors.New("at least one message required")
	}
	return nil
}

// decodeToolInput accepts both an object and a JSON-encoded string.
func decodeToolInput(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("llm structured: %w: tool input empty", ErrNoStructuredOutput)
	}
	if trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return nil, fmt.Errorf("llm structured: decode tool input: %w", err)
		}
		trimmed = []byte(encoded)
	}
	var result map[string]any
	if err := DecodeLLMJSON(string(trimmed), &result); err != nil {
		return nil, fmt.Errorf("llm structured: decode tool input: %w", err)
	}
	return result, nil
}

type messagesRequest struct {
	Model      string           `json:"model"`
	MaxTokens  int              `json:"max_tokens"`
	System     string           `json:"system,omitempty"`
	Messages   []Message        `json:"messages"`
	Tools      []toolDefinition `json:"tools,omitempty"`
	ToolChoice *toolChoice      `json:"tool_choice,omitempty"`
}

type toolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

func (c *Client) sendWithRetry(ctx context.Context, payload messagesRequest, op string) (messagesResponse, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.sendOnce(ctx, payload)
		if err == nil {
			return resp, nil
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			if attempt > 1 {
				return messagesResponse{}, fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
			}
			return messagesResponse{}, fmt.Errorf("%s: %w", op, err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return messagesResponse{}, err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return messagesResponse{}, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) sendOnce(ctx context.Context, payload messagesRequest) (messagesResponse, error) {
	var decoded messagesResponse
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "messages")
	if err != nil {
		return decoded, fmt.Errorf("anthropic request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return decoded, fmt.Errorf("anthropic request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return decoded, fmt.Errorf("anthropic request: new request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decoded, fmt.Errorf("anthropic request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decoded, fmt.Errorf("anthropic request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return decoded, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return decoded, fmt.Errorf("anthropic request: decode response: %w", err)
	}
	if decoded.Error != nil {
		return decoded, fmt.Errorf("anthropic request: api error (%s): %s", decoded.Error.Type, strings.TrimSpace(decoded.Error.Message))
	}
	return decoded, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

// retryDelay retries rate limits, server errors (including 529 overloaded),
// timeouts, and connection failures. Auth and request errors surface at once.
func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return c.backoffDelay(attempt), true
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	if c != nil && c.retryBaseDelay >= 0 {
		base = c.retryBaseDelay
	}
	if base <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay() {
			break
		}
	}
	return c.capDelay(delay)
}

func (c *Client) maxDelay() time.Duration {
	if c != nil && c.retryMaxDelay > 0 {
		return c.retryMaxDelay
	}
	return defaultRetryMaxDelay
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if limit := c.maxDelay(); delay > limit {
		return limit
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
