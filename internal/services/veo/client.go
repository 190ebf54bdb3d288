package veo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"mindmovie/internal/logging"
	"mindmovie/internal/services"
	"mindmovie/internal/services/video"
)

const (
	// DefaultModel is the fast Veo 3.1 preview.
	DefaultModel        = "veo-3.1-fast-generate-preview"
	DefaultPollInterval = 10 * time.Second
	defaultMaxWait      = 15 * time.Minute
	personGeneration    = "allow_adult"
	apiKeyHeader        = "x-goog-api-key"
)

// Config captures Veo settings.
type Config struct {
	APIKey       string
	Model        string
	PollInterval time.Duration
	// MaxWait bounds how long one operation may stay pending.
	MaxWait    time.Duration
	MaxRetries int
}

// operations is the slice of the genai surface the client needs.
type operations interface {
	submit(ctx context.Context, model, prompt string, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	refresh(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

type sdkOperations struct {
	client *genai.Client
}

func (s sdkOperations) submit(ctx context.Context, model, prompt string, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return s.client.Models.GenerateVideos(ctx, model, prompt, nil, cfg)
}

func (s sdkOperations) refresh(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return s.client.Operations.GetVideosOperation(ctx, op, nil)
}

// Client implements video.Generator for Veo.
type Client struct {
	cfg        Config
	ops        operations
	httpClient *http.Client
	sleep      func(context.Context, time.Duration) error
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the client used to download clips by URI.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper replaces the poll and backoff timer (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithLogger attaches a logger for poll progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient connects to the Gemini API backend.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "veo", "new client", "GEMINI_API_KEY is not set", nil)
	}
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("veo: create client: %w", err)
	}
	return newClient(cfg, sdkOperations{client: sdk}, opts...), nil
}

func newClient(cfg Config, ops operations, opts ...Option) *Client {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	c := &Client{
		cfg:        cfg,
		ops:        ops,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "veo")
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.cfg.Model }

// EstimateCost prices a clip. Veo 3.x renders audio unconditionally.
func (c *Client) EstimateCost(durationSeconds int) float64 {
	return float64(durationSeconds) * video.PricePerSecond(c.cfg.Model, true)
}

// Generate submits the prompt, waits for the operation, and writes the clip
// to req.OutputPath. Duration and audio are left to the model defaults.
func (c *Client) Generate(ctx context.Context, req video.Request) (string, error) {
	if strings.TrimSpace(req.OutputPath) == "" {
		return "", errors.New("veo: output path required")
	}
	retrier := video.NewRetrier(c.cfg.MaxRetries)
	retrier.Sleep = c.sleep

	config := &genai.GenerateVideosConfig{
		NumberOfVideos:   1,
		AspectRatio:      req.AspectRatio,
		Resolution:       req.Resolution,
		PersonGeneration: personGeneration,
		NegativePrompt:   req.NegativePrompt,
	}

	var op *genai.GenerateVideosOperation
	err := retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		op, err = c.ops.submit(ctx, c.cfg.Model, req.Prompt, config)
		return classify("submit", err)
	})
	if err != nil {
		return "", err
	}

	op, err = c.wait(ctx, retrier, op)
	if err != nil {
		return "", err
	}

	clip, err := resultVideo(op)
	if err != nil {
		return "", err
	}
	if len(clip.VideoBytes) > 0 {
		if err := video.WriteVideo(req.OutputPath, clip.VideoBytes); err != nil {
			return "", fmt.Errorf("veo: %w", err)
		}
		return req.OutputPath, nil
	}

	header := http.Header{apiKeyHeader: []string{c.cfg.APIKey}}
	err = retrier.Do(ctx, func(ctx context.Context) error {
		return video.Download(ctx, c.httpClient, clip.URI, header, req.OutputPath)
	})
	if err != nil {
		return "", fmt.Errorf("veo: %w", err)
	}
	return req.OutputPath, nil
}

func (c *Client) wait(ctx context.Context, retrier video.Retrier, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	if op == nil {
		return nil, fmt.Errorf("veo: empty operation: %w", video.ErrGenerationFailed)
	}
	deadline := time.Now().Add(c.cfg.MaxWait)
	for !op.Done {
		if time.Now().After(deadline) {
			msg := fmt.Sprintf("operation %s still running after %s", op.Name, c.cfg.MaxWait)
			return nil, services.Wrap(services.ErrTimeout, "veo", "poll", msg, nil)
		}
		if err := c.pause(ctx); err != nil {
			return nil, err
		}
		current := op
		err := retrier.Do(ctx, func(ctx context.Context) error {
			next, err := c.ops.refresh(ctx, current)
			if err != nil {
				return classify("poll", err)
			}
			op = next
			return nil
		})
		if err != nil {
			return nil, err
		}
		if op == nil {
			return nil, fmt.Errorf("veo: poll returned no operation: %w", video.ErrGenerationFailed)
		}
		c.logger.Debug("veo operation polled", logging.String("operation", op.Name), logging.Bool("done", op.Done))
	}
	if len(op.Error) > 0 {
		return nil, fmt.Errorf("veo: operation failed: %v: %w", op.Error["message"], video.ErrGenerationFailed)
	}
	return op, nil
}

func (c *Client) pause(ctx context.Context) error {
	if c.sleep != nil {
		return c.sleep(ctx, c.cfg.PollInterval)
	}
	timer := time.NewTimer(c.cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func resultVideo(op *genai.GenerateVideosOperation) (*genai.Video, error) {
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		msg := "no videos returned by Veo API"
		if op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
			msg += " (filtered: " + strings.Join(op.Response.RAIMediaFilteredReasons, "; ") + ")"
		}
		return nil, fmt.Errorf("veo: %s: %w", msg, video.ErrGenerationFailed)
	}
	generated := op.Response.GeneratedVideos[0]
	if generated == nil || generated.Video == nil || (len(generated.Video.VideoBytes) == 0 && generated.Video.URI == "") {
		return nil, fmt.Errorf("veo: video object is empty: %w", video.ErrGenerationFailed)
	}
	return generated.Video, nil
}

// classify marks SDK errors carrying retryable HTTP codes as transient.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	code := apiStatus(err)
	if code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500 {
		return services.Wrap(services.ErrTransient, "veo", op, fmt.Sprintf("api status %d", code), err)
	}
	if code != 0 {
		return services.Wrap(services.ErrExternalTool, "veo", op, fmt.Sprintf("api status %d", code), err)
	}
	return fmt.Errorf("veo %s: %w", op, err)
}

func apiStatus(err error) int {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := any(e).(type) {
		case genai.APIError:
			return v.Code
		case *genai.APIError:
			if v != nil {
				return v.Code
			}
		}
	}
	return 0
}
