package byteplus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mindmovie/internal/logging"
	"mindmovie/internal/services"
	"mindmovie/internal/services/video"
)

const (
	DefaultBaseURL      = "https://ark.ap-southeast.bytepluses.com/api/v3"
	DefaultModel        = "seedance-1-5-pro-251215"
	DefaultPollInterval = 10 * time.Second
	defaultMaxWait      = 15 * time.Minute
	defaultHTTPTimeout  = 60 * time.Second
	tasksPath           = "/contents/generations/tasks"
)

// Task statuses reported by the API.
const (
	statusQueued    = "queued"
	statusRunning   = "running"
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
	statusCancelled = "cancelled"
)

// Config captures BytePlus settings.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	PollInterval  time.Duration
	MaxWait       time.Duration
	GenerateAudio bool
	MaxRetries    int
}

// Client implements video.Generator for Seedance.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleep      func(context.Context, time.Duration) error
	logger     *slog.Logger
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

// WithSleeper replaces the poll and backoff timer (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithLogger attaches a logger for task progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Seedance client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "byteplus", "new client", "BYTEPLUS_API_KEY is not set", nil)
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
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
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "byteplus")
	return c, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.cfg.Model }

// EstimateCost prices a clip at the audio or silent rate.
func (c *Client) EstimateCost(durationSeconds int) float64 {
	return float64(durationSeconds) * video.PricePerSecond(c.cfg.Model, c.cfg.GenerateAudio)
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type createRequest struct {
	Model         string        `json:"model"`
	Content       []contentItem `json:"content"`
	Resolution    string        `json:"resolution,omitempty"`
	Ratio         string        `json:"ratio,omitempty"`
	Duration      int           `json:"duration,omitempty"`
	GenerateAudio bool          `json:"generate_audio"`
}

type createResponse struct {
	ID string `json:"id"`
}

type taskResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Content struct {
		VideoURL string `json:"video_url"`
	} `json:"content"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate creates a task, waits for it to settle, and downloads the clip.
func (c *Client) Generate(ctx context.Context, req video.Request) (string, error) {
	if strings.TrimSpace(req.OutputPath) == "" {
		return "", errors.New("byteplus: output path required")
	}
	retrier := video.NewRetrier(c.cfg.MaxRetries)
	retrier.Sleep = c.sleep

	prompt := req.Prompt
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		prompt += " Avoid: " + neg + "."
	}
	body := createRequest{
		Model:         c.cfg.Model,
		Content:       []contentItem{{Type: "text", Text: prompt}},
		Resolution:    req.Resolution,
		Ratio:         req.AspectRatio,
		Duration:      req.DurationSeconds,
		GenerateAudio: c.cfg.GenerateAudio,
	}

	var created createResponse
	err := retrier.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, tasksPath, body, &created)
	})
	if err != nil {
		return "", fmt.Errorf("byteplus: create task: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("byteplus: create task returned no id: %w", video.ErrGenerationFailed)
	}
	c.logger.Debug("byteplus task created", logging.String("task_id", created.ID))

	videoURL, err := c.wait(ctx, retrier, created.ID)
	if err != nil {
		return "", err
	}

	err = retrier.Do(ctx, func(ctx context.Context) error {
		return video.Download(ctx, c.httpClient, videoURL, nil, req.OutputPath)
	})
	if err != nil {
		return "", fmt.Errorf("byteplus: %w", err)
	}
	return req.OutputPath, nil
}

func (c *Client) wait(ctx context.Context, retrier video.Retrier, taskID string) (string, error) {
	deadline := time.Now().Add(c.cfg.MaxWait)
	for {
		var task taskResponse
		err := retrier.Do(ctx, func(ctx context.Context) error {
			return c.do(ctx, http.MethodGet, tasksPath+"/"+taskID, nil, &task)
		})
		if err != nil {
			return "", fmt.Errorf("byteplus: poll task %s: %w", taskID, err)
		}

		switch task.Status {
		case statusSucceeded:
			if task.Content.VideoURL == "" {
				return "", fmt.Errorf("BytePlus task %s succeeded but no video URL was returned: %w", taskID, video.ErrGenerationFailed)
			}
			return task.Content.VideoURL, nil
		case statusFailed:
			msg := "unknown error"
			if task.Error != nil && task.Error.Message != "" {
				msg = task.Error.Message
			}
			return "", fmt.Errorf("BytePlus video generation failed: %s: %w", msg, video.ErrGenerationFailed)
		case statusCancelled:
			return "", fmt.Errorf("BytePlus video generation task %s was cancelled: %w", taskID, video.ErrGenerationFailed)
		case statusQueued, statusRunning, "":
		default:
			c.logger.Debug("byteplus task status unrecognized", logging.String("task_id", taskID), logging.String("status", task.Status))
		}

		if time.Now().After(deadline) {
			msg := fmt.Sprintf("task %s still %s after %s", taskID, task.Status, c.cfg.MaxWait)
			return "", services.Wrap(services.ErrTimeout, "byteplus", "poll", msg, nil)
		}
		if err := c.pause(ctx); err != nil {
			return "", err
		}
	}
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

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := video.StatusError(strings.ToLower(method)+" "+path, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
