package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mindmovie/internal/config"
)

const (
	userAgent      = "mindmovie/0.1.0"
	defaultServer  = "https://ntfy.sh/"
	defaultTimeout = 10 * time.Second
)

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyScenesReady(ctx context.Context, title string, sceneCount int) error
	NotifyVideosComplete(ctx context.Context, succeeded, failed int) error
	NotifyMovieComplete(ctx context.Context, title, outputPath string) error
	NotifyError(ctx context.Context, err error, stage string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	endpoint := Endpoint(cfg.Notifications.NtfyTopic)
	if endpoint == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ntfyService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Endpoint resolves a topic setting to the URL notifications are posted to.
func Endpoint(topic string) string {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return ""
	case strings.HasPrefix(topic, "http://"), strings.HasPrefix(topic, "https://"):
		return topic
	default:
		return defaultServer + strings.TrimPrefix(topic, "/")
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyScenesReady(ctx context.Context, title string, sceneCount int) error {
	return n.send(ctx, payload{
		title:   "Mind Movie - Scenes Ready",
		message: fmt.Sprintf("🎬 %d scenes written for %q", sceneCount, displayTitle(title)),
		tags:    []string{"mindmovie", "scenes", "ready"},
	})
}

func (n *ntfyService) NotifyVideosComplete(ctx context.Context, succeeded, failed int) error {
	data := payload{
		title:   "Mind Movie - Clips Rendered",
		message: fmt.Sprintf("🎞️ All %d clips rendered", succeeded),
		tags:    []string{"mindmovie", "render", "completed"},
	}
	if failed > 0 {
		data.title = "Mind Movie - Clips Rendered (with errors)"
		data.message = fmt.Sprintf("🎞️ %d clips rendered, %d failed\nRun 'mindmovie render' to retry", succeeded, failed)
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMovieComplete(ctx context.Context, title, outputPath string) error {
	message := fmt.Sprintf("✅ Ready to watch: %s", displayTitle(title))
	if outputPath = strings.TrimSpace(outputPath); outputPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, outputPath)
	}
	return n.send(ctx, payload{
		title:    "Mind Movie - Complete",
		message:  message,
		tags:     []string{"mindmovie", "movie", "completed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, stage string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" during ")
		builder.WriteString(stage)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "Mind Movie - Error",
		message:  builder.String(),
		tags:     []string{"mindmovie", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Mind Movie - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"mindmovie", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func displayTitle(title string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	return "My Vision"
}

type noopService struct{}

func (noopService) NotifyScenesReady(context.Context, string, int) error      { return nil }
func (noopService) NotifyVideosComplete(context.Context, int, int) error      { return nil }
func (noopService) NotifyMovieComplete(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
