package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"mindmovie/internal/config"
	"mindmovie/internal/notifications"
	"mindmovie/internal/publish"
	"mindmovie/internal/services/gemini"
	"mindmovie/internal/services/llm"
)

const llmCheckTimeout = 30 * time.Second

// HealthChecker is satisfied by the text providers.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout.
func CheckLLM(ctx context.Context, name string, checker HealthChecker) Result {
	checkCtx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()

	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

func llmCheckName(cfg *config.Config) string {
	if cfg.LLM.Provider == config.LLMProviderGemini {
		return "Gemini API"
	}
	return "Anthropic API"
}

// newHealthChecker builds a single-attempt client for the configured text provider.
func newHealthChecker(ctx context.Context, cfg *config.Config) (HealthChecker, func(), error) {
	key, _ := cfg.LLMAPIKey()
	if cfg.LLM.Provider == config.LLMProviderGemini {
		client, err := gemini.NewClient(ctx, gemini.Config{APIKey: key, Model: cfg.LLM.GeminiModel})
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	}
	client := llm.NewClient(llm.Config{
		APIKey:         key,
		BaseURL:        cfg.API.AnthropicBaseURL,
		Model:          cfg.API.AnthropicModel,
		TimeoutSeconds: cfg.API.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(1))
	return client, nil, nil
}

// CheckCredentials reports whether the keys the configured providers need are set.
func CheckCredentials(cfg *config.Config) []Result {
	llmKey, llmEnv := cfg.LLMAPIKey()
	videoKey, videoEnv := cfg.VideoAPIKey()
	return []Result{
		credentialResult(fmt.Sprintf("LLM credentials (%s)", cfg.LLM.Provider), llmKey, llmEnv),
		credentialResult(fmt.Sprintf("Video credentials (%s)", cfg.Video.Provider), videoKey, videoEnv),
	}
}

func credentialResult(name, key, env string) Result {
	if strings.TrimSpace(key) == "" {
		return Result{Name: name, Detail: fmt.Sprintf("missing: set %s", env)}
	}
	return Result{Name: name, Passed: true, Detail: config.MaskSecret(key)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBuildDirectory is CheckDirectoryAccess for directories mindmovie
// creates on demand: a missing directory passes when its nearest existing
// parent is writable.
func CheckBuildDirectory(name, path string) Result {
	if path == "" {
		path = "."
	}
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(filepath.Clean(path))
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	check := CheckDirectoryAccess(name, parent)
	if !check.Passed {
		return Result{Name: name, Detail: fmt.Sprintf("%s cannot be created: %s", path, check.Detail)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first run)", path)}
}

// CheckFile verifies a regular file exists and is readable.
func CheckFile(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckNotifications describes the ntfy setup without sending anything.
func CheckNotifications(cfg *config.Config) Result {
	endpoint := notifications.Endpoint(cfg.Notifications.NtfyTopic)
	if endpoint == "" {
		return Result{Name: "Notifications", Passed: true, Optional: true, Detail: "Disabled"}
	}
	return Result{Name: "Notifications", Passed: true, Optional: true, Detail: endpoint}
}

// CheckPublish validates the publish settings when uploads are enabled.
func CheckPublish(cfg *config.Config) Result {
	const name = "Publish"
	if !cfg.Publish.Enabled {
		return Result{Name: name, Passed: true, Optional: true, Detail: "Disabled"}
	}
	if _, err := publish.NewPublisher(cfg, nil); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s/%s", cfg.Publish.Endpoint, cfg.Publish.Bucket)}
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
