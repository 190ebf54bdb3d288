package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mindmovie/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.API.AnthropicAPIKey = "test"
	cfgVal.API.GeminiAPIKey = "test"
	cfgVal.Build.BuildDir = filepath.Join(base, "build")
	cfgVal.Build.OutputPath = filepath.Join(base, "mind_movie.mp4")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Video.PollIntervalSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutCredentials clears every API key on the test config.
func WithoutCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.AnthropicAPIKey = ""
		b.cfg.API.GeminiAPIKey = ""
		b.cfg.API.BytePlusAPIKey = ""
	}
}

// WithVideoProvider switches the video provider and model.
func WithVideoProvider(provider, model string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Video.Provider = provider
		b.cfg.Video.Model = model
	}
}

// WithMaxConcurrent overrides the clip generation concurrency.
func WithMaxConcurrent(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Video.MaxConcurrent = n
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Build.BuildDir)
}
