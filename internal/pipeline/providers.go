package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"mindmovie/internal/config"
	"mindmovie/internal/questionnaire"
	"mindmovie/internal/scenes"
	"mindmovie/internal/services/byteplus"
	"mindmovie/internal/services/gemini"
	"mindmovie/internal/services/llm"
	"mindmovie/internal/services/veo"
	"mindmovie/internal/services/video"
)

// TextGenerator serves both the interview and scene generation.
type TextGenerator interface {
	questionnaire.Chatter
	scenes.StructuredGenerator
}

// Providers builds the external clients lazily, so a stage that does not run
// never constructs (or needs credentials for) its client.
type Providers struct {
	Text  func(ctx context.Context) (TextGenerator, error)
	Video func(ctx context.Context) (video.Generator, error)
}

// DefaultProviders selects clients from the configured provider names.
func DefaultProviders(cfg *config.Config, logger *slog.Logger) Providers {
	return Providers{
		Text: func(ctx context.Context) (TextGenerator, error) {
			key, _ := cfg.LLMAPIKey()
			if cfg.LLM.Provider == config.LLMProviderGemini {
				return gemini.NewClient(ctx, gemini.Config{
					APIKey:    key,
					Model:     cfg.LLM.GeminiModel,
					MaxTokens: cfg.LLM.MaxTokens,
				})
			}
			return llm.NewClient(llm.Config{
				APIKey:         key,
				BaseURL:        cfg.API.AnthropicBaseURL,
				Model:          cfg.API.AnthropicModel,
				MaxTokens:      cfg.LLM.MaxTokens,
				TimeoutSeconds: cfg.API.TimeoutSeconds,
			}), nil
		},
		Video: func(ctx context.Context) (video.Generator, error) {
			key, _ := cfg.VideoAPIKey()
			poll := time.Duration(cfg.Video.PollIntervalSeconds) * time.Second
			if cfg.Video.Provider == config.VideoProviderBytePlus {
				return byteplus.NewClient(byteplus.Config{
					APIKey:        key,
					BaseURL:       cfg.API.BytePlusBaseURL,
					Model:         cfg.Video.Model,
					PollInterval:  poll,
					GenerateAudio: cfg.Video.GenerateAudio,
					MaxRetries:    cfg.Video.MaxRetries,
				}, byteplus.WithLogger(logger))
			}
			return veo.NewClient(ctx, veo.Config{
				APIKey:       key,
				Model:        cfg.Video.Model,
				PollInterval: poll,
				MaxRetries:   cfg.Video.MaxRetries,
			}, veo.WithLogger(logger))
		},
	}
}

func closeClient(client any) {
	if c, ok := client.(io.Closer); ok {
		_ = c.Close()
	}
}
