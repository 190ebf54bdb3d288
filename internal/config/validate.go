package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. API keys are not required
// here; commands check the credentials they need before calling a provider.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateMovie(); err != nil {
		return err
	}
	if err := c.validateMusic(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case LLMProviderAnthropic, LLMProviderGemini:
	default:
		return fmt.Errorf("llm.provider must be %q or %q", LLMProviderAnthropic, LLMProviderGemini)
	}
	return nil
}

func (c *Config) validateVideo() error {
	switch c.Video.Provider {
	case VideoProviderVeo, VideoProviderBytePlus:
	default:
		return fmt.Errorf("video.provider must be %q or %q", VideoProviderVeo, VideoProviderBytePlus)
	}
	switch c.Video.Resolution {
	case "720p", "1080p", "4K":
	default:
		return errors.New("video.resolution must be one of 720p, 1080p, 4K")
	}
	switch c.Video.AspectRatio {
	case "16:9", "9:16":
	default:
		return errors.New("video.aspect_ratio must be 16:9 or 9:16")
	}
	if err := intRange("video.max_concurrent", c.Video.MaxConcurrent, 1, 10); err != nil {
		return err
	}
	if err := intRange("video.max_retries", c.Video.MaxRetries, 1, 10); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMovie() error {
	if err := intRange("movie.scene_duration", c.Movie.SceneDuration, 5, 15); err != nil {
		return err
	}
	if err := intRange("movie.num_scenes", c.Movie.NumScenes, 10, 15); err != nil {
		return err
	}
	if err := intRange("movie.title_duration", c.Movie.TitleDuration, 3, 10); err != nil {
		return err
	}
	if err := intRange("movie.closing_duration", c.Movie.ClosingDuration, 3, 10); err != nil {
		return err
	}
	if c.Movie.CrossfadeDuration < 0 || c.Movie.CrossfadeDuration > 2 {
		return errors.New("movie.crossfade_duration must be between 0 and 2")
	}
	if err := intRange("movie.fps", c.Movie.FPS, 24, 60); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMusic() error {
	switch c.Music.Source {
	case MusicSourceFile, MusicSourceNone:
	default:
		return fmt.Errorf("music.source must be %q or %q", MusicSourceFile, MusicSourceNone)
	}
	if c.Music.Volume < 0 || c.Music.Volume > 1 {
		return errors.New("music.volume must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errors.New("logging.format must be console or json")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if !c.Publish.Enabled {
		return nil
	}
	if c.Publish.Endpoint == "" {
		return errors.New("publish.endpoint must be set when publish.enabled is true")
	}
	if strings.Contains(c.Publish.Endpoint, "://") {
		return errors.New("publish.endpoint must be a host[:port] without a scheme")
	}
	if c.Publish.Bucket == "" {
		return errors.New("publish.bucket must be set when publish.enabled is true")
	}
	return nil
}

func intRange(key string, value, lo, hi int) error {
	if value < lo || value > hi {
		return fmt.Errorf("%s must be between %d and %d", key, lo, hi)
	}
	return nil
}
