package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeLLM()
	c.normalizeVideo()
	c.normalizeMusic()
	c.normalizeNotifications()
	c.normalizePublish()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Build.BuildDir) == "" {
		c.Build.BuildDir = defaultBuildDir
	}
	if c.Build.BuildDir, err = expandPath(c.Build.BuildDir); err != nil {
		return fmt.Errorf("build.build_dir: %w", err)
	}
	if strings.TrimSpace(c.Build.OutputPath) == "" {
		c.Build.OutputPath = defaultOutputPath
	}
	if c.Build.OutputPath, err = expandPath(c.Build.OutputPath); err != nil {
		return fmt.Errorf("build.output_path: %w", err)
	}
	if c.Music.FilePath, err = expandPath(strings.TrimSpace(c.Music.FilePath)); err != nil {
		return fmt.Errorf("music.file_path: %w", err)
	}
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	if c.Compose.FontFile, err = expandPath(strings.TrimSpace(c.Compose.FontFile)); err != nil {
		return fmt.Errorf("compose.font_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.AnthropicAPIKey = envOverride(EnvAnthropicAPIKey, c.API.AnthropicAPIKey)
	c.API.AnthropicModel = envOverride(EnvAnthropicModel, c.API.AnthropicModel)
	c.API.GeminiAPIKey = envOverride(EnvGeminiAPIKey, c.API.GeminiAPIKey)
	c.API.BytePlusAPIKey = envOverride(EnvBytePlusAPIKey, c.API.BytePlusAPIKey)

	if c.API.AnthropicModel == "" {
		c.API.AnthropicModel = defaultAnthropicModel
	}
	c.API.AnthropicBaseURL = strings.TrimRight(strings.TrimSpace(c.API.AnthropicBaseURL), "/")
	if c.API.AnthropicBaseURL == "" {
		c.API.AnthropicBaseURL = defaultAnthropicBaseURL
	}
	c.API.BytePlusBaseURL = strings.TrimRight(strings.TrimSpace(c.API.BytePlusBaseURL), "/")
	if c.API.BytePlusBaseURL == "" {
		c.API.BytePlusBaseURL = defaultBytePlusBaseURL
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = defaultAPITimeout
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = LLMProviderAnthropic
	}
	c.LLM.GeminiModel = strings.TrimSpace(c.LLM.GeminiModel)
	if c.LLM.GeminiModel == "" {
		c.LLM.GeminiModel = defaultGeminiTextModel
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
}

func (c *Config) normalizeVideo() {
	c.Video.Provider = strings.ToLower(strings.TrimSpace(c.Video.Provider))
	if c.Video.Provider == "" {
		c.Video.Provider = VideoProviderVeo
	}
	c.Video.Model = strings.TrimSpace(c.Video.Model)
	if c.Video.Model == "" {
		c.Video.Model = defaultVideoModel
	}
	c.Video.Resolution = strings.TrimSpace(c.Video.Resolution)
	if strings.EqualFold(c.Video.Resolution, "4k") {
		c.Video.Resolution = "4K"
	} else {
		c.Video.Resolution = strings.ToLower(c.Video.Resolution)
	}
	c.Video.AspectRatio = strings.TrimSpace(c.Video.AspectRatio)
	if c.Video.PollIntervalSeconds <= 0 {
		c.Video.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Video.SubmissionsPerMinute < 0 {
		c.Video.SubmissionsPerMinute = 0
	}
}

func (c *Config) normalizeMusic() {
	c.Music.Source = strings.ToLower(strings.TrimSpace(c.Music.Source))
	if c.Music.Source == "" {
		c.Music.Source = MusicSourceFile
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = envOverride(EnvNtfyTopic, c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizePublish() {
	c.Publish.AccessKey = envOverride(EnvPublishAccess, c.Publish.AccessKey)
	c.Publish.SecretKey = envOverride(EnvPublishSecret, c.Publish.SecretKey)
	c.Publish.Endpoint = strings.TrimSpace(c.Publish.Endpoint)
	c.Publish.Bucket = strings.TrimSpace(c.Publish.Bucket)
	c.Publish.Prefix = strings.Trim(strings.TrimSpace(c.Publish.Prefix), "/")
	if c.Publish.URLExpiryHours <= 0 {
		c.Publish.URLExpiryHours = defaultURLExpiryHours
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// envOverride prefers a non-empty environment variable over the file value.
func envOverride(name, current string) string {
	if value, ok := os.LookupEnv(name); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(current)
}
