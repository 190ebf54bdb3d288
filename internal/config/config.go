package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// API holds credentials and connection settings for the hosted model providers.
type API struct {
	AnthropicAPIKey  string `toml:"anthropic_api_key" yaml:"anthropic_api_key"`
	AnthropicModel   string `toml:"anthropic_model" yaml:"anthropic_model"`
	AnthropicBaseURL string `toml:"anthropic_base_url" yaml:"anthropic_base_url"`
	GeminiAPIKey     string `toml:"gemini_api_key" yaml:"gemini_api_key"`
	BytePlusAPIKey   string `toml:"byteplus_api_key" yaml:"byteplus_api_key"`
	BytePlusBaseURL  string `toml:"byteplus_base_url" yaml:"byteplus_base_url"`
	TimeoutSeconds   int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// LLM selects the text-generation provider used by the questionnaire and scene stages.
type LLM struct {
	Provider    string `toml:"provider" yaml:"provider"`
	GeminiModel string `toml:"gemini_model" yaml:"gemini_model"`
	MaxTokens   int    `toml:"max_tokens" yaml:"max_tokens"`
}

// Video contains video-generation provider settings.
type Video struct {
	Provider             string `toml:"provider" yaml:"provider"`
	Model                string `toml:"model" yaml:"model"`
	Resolution           string `toml:"resolution" yaml:"resolution"`
	AspectRatio          string `toml:"aspect_ratio" yaml:"aspect_ratio"`
	GenerateAudio        bool   `toml:"generate_audio" yaml:"generate_audio"`
	MaxConcurrent        int    `toml:"max_concurrent" yaml:"max_concurrent"`
	MaxRetries           int    `toml:"max_retries" yaml:"max_retries"`
	PollIntervalSeconds  int    `toml:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	SubmissionsPerMinute int    `toml:"submissions_per_minute" yaml:"submissions_per_minute"`
	NegativePrompt       string `toml:"negative_prompt" yaml:"negative_prompt"`
}

// Movie controls the structure of the composed mind movie.
type Movie struct {
	SceneDuration     int     `toml:"scene_duration" yaml:"scene_duration"`
	NumScenes         int     `toml:"num_scenes" yaml:"num_scenes"`
	TitleDuration     int     `toml:"title_duration" yaml:"title_duration"`
	ClosingDuration   int     `toml:"closing_duration" yaml:"closing_duration"`
	CrossfadeDuration float64 `toml:"crossfade_duration" yaml:"crossfade_duration"`
	FPS               int     `toml:"fps" yaml:"fps"`
}

// Music configures the background track mixed under the scenes.
type Music struct {
	Source   string  `toml:"source" yaml:"source"`
	FilePath string  `toml:"file_path" yaml:"file_path"`
	Volume   float64 `toml:"volume" yaml:"volume"`
}

// Build locates intermediate artifacts and the default output file.
type Build struct {
	BuildDir   string `toml:"build_dir" yaml:"build_dir"`
	OutputPath string `toml:"output_path" yaml:"output_path"`
}

// Compose configures the ffmpeg toolchain used for final assembly.
type Compose struct {
	FFmpegBinary  string `toml:"ffmpeg_binary" yaml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary" yaml:"ffprobe_binary"`
	FontFile      string `toml:"font_file" yaml:"font_file"`
}

// Logging contains log output settings.
type Logging struct {
	Format        string `toml:"format" yaml:"format"`
	Level         string `toml:"level" yaml:"level"`
	Dir           string `toml:"dir" yaml:"dir"`
	RetentionDays int    `toml:"retention_days" yaml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" yaml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout" yaml:"request_timeout"`
}

// Publish configures the optional upload of finished movies to S3-compatible storage.
type Publish struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`
	Endpoint       string `toml:"endpoint" yaml:"endpoint"`
	Bucket         string `toml:"bucket" yaml:"bucket"`
	AccessKey      string `toml:"access_key" yaml:"access_key"`
	SecretKey      string `toml:"secret_key" yaml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl" yaml:"use_ssl"`
	Prefix         string `toml:"prefix" yaml:"prefix"`
	URLExpiryHours int    `toml:"url_expiry_hours" yaml:"url_expiry_hours"`
}

// Config encapsulates all configuration values for mindmovie.
//
// Configuration sections by subsystem:
//   - API: provider credentials and endpoints
//   - LLM: questionnaire and scene generation provider
//   - Video: clip generation provider, quality, and concurrency
//   - Movie: scene count and card/crossfade timing
//   - Music: background track
//   - Build: build directory and default output file
//   - Compose: ffmpeg toolchain
//   - Logging, Notifications, Publish: ambient integrations
type Config struct {
	API           API           `toml:"api" yaml:"api"`
	LLM           LLM           `toml:"llm" yaml:"llm"`
	Video         Video         `toml:"video" yaml:"video"`
	Movie         Movie         `toml:"movie" yaml:"movie"`
	Music         Music         `toml:"music" yaml:"music"`
	Build         Build         `toml:"build" yaml:"build"`
	Compose       Compose       `toml:"compose" yaml:"compose"`
	Logging       Logging       `toml:"logging" yaml:"logging"`
	Notifications Notifications `toml:"notifications" yaml:"notifications"`
	Publish       Publish       `toml:"publish" yaml:"publish"`
}

// projectConfigNames are searched in the working directory when no explicit
// path is given and the user config does not exist.
var projectConfigNames = []string{"mindmovie.toml", "config.yaml", "config.yml", "mindmovie.yaml", "mindmovie.yml"}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Credentials from a
// .env file in the working directory and from the environment take precedence
// over file values. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

// loadDotEnv reads KEY=value pairs into the process environment without
// overriding variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	for _, name := range projectConfigNames {
		projectPath, err := filepath.Abs(name)
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
			return projectPath, true, nil
		}
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the build directory and, when configured, the log directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Build.BuildDir}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for composition.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Compose.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for clip inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Compose.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

// MusicPath returns the configured background track, or "" when music is disabled.
func (c *Config) MusicPath() string {
	if c.Music.Source != MusicSourceFile {
		return ""
	}
	return c.Music.FilePath
}

// VideoAPIKey returns the credential for the configured video provider and the
// environment variable users should set when it is missing.
func (c *Config) VideoAPIKey() (key string, envName string) {
	switch c.Video.Provider {
	case VideoProviderBytePlus:
		return c.API.BytePlusAPIKey, EnvBytePlusAPIKey
	default:
		return c.API.GeminiAPIKey, EnvGeminiAPIKey
	}
}

// LLMAPIKey returns the credential for the configured text provider and the
// environment variable users should set when it is missing.
func (c *Config) LLMAPIKey() (key string, envName string) {
	switch c.LLM.Provider {
	case LLMProviderGemini:
		return c.API.GeminiAPIKey, EnvGeminiAPIKey
	default:
		return c.API.AnthropicAPIKey, EnvAnthropicAPIKey
	}
}

// MissingAPIKeys lists the environment variables for credentials that the
// configured providers need but that are not set.
func (c *Config) MissingAPIKeys() []string {
	var missing []string
	if key, env := c.LLMAPIKey(); key == "" {
		missing = append(missing, env)
	}
	if key, env := c.VideoAPIKey(); key == "" && !contains(missing, env) {
		missing = append(missing, env)
	}
	return missing
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// MaskSecret hides all but the last four characters of a credential.
func MaskSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
