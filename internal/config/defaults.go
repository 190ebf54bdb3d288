package config

const (
	defaultConfigPath = "~/.config/mindmovie/config.toml"

	defaultAnthropicModel   = "claude-sonnet-4-20250514"
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultBytePlusBaseURL  = "https://ark.ap-southeast.bytepluses.com/api/v3"
	defaultAPITimeout       = 120
	defaultGeminiTextModel  = "gemini-2.5-flash"
	defaultLLMMaxTokens     = 4096

	defaultVideoModel           = "veo-3.1-fast-generate-preview"
	defaultVideoResolution      = "1080p"
	defaultAspectRatio          = "16:9"
	defaultMaxConcurrent        = 5
	defaultMaxRetries           = 3
	defaultPollIntervalSeconds  = 10
	defaultSubmissionsPerMinute = 0
	defaultNegativePrompt       = "text, watermark, logo, blurry, distorted faces, extra limbs, low quality"

	defaultSceneDuration     = 8
	defaultNumScenes         = 12
	defaultTitleDuration     = 5
	defaultClosingDuration   = 5
	defaultCrossfadeDuration = 0.5
	defaultFPS               = 24

	defaultMusicVolume = 0.20

	defaultBuildDir   = "build"
	defaultOutputPath = "mind_movie.mp4"

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30

	defaultNotifyTimeout  = 10
	defaultPublishPrefix  = "mindmovies"
	defaultURLExpiryHours = 24
)

// Provider and option identifiers accepted in configuration files.
const (
	LLMProviderAnthropic = "anthropic"
	LLMProviderGemini    = "gemini"

	VideoProviderVeo      = "veo"
	VideoProviderBytePlus = "byteplus"

	MusicSourceFile = "file"
	MusicSourceNone = "none"
)

// Environment variables consulted for credentials and overrides.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvAnthropicModel  = "ANTHROPIC_MODEL"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvBytePlusAPIKey  = "BYTEPLUS_API_KEY"
	EnvNtfyTopic       = "MINDMOVIE_NTFY_TOPIC"
	EnvPublishAccess   = "MINIO_ACCESS_KEY"
	EnvPublishSecret   = "MINIO_SECRET_KEY"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			AnthropicModel:   defaultAnthropicModel,
			AnthropicBaseURL: defaultAnthropicBaseURL,
			BytePlusBaseURL:  defaultBytePlusBaseURL,
			TimeoutSeconds:   defaultAPITimeout,
		},
		LLM: LLM{
			Provider:    LLMProviderAnthropic,
			GeminiModel: defaultGeminiTextModel,
			MaxTokens:   defaultLLMMaxTokens,
		},
		Video: Video{
			Provider:             VideoProviderVeo,
			Model:                defaultVideoModel,
			Resolution:           defaultVideoResolution,
			AspectRatio:          defaultAspectRatio,
			GenerateAudio:        true,
			MaxConcurrent:        defaultMaxConcurrent,
			MaxRetries:           defaultMaxRetries,
			PollIntervalSeconds:  defaultPollIntervalSeconds,
			SubmissionsPerMinute: defaultSubmissionsPerMinute,
			NegativePrompt:       defaultNegativePrompt,
		},
		Movie: Movie{
			SceneDuration:     defaultSceneDuration,
			NumScenes:         defaultNumScenes,
			TitleDuration:     defaultTitleDuration,
			ClosingDuration:   defaultClosingDuration,
			CrossfadeDuration: defaultCrossfadeDuration,
			FPS:               defaultFPS,
		},
		Music: Music{
			Source: MusicSourceFile,
			Volume: defaultMusicVolume,
		},
		Build: Build{
			BuildDir:   defaultBuildDir,
			OutputPath: defaultOutputPath,
		},
		Compose: Compose{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Publish: Publish{
			UseSSL:         true,
			Prefix:         defaultPublishPrefix,
			URLExpiryHours: defaultURLExpiryHours,
		},
	}
}
