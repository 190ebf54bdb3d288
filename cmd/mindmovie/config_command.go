package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mindmovie/internal/config"
	"mindmovie/internal/notifications"
	"mindmovie/internal/preflight"
	"mindmovie/internal/services"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	var (
		check      bool
		initialize bool
		targetPath string
		overwrite  bool
		offline    bool
	)

	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Show the effective configuration",
		Long:        "Show the effective configuration with credentials masked. --check runs preflight checks and --init writes a sample configuration file.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if initialize {
				return writeSampleConfig(cmd, targetPath, overwrite)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				if _, statErr := os.Stat(ctx.configPath); statErr == nil {
					fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
				} else {
					fmt.Fprintf(out, "Config path: %s (not found, defaults in use)\n", ctx.configPath)
				}
			}
			if check {
				return runPreflight(cmd, cfg, offline)
			}
			showConfig(cmd, cfg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Run preflight checks for credentials, directories, and tools")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip network checks when used with --check")
	cmd.Flags().BoolVar(&initialize, "init", false, "Write a sample configuration file")
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for --init")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing file with --init")
	cmd.MarkFlagsMutuallyExclusive("check", "init")
	return cmd
}

func writeSampleConfig(cmd *cobra.Command, targetPath string, overwrite bool) error {
	target := strings.TrimSpace(targetPath)
	if target == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("determine default config path: %w", err)
		}
		target = defaultPath
	} else {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		target = expanded
	}

	if !overwrite {
		if _, err := os.Stat(target); err == nil {
			return services.Wrap(services.ErrConfiguration, "", "",
				fmt.Sprintf("Config file already exists at %s (use --overwrite to replace it)", target), nil)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("check config path: %w", err)
		}
	}

	if err := config.CreateSample(target); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
	fmt.Fprintf(out, "Set %s and %s (or add them to a .env file) before running mindmovie.\n",
		config.EnvAnthropicAPIKey, config.EnvGeminiAPIKey)
	return nil
}

func runPreflight(cmd *cobra.Command, cfg *config.Config, offline bool) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{SkipNetwork: offline})

	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, r := range results {
		kind := statusOK
		switch {
		case !r.Passed && r.Optional:
			kind = statusWarn
		case !r.Passed:
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}

	passed, failed := preflight.Counts(results)
	fmt.Fprintf(out, "\n%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return services.Wrap(services.ErrConfiguration, "", "",
			fmt.Sprintf("%d check(s) failed", failed), nil)
	}
	return nil
}

func showConfig(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	masked := func(value string) string {
		if value == "" {
			return "(not set)"
		}
		return config.MaskSecret(value)
	}
	orNone := func(value string) string {
		if strings.TrimSpace(value) == "" {
			return "-"
		}
		return value
	}

	fmt.Fprintln(out, renderSettings("API Keys", [][]string{
		{config.EnvAnthropicAPIKey, masked(cfg.API.AnthropicAPIKey)},
		{config.EnvGeminiAPIKey, masked(cfg.API.GeminiAPIKey)},
		{config.EnvBytePlusAPIKey, masked(cfg.API.BytePlusAPIKey)},
	}))

	textModel := cfg.API.AnthropicModel
	if cfg.LLM.Provider == config.LLMProviderGemini {
		textModel = cfg.LLM.GeminiModel
	}
	fmt.Fprintln(out, renderSettings("Text Generation", [][]string{
		{"Provider", cfg.LLM.Provider},
		{"Model", textModel},
		{"Max tokens", strconv.Itoa(cfg.LLM.MaxTokens)},
		{"Timeout", fmt.Sprintf("%ds", cfg.API.TimeoutSeconds)},
	}))

	fmt.Fprintln(out, renderSettings("Video Generation", [][]string{
		{"Provider", cfg.Video.Provider},
		{"Model", cfg.Video.Model},
		{"Resolution", cfg.Video.Resolution},
		{"Aspect ratio", cfg.Video.AspectRatio},
		{"Generate audio", yesNo(cfg.Video.GenerateAudio)},
		{"Max concurrent", strconv.Itoa(cfg.Video.MaxConcurrent)},
		{"Max retries", strconv.Itoa(cfg.Video.MaxRetries)},
		{"Submissions per minute", strconv.Itoa(cfg.Video.SubmissionsPerMinute)},
	}))

	music := [][]string{{"Source", cfg.Music.Source}}
	if path := cfg.MusicPath(); path != "" {
		music = append(music, []string{"File", path})
	}
	music = append(music, []string{"Volume", strconv.FormatFloat(cfg.Music.Volume, 'f', 2, 64)})
	fmt.Fprintln(out, renderSettings("Background Music", music))

	fmt.Fprintln(out, renderSettings("Movie Structure", [][]string{
		{"Scenes", strconv.Itoa(cfg.Movie.NumScenes)},
		{"Scene duration", fmt.Sprintf("%ds", cfg.Movie.SceneDuration)},
		{"Title card", fmt.Sprintf("%ds", cfg.Movie.TitleDuration)},
		{"Closing card", fmt.Sprintf("%ds", cfg.Movie.ClosingDuration)},
		{"Crossfade", fmt.Sprintf("%gs", cfg.Movie.CrossfadeDuration)},
		{"FPS", strconv.Itoa(cfg.Movie.FPS)},
	}))

	fmt.Fprintln(out, renderSettings("Build", [][]string{
		{"Build directory", cfg.Build.BuildDir},
		{"Output", cfg.Build.OutputPath},
		{"FFmpeg", cfg.FFmpegBinary()},
		{"Log directory", orNone(cfg.Logging.Dir)},
	}))

	ntfy := "disabled"
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		ntfy = notifications.Endpoint(topic)
	}
	publish := "disabled"
	if cfg.Publish.Enabled {
		publish = fmt.Sprintf("%s/%s", cfg.Publish.Endpoint, cfg.Publish.Bucket)
	}
	fmt.Fprintln(out, renderSettings("Integrations", [][]string{
		{"ntfy", ntfy},
		{"Publish", publish},
	}))
}
