package preflight

import (
	"context"
	"path/filepath"

	"mindmovie/internal/config"
	"mindmovie/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Options tunes which checks RunAll performs.
type Options struct {
	SkipNetwork bool
	// LLMChecker overrides the health checker built from the config.
	LLMChecker HealthChecker
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckBuildDirectory("Build directory", cfg.Build.BuildDir))
	results = append(results, CheckBuildDirectory("Output directory", filepath.Dir(cfg.Build.OutputPath)))
	if music := cfg.MusicPath(); music != "" {
		results = append(results, CheckFile("Music file", music))
	}

	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	ffmpegReady := false
	for _, status := range statuses {
		results = append(results, fromStatus(status))
		if status.Name == "FFmpeg" && status.Available {
			ffmpegReady = true
		}
	}
	if ffmpegReady {
		results = append(results, fromStatus(deps.CheckFFmpegFilters(ctx, cfg.FFmpegBinary(), deps.RequiredFilters)))
	}

	results = append(results, CheckCredentials(cfg)...)

	if !opts.SkipNetwork {
		if key, _ := cfg.LLMAPIKey(); key != "" {
			results = append(results, checkLLMReachability(ctx, cfg, opts.LLMChecker))
		}
	}

	results = append(results, CheckNotifications(cfg), CheckPublish(cfg))
	return results
}

// Ready reports whether every required check passed.
func Ready(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return false
		}
	}
	return true
}

// Counts tallies passed and failed required checks.
func Counts(results []Result) (passed, failed int) {
	for _, r := range results {
		switch {
		case r.Passed:
			passed++
		case !r.Optional:
			failed++
		}
	}
	return passed, failed
}

func checkLLMReachability(ctx context.Context, cfg *config.Config, checker HealthChecker) Result {
	name := llmCheckName(cfg)
	if checker == nil {
		built, closeFn, err := newHealthChecker(ctx, cfg)
		if err != nil {
			return Result{Name: name, Detail: err.Error()}
		}
		if closeFn != nil {
			defer closeFn()
		}
		checker = built
	}
	return CheckLLM(ctx, name, checker)
}

func fromStatus(status deps.Status) Result {
	detail := status.Command
	if !status.Available {
		detail = status.Detail
	}
	return Result{Name: status.Name, Passed: status.Available, Optional: status.Optional, Detail: detail}
}
