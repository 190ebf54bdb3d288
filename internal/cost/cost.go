// Package cost estimates spend and wall-clock time for a build before any
// billable video call is made.
package cost

import (
	"fmt"
	"log/slog"
	"strings"

	"mindmovie/internal/config"
	"mindmovie/internal/logging"
	"mindmovie/internal/scenes"
	"mindmovie/internal/services/video"
)

const (
	// LLMSceneGenerationCost approximates one structured scene-generation call.
	LLMSceneGenerationCost = 0.02
	// VideoSecondsPerBatch is the average wall-clock time for one clip.
	VideoSecondsPerBatch = 240
	// CompositionSeconds is the average ffmpeg composition time.
	CompositionSeconds = 180
)

// Breakdown itemizes estimated spend (USD) and time (seconds).
type Breakdown struct {
	NumScenes       int
	SceneDuration   int
	VideoCost       float64
	LLMCost         float64
	VideoTime       float64
	CompositionTime float64
}

// TotalCost is the video and LLM spend combined.
func (b Breakdown) TotalCost() float64 { return b.VideoCost + b.LLMCost }

// TotalTime is the video and composition time combined.
func (b Breakdown) TotalTime() float64 { return b.VideoTime + b.CompositionTime }

// TotalVideoDuration is the number of seconds of footage to generate.
func (b Breakdown) TotalVideoDuration() int { return b.NumScenes * b.SceneDuration }

// FormatCost renders the total as dollars.
func (b Breakdown) FormatCost() string {
	return fmt.Sprintf("$%.2f", b.TotalCost())
}

// FormatTime renders the total as seconds under a minute, otherwise minutes.
func (b Breakdown) FormatTime() string {
	total := b.TotalTime()
	minutes := int(total / 60)
	if minutes < 1 {
		return fmt.Sprintf("%ds", int(total))
	}
	return fmt.Sprintf("~%d min", minutes)
}

// FormatSummary renders the multi-line breakdown shown at the cost gate.
func (b Breakdown) FormatSummary() string {
	lines := []string{
		fmt.Sprintf("  Video generation (%d clips × %ds): $%.2f", b.NumScenes, b.SceneDuration, b.VideoCost),
		fmt.Sprintf("  Scene generation (LLM): $%.2f", b.LLMCost),
		"  ─────────────────────────────",
		"  Total estimated cost: " + b.FormatCost(),
		"  Estimated time: " + b.FormatTime(),
	}
	return strings.Join(lines, "\n")
}

// Estimator prices builds for the configured video model.
type Estimator struct {
	model         string
	withAudio     bool
	sceneDuration int
	maxConcurrent int
	logger        *slog.Logger
}

// NewEstimator captures the pricing inputs from cfg.
func NewEstimator(cfg *config.Config, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = logging.NewNop()
	}
	// Veo always renders audio; only BytePlus honors generate_audio.
	withAudio := cfg.Video.GenerateAudio || cfg.Video.Provider != config.VideoProviderBytePlus
	e := &Estimator{
		model:         cfg.Video.Model,
		withAudio:     withAudio,
		sceneDuration: cfg.Movie.SceneDuration,
		maxConcurrent: max(cfg.Video.MaxConcurrent, 1),
		logger:        logging.NewComponentLogger(logger, "cost"),
	}
	if !video.KnownModel(e.model) {
		logging.WarnWithContext(e.logger, "no price listed for video model", "pricing_fallback",
			logging.String("model", e.model),
			logging.Float64("usd_per_second", video.DefaultPricePerSecond),
			logging.String(logging.FieldImpact, "cost estimates may be inaccurate"),
			logging.String(logging.FieldErrorHint, "check video.model against the provider's price list"),
		)
	}
	return e
}

// Estimate prices a full build of spec, including the scene-generation call.
func (e *Estimator) Estimate(spec *scenes.MindMovieSpec) Breakdown {
	n := 0
	if spec != nil {
		n = len(spec.Scenes)
	}
	return e.breakdown(n, LLMSceneGenerationCost)
}

// EstimatePending prices only the listed scene indices of spec. Scene
// generation has already happened, so no LLM cost is included.
func (e *Estimator) EstimatePending(spec *scenes.MindMovieSpec, pending []int) Breakdown {
	n := 0
	if spec != nil {
		for _, idx := range pending {
			if _, ok := spec.Scene(idx); ok {
				n++
			}
		}
	}
	return e.breakdown(n, 0)
}

// VideoCost prices numScenes clips of sceneDuration seconds.
func (e *Estimator) VideoCost(numScenes, sceneDuration int) float64 {
	return video.PricePerSecond(e.model, e.withAudio) * float64(numScenes*sceneDuration)
}

func (e *Estimator) breakdown(n int, llmCost float64) Breakdown {
	batches := (n + e.maxConcurrent - 1) / e.maxConcurrent
	return Breakdown{
		NumScenes:       n,
		SceneDuration:   e.sceneDuration,
		VideoCost:       e.VideoCost(n, e.sceneDuration),
		LLMCost:         llmCost,
		VideoTime:       float64(batches * VideoSecondsPerBatch),
		CompositionTime: CompositionSeconds,
	}
}
