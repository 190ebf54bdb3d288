package assets

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"mindmovie/internal/config"
	"mindmovie/internal/ledger"
	"mindmovie/internal/logging"
	"mindmovie/internal/scenes"
	"mindmovie/internal/services"
	"mindmovie/internal/services/video"
	"mindmovie/internal/state"
	"mindmovie/internal/textutil"
)

// InterruptedMessage is stored on scenes whose attempt was cut short.
const InterruptedMessage = "interrupted"

const maxErrorMessageLen = 300

// Recorder is the attempt ledger. It is optional.
type Recorder interface {
	Record(ctx context.Context, a ledger.Attempt) (int64, error)
	Finish(ctx context.Context, id int64, status ledger.AttemptStatus, costUSD float64, errorMessage string) error
}

// ProgressFunc is invoked exactly once per attempted scene, after the
// attempt's final status has been persisted. It may be called concurrently.
type ProgressFunc func(Result)

// Generator runs clip generation for pending scenes.
type Generator struct {
	client  video.Generator
	store   *state.Store
	cfg     *config.Config
	ledger  Recorder
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithLedger records each attempt in rec.
func WithLedger(rec Recorder) Option {
	return func(g *Generator) {
		g.ledger = rec
	}
}

// WithLimiter overrides the submission limiter derived from config.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *Generator) {
		g.limiter = l
	}
}

// NewGenerator wires a clip provider to the state store.
func NewGenerator(client video.Generator, store *state.Store, cfg *config.Config, logger *slog.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	g := &Generator{
		client: client,
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "assets"),
	}
	if perMinute := cfg.Video.SubmissionsPerMinute; perMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateAll attempts every scene whose persisted status is pending or
// failed. The returned error covers only state-store failures; per-scene
// failures are reported in the Summary. When every asset is complete
// afterwards the stage advances to COMPOSITION.
func (g *Generator) GenerateAll(ctx context.Context, spec *scenes.MindMovieSpec, progress ProgressFunc) (Summary, error) {
	if spec == nil {
		return Summary{}, errors.New("assets: scene spec is required")
	}
	st, err := g.recoverStale()
	if err != nil {
		return Summary{}, err
	}
	ctx = services.WithRunID(ctx, st.ID)

	pending := g.pendingScenes(st, spec)
	if len(pending) == 0 {
		g.logger.Info("no pending scenes; all videos complete")
		return Summary{}, g.advanceIfComplete(Summary{})
	}

	maxConcurrent := max(g.cfg.Video.MaxConcurrent, 1)
	g.logger.Info("video generation starting",
		logging.Int("scenes", len(pending)),
		logging.Int("max_concurrent", maxConcurrent),
		logging.String("provider", g.cfg.Video.Provider),
		logging.String("model", g.cfg.Video.Model),
	)

	sem := semaphore.NewWeighted(int64(maxConcurrent))
	results := make([]*Result, len(pending))
	var wg sync.WaitGroup
	for i, scene := range pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			if g.limiter != nil {
				if err := g.limiter.Wait(ctx); err != nil {
					return
				}
			}
			result := g.attempt(ctx, st.ID, scene)
			results[i] = &result
			if progress != nil {
				progress(result)
			}
		}()
	}
	wg.Wait()

	var summary Summary
	for _, r := range results {
		if r != nil {
			summary.Results = append(summary.Results, *r)
		}
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, g.advanceIfComplete(summary)
}

// recoverStale fails assets left GENERATING by a process that exited before
// recording an outcome, so they are picked up again.
func (g *Generator) recoverStale() (*state.PipelineState, error) {
	st, err := g.store.LoadOrCreate()
	if err != nil {
		return nil, err
	}
	for _, asset := range st.SceneAssets {
		if asset.VideoStatus != state.AssetGenerating {
			continue
		}
		g.logger.Warn("resetting stale generating scene", logging.Int(logging.FieldSceneIndex, asset.SceneIndex))
		st, err = g.store.UpdateVideoStatus(asset.SceneIndex, state.AssetFailed, state.VideoUpdate{ErrorMessage: InterruptedMessage})
		if err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (g *Generator) pendingScenes(st *state.PipelineState, spec *scenes.MindMovieSpec) []scenes.Scene {
	pending := make(map[int]struct{})
	for _, idx := range st.PendingVideos() {
		pending[idx] = struct{}{}
	}
	var out []scenes.Scene
	for _, scene := range spec.Scenes {
		if _, ok := pending[scene.Index]; ok {
			out = append(out, scene)
		}
	}
	return out
}

func (g *Generator) advanceIfComplete(summary Summary) error {
	st, err := g.store.LoadOrCreate()
	if err != nil {
		return err
	}
	if len(st.SceneAssets) == 0 || !st.AllVideosComplete() {
		logging.WarnWithContext(g.logger, "scenes failed video generation", "video_generation_incomplete",
			logging.Int("failed", len(summary.Failed())),
			logging.Int("attempted", summary.Total()),
			logging.String(logging.FieldErrorHint, "run 'mindmovie render' to retry failed scenes"),
		)
		return nil
	}
	if st.CurrentStage != state.StageVideoGeneration {
		return nil
	}
	if _, err := g.store.AdvanceStage(state.StageComposition); err != nil {
		return err
	}
	g.logger.Info("all videos complete; advanced to composition")
	return nil
}

func (g *Generator) attempt(ctx context.Context, runID string, scene scenes.Scene) Result {
	ctx = services.WithSceneIndex(ctx, scene.Index)
	logger := logging.WithContext(ctx, g.logger)
	outputPath := g.store.VideoPath(scene.Index)
	duration := g.cfg.Movie.SceneDuration

	if _, err := g.store.UpdateVideoStatus(scene.Index, state.AssetGenerating, state.VideoUpdate{}); err != nil {
		return Result{SceneIndex: scene.Index, Err: err, Message: summarizeError(ctx, err)}
	}
	attemptID := g.recordAttempt(ctx, runID, scene.Index, duration)

	logger.Info("generating scene video",
		logging.String("category", string(scene.Category)),
		logging.String("affirmation", scene.Affirmation),
	)
	started := time.Now()
	path, err := g.client.Generate(ctx, video.Request{
		Prompt:          scene.VideoPrompt,
		OutputPath:      outputPath,
		DurationSeconds: duration,
		Resolution:      g.cfg.Video.Resolution,
		AspectRatio:     g.cfg.Video.AspectRatio,
		NegativePrompt:  g.cfg.Video.NegativePrompt,
	})
	if err == nil && path == "" {
		path = outputPath
	}

	if err != nil {
		msg := summarizeError(ctx, err)
		logging.ErrorWithContext(logger, "scene video generation failed", "scene_video_failed",
			logging.Error(err),
			logging.String("error_message", msg),
			logging.String(logging.FieldErrorHint, "run 'mindmovie render' to retry"),
		)
		if _, updateErr := g.store.UpdateVideoStatus(scene.Index, state.AssetFailed, state.VideoUpdate{ErrorMessage: msg}); updateErr != nil {
			err = errors.Join(err, updateErr)
		}
		g.finishAttempt(ctx, attemptID, ledger.StatusFailed, 0, msg)
		return Result{SceneIndex: scene.Index, Err: err, Message: msg}
	}

	if _, err := g.store.UpdateVideoStatus(scene.Index, state.AssetComplete, state.VideoUpdate{VideoPath: path}); err != nil {
		return Result{SceneIndex: scene.Index, Err: err, Message: summarizeError(ctx, err)}
	}
	spent := g.client.EstimateCost(duration)
	if _, err := g.store.AddActualCost(spent); err != nil {
		logging.WarnWithContext(logger, "actual cost not recorded", "actual_cost_failed", logging.Error(err))
	}
	g.finishAttempt(ctx, attemptID, ledger.StatusSucceeded, spent, "")
	logger.Info("scene video saved",
		logging.String("path", path),
		logging.Duration("elapsed", time.Since(started)),
		logging.Float64("cost_usd", spent),
	)
	return Result{SceneIndex: scene.Index, VideoPath: path}
}

func (g *Generator) recordAttempt(ctx context.Context, runID string, sceneIndex, duration int) int64 {
	if g.ledger == nil {
		return 0
	}
	id, err := g.ledger.Record(ctx, ledger.Attempt{
		RunID:           runID,
		SceneIndex:      sceneIndex,
		Provider:        g.cfg.Video.Provider,
		Model:           g.cfg.Video.Model,
		DurationSeconds: duration,
	})
	if err != nil {
		logging.WarnWithContext(g.logger, "ledger record failed", "ledger_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "attempt missing from history"),
		)
		return 0
	}
	return id
}

func (g *Generator) finishAttempt(ctx context.Context, id int64, status ledger.AttemptStatus, cost float64, msg string) {
	if g.ledger == nil || id == 0 {
		return
	}
	// The outcome is written even when the attempt was interrupted.
	if err := g.ledger.Finish(context.WithoutCancel(ctx), id, status, cost, msg); err != nil {
		logging.WarnWithContext(g.logger, "ledger finish failed", "ledger_finish_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "attempt left running in history"),
		)
	}
}

// summarizeError produces the short message persisted on a failed asset,
// prefixed with the failure class so a stored status can be triaged without
// the logs.
func summarizeError(ctx context.Context, err error) string {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return InterruptedMessage
	}
	details := services.Details(err)
	var class string
	switch {
	case errors.Is(err, video.ErrGenerationFailed), errors.Is(err, video.ErrNotVideo):
		class = video.ErrGenerationFailed.Error()
	case details.Marker != nil:
		class = details.Marker.Error()
	case video.IsTransient(err):
		class = services.ErrTransient.Error()
	default:
		class = "error"
	}
	return textutil.Truncate(class+": "+details.Message, maxErrorMessageLen)
}
