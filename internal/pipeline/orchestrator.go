package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"mindmovie/internal/assets"
	"mindmovie/internal/compose"
	"mindmovie/internal/config"
	"mindmovie/internal/cost"
	"mindmovie/internal/goals"
	"mindmovie/internal/logging"
	"mindmovie/internal/notifications"
	"mindmovie/internal/publish"
	"mindmovie/internal/questionnaire"
	"mindmovie/internal/scenes"
	"mindmovie/internal/services"
	"mindmovie/internal/state"
)

// UI is the terminal surface the orchestrator talks through.
type UI interface {
	ReadLine(ctx context.Context) (string, error)
	ShowMessage(message string)
	ConfirmCost(ctx context.Context, estimate cost.Breakdown) (bool, error)
	VideosStarting(pending, total int)
	SceneFinished(result assets.Result)
}

// Composer renders the final movie.
type Composer interface {
	Compose(ctx context.Context, req compose.Request) (string, error)
}

// Publisher uploads the finished movie.
type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, runID, moviePath string) (publish.Result, error)
}

// RunOptions are the per-invocation overrides for Run.
type RunOptions struct {
	OutputPath string
	MusicPath  string
	DryRun     bool
}

// Orchestrator advances a persisted pipeline one stage at a time.
type Orchestrator struct {
	cfg       *config.Config
	store     *state.Store
	ui        UI
	logger    *slog.Logger
	providers Providers
	composer  Composer
	estimator *cost.Estimator
	notifier  notifications.Service
	publisher Publisher
	ledger    assets.Recorder
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithProviders replaces the external client factories.
func WithProviders(p Providers) Option {
	return func(o *Orchestrator) {
		if p.Text != nil {
			o.providers.Text = p.Text
		}
		if p.Video != nil {
			o.providers.Video = p.Video
		}
	}
}

// WithComposer replaces the ffmpeg composer.
func WithComposer(c Composer) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.composer = c
		}
	}
}

// WithNotifier replaces the notification service built from config.
func WithNotifier(n notifications.Service) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithPublisher uploads finished movies through p.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// WithLedger records every clip attempt in rec.
func WithLedger(rec assets.Recorder) Option {
	return func(o *Orchestrator) {
		o.ledger = rec
	}
}

// New builds an orchestrator over store.
func New(cfg *config.Config, store *state.Store, ui UI, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if ui == nil {
		ui = nopUI{}
	}
	o := &Orchestrator{
		cfg:       cfg,
		store:     store,
		ui:        ui,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		providers: DefaultProviders(cfg, logger),
		composer:  compose.NewComposer(cfg, logger),
		estimator: cost.NewEstimator(cfg, logger),
		notifier:  notifications.NewService(cfg),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run resumes the pipeline at its persisted stage and drives it to COMPLETE.
// It returns the movie path, or "" when a dry run or a declined estimate
// stops the run at the cost gate.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (string, error) {
	st, err := o.store.LoadOrCreate()
	if err != nil {
		return "", err
	}
	ctx = services.WithRunID(ctx, st.ID)
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("pipeline run",
		logging.String(logging.FieldEventType, "pipeline_run"),
		logging.String(logging.FieldStage, string(st.CurrentStage)),
		logging.Bool("dry_run", opts.DryRun),
	)

	var (
		extracted *goals.ExtractedGoals
		spec      *scenes.MindMovieSpec
	)

	if st.CurrentStage == state.StageQuestionnaire {
		if extracted, err = o.questionnaireStage(ctx); err != nil {
			return "", o.fail(ctx, err)
		}
		if st, err = o.store.LoadOrCreate(); err != nil {
			return "", err
		}
	}

	if st.CurrentStage == state.StageSceneGeneration {
		if spec, err = o.sceneStage(ctx, extracted); err != nil {
			return "", o.fail(ctx, err)
		}
		proceed, err := o.costGate(ctx, spec, opts.DryRun)
		if err != nil {
			return "", o.fail(ctx, err)
		}
		if !proceed {
			return "", nil
		}
		if st, err = o.store.LoadOrCreate(); err != nil {
			return "", err
		}
	}

	if st.CurrentStage == state.StageVideoGeneration {
		if spec, err = o.loadSpec(spec); err != nil {
			return "", err
		}
		if opts.DryRun {
			o.showPendingEstimate(ctx, spec, st)
			return "", nil
		}
		if _, err = o.videoStage(ctx, spec); err != nil {
			return "", o.fail(ctx, err)
		}
		if st, err = o.store.LoadOrCreate(); err != nil {
			return "", err
		}
	}

	if st.CurrentStage == state.StageComposition {
		if opts.DryRun {
			o.ui.ShowMessage("All clips are generated. Run 'mindmovie compile' to assemble the movie.")
			return "", nil
		}
		if spec, err = o.loadSpec(spec); err != nil {
			return "", err
		}
		path, err := o.compositionStage(ctx, spec, st, opts.OutputPath, opts.MusicPath)
		if err != nil {
			return "", o.fail(ctx, err)
		}
		return path, nil
	}

	if st.CurrentStage == state.StageComplete {
		logger.Info("pipeline already complete", logging.String("output_path", st.OutputPath))
		return st.OutputPath, nil
	}
	return "", nil
}

func (o *Orchestrator) questionnaireStage(ctx context.Context) (*goals.ExtractedGoals, error) {
	const stage = state.StageQuestionnaire
	ctx = services.WithStage(ctx, string(stage))
	if err := o.requireLLM(stage); err != nil {
		return nil, err
	}
	client, err := o.providers.Text(ctx)
	if err != nil {
		return nil, stageError(stage, fmt.Sprintf("Could not start the interview: %v", err), "", err)
	}
	defer closeClient(client)

	engine := questionnaire.NewEngine(client, o.ui.ReadLine, o.ui.ShowMessage, o.logger)
	extracted, err := engine.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, interrupted(stage, "Run 'mindmovie generate' to start the interview again.", ctx.Err())
		}
		return nil, stageError(stage, fmt.Sprintf("Questionnaire failed: %v", err), "Run 'mindmovie generate' to try again.", err)
	}
	if _, err := o.store.CompleteQuestionnaire(extracted); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, o.logger).Info("questionnaire complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("title", extracted.Title),
		logging.Int("active_categories", extracted.CategoryCount()),
	)
	return extracted, nil
}

func (o *Orchestrator) sceneStage(ctx context.Context, extracted *goals.ExtractedGoals) (*scenes.MindMovieSpec, error) {
	const stage = state.StageSceneGeneration
	ctx = services.WithStage(ctx, string(stage))
	if err := o.requireLLM(stage); err != nil {
		return nil, err
	}
	if extracted == nil {
		loaded, err := o.store.LoadGoals()
		if err != nil {
			return nil, stageError(stage, fmt.Sprintf("Could not load goals: %v", err), "Run 'mindmovie clean' and start over.", err)
		}
		extracted = loaded
	}
	client, err := o.providers.Text(ctx)
	if err != nil {
		return nil, stageError(stage, fmt.Sprintf("Could not start scene generation: %v", err), "", err)
	}
	defer closeClient(client)

	o.ui.ShowMessage("Generating scenes from your vision...")
	spec, err := scenes.NewGenerator(client, o.cfg.Movie.NumScenes, o.logger).Generate(ctx, extracted)
	if err != nil {
		if ctx.Err() != nil {
			return nil, interrupted(stage, "Run 'mindmovie generate' to resume.", ctx.Err())
		}
		return nil, stageError(stage, fmt.Sprintf("Scene generation failed: %v", err), "Run 'mindmovie generate' to retry.", err)
	}
	if _, err := o.store.CompleteSceneGeneration(spec); err != nil {
		return nil, err
	}
	o.warnOnNotifyError(ctx, "scenes ready", o.notifier.NotifyScenesReady(ctx, spec.Title, len(spec.Scenes)))
	return spec, nil
}

// costGate records the estimate and asks the UI to accept it. A dry run
// shows the estimate and stops without asking.
func (o *Orchestrator) costGate(ctx context.Context, spec *scenes.MindMovieSpec, dryRun bool) (bool, error) {
	estimate := o.estimator.Estimate(spec)
	if _, err := o.store.SetEstimatedCost(estimate.TotalCost()); err != nil {
		return false, err
	}
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("cost estimated",
		logging.String(logging.FieldEventType, "cost_estimated"),
		logging.Int("scenes", estimate.NumScenes),
		logging.Float64("estimated_cost_usd", estimate.TotalCost()),
	)
	if dryRun {
		o.ui.ShowMessage(estimate.FormatSummary())
		return false, nil
	}
	ok, err := o.ui.ConfirmCost(ctx, estimate)
	if err != nil {
		if ctx.Err() != nil {
			return false, interrupted(state.StageVideoGeneration, "Run 'mindmovie generate' to resume.", ctx.Err())
		}
		return false, err
	}
	if !ok {
		logger.Info("cost estimate declined")
		o.ui.ShowMessage("Video generation skipped. Run 'mindmovie generate' or 'mindmovie render' when you are ready.")
	}
	return ok, nil
}

// showPendingEstimate prices the clips a resumed run would still generate.
func (o *Orchestrator) showPendingEstimate(ctx context.Context, spec *scenes.MindMovieSpec, st *state.PipelineState) {
	pending := outstanding(st)
	estimate := o.estimator.EstimatePending(spec, pending)
	logging.WithContext(ctx, o.logger).Info("dry run stopped before video generation",
		logging.String(logging.FieldEventType, "dry_run"),
		logging.Int("pending_clips", len(pending)),
		logging.Float64("estimated_cost_usd", estimate.TotalCost()),
	)
	o.ui.ShowMessage(fmt.Sprintf("%d of %d clips still to generate.\n%s", len(pending), len(spec.Scenes), estimate.FormatSummary()))
}

func (o *Orchestrator) videoStage(ctx context.Context, spec *scenes.MindMovieSpec) (assets.Summary, error) {
	const stage = state.StageVideoGeneration
	ctx = services.WithStage(ctx, string(stage))
	if err := o.requireVideo(stage); err != nil {
		return assets.Summary{}, err
	}
	client, err := o.providers.Video(ctx)
	if err != nil {
		return assets.Summary{}, stageError(stage, fmt.Sprintf("Could not start video generation: %v", err), "", err)
	}
	defer closeClient(client)

	st, err := o.store.LoadOrCreate()
	if err != nil {
		return assets.Summary{}, err
	}
	o.ui.VideosStarting(len(outstanding(st)), len(spec.Scenes))

	var genOpts []assets.Option
	if o.ledger != nil {
		genOpts = append(genOpts, assets.WithLedger(o.ledger))
	}
	generator := assets.NewGenerator(client, o.store, o.cfg, o.logger, genOpts...)
	summary, err := generator.GenerateAll(ctx, spec, o.ui.SceneFinished)
	if err != nil {
		if ctx.Err() != nil {
			return summary, interrupted(stage, "Run 'mindmovie render' to resume.", ctx.Err())
		}
		return summary, stageError(stage, fmt.Sprintf("Video generation failed: %v", err), "Run 'mindmovie render' to retry.", err)
	}
	if summary.Total() > 0 {
		o.warnOnNotifyError(ctx, "videos complete",
			o.notifier.NotifyVideosComplete(ctx, len(summary.Succeeded()), len(summary.Failed())))
	}
	if failed := len(summary.Failed()); failed > 0 {
		return summary, stageError(stage,
			fmt.Sprintf("%d scene(s) failed video generation.", failed),
			"Run 'mindmovie render' to retry.", nil)
	}
	return summary, nil
}

func (o *Orchestrator) compositionStage(ctx context.Context, spec *scenes.MindMovieSpec, st *state.PipelineState, outputPath, musicPath string) (string, error) {
	const stage = state.StageComposition
	ctx = services.WithStage(ctx, string(stage))
	if strings.TrimSpace(outputPath) == "" {
		outputPath = o.cfg.Build.OutputPath
	}
	if strings.TrimSpace(musicPath) == "" {
		musicPath = o.cfg.MusicPath()
	}

	o.ui.ShowMessage("Composing final video...")
	path, err := o.composer.Compose(ctx, compose.Request{
		Spec:       spec,
		State:      st,
		OutputPath: outputPath,
		MusicPath:  musicPath,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", interrupted(stage, "Run 'mindmovie compile' to resume.", ctx.Err())
		}
		hint := ""
		if !strings.Contains(err.Error(), "Run 'mindmovie") {
			hint = "Run 'mindmovie compile' to retry."
		}
		return "", stageError(stage, err.Error(), hint, err)
	}
	st, err = o.store.CompleteComposition(path, musicPath)
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, o.logger).Info("mind movie complete",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.String("output_path", path),
		logging.Float64("actual_cost_usd", st.ActualCost),
	)
	o.warnOnNotifyError(ctx, "movie complete", o.notifier.NotifyMovieComplete(ctx, spec.Title, path))
	o.publishMovie(ctx, st.ID, path)
	return path, nil
}

func (o *Orchestrator) publishMovie(ctx context.Context, runID, path string) {
	if o.publisher == nil || !o.publisher.Enabled() {
		return
	}
	res, err := o.publisher.Publish(ctx, runID, path)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "movie publish failed", "publish_failed",
			logging.String(logging.FieldErrorHint, "check the [publish] settings"),
			logging.String(logging.FieldImpact, "movie kept locally only"),
			logging.Error(err),
		)
		return
	}
	o.ui.ShowMessage(fmt.Sprintf("Published: %s (link expires %s)", res.URL, res.ExpiresAt.Format(time.RFC1123)))
}

// loadSpec returns spec, or the persisted one when this invocation did not
// generate it.
func (o *Orchestrator) loadSpec(spec *scenes.MindMovieSpec) (*scenes.MindMovieSpec, error) {
	if spec != nil {
		return spec, nil
	}
	loaded, err := o.store.LoadScenes()
	if err != nil {
		return nil, stageError(state.StageVideoGeneration,
			fmt.Sprintf("Could not load scenes: %v", err), "Run 'mindmovie clean' and start over.", err)
	}
	return loaded, nil
}

func (o *Orchestrator) requireLLM(stage state.Stage) error {
	key, env := o.cfg.LLMAPIKey()
	return requireKey(stage, key, env, o.cfg.LLM.Provider)
}

func (o *Orchestrator) requireVideo(stage state.Stage) error {
	key, env := o.cfg.VideoAPIKey()
	return requireKey(stage, key, env, o.cfg.Video.Provider)
}

func requireKey(stage state.Stage, key, env, provider string) error {
	if strings.TrimSpace(key) != "" {
		return nil
	}
	msg := fmt.Sprintf("%s is not set", env)
	return stageError(stage,
		fmt.Sprintf("Cannot run %s: %s (provider %s).", stageLabel(stage), msg, provider),
		"Set it in the environment or .env file, then re-run the command.",
		services.Wrap(services.ErrConfiguration, string(stage), "credentials", msg, nil))
}

// fail reports a terminal stage failure. Interrupts are not notified.
func (o *Orchestrator) fail(ctx context.Context, err error) error {
	var perr *PipelineError
	if !errors.As(err, &perr) || perr.Interrupted() {
		return err
	}
	logging.ErrorWithContext(logging.WithContext(ctx, o.logger), "pipeline stage failed", "stage_failed",
		logging.String(logging.FieldStage, string(perr.Stage)),
		logging.String(logging.FieldErrorHint, perr.Hint),
		logging.Error(err),
	)
	o.warnOnNotifyError(ctx, "error", o.notifier.NotifyError(ctx, err, stageLabel(perr.Stage)))
	return err
}

func (o *Orchestrator) warnOnNotifyError(ctx context.Context, kind string, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, o.logger), "notification failed", "notification_failed",
		logging.String("notification", kind),
		logging.String(logging.FieldImpact, "pipeline continues without the notification"),
		logging.Error(err),
	)
}

// outstanding lists scenes whose clip is not complete.
func outstanding(st *state.PipelineState) []int {
	var out []int
	for _, asset := range st.SceneAssets {
		if asset.VideoStatus != state.AssetComplete {
			out = append(out, asset.SceneIndex)
		}
	}
	return out
}

type nopUI struct{}

func (nopUI) ReadLine(context.Context) (string, error)                  { return "", io.EOF }
func (nopUI) ShowMessage(string)                                        {}
func (nopUI) ConfirmCost(context.Context, cost.Breakdown) (bool, error) { return false, nil }
func (nopUI) VideosStarting(int, int)                                   {}
func (nopUI) SceneFinished(assets.Result)                               {}
