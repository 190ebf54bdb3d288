package pipeline_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mindmovie/internal/assets"
	"mindmovie/internal/compose"
	"mindmovie/internal/config"
	"mindmovie/internal/cost"
	"mindmovie/internal/pipeline"
	"mindmovie/internal/publish"
	"mindmovie/internal/services"
	"mindmovie/internal/services/video"
	"mindmovie/internal/state"
	"mindmovie/internal/testsupport"
	"mindmovie/internal/testsupport/fakes"
)

type scriptedUI struct {
	mu       sync.Mutex
	lines    []string
	confirm  bool
	asked    int
	messages []string
	finished []assets.Result
	starting []int
}

func (u *scriptedUI) ReadLine(context.Context) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.lines) == 0 {
		return "", io.EOF
	}
	line := u.lines[0]
	u.lines = u.lines[1:]
	return line, nil
}

func (u *scriptedUI) ShowMessage(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.messages = append(u.messages, msg)
}

func (u *scriptedUI) ConfirmCost(context.Context, cost.Breakdown) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.asked++
	return u.confirm, nil
}

func (u *scriptedUI) VideosStarting(pending, _ int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.starting = append(u.starting, pending)
}

func (u *scriptedUI) SceneFinished(r assets.Result) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.finished = append(u.finished, r)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(event string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) NotifyScenesReady(context.Context, string, int) error {
	return n.record("scenes_ready")
}

func (n *recordingNotifier) NotifyVideosComplete(context.Context, int, int) error {
	return n.record("videos_complete")
}

func (n *recordingNotifier) NotifyMovieComplete(context.Context, string, string) error {
	return n.record("movie_complete")
}

func (n *recordingNotifier) NotifyError(_ context.Context, _ error, stage string) error {
	return n.record("error:" + stage)
}

func (n *recordingNotifier) TestNotification(context.Context) error { return n.record("test") }

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type fakePublisher struct {
	runID string
	path  string
	err   error
}

func (p *fakePublisher) Enabled() bool { return true }

func (p *fakePublisher) Publish(_ context.Context, runID, path string) (publish.Result, error) {
	p.runID, p.path = runID, path
	if p.err != nil {
		return publish.Result{}, p.err
	}
	return publish.Result{URL: "https://cdn.example/movie.mp4", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type harness struct {
	cfg      *config.Config
	store    *state.Store
	text     *fakes.Text
	video    *fakes.Video
	composer *fakes.Composer
	ui       *scriptedUI
	notifier *recordingNotifier

	textBuilds  int
	videoBuilds int
}

func newHarness(t *testing.T, cfg *config.Config, store *state.Store) *harness {
	t.Helper()
	if store == nil {
		store = testsupport.MustOpenStore(t, cfg)
	}
	return &harness{
		cfg:      cfg,
		store:    store,
		text:     fakes.NewText(12),
		video:    &fakes.Video{CostPerSecond: 0.15},
		composer: &fakes.Composer{},
		ui:       &scriptedUI{lines: []string{"I want to run a marathon"}, confirm: true},
		notifier: &recordingNotifier{},
	}
}

func (h *harness) orchestrator(opts ...pipeline.Option) *pipeline.Orchestrator {
	base := []pipeline.Option{
		pipeline.WithProviders(pipeline.Providers{
			Text: func(context.Context) (pipeline.TextGenerator, error) {
				h.textBuilds++
				return h.text, nil
			},
			Video: func(context.Context) (video.Generator, error) {
				h.videoBuilds++
				return h.video, nil
			},
		}),
		pipeline.WithComposer(h.composer),
		pipeline.WithNotifier(h.notifier),
	}
	return pipeline.New(h.cfg, h.store, h.ui, nil, append(base, opts...)...)
}

func (h *harness) state(t *testing.T) *state.PipelineState {
	t.Helper()
	st, err := h.store.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	return st
}

func completeAllVideos(t *testing.T, store *state.Store) {
	t.Helper()
	st, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	for _, asset := range st.SceneAssets {
		path := store.VideoPath(asset.SceneIndex)
		testsupport.WriteClip(t, path)
		if _, err := store.UpdateVideoStatus(asset.SceneIndex, state.AssetComplete, state.VideoUpdate{VideoPath: path}); err != nil {
			t.Fatalf("UpdateVideoStatus: %v", err)
		}
	}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, nil)

	got, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != cfg.Build.OutputPath {
		t.Fatalf("output = %q, want %q", got, cfg.Build.OutputPath)
	}
	st := h.state(t)
	if st.CurrentStage != state.StageComplete {
		t.Fatalf("stage = %s, want complete", st.CurrentStage)
	}
	if st.OutputPath != got {
		t.Fatalf("persisted output %q != returned %q", st.OutputPath, got)
	}
	if st.EstimatedCost <= 0 {
		t.Fatalf("estimated cost not recorded: %v", st.EstimatedCost)
	}
	if h.video.Calls() != 12 {
		t.Fatalf("video calls = %d, want 12", h.video.Calls())
	}
	if h.ui.asked != 1 {
		t.Fatalf("cost confirmation asked %d times", h.ui.asked)
	}
	if len(h.ui.finished) != 12 {
		t.Fatalf("progress callbacks = %d, want 12", len(h.ui.finished))
	}
	reqs := h.composer.Requests()
	if len(reqs) != 1 || len(reqs[0].Spec.Scenes) != 12 {
		t.Fatalf("unexpected compose requests: %+v", reqs)
	}
	want := []string{"scenes_ready", "videos_complete", "movie_complete"}
	if got := h.notifier.Events(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
}

func TestRunCompleteReturnsStoredOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.StoreAtVideoGeneration(t, cfg, 12)
	completeAllVideos(t, store)
	if _, err := store.CompleteComposition("/movies/done.mp4", ""); err != nil {
		t.Fatalf("CompleteComposition: %v", err)
	}
	h := newHarness(t, cfg, store)

	got, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "/movies/done.mp4" {
		t.Fatalf("output = %q", got)
	}
	if h.textBuilds+h.videoBuilds != 0 || h.text.ChatCalls() != 0 || h.video.Calls() != 0 {
		t.Fatalf("complete pipeline made external calls")
	}
	if len(h.composer.Requests()) != 0 || len(h.notifier.Events()) != 0 {
		t.Fatalf("complete pipeline composed or notified")
	}
}

func TestRunDryRunStopsBeforeVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, nil)

	got, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{DryRun: true})
	if err != nil || got != "" {
		t.Fatalf("Run = %q, %v; want empty, nil", got, err)
	}
	if h.ui.asked != 0 {
		t.Fatalf("dry run asked for confirmation")
	}
	if h.videoBuilds != 0 || h.video.Calls() != 0 {
		t.Fatalf("dry run reached video generation")
	}
	st := h.state(t)
	if st.CurrentStage != state.StageVideoGeneration {
		t.Fatalf("stage = %s, want video_generation", st.CurrentStage)
	}
	if st.EstimatedCost <= 0 {
		t.Fatalf("estimated cost not recorded")
	}
	var sawEstimate bool
	for _, msg := range h.ui.messages {
		if strings.Contains(msg, "Estimated") {
			sawEstimate = true
		}
	}
	if !sawEstimate {
		t.Fatalf("dry run did not show the estimate: %v", h.ui.messages)
	}
}

func TestRunDryRunTwiceNeverGeneratesClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, nil)

	textBuilds := 0
	for i := 0; i < 2; i++ {
		got, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{DryRun: true})
		if err != nil || got != "" {
			t.Fatalf("dry run %d = %q, %v; want empty, nil", i+1, got, err)
		}
		if i == 0 {
			textBuilds = h.textBuilds
		}
	}
	if h.ui.asked != 0 {
		t.Fatalf("dry run asked for confirmation")
	}
	if h.videoBuilds != 0 || h.video.Calls() != 0 {
		t.Fatalf("dry run generated clips: builds=%d calls=%d", h.videoBuilds, h.video.Calls())
	}
	if h.textBuilds != textBuilds {
		t.Fatalf("resumed dry run rebuilt the text provider")
	}
	if st := h.state(t); st.CurrentStage != state.StageVideoGeneration {
		t.Fatalf("stage = %s, want video_generation", st.CurrentStage)
	}
	last := h.ui.messages[len(h.ui.messages)-1]
	if !strings.Contains(last, "12 of 12 clips still to generate") || !strings.Contains(last, "Estimated") {
		t.Fatalf("resumed dry run did not show the pending estimate: %q", last)
	}
}

func TestRunDryRunAtCompositionDoesNotCompose(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.StoreAtVideoGeneration(t, cfg, 12)
	completeAllVideos(t, store)
	if _, err := store.AdvanceStage(state.StageComposition); err != nil {
		t.Fatalf("AdvanceStage: %v", err)
	}
	h := newHarness(t, cfg, store)

	got, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{DryRun: true})
	if err != nil || got != "" {
		t.Fatalf("Run = %q, %v; want empty, nil", got, err)
	}
	if len(h.composer.Requests()) != 0 || h.video.Calls() != 0 {
		t.Fatalf("dry run composed or generated clips")
	}
	if st := h.state(t); st.CurrentStage != state.StageComposition {
		t.Fatalf("stage = %s, want composition", st.CurrentStage)
	}
}

func TestRunDeclinedEstimateKeepsStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, nil)
	h.ui.confirm = false

	got, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{})
	if err != nil || got != "" {
		t.Fatalf("Run = %q, %v; want empty, nil", got, err)
	}
	if h.video.Calls() != 0 {
		t.Fatalf("declined run generated %d videos", h.video.Calls())
	}
	if st := h.state(t); st.CurrentStage != state.StageVideoGeneration {
		t.Fatalf("stage = %s, want video_generation", st.CurrentStage)
	}

	// A later run resumes at the videos without repeating the LLM stages.
	h.ui.confirm = true
	chats, structured := h.text.ChatCalls(), h.text.StructuredCalls()
	if _, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{}); err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if h.text.ChatCalls() != chats || h.text.StructuredCalls() != structured {
		t.Fatalf("resume re-ran text stages")
	}
	if h.video.Calls() != 12 {
		t.Fatalf("video calls = %d, want 12", h.video.Calls())
	}
}

func TestRunResumesFromSceneGeneration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := store.CompleteQuestionnaire(testsupport.SampleGoals()); err != nil {
		t.Fatalf("CompleteQuestionnaire: %v", err)
	}
	h := newHarness(t, cfg, store)

	if _, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.text.ChatCalls() != 0 {
		t.Fatalf("interview re-ran: %d chat calls", h.text.ChatCalls())
	}
	if h.text.StructuredCalls() != 1 {
		t.Fatalf("structured calls = %d, want 1", h.text.StructuredCalls())
	}
}

func TestRunFromVideoGenerationNeedsNoLLMCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutCredentials())
	cfg.API.GeminiAPIKey = "video-only"
	store := testsupport.StoreAtVideoGeneration(t, cfg, 12)
	if _, err := store.UpdateVideoStatus(0, state.AssetComplete, state.VideoUpdate{VideoPath: store.VideoPath(0)}); err != nil {
		t.Fatalf("UpdateVideoStatus: %v", err)
	}
	testsupport.WriteClip(t, store.VideoPath(0))
	h := newHarness(t, cfg, store)

	got, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got == "" {
		t.Fatalf("expected an output path")
	}
	if h.textBuilds != 0 {
		t.Fatalf("text provider built on resume")
	}
	if h.video.Calls() != 11 {
		t.Fatalf("video calls = %d, want 11", h.video.Calls())
	}
	if h.ui.starting[0] != 11 {
		t.Fatalf("pending reported = %d, want 11", h.ui.starting[0])
	}
}

func TestRunMissingVideoCredentialIsConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutCredentials())
	store := testsupport.StoreAtVideoGeneration(t, cfg, 12)
	h := newHarness(t, cfg, store)

	_, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{})
	var perr *pipeline.PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Stage != state.StageVideoGeneration {
		t.Fatalf("stage = %s", perr.Stage)
	}
	if !strings.Contains(err.Error(), config.EnvGeminiAPIKey) {
		t.Fatalf("error does not name the variable: %v", err)
	}
	if services.ExitCode(err) != 2 {
		t.Fatalf("exit code = %d, want 2", services.ExitCode(err))
	}
	if h.videoBuilds != 0 {
		t.Fatalf("video provider built without credentials")
	}
}

func TestRunReportsFailedScenes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.StoreAtVideoGeneration(t, cfg, 12)
	h := newHarness(t, cfg, store)
	h.video.Fail = map[int]error{3: video.ErrGenerationFailed, 7: errors.New("rejected")}

	_, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{})
	if err == nil {
		t.Fatal("expected failure")
	}
	want := "2 scene(s) failed video generation. Run 'mindmovie render' to retry."
	if err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
	if h.video.Calls() != 12 {
		t.Fatalf("siblings not attempted: %d calls", h.video.Calls())
	}
	st := h.state(t)
	if st.CurrentStage != state.StageVideoGeneration {
		t.Fatalf("stage advanced to %s", st.CurrentStage)
	}
	if len(h.composer.Requests()) != 0 {
		t.Fatalf("composed despite failures")
	}
	events := h.notifier.Events()
	if len(events) != 2 || events[0] != "videos_complete" || events[1] != "error:video generation" {
		t.Fatalf("notifications = %v", events)
	}

	// Re-running only retries the failed scenes.
	h.video.Fail = nil
	if _, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{}); err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	if h.video.Calls() != 14 {
		t.Fatalf("video calls after retry = %d, want 14", h.video.Calls())
	}
}

func TestRunCompositionErrorKeepsKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.StoreAtVideoGeneration(t, cfg, 12)
	completeAllVideos(t, store)
	if _, err := store.AdvanceStage(state.StageComposition); err != nil {
		t.Fatalf("AdvanceStage: %v", err)
	}
	h := newHarness(t, cfg, store)
	h.composer.Err = &compose.Error{Message: "Failed to encode final video", Err: errors.New("exit status 1")}

	_, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{})
	if !errors.Is(err, compose.ErrComposition) {
		t.Fatalf("expected composition error, got %v", err)
	}
	if !strings.HasSuffix(err.Error(), "Run 'mindmovie compile' to retry.") {
		t.Fatalf("missing retry hint: %q", err.Error())
	}
	if st := h.state(t); st.CurrentStage != state.StageComposition {
		t.Fatalf("stage = %s, want composition", st.CurrentStage)
	}
	if h.videoBuilds != 0 {
		t.Fatalf("video provider built during composition")
	}
}

func TestRunCompositionUsesOverridesAndPublishes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.StoreAtVideoGeneration(t, cfg, 12)
	completeAllVideos(t, store)
	if _, err := store.AdvanceStage(state.StageComposition); err != nil {
		t.Fatalf("AdvanceStage: %v", err)
	}
	h := newHarness(t, cfg, store)
	pub := &fakePublisher{}
	output := filepath.Join(testsupport.BaseDir(cfg), "custom", "out.mp4")

	got, err := h.orchestrator(pipeline.WithPublisher(pub)).Run(context.Background(), pipeline.RunOptions{
		OutputPath: output,
		MusicPath:  "/music/track.mp3",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != output {
		t.Fatalf("output = %q, want %q", got, output)
	}
	req := h.composer.Requests()[0]
	if req.MusicPath != "/music/track.mp3" || req.OutputPath != output {
		t.Fatalf("compose request = %+v", req)
	}
	st := h.state(t)
	if st.MusicPath != "/music/track.mp3" {
		t.Fatalf("music path not persisted: %q", st.MusicPath)
	}
	if pub.runID != st.ID || pub.path != output {
		t.Fatalf("publish got run %q path %q", pub.runID, pub.path)
	}
	if last := h.ui.messages[len(h.ui.messages)-1]; !strings.Contains(last, "https://cdn.example/movie.mp4") {
		t.Fatalf("publish URL not shown: %q", last)
	}
}

func TestRunPublishFailureKeepsComplete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.StoreAtVideoGeneration(t, cfg, 12)
	completeAllVideos(t, store)
	if _, err := store.AdvanceStage(state.StageComposition); err != nil {
		t.Fatalf("AdvanceStage: %v", err)
	}
	h := newHarness(t, cfg, store)

	_, err := h.orchestrator(pipeline.WithPublisher(&fakePublisher{err: errors.New("bucket gone")})).
		Run(context.Background(), pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st := h.state(t); st.CurrentStage != state.StageComplete {
		t.Fatalf("stage = %s, want complete", st.CurrentStage)
	}
}

func TestRunInterruptedDuringVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.StoreAtVideoGeneration(t, cfg, 12)
	h := newHarness(t, cfg, store)
	h.video.Delay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	_, err := h.orchestrator().Run(ctx, pipeline.RunOptions{})

	var perr *pipeline.PipelineError
	if !errors.As(err, &perr) || !perr.Interrupted() {
		t.Fatalf("expected interrupted PipelineError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain: %v", err)
	}
	if !strings.Contains(err.Error(), "mindmovie render") {
		t.Fatalf("missing resume hint: %v", err)
	}
	if len(h.notifier.Events()) != 0 {
		t.Fatalf("interrupt sent notifications: %v", h.notifier.Events())
	}
	if st := h.state(t); st.CurrentStage != state.StageVideoGeneration {
		t.Fatalf("stage = %s", st.CurrentStage)
	}
}

func TestRunQuestionnaireFailureHint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, nil)
	h.text.ChatErr = errors.New("401 unauthorized")

	_, err := h.orchestrator().Run(context.Background(), pipeline.RunOptions{})
	var perr *pipeline.PipelineError
	if !errors.As(err, &perr) || perr.Stage != state.StageQuestionnaire {
		t.Fatalf("expected questionnaire PipelineError, got %v", err)
	}
	if !strings.Contains(err.Error(), "401 unauthorized") || !strings.Contains(err.Error(), "mindmovie generate") {
		t.Fatalf("unexpected message: %v", err)
	}
	if st := h.state(t); st.CurrentStage != state.StageQuestionnaire {
		t.Fatalf("stage = %s", st.CurrentStage)
	}
}
