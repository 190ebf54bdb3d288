package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mindmovie/internal/pipeline"
	"mindmovie/internal/state"
	"mindmovie/internal/testsupport"
)

func TestRunQuestionnaireOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, nil)

	extracted, err := h.orchestrator().RunQuestionnaire(context.Background())
	if err != nil {
		t.Fatalf("RunQuestionnaire: %v", err)
	}
	if extracted.Title != testsupport.SampleGoals().Title {
		t.Fatalf("title = %q", extracted.Title)
	}
	if st := h.state(t); st.CurrentStage != state.StageSceneGeneration {
		t.Fatalf("stage = %s, want scene_generation", st.CurrentStage)
	}
	if h.text.StructuredCalls() != 0 {
		t.Fatalf("questionnaire ran scene generation")
	}

	_, err = h.orchestrator().RunQuestionnaire(context.Background())
	if err == nil || !strings.Contains(err.Error(), "Questionnaire already complete") {
		t.Fatalf("expected already-complete error, got %v", err)
	}
}

func TestPlanRenderStageChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	h := newHarness(t, cfg, store)
	o := h.orchestrator()

	if _, err := o.PlanRender(); err == nil || !strings.Contains(err.Error(), "Run 'mindmovie questionnaire' first.") {
		t.Fatalf("questionnaire stage: %v", err)
	}
	if _, err := store.CompleteQuestionnaire(testsupport.SampleGoals()); err != nil {
		t.Fatal(err)
	}
	if _, err := o.PlanRender(); err == nil || !strings.Contains(err.Error(), "Scene generation not complete") {
		t.Fatalf("scene stage: %v", err)
	}
	if _, err := store.CompleteSceneGeneration(testsupport.SampleSpec(t, 12)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpdateVideoStatus(4, state.AssetComplete, state.VideoUpdate{VideoPath: store.VideoPath(4)}); err != nil {
		t.Fatal(err)
	}

	plan, err := o.PlanRender()
	if err != nil {
		t.Fatalf("PlanRender: %v", err)
	}
	if len(plan.Pending) != 11 || plan.Estimate.NumScenes != 11 {
		t.Fatalf("plan = %d pending, %d priced", len(plan.Pending), plan.Estimate.NumScenes)
	}
	if plan.Estimate.LLMCost != 0 {
		t.Fatalf("render estimate includes LLM cost")
	}

	if _, err := store.AdvanceStage(state.StageComposition); err != nil {
		t.Fatal(err)
	}
	if _, err := o.PlanRender(); !errors.Is(err, pipeline.ErrNothingToRender) {
		t.Fatalf("expected ErrNothingToRender, got %v", err)
	}
}

func TestRenderAdvancesWhenAllSucceed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.StoreAtVideoGeneration(t, cfg, 12)
	h := newHarness(t, cfg, store)

	summary, err := h.orchestrator().Render(context.Background())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if summary.Total() != 12 || !summary.AllSucceeded() {
		t.Fatalf("summary = %d results, all ok %v", summary.Total(), summary.AllSucceeded())
	}
	if st := h.state(t); st.CurrentStage != state.StageComposition {
		t.Fatalf("stage = %s, want composition", st.CurrentStage)
	}
	if len(h.composer.Requests()) != 0 {
		t.Fatalf("render composed the movie")
	}
}

func TestCompileRequiresCompleteVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.StoreAtVideoGeneration(t, cfg, 12)
	h := newHarness(t, cfg, store)

	_, err := h.orchestrator().Compile(context.Background(), "", "")
	if err == nil || err.Error() != "12 video(s) still pending. Run 'mindmovie render' to complete them." {
		t.Fatalf("unexpected error: %v", err)
	}

	completeAllVideos(t, store)
	got, err := h.orchestrator().Compile(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got != cfg.Build.OutputPath {
		t.Fatalf("output = %q", got)
	}
	if st := h.state(t); st.CurrentStage != state.StageComplete || st.OutputPath != got {
		t.Fatalf("state after compile: %s %q", st.CurrentStage, st.OutputPath)
	}

	// A finished movie can be compiled again.
	if _, err := h.orchestrator().Compile(context.Background(), "", ""); err != nil {
		t.Fatalf("re-compile: %v", err)
	}
	if len(h.composer.Requests()) != 2 {
		t.Fatalf("compose requests = %d, want 2", len(h.composer.Requests()))
	}
}

func TestCompileBeforeVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, nil)

	_, err := h.orchestrator().Compile(context.Background(), "", "")
	var perr *pipeline.PipelineError
	if !errors.As(err, &perr) || perr.Stage != state.StageQuestionnaire {
		t.Fatalf("expected questionnaire-stage error, got %v", err)
	}
}
