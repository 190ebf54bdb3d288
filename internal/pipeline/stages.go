package pipeline

import (
	"context"
	"fmt"

	"mindmovie/internal/assets"
	"mindmovie/internal/cost"
	"mindmovie/internal/goals"
	"mindmovie/internal/scenes"
	"mindmovie/internal/services"
	"mindmovie/internal/state"
)

// RunQuestionnaire runs only the interview stage.
func (o *Orchestrator) RunQuestionnaire(ctx context.Context) (*goals.ExtractedGoals, error) {
	st, err := o.store.LoadOrCreate()
	if err != nil {
		return nil, err
	}
	if st.CurrentStage != state.StageQuestionnaire {
		return nil, stageError(st.CurrentStage, "Questionnaire already complete.",
			"Run 'mindmovie generate' to continue, or 'mindmovie clean' to start over.", nil)
	}
	ctx = services.WithRunID(ctx, st.ID)
	extracted, err := o.questionnaireStage(ctx)
	if err != nil {
		return nil, o.fail(ctx, err)
	}
	return extracted, nil
}

// RenderPlan describes the clips a render would attempt.
type RenderPlan struct {
	Spec     *scenes.MindMovieSpec
	Pending  []int
	Estimate cost.Breakdown
}

// PlanRender checks that the pipeline is at VIDEO_GENERATION and prices the
// clips that are not yet complete. It returns ErrNothingToRender once every
// clip exists.
func (o *Orchestrator) PlanRender() (RenderPlan, error) {
	st, spec, err := o.videoPrerequisites()
	if err != nil {
		return RenderPlan{}, err
	}
	pending := outstanding(st)
	return RenderPlan{
		Spec:     spec,
		Pending:  pending,
		Estimate: o.estimator.EstimatePending(spec, pending),
	}, nil
}

// Render generates every pending or failed clip. A partial failure returns
// the summary along with a *PipelineError.
func (o *Orchestrator) Render(ctx context.Context) (assets.Summary, error) {
	st, spec, err := o.videoPrerequisites()
	if err != nil {
		return assets.Summary{}, err
	}
	ctx = services.WithRunID(ctx, st.ID)
	summary, err := o.videoStage(ctx, spec)
	if err != nil {
		return summary, o.fail(ctx, err)
	}
	return summary, nil
}

func (o *Orchestrator) videoPrerequisites() (*state.PipelineState, *scenes.MindMovieSpec, error) {
	st, err := o.store.LoadOrCreate()
	if err != nil {
		return nil, nil, err
	}
	switch st.CurrentStage {
	case state.StageQuestionnaire:
		return nil, nil, stageError(st.CurrentStage, "Questionnaire not complete.",
			"Run 'mindmovie questionnaire' first.", nil)
	case state.StageSceneGeneration:
		return nil, nil, stageError(st.CurrentStage, "Scene generation not complete.",
			"Run 'mindmovie generate' to complete scene generation first.", nil)
	case state.StageComposition, state.StageComplete:
		return nil, nil, ErrNothingToRender
	}
	spec, err := o.loadSpec(nil)
	if err != nil {
		return nil, nil, err
	}
	return st, spec, nil
}

// Compile composes the movie from the generated clips. A pipeline still at
// VIDEO_GENERATION advances when every clip is complete; a finished pipeline
// is composed again.
func (o *Orchestrator) Compile(ctx context.Context, outputPath, musicPath string) (string, error) {
	st, err := o.store.LoadOrCreate()
	if err != nil {
		return "", err
	}
	switch st.CurrentStage {
	case state.StageQuestionnaire, state.StageSceneGeneration:
		return "", stageError(st.CurrentStage, "Videos have not been generated yet.",
			"Run 'mindmovie generate' first.", nil)
	case state.StageVideoGeneration:
		if !st.AllVideosComplete() {
			return "", stageError(st.CurrentStage,
				fmt.Sprintf("%d video(s) still pending.", len(outstanding(st))),
				"Run 'mindmovie render' to complete them.", nil)
		}
		if st, err = o.store.AdvanceStage(state.StageComposition); err != nil {
			return "", err
		}
	}
	spec, err := o.loadSpec(nil)
	if err != nil {
		return "", err
	}
	ctx = services.WithRunID(ctx, st.ID)
	path, err := o.compositionStage(ctx, spec, st, outputPath, musicPath)
	if err != nil {
		return "", o.fail(ctx, err)
	}
	return path, nil
}
