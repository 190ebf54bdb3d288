package state

import (
	"fmt"

	"mindmovie/internal/goals"
	"mindmovie/internal/scenes"
)

// CompleteQuestionnaire saves goals and advances to SCENE_GENERATION. The
// state file is written last, so an interrupted call leaves the previous
// checkpoint visible.
func (s *Store) CompleteQuestionnaire(g *goals.ExtractedGoals) (*PipelineState, error) {
	path, err := s.SaveGoals(g)
	if err != nil {
		return nil, err
	}
	return s.mutate(func(st *PipelineState) error {
		st.GoalsPath = path
		st.CurrentStage = StageSceneGeneration
		return nil
	})
}

// CompleteSceneGeneration saves the spec, creates one PENDING asset per scene
// in index order, and advances to VIDEO_GENERATION.
func (s *Store) CompleteSceneGeneration(spec *scenes.MindMovieSpec) (*PipelineState, error) {
	path, err := s.SaveScenes(spec)
	if err != nil {
		return nil, err
	}
	return s.mutate(func(st *PipelineState) error {
		st.ScenesPath = path
		assets := make([]SceneAsset, 0, len(spec.Scenes))
		for _, scene := range spec.Scenes {
			assets = append(assets, SceneAsset{SceneIndex: scene.Index, VideoStatus: AssetPending})
		}
		st.SceneAssets = assets
		st.CurrentStage = StageVideoGeneration
		return nil
	})
}

// VideoUpdate carries the optional fields of a status change.
type VideoUpdate struct {
	VideoPath    string
	ErrorMessage string
}

// UpdateVideoStatus applies a status transition to one scene asset.
// Completing an asset clears any earlier error message.
func (s *Store) UpdateVideoStatus(sceneIndex int, status AssetStatus, update VideoUpdate) (*PipelineState, error) {
	return s.mutate(func(st *PipelineState) error {
		asset, ok := st.Asset(sceneIndex)
		if !ok {
			return fmt.Errorf("%w: scene index %d", ErrNoSuchAsset, sceneIndex)
		}
		asset.VideoStatus = status
		if update.VideoPath != "" {
			asset.VideoPath = update.VideoPath
		}
		if update.ErrorMessage != "" {
			asset.ErrorMessage = update.ErrorMessage
		}
		if status == AssetComplete {
			asset.ErrorMessage = ""
		}
		return nil
	})
}

// AdvanceStage overwrites the current stage.
func (s *Store) AdvanceStage(stage Stage) (*PipelineState, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("advance stage: unknown stage %q", stage)
	}
	return s.mutate(func(st *PipelineState) error {
		st.CurrentStage = stage
		return nil
	})
}

// SetEstimatedCost records the cost shown at the confirmation gate.
func (s *Store) SetEstimatedCost(cost float64) (*PipelineState, error) {
	return s.mutate(func(st *PipelineState) error {
		st.EstimatedCost = max(cost, 0)
		return nil
	})
}

// AddActualCost adds billed spend for a completed clip.
func (s *Store) AddActualCost(delta float64) (*PipelineState, error) {
	return s.mutate(func(st *PipelineState) error {
		if delta > 0 {
			st.ActualCost += delta
		}
		return nil
	})
}

// CompleteComposition records the final movie and marks the run COMPLETE.
func (s *Store) CompleteComposition(outputPath, musicPath string) (*PipelineState, error) {
	return s.mutate(func(st *PipelineState) error {
		st.OutputPath = outputPath
		if musicPath != "" {
			st.MusicPath = musicPath
		}
		st.CurrentStage = StageComplete
		return nil
	})
}
