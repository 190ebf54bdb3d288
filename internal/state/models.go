package state

import "time"

// Stage is a pipeline phase. Stages only move forward except through Clear.
type Stage string

const (
	StageQuestionnaire   Stage = "questionnaire"
	StageSceneGeneration Stage = "scene_generation"
	StageVideoGeneration Stage = "video_generation"
	StageComposition     Stage = "composition"
	StageComplete        Stage = "complete"
)

var stageOrder = []Stage{
	StageQuestionnaire,
	StageSceneGeneration,
	StageVideoGeneration,
	StageComposition,
	StageComplete,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s.rank() >= 0
}

// AtLeast reports whether s has reached other.
func (s Stage) AtLeast(other Stage) bool {
	return s.rank() >= other.rank()
}

func (s Stage) rank() int {
	for i, known := range stageOrder {
		if s == known {
			return i
		}
	}
	return -1
}

// AssetStatus tracks one scene's clip generation.
type AssetStatus string

const (
	AssetPending    AssetStatus = "pending"
	AssetGenerating AssetStatus = "generating"
	AssetComplete   AssetStatus = "complete"
	AssetFailed     AssetStatus = "failed"
)

// Retryable reports whether a clip in this status still needs generating.
func (s AssetStatus) Retryable() bool {
	return s == AssetPending || s == AssetFailed
}

// SceneAsset is the per-scene clip tracker.
type SceneAsset struct {
	SceneIndex   int         `json:"scene_index"`
	VideoStatus  AssetStatus `json:"video_status"`
	VideoPath    string      `json:"video_path,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// PipelineState is the persisted record of one run.
type PipelineState struct {
	ID            string       `json:"id"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	CurrentStage  Stage        `json:"current_stage"`
	GoalsPath     string       `json:"goals_path,omitempty"`
	ScenesPath    string       `json:"scenes_path,omitempty"`
	MusicPath     string       `json:"music_path,omitempty"`
	OutputPath    string       `json:"output_path,omitempty"`
	SceneAssets   []SceneAsset `json:"scene_assets"`
	EstimatedCost float64      `json:"estimated_cost"`
	ActualCost    float64      `json:"actual_cost"`
}

// IsResumable reports whether the run still has work left.
func (p *PipelineState) IsResumable() bool {
	return p.CurrentStage != StageComplete
}

// PendingVideos lists scene indices whose clip is pending or failed.
func (p *PipelineState) PendingVideos() []int {
	var out []int
	for _, asset := range p.SceneAssets {
		if asset.VideoStatus.Retryable() {
			out = append(out, asset.SceneIndex)
		}
	}
	return out
}

// Asset returns the tracker for a scene index.
func (p *PipelineState) Asset(sceneIndex int) (*SceneAsset, bool) {
	for i := range p.SceneAssets {
		if p.SceneAssets[i].SceneIndex == sceneIndex {
			return &p.SceneAssets[i], true
		}
	}
	return nil, false
}

// AllVideosComplete reports whether every tracked clip is complete.
func (p *PipelineState) AllVideosComplete() bool {
	for _, asset := range p.SceneAssets {
		if asset.VideoStatus != AssetComplete {
			return false
		}
	}
	return true
}

// CountByStatus tallies assets per status.
func (p *PipelineState) CountByStatus() map[AssetStatus]int {
	out := make(map[AssetStatus]int, 4)
	for _, asset := range p.SceneAssets {
		out[asset.VideoStatus]++
	}
	return out
}
