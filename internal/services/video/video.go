package video

import (
	"context"
	"errors"
)

// ErrGenerationFailed marks an application-level failure reported by the
// provider (rejected, cancelled, or no output). These are never retried.
var ErrGenerationFailed = errors.New("video generation failed")

// ErrNotVideo means downloaded content is not a recognizable video container.
var ErrNotVideo = errors.New("downloaded content is not a video")

// Request describes one clip to generate.
type Request struct {
	Prompt          string
	OutputPath      string
	DurationSeconds int
	Resolution      string
	AspectRatio     string
	NegativePrompt  string
}

// Generator produces a clip file for a prompt. Generate returns the path it
// wrote, which is Request.OutputPath.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	EstimateCost(durationSeconds int) float64
}
