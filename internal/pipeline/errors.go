package pipeline

import (
	"errors"
	"strings"

	"mindmovie/internal/state"
)

// ErrNothingToRender is returned by Render when every clip already exists.
var ErrNothingToRender = errors.New("all videos already generated")

// PipelineError is a terminal, user-facing failure of one stage.
type PipelineError struct {
	Stage  state.Stage
	Reason string
	Hint   string
	Err    error
}

func (e *PipelineError) Error() string {
	if e.Hint == "" {
		return e.Reason
	}
	return strings.TrimRight(e.Reason, ".") + ". " + e.Hint
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Interrupted reports whether the stage stopped because its context ended.
func (e *PipelineError) Interrupted() bool {
	return errors.Is(e.Err, errContextEnded)
}

var errContextEnded = errors.New("interrupted")

func stageError(stage state.Stage, reason, hint string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Reason: reason, Hint: hint, Err: err}
}

func interrupted(stage state.Stage, hint string, cause error) *PipelineError {
	return &PipelineError{
		Stage:  stage,
		Reason: "Pipeline interrupted during " + stageLabel(stage) + ".",
		Hint:   hint,
		Err:    errors.Join(errContextEnded, cause),
	}
}

func stageLabel(stage state.Stage) string {
	return strings.ReplaceAll(string(stage), "_", " ")
}
