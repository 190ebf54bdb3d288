// Package pipeline drives a mind movie from interview to finished file.
//
// The Orchestrator is a resumable state machine over the stages persisted by
// state.Store: questionnaire, scene generation, video generation, composition
// and complete. Each run resumes at the stored stage, checks only the
// credentials the next stage needs, and commits every transition before the
// following stage starts. Between scene and video generation a cost gate
// shows the estimate and waits for the UI to accept it.
//
// Terminal failures are returned as *PipelineError values naming the stage,
// the cause and the command that resumes the work.
package pipeline
