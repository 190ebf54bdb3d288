// Package state persists pipeline progress in the build directory.
//
// The Store is the only writer of pipeline_state.json, goals.json and
// scenes.json. Writes go through a temp file and rename so a crash never
// leaves a half-written state file, and every load-modify-save cycle holds a
// mutex so parallel clip workers each get their transition recorded. Stage
// completion methods write their artifact first and the state file last.
//
// Lock takes a gofrs/flock advisory lock on the build directory so two
// mindmovie processes cannot drive the same run.
package state
