// Package preflight provides readiness checks for the credentials, binaries
// and filesystem paths mindmovie depends on.
//
// `mindmovie config --check` runs RunAll and renders one row per Result. The
// pipeline itself does not call RunAll: each stage verifies the credential it
// needs right before it starts, so a missing video key never blocks the
// questionnaire.
//
// Checks that need the network (LLM reachability) can be skipped with
// Options.SkipNetwork.
package preflight
