package testsupport

import (
	"testing"

	"mindmovie/internal/config"
	"mindmovie/internal/state"
)

// MustOpenStore opens a state.Store in the config's build directory.
func MustOpenStore(t testing.TB, cfg *config.Config) *state.Store {
	t.Helper()

	store, err := state.Open(cfg.Build.BuildDir)
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	return store
}

// StoreAtVideoGeneration advances a fresh store through the questionnaire
// and scene stages with an n-scene sample spec.
func StoreAtVideoGeneration(t testing.TB, cfg *config.Config, n int) *state.Store {
	t.Helper()

	store := MustOpenStore(t, cfg)
	if _, err := store.CompleteQuestionnaire(SampleGoals()); err != nil {
		t.Fatalf("CompleteQuestionnaire: %v", err)
	}
	if _, err := store.CompleteSceneGeneration(SampleSpec(t, n)); err != nil {
		t.Fatalf("CompleteSceneGeneration: %v", err)
	}
	return store
}
