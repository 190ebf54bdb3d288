package testsupport

import (
	"fmt"
	"testing"

	"mindmovie/internal/goals"
	"mindmovie/internal/scenes"
)

// SampleGoals returns valid goals with four active and two skipped categories.
func SampleGoals() *goals.ExtractedGoals {
	active := func(c goals.LifeCategory, vision string) goals.CategoryGoal {
		return goals.CategoryGoal{
			Category:      c,
			Vision:        vision,
			VisualDetails: "bright open spaces, morning light",
			Actions:       "moving with purpose",
			Emotions:      "grateful and calm",
		}
	}
	return &goals.ExtractedGoals{
		Title: "My Best Life",
		Categories: []goals.CategoryGoal{
			active(goals.Health, "Running a marathon with ease"),
			active(goals.Wealth, "Owning a home by the sea"),
			active(goals.Career, "Leading a research team"),
			{Category: goals.Relationships, Skipped: true},
			active(goals.Growth, "Speaking fluent Spanish"),
			{Category: goals.Lifestyle, Skipped: true},
		},
		ConversationID: "conv-test",
	}
}

// SampleSceneMaps returns n structured-output scene entries that validate.
func SampleSceneMaps(n int) []any {
	categories := []goals.LifeCategory{goals.Health, goals.Wealth, goals.Career, goals.Growth}
	out := make([]any, 0, n)
	for i := range n {
		out = append(out, map[string]any{
			"index":       i,
			"name":        fmt.Sprintf("scene_number_%02d", i),
			"category":    string(categories[i%len(categories)]),
			"affirmation": "I am living my dream every day",
			"video_prompt": "A confident woman jogs along a coastal path at sunrise, " +
				"tracking shot, golden hour light, cinematic shallow depth of field.",
			"mood": string(scenes.Moods[i%len(scenes.Moods)]),
		})
	}
	return out
}

// SampleSpecMap returns a structured-output document with n scenes.
func SampleSpecMap(n int) map[string]any {
	return map[string]any{
		"title":               "My Best Life",
		"scenes":              SampleSceneMaps(n),
		"music_mood":          "uplifting ambient piano",
		"closing_affirmation": "I am grateful for everything",
	}
}

// SampleSpec returns a validated spec with n scenes.
func SampleSpec(t testing.TB, n int) *scenes.MindMovieSpec {
	t.Helper()
	spec, err := scenes.FromMap(SampleSpecMap(n))
	if err != nil {
		t.Fatalf("sample spec: %v", err)
	}
	return spec
}
