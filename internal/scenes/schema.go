package scenes

import "mindmovie/internal/goals"

// SchemaName labels the structured-output request.
const SchemaName = "MindMovieSpec"

// JSONSchema returns the MindMovieSpec document schema sent to the model.
// A fresh map is built on every call so callers may mutate it.
func JSONSchema() map[string]any {
	categories := make([]any, 0, len(goals.Categories))
	for _, c := range goals.Categories {
		categories = append(categories, string(c))
	}
	moods := make([]any, 0, len(Moods))
	for _, m := range Moods {
		moods = append(moods, string(m))
	}

	scene := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"index": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": "Scene index (0-based)",
			},
			"name": map[string]any{
				"type":        "string",
				"minLength":   minNameLength,
				"maxLength":   maxNameLength,
				"description": "Unique descriptive scene identifier (e.g. 'coastal_sunrise_run')",
			},
			"category": map[string]any{
				"type":        "string",
				"enum":        categories,
				"description": "Life category this scene belongs to",
			},
			"affirmation": map[string]any{
				"type":        "string",
				"minLength":   minAffirmationLength,
				"maxLength":   maxAffirmationLength,
				"description": "First-person present-tense affirmation starting with 'I '",
			},
			"video_prompt": map[string]any{
				"type":        "string",
				"minLength":   minPromptLength,
				"description": "Photorealistic cinematography prompt for the video model",
			},
			"mood": map[string]any{
				"type":        "string",
				"enum":        moods,
				"description": "Emotional mood of the scene",
			},
		},
		"required": []any{"index", "name", "category", "affirmation", "video_prompt", "mood"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"minLength":   1,
				"maxLength":   maxTitleLength,
				"description": "Title displayed on the opening card",
			},
			"scenes": map[string]any{
				"type":        "array",
				"minItems":    MinScenes,
				"maxItems":    MaxScenes,
				"items":       scene,
				"description": "10-15 scenes, each with affirmation and video prompt",
			},
			"music_mood": map[string]any{
				"type":        "string",
				"description": "Overall mood for background music",
			},
			"closing_affirmation": map[string]any{
				"type":        "string",
				"description": "Final gratitude affirmation on the closing card",
			},
		},
		"required": []any{"title", "scenes", "music_mood", "closing_affirmation"},
	}
}
