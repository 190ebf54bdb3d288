package scenes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mindmovie/internal/goals"
	"mindmovie/internal/logging"
	"mindmovie/internal/services/llm"
)

// StructuredGenerator produces a JSON document constrained by a schema.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, messages []llm.Message, schema llm.Schema, systemPrompt string) (map[string]any, error)
}

// Generator turns extracted goals into a MindMovieSpec with one
// structured-output call.
type Generator struct {
	client    StructuredGenerator
	numScenes int
	logger    *slog.Logger
}

// NewGenerator builds a generator. numScenes is clamped to 10-15.
func NewGenerator(client StructuredGenerator, numScenes int, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		client:    client,
		numScenes: ClampSceneCount(numScenes),
		logger:    logging.NewComponentLogger(logger, "scenes"),
	}
}

// ClampSceneCount bounds n to the allowed scene range.
func ClampSceneCount(n int) int {
	return max(MinScenes, min(MaxScenes, n))
}

// NumScenes returns the clamped target scene count.
func (g *Generator) NumScenes() int { return g.numScenes }

// Generate requests and validates a scene spec. Schema violations are not
// retried here.
func (g *Generator) Generate(ctx context.Context, extracted *goals.ExtractedGoals) (*MindMovieSpec, error) {
	if extracted == nil {
		return nil, fmt.Errorf("generate scenes: goals required")
	}
	logger := logging.WithContext(ctx, g.logger)
	logger.Info("generating scenes",
		logging.Int("target_scenes", g.numScenes),
		logging.Int("active_categories", extracted.CategoryCount()),
	)

	raw, err := g.client.GenerateStructured(ctx,
		[]llm.Message{llm.UserMessage(BuildUserMessage(extracted, g.numScenes))},
		llm.Schema{Name: SchemaName, JSON: JSONSchema()},
		GenerationPrompt,
	)
	if err != nil {
		return nil, fmt.Errorf("generate scenes: %w", err)
	}

	spec, err := FromMap(Unwrap(raw))
	if err != nil {
		return nil, err
	}
	logger.Info("scenes generated",
		logging.Int("scenes", len(spec.Scenes)),
		logging.Int("categories", len(spec.ScenesByCategory())),
		logging.String("title", spec.Title),
	)
	return spec, nil
}

// Unwrap removes a single {"output": {...}} envelope some models add around
// structured output.
func Unwrap(raw map[string]any) map[string]any {
	if len(raw) != 1 {
		return raw
	}
	if inner, ok := raw["output"].(map[string]any); ok {
		return inner
	}
	return raw
}

// BuildUserMessage formats the goals as the request body for scene generation.
func BuildUserMessage(extracted *goals.ExtractedGoals, numScenes int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", extracted.Title)
	fmt.Fprintf(&b, "Target number of scenes: %d\n", numScenes)
	if extracted.Appearance != nil {
		fmt.Fprintf(&b, "Appearance: %s\n", strings.TrimSpace(extracted.Appearance.Description))
	}
	if vision := strings.TrimSpace(extracted.InitialVision); vision != "" {
		fmt.Fprintf(&b, "Initial vision: %s\n", vision)
	}
	b.WriteString("\n")

	for _, cat := range extracted.Categories {
		status := "ACTIVE"
		if cat.Skipped {
			status = "SKIPPED"
		}
		fmt.Fprintf(&b, "## %s [%s]\n", cat.Category.Display(), status)
		if !cat.Skipped {
			fmt.Fprintf(&b, "Vision: %s\n", cat.Vision)
			fmt.Fprintf(&b, "Visual details: %s\n", cat.VisualDetails)
			fmt.Fprintf(&b, "Actions: %s\n", cat.Actions)
			fmt.Fprintf(&b, "Emotions: %s\n", cat.Emotions)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
