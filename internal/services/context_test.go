package services_test

import (
	"context"
	"testing"

	"mindmovie/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-42")
	ctx = services.WithStage(ctx, "video_generation")
	ctx = services.WithSceneIndex(ctx, 0)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-42" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "video_generation" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if idx, ok := services.SceneIndexFromContext(ctx); !ok || idx != 0 {
		t.Fatalf("unexpected scene index: %v %v", idx, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.SceneIndexFromContext(ctx); ok {
		t.Fatal("expected no scene index value")
	}
}
