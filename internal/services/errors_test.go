package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"mindmovie/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "composition", "ffmpeg", "encode failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"composition", "ffmpeg", "encode failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err)
	}
}

func TestDetailsStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrConfiguration, "video_generation", "credentials", "GEMINI_API_KEY is not set", nil)
	details := services.Details(fmt.Errorf("run: %w", err))
	if details.Marker != services.ErrConfiguration {
		t.Fatalf("unexpected marker: %v", details.Marker)
	}
	if !strings.Contains(details.Message, "GEMINI_API_KEY is not set") {
		t.Fatalf("unexpected message: %q", details.Message)
	}

	plain := services.Details(errors.New("plain"))
	if plain.Marker != nil || plain.Message != "plain" {
		t.Fatalf("unexpected plain details: %+v", plain)
	}
}

func TestExitCodeMapping(t *testing.T) {
	if code := services.ExitCode(nil); code != 0 {
		t.Fatalf("expected 0 for nil, got %d", code)
	}
	cfgErr := services.Wrap(services.ErrConfiguration, "scene_generation", "credentials", "missing key", nil)
	if code := services.ExitCode(cfgErr); code != 2 {
		t.Fatalf("expected 2 for configuration error, got %d", code)
	}
	if code := services.ExitCode(errors.New("boom")); code != 1 {
		t.Fatalf("expected 1 for generic error, got %d", code)
	}
}
