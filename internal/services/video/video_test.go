package video

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mindmovie/internal/services"
	"mindmovie/internal/testsupport"
)

func TestPricePerSecond(t *testing.T) {
	tests := []struct {
		model string
		audio bool
		want  float64
	}{
		{"veo-3.1-fast-generate-preview", true, 0.15},
		{"veo-3.1-generate-preview", false, 0.40},
		{"veo-2.0-generate-001", true, 0.35},
		{"seedance-1-5-pro-251215", true, 0.026},
		{"seedance-1-5-pro-251215", false, 0.013},
		{"mystery-model", true, DefaultPricePerSecond},
	}
	for _, tt := range tests {
		if got := PricePerSecond(tt.model, tt.audio); got != tt.want {
			t.Fatalf("PricePerSecond(%q, %v) = %v, want %v", tt.model, tt.audio, got, tt.want)
		}
	}
	if KnownModel("mystery-model") || !KnownModel("veo-3.0-generate-001") {
		t.Fatal("unexpected KnownModel result")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"generation failed", fmt.Errorf("wrap: %w", ErrGenerationFailed), false},
		{"not video", ErrNotVideo, false},
		{"canceled", context.Canceled, false},
		{"marked transient", services.Wrap(services.ErrTransient, "video", "poll", "503", nil), true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"plain", errors.New("bad request"), false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Fatalf("%s: IsTransient = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRetrierRetriesTransientOnly(t *testing.T) {
	var delays []time.Duration
	r := NewRetrier(3)
	r.Sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return services.Wrap(services.ErrTransient, "video", "poll", "503", nil)
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
	if len(delays) != 2 || delays[0] != 4*time.Second || delays[1] != 8*time.Second {
		t.Fatalf("unexpected delays: %v", delays)
	}

	calls = 0
	err = r.Do(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("task failed: %w", ErrGenerationFailed)
	})
	if !errors.Is(err, ErrGenerationFailed) || calls != 1 {
		t.Fatalf("application failures must not retry: err=%v calls=%d", err, calls)
	}
}

func TestRetrierExhausts(t *testing.T) {
	r := NewRetrier(2)
	r.Sleep = func(context.Context, time.Duration) error { return nil }
	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return services.Wrap(services.ErrTransient, "video", "submit", "timeout", nil)
	})
	if !errors.Is(err, services.ErrTransient) || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestDownloadVerifiesVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clip.mp4":
			if r.Header.Get("x-goog-api-key") != "k" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = w.Write(testsupport.MP4Header())
		case "/page.html":
			_, _ = w.Write([]byte("<html><body>denied</body></html>"))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "scene_00.mp4")
	header := http.Header{"x-goog-api-key": []string{"k"}}
	if err := Download(context.Background(), server.Client(), server.URL+"/clip.mp4", header, dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || len(data) != len(testsupport.MP4Header()) {
		t.Fatalf("unexpected clip: %d bytes, %v", len(data), err)
	}

	bad := filepath.Join(dir, "scene_01.mp4")
	if err := Download(context.Background(), server.Client(), server.URL+"/page.html", nil, bad); !errors.Is(err, ErrNotVideo) {
		t.Fatalf("expected ErrNotVideo, got %v", err)
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Fatalf("rejected download must not leave a file, stat err=%v", err)
	}

	if err := Download(context.Background(), server.Client(), server.URL+"/missing", nil, bad); !IsTransient(err) {
		t.Fatalf("expected transient error for 503, got %v", err)
	}
}

func TestWriteVideo(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "clip.mp4")
	if err := WriteVideo(dest, testsupport.MP4Header()); err != nil {
		t.Fatalf("WriteVideo: %v", err)
	}
	if err := WriteVideo(dest, []byte("plain text")); !errors.Is(err, ErrNotVideo) {
		t.Fatalf("expected ErrNotVideo, got %v", err)
	}
}
