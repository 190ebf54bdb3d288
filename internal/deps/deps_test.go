package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mindmovie/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: " "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected unset status: %#v", results[2])
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Compose.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"
	reqs := Requirements(&cfg)
	if len(reqs) != 2 || reqs[0].Command != "/opt/ffmpeg/bin/ffmpeg" || reqs[1].Command != "ffprobe" {
		t.Fatalf("unexpected requirements: %#v", reqs)
	}
}

const filterListing = `Filters:
  T.. = Timeline support
  .S. = Slice threading
  ... = Source or sink filter
  ------
 ... acrossfade        AA->A      Cross fade two input audio streams.
 T.. afade             A->A       Fade in/out input audio.
 ... amix              N->A       Audio mixing.
 .S. xfade             VV->V      Cross fade one video with another video.
`

func TestParseFilterList(t *testing.T) {
	names := ParseFilterList([]byte(filterListing))
	for _, want := range []string{"acrossfade", "afade", "amix", "xfade"} {
		if _, ok := names[want]; !ok {
			t.Fatalf("expected %s in %v", want, names)
		}
	}
	if _, ok := names["drawtext"]; ok {
		t.Fatal("drawtext should not be listed")
	}
	if _, ok := names["="]; ok {
		t.Fatal("legend rows must be skipped")
	}
}

func TestCheckFFmpegFiltersReportsMissing(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\ncat <<'EOF'\n" + filterListing + "EOF\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	status := CheckFFmpegFilters(context.Background(), bin, RequiredFilters)
	if status.Available {
		t.Fatal("expected drawtext to be reported missing")
	}
	if status.Detail != "missing filters: drawtext" {
		t.Fatalf("detail = %q", status.Detail)
	}

	ok := CheckFFmpegFilters(context.Background(), bin, []string{"xfade"})
	if !ok.Available {
		t.Fatalf("expected xfade available, got %q", ok.Detail)
	}
}
