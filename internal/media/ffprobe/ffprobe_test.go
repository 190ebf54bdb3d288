package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const sampleReport = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "24/1", "duration": "8.000000"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "scene_00.mp4", "nb_streams": 2, "duration": "8.041667", "size": "4194304", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestParseAndClip(t *testing.T) {
	result, err := Parse([]byte(sampleReport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.VideoStreamCount() != 1 || result.AudioStreamCount() != 1 {
		t.Fatalf("unexpected stream counts: %d video, %d audio", result.VideoStreamCount(), result.AudioStreamCount())
	}
	clip := result.Clip("scene_00.mp4")
	if clip.Width != 1920 || clip.Height != 1080 || !clip.HasAudio {
		t.Fatalf("unexpected clip: %+v", clip)
	}
	if math.Abs(clip.Duration-8.041667) > 1e-9 {
		t.Fatalf("duration = %v", clip.Duration)
	}
}

func TestClipFallsBackToStreamDuration(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "video", Duration: "6.5"}}}
	clip := result.Clip("x.mp4")
	if clip.Duration != 6.5 || clip.HasAudio {
		t.Fatalf("unexpected clip: %+v", clip)
	}
}

func TestDurationHandlesInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected NaN, got %v", result.DurationSeconds())
	}
	if clip := result.Clip("x"); clip.Duration != 0 {
		t.Fatalf("expected zero clip duration, got %v", clip.Duration)
	}
}

func TestProbeRunsBinary(t *testing.T) {
	dir := t.TempDir()
	script := "#!/bin/sh\ncat <<'JSON'\n" + sampleReport + "\nJSON\n"
	bin := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	clip, err := Probe(context.Background(), bin, filepath.Join(dir, "scene_00.mp4"))
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !clip.HasAudio || clip.Width != 1920 {
		t.Fatalf("unexpected clip: %+v", clip)
	}
}

func TestInspectReportsFailure(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\necho 'moov atom not found' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if _, err := Inspect(context.Background(), bin, "broken.mp4"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Inspect(context.Background(), bin, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
