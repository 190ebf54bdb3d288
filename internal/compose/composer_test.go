package compose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mindmovie/internal/config"
	"mindmovie/internal/logging"
	"mindmovie/internal/media/ffprobe"
	"mindmovie/internal/scenes"
	"mindmovie/internal/state"
	"mindmovie/internal/testsupport"
)

type recordedCommand struct {
	name string
	args []string
}

type fakeFFmpeg struct {
	calls []recordedCommand
	err   error
}

func (f *fakeFFmpeg) run(_ context.Context, name string, args ...string) error {
	f.calls = append(f.calls, recordedCommand{name: name, args: append([]string(nil), args...)})
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(args[len(args)-1], testsupport.MP4Header(), 0o644)
}

func probeWith(duration float64, audio bool) func(context.Context, string, string) (ffprobe.ClipInfo, error) {
	return func(_ context.Context, _ string, path string) (ffprobe.ClipInfo, error) {
		return ffprobe.ClipInfo{Path: path, Duration: duration, Width: 1920, Height: 1080, HasAudio: audio}, nil
	}
}

func renderedState(t *testing.T, cfg *config.Config, n int) (*scenes.MindMovieSpec, *state.PipelineState) {
	t.Helper()
	store := testsupport.StoreAtVideoGeneration(t, cfg, n)
	for i := range n {
		path := store.VideoPath(i)
		testsupport.WriteClip(t, path)
		if _, err := store.UpdateVideoStatus(i, state.AssetComplete, state.VideoUpdate{VideoPath: path}); err != nil {
			t.Fatalf("UpdateVideoStatus: %v", err)
		}
	}
	spec, err := store.LoadScenes()
	if err != nil {
		t.Fatalf("LoadScenes: %v", err)
	}
	st, err := store.LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	return spec, st
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestResolution(t *testing.T) {
	tests := []struct {
		resolution string
		aspect     string
		width      int
		height     int
	}{
		{"720p", "16:9", 1280, 720},
		{"1080p", "16:9", 1920, 1080},
		{"4K", "16:9", 3840, 2160},
		{"1080p", "9:16", 1080, 1920},
		{"720p", "9:16", 720, 1280},
	}
	for _, tt := range tests {
		w, h, err := Resolution(tt.resolution, tt.aspect)
		if err != nil {
			t.Fatalf("Resolution(%q, %q): %v", tt.resolution, tt.aspect, err)
		}
		if w != tt.width || h != tt.height {
			t.Fatalf("Resolution(%q, %q) = %dx%d, want %dx%d", tt.resolution, tt.aspect, w, h, tt.width, tt.height)
		}
	}
	if _, _, err := Resolution("480p", "16:9"); err == nil {
		t.Fatal("expected error for unsupported resolution")
	}
	if _, _, err := Resolution("1080p", "4:3"); err == nil {
		t.Fatal("expected error for unsupported aspect ratio")
	}
}

func TestResolveClipsReportsMissingScenes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	spec, st := renderedState(t, cfg, 10)

	if err := os.Remove(st.SceneAssets[2].VideoPath); err != nil {
		t.Fatalf("remove clip: %v", err)
	}
	asset, _ := st.Asset(5)
	asset.VideoStatus = state.AssetFailed

	_, err := ResolveClips(spec, st)
	if !errors.Is(err, ErrComposition) {
		t.Fatalf("expected ErrComposition, got %v", err)
	}
	want := "Missing video files for scenes: [2, 5]. Run 'mindmovie render' to generate them."
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestResolveClipsOrdersByIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	spec, st := renderedState(t, cfg, 10)
	spec.Scenes[0], spec.Scenes[9] = spec.Scenes[9], spec.Scenes[0]

	clips, err := ResolveClips(spec, st)
	if err != nil {
		t.Fatalf("ResolveClips: %v", err)
	}
	for i, clip := range clips {
		if clip.SceneIndex != i {
			t.Fatalf("clip %d has scene index %d", i, clip.SceneIndex)
		}
	}
}

func TestComposeWritesOutputAndBuildsTimeline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	spec, st := renderedState(t, cfg, 10)
	music := filepath.Join(testsupport.BaseDir(cfg), "music.mp3")
	testsupport.WriteFile(t, music, 128)

	ffmpeg := &fakeFFmpeg{}
	composer := NewComposer(cfg, logging.NewNop(), WithCommandRunner(ffmpeg.run), WithProber(probeWith(8.0, true)))

	out, err := composer.Compose(context.Background(), Request{Spec: spec, State: st, OutputPath: cfg.Build.OutputPath, MusicPath: music})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if out != cfg.Build.OutputPath {
		t.Fatalf("output = %q, want %q", out, cfg.Build.OutputPath)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(out), ".compose-*"))
	if len(leftovers) != 0 {
		t.Fatalf("expected workspace removed, found %v", leftovers)
	}

	if len(ffmpeg.calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(ffmpeg.calls))
	}
	call := ffmpeg.calls[0]
	if call.name != "ffmpeg" {
		t.Fatalf("binary = %q", call.name)
	}
	// 5 + 10*8 + 5 seconds minus eleven 0.5s crossfades.
	if got := argValue(call.args, "-t"); got != "84.500" {
		t.Fatalf("-t = %q, want 84.500", got)
	}
	if got := argValue(call.args, "-r"); got != "24" {
		t.Fatalf("-r = %q", got)
	}
	if argValue(call.args, "-stream_loop") != "-1" || !strings.Contains(strings.Join(call.args, " "), "-i "+music) {
		t.Fatalf("expected looped music input, got %v", call.args)
	}
	filter := argValue(call.args, "-filter_complex")
	for _, want := range []string{
		"color=c=black:s=1920x1080:r=24:d=5.000",
		"[0:v]trim=duration=8.000",
		"xfade=transition=fade:duration=0.500:offset=4.500[vx1]",
		"xfade=transition=fade:duration=0.500:offset=12.000[vx2]",
		"[0:a]atrim=duration=8.000",
		"[10:a]atrim=duration=84.500",
		"volume=0.200",
		"afade=t=out:st=81.500:d=3.000",
		"amix=inputs=2",
		"scene_03.txt",
	} {
		if !strings.Contains(filter, want) {
			t.Fatalf("filter graph missing %q:\n%s", want, filter)
		}
	}
	if argValue(call.args, "-map") != "[vx11]" {
		t.Fatalf("video map = %q", argValue(call.args, "-map"))
	}
}

func TestComposeSilentClipsWithoutMusic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Movie.CrossfadeDuration = 0
	cfg.Video.AspectRatio = "9:16"
	spec, st := renderedState(t, cfg, 10)

	ffmpeg := &fakeFFmpeg{}
	composer := NewComposer(cfg, logging.NewNop(), WithCommandRunner(ffmpeg.run), WithProber(probeWith(6.0, false)))
	if _, err := composer.Compose(context.Background(), Request{Spec: spec, State: st}); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	args := ffmpeg.calls[0].args
	filter := argValue(args, "-filter_complex")
	if strings.Contains(filter, "xfade") || !strings.Contains(filter, "concat=n=12:v=1:a=1") {
		t.Fatalf("expected concat without crossfade:\n%s", filter)
	}
	if strings.Contains(filter, "amix") || argValue(args, "-stream_loop") != "" {
		t.Fatal("expected no music mixing")
	}
	if !strings.Contains(filter, "s=1080x1920") {
		t.Fatalf("expected portrait canvas:\n%s", filter)
	}
	if !strings.Contains(filter, "[0:v]trim=duration=6.000") {
		t.Fatalf("expected short clip trimmed to its own length:\n%s", filter)
	}
	if strings.Contains(filter, "[0:a]") {
		t.Fatalf("silent clip should use generated audio:\n%s", filter)
	}
	// 5 + 10*6 + 5
	if got := argValue(args, "-t"); got != "70.000" {
		t.Fatalf("-t = %q", got)
	}
}

func TestComposeEncodeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	spec, st := renderedState(t, cfg, 10)
	ffmpeg := &fakeFFmpeg{err: errors.New("exit status 1: unknown encoder")}
	composer := NewComposer(cfg, logging.NewNop(), WithCommandRunner(ffmpeg.run), WithProber(probeWith(8, true)))

	_, err := composer.Compose(context.Background(), Request{Spec: spec, State: st})
	if !errors.Is(err, ErrComposition) {
		t.Fatalf("expected ErrComposition, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "Failed to encode final video: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if _, statErr := os.Stat(cfg.Build.OutputPath); !os.IsNotExist(statErr) {
		t.Fatal("expected no output file after failure")
	}
}

func TestComposeMissingMusicFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	spec, st := renderedState(t, cfg, 10)
	ffmpeg := &fakeFFmpeg{}
	composer := NewComposer(cfg, logging.NewNop(), WithCommandRunner(ffmpeg.run), WithProber(probeWith(8, true)))

	_, err := composer.Compose(context.Background(), Request{Spec: spec, State: st, MusicPath: filepath.Join(t.TempDir(), "nope.mp3")})
	if !errors.Is(err, ErrComposition) || !strings.Contains(err.Error(), "Music file not found") {
		t.Fatalf("expected missing music error, got %v", err)
	}
	if len(ffmpeg.calls) != 0 {
		t.Fatal("ffmpeg should not run")
	}
}

func TestComposeProbeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	spec, st := renderedState(t, cfg, 10)
	probe := func(context.Context, string, string) (ffprobe.ClipInfo, error) {
		return ffprobe.ClipInfo{}, errors.New("moov atom not found")
	}
	composer := NewComposer(cfg, logging.NewNop(), WithCommandRunner((&fakeFFmpeg{}).run), WithProber(probe))

	_, err := composer.Compose(context.Background(), Request{Spec: spec, State: st})
	if !errors.Is(err, ErrComposition) || !strings.Contains(err.Error(), "scene 0") {
		t.Fatalf("expected inspect failure for scene 0, got %v", err)
	}
}

func TestBuildGraphRejectsCrossfadeLongerThanSegment(t *testing.T) {
	segments := []segment{
		{kind: segmentCard, duration: 3},
		{kind: segmentClip, duration: 0.4},
	}
	if _, err := buildGraph(segments, canvas{width: 1280, height: 720, fps: 24}, 0.5, nil); err == nil {
		t.Fatal("expected error for segment shorter than crossfade")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("I am healthy strong and full of energy every single day", 20)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 20 {
			t.Fatalf("line %q exceeds width", line)
		}
	}
	if strings.Join(strings.Fields(got), " ") != "I am healthy strong and full of energy every single day" {
		t.Fatalf("words changed: %q", got)
	}
}

func TestQuoteFilterValue(t *testing.T) {
	if got := quoteFilterValue("/tmp/it's:here.txt"); got != `'/tmp/it'\''s:here.txt'` {
		t.Fatalf("quoteFilterValue = %q", got)
	}
}
