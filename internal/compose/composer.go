package compose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"mindmovie/internal/config"
	"mindmovie/internal/fileutil"
	"mindmovie/internal/logging"
	"mindmovie/internal/media/ffprobe"
	"mindmovie/internal/scenes"
	"mindmovie/internal/state"
)

const textWrapWidth = 36

type commandRunner func(ctx context.Context, name string, args ...string) error
type clipProber func(ctx context.Context, binary, path string) (ffprobe.ClipInfo, error)

// Request describes one composition run.
type Request struct {
	Spec       *scenes.MindMovieSpec
	State      *state.PipelineState
	OutputPath string
	MusicPath  string
}

// Clip is a scene clip resolved from the pipeline state.
type Clip struct {
	SceneIndex  int
	Path        string
	Affirmation string
}

// Composer renders the final movie with ffmpeg.
type Composer struct {
	cfg    *config.Config
	logger *slog.Logger
	run    commandRunner
	probe  clipProber
}

// Option customizes a Composer.
type Option func(*Composer)

// WithCommandRunner replaces the ffmpeg executor.
func WithCommandRunner(run func(ctx context.Context, name string, args ...string) error) Option {
	return func(c *Composer) {
		if run != nil {
			c.run = run
		}
	}
}

// WithProber replaces the ffprobe clip inspector.
func WithProber(probe func(ctx context.Context, binary, path string) (ffprobe.ClipInfo, error)) Option {
	return func(c *Composer) {
		if probe != nil {
			c.probe = probe
		}
	}
}

// NewComposer builds a Composer from the movie, video, music and compose settings.
func NewComposer(cfg *config.Config, logger *slog.Logger, opts ...Option) *Composer {
	c := &Composer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "compose"),
		run:    defaultCommandRunner,
		probe:  ffprobe.Probe,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolution maps a resolution label and aspect ratio to frame dimensions.
// Portrait (9:16) swaps width and height.
func Resolution(resolution, aspect string) (int, int, error) {
	var width, height int
	switch strings.ToLower(strings.TrimSpace(resolution)) {
	case "720p":
		width, height = 1280, 720
	case "1080p":
		width, height = 1920, 1080
	case "4k":
		width, height = 3840, 2160
	default:
		return 0, 0, fmt.Errorf("unsupported resolution %q", resolution)
	}
	switch strings.TrimSpace(aspect) {
	case "", "16:9":
	case "9:16":
		width, height = height, width
	default:
		return 0, 0, fmt.Errorf("unsupported aspect ratio %q", aspect)
	}
	return width, height, nil
}

// ResolveClips returns the clip for every scene in index order. Scenes whose
// clip is not complete or missing on disk are reported together.
func ResolveClips(spec *scenes.MindMovieSpec, st *state.PipelineState) ([]Clip, error) {
	if spec == nil || len(spec.Scenes) == 0 {
		return nil, compositionError("No scenes to compose", nil)
	}
	ordered := append([]scenes.Scene(nil), spec.Scenes...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	clips := make([]Clip, 0, len(ordered))
	var missing []string
	for _, scene := range ordered {
		path := ""
		if st != nil {
			if asset, ok := st.Asset(scene.Index); ok && asset.VideoStatus == state.AssetComplete {
				path = asset.VideoPath
			}
		}
		if path == "" || !fileExists(path) {
			missing = append(missing, strconv.Itoa(scene.Index))
			continue
		}
		clips = append(clips, Clip{SceneIndex: scene.Index, Path: path, Affirmation: scene.Affirmation})
	}
	if len(missing) > 0 {
		return nil, compositionError(fmt.Sprintf(
			"Missing video files for scenes: [%s]. Run 'mindmovie render' to generate them.",
			strings.Join(missing, ", ")), nil)
	}
	return clips, nil
}

// Compose renders the movie described by req and returns the output path.
func (c *Composer) Compose(ctx context.Context, req Request) (string, error) {
	clips, err := ResolveClips(req.Spec, req.State)
	if err != nil {
		return "", err
	}
	width, height, err := Resolution(c.cfg.Video.Resolution, c.cfg.Video.AspectRatio)
	if err != nil {
		return "", compositionError("Invalid output format", err)
	}
	outputPath := strings.TrimSpace(req.OutputPath)
	if outputPath == "" {
		outputPath = c.cfg.Build.OutputPath
	}
	musicPath := strings.TrimSpace(req.MusicPath)
	if musicPath != "" && !fileExists(musicPath) {
		return "", compositionError(fmt.Sprintf("Music file not found: %s", musicPath), nil)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", compositionError("Failed to create output directory", err)
	}
	workDir, err := os.MkdirTemp(filepath.Dir(outputPath), ".compose-")
	if err != nil {
		return "", compositionError("Failed to prepare composition workspace", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	segments, inputs, err := c.buildSegments(ctx, req.Spec, clips, workDir)
	if err != nil {
		return "", err
	}

	var music *musicTrack
	if musicPath != "" {
		music = &musicTrack{input: len(inputs), volume: c.cfg.Music.Volume}
	}
	g, err := buildGraph(segments, canvas{
		width:    width,
		height:   height,
		fps:      c.cfg.Movie.FPS,
		fontFile: c.cfg.Compose.FontFile,
	}, c.cfg.Movie.CrossfadeDuration, music)
	if err != nil {
		return "", compositionError("Failed to build composition timeline", err)
	}

	partial := filepath.Join(workDir, "movie.mp4")
	args := encodeArgs(inputs, musicPath, g, c.cfg.Movie.FPS, partial)

	c.logger.Info("composition started",
		logging.String(logging.FieldEventType, "composition_started"),
		logging.Int("clips", len(clips)),
		logging.String("resolution", fmt.Sprintf("%dx%d", width, height)),
		logging.Float64("duration_seconds", g.duration),
		logging.Bool("music", musicPath != ""),
	)
	c.logger.Debug("ffmpeg command", logging.String("args", strings.Join(args, " ")))

	started := time.Now()
	if err := c.run(ctx, c.cfg.FFmpegBinary(), args...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", compositionError("Failed to encode final video", err)
	}
	if !fileExists(partial) {
		return "", compositionError("Failed to encode final video", errors.New("ffmpeg produced no output"))
	}
	if err := fileutil.MoveFile(partial, outputPath); err != nil {
		return "", compositionError(fmt.Sprintf("Failed to write %s", outputPath), err)
	}

	c.logger.Info("composition complete",
		logging.String(logging.FieldEventType, "composition_complete"),
		logging.String("output_path", outputPath),
		logging.Duration("elapsed", time.Since(started)),
	)
	return outputPath, nil
}

func (c *Composer) buildSegments(ctx context.Context, spec *scenes.MindMovieSpec, clips []Clip, workDir string) ([]segment, []string, error) {
	titleFile, err := writeText(workDir, "title.txt", spec.Title)
	if err != nil {
		return nil, nil, compositionError("Failed to prepare title card", err)
	}
	closingFile, err := writeText(workDir, "closing.txt", spec.ClosingAffirmation)
	if err != nil {
		return nil, nil, compositionError("Failed to prepare closing card", err)
	}

	segments := []segment{{
		kind:       segmentCard,
		sceneIndex: -1,
		duration:   float64(c.cfg.Movie.TitleDuration),
		textFile:   titleFile,
		fadeIn:     true,
	}}
	inputs := make([]string, 0, len(clips))
	for _, clip := range clips {
		info, err := c.probe(ctx, c.cfg.FFprobeBinary(), clip.Path)
		if err != nil {
			return nil, nil, compositionError(fmt.Sprintf("Failed to inspect clip for scene %d", clip.SceneIndex), err)
		}
		duration := float64(c.cfg.Movie.SceneDuration)
		if info.Duration > 0 && info.Duration < duration {
			c.logger.Debug("clip shorter than scene duration",
				logging.Int(logging.FieldSceneIndex, clip.SceneIndex),
				logging.Float64("clip_seconds", info.Duration),
			)
			duration = info.Duration
		}
		textFile, err := writeText(workDir, fmt.Sprintf("scene_%02d.txt", clip.SceneIndex), clip.Affirmation)
		if err != nil {
			return nil, nil, compositionError(fmt.Sprintf("Failed to prepare overlay for scene %d", clip.SceneIndex), err)
		}
		segments = append(segments, segment{
			kind:       segmentClip,
			sceneIndex: clip.SceneIndex,
			input:      len(inputs),
			duration:   duration,
			hasAudio:   info.HasAudio,
			textFile:   textFile,
		})
		inputs = append(inputs, clip.Path)
	}
	segments = append(segments, segment{
		kind:       segmentCard,
		sceneIndex: -1,
		duration:   float64(c.cfg.Movie.ClosingDuration),
		textFile:   closingFile,
		fadeOut:    true,
	})
	return segments, inputs, nil
}

func encodeArgs(inputs []string, musicPath string, g graph, fps int, output string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y"}
	for _, input := range inputs {
		args = append(args, "-i", input)
	}
	if musicPath != "" {
		args = append(args, "-stream_loop", "-1", "-i", musicPath)
	}
	args = append(args,
		"-filter_complex", g.filter,
		"-map", g.video,
		"-map", g.audio,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", seconds(g.duration),
		"-movflags", "+faststart",
		output,
	)
	return args
}

func writeText(dir, name, text string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(wrapText(text, textWrapWidth)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
