package compose

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	audioSampleRate = 48000
	cardFade        = 1.0
	musicFadeOut    = 3.0
)

type segmentKind int

const (
	segmentCard segmentKind = iota
	segmentClip
)

// segment is one piece of the timeline in playback order.
type segment struct {
	kind       segmentKind
	sceneIndex int
	input      int
	duration   float64
	hasAudio   bool
	textFile   string
	fadeIn     bool
	fadeOut    bool
}

// canvas is the output frame geometry shared by every segment.
type canvas struct {
	width    int
	height   int
	fps      int
	fontFile string
}

// musicTrack is the optional background input.
type musicTrack struct {
	input  int
	volume float64
}

// graph is a rendered filter_complex and the resulting movie length.
type graph struct {
	filter   string
	duration float64
	video    string
	audio    string
}

func buildGraph(segments []segment, cv canvas, crossfade float64, music *musicTrack) (graph, error) {
	if len(segments) == 0 {
		return graph{}, fmt.Errorf("no segments to compose")
	}
	if crossfade < 0 {
		crossfade = 0
	}
	for _, seg := range segments {
		if crossfade > 0 && seg.duration <= crossfade {
			return graph{}, fmt.Errorf("segment of %.2fs is shorter than the %.2fs crossfade", seg.duration, crossfade)
		}
	}

	var parts []string
	for i, seg := range segments {
		parts = append(parts, videoChain(i, seg, cv), audioChain(i, seg))
	}

	total := segments[0].duration
	video, audio := "v0", "a0"
	if len(segments) > 1 {
		if crossfade == 0 {
			var inputs strings.Builder
			for i := range segments {
				fmt.Fprintf(&inputs, "[v%d][a%d]", i, i)
			}
			parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=1:a=1[vcat][acat]", inputs.String(), len(segments)))
			for _, seg := range segments[1:] {
				total += seg.duration
			}
			video, audio = "vcat", "acat"
		} else {
			for i := 1; i < len(segments); i++ {
				offset := total - crossfade
				nextVideo := fmt.Sprintf("vx%d", i)
				nextAudio := fmt.Sprintf("ax%d", i)
				parts = append(parts,
					fmt.Sprintf("[%s][v%d]xfade=transition=fade:duration=%s:offset=%s[%s]", video, i, seconds(crossfade), seconds(offset), nextVideo),
					fmt.Sprintf("[%s][a%d]acrossfade=d=%s[%s]", audio, i, seconds(crossfade), nextAudio),
				)
				total = total + segments[i].duration - crossfade
				video, audio = nextVideo, nextAudio
			}
		}
	}

	if music != nil {
		fadeStart := total - musicFadeOut
		if fadeStart < 0 {
			fadeStart = 0
		}
		fade := total - fadeStart
		parts = append(parts,
			fmt.Sprintf("[%d:a]atrim=duration=%s,asetpts=PTS-STARTPTS,aformat=sample_rates=%d:channel_layouts=stereo,volume=%s,afade=t=out:st=%s:d=%s[music]",
				music.input, seconds(total), audioSampleRate, seconds(music.volume), seconds(fadeStart), seconds(fade)),
			fmt.Sprintf("[%s][music]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[amixed]", audio),
		)
		audio = "amixed"
	}

	return graph{
		filter:   strings.Join(parts, ";"),
		duration: total,
		video:    "[" + video + "]",
		audio:    "[" + audio + "]",
	}, nil
}

func videoChain(i int, seg segment, cv canvas) string {
	var filters []string
	var source string
	switch seg.kind {
	case segmentClip:
		source = fmt.Sprintf("[%d:v]", seg.input)
		filters = append(filters,
			"trim=duration="+seconds(seg.duration),
			"setpts=PTS-STARTPTS",
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", cv.width, cv.height),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", cv.width, cv.height),
			"setsar=1",
			"fps="+strconv.Itoa(cv.fps),
			"format=yuv420p",
		)
		if seg.textFile != "" {
			filters = append(filters, drawText(seg.textFile, cv, cv.height/18, "h*0.72-text_h/2"))
		}
	default:
		filters = append(filters,
			fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%s", cv.width, cv.height, cv.fps, seconds(seg.duration)),
			"setsar=1",
			"format=yuv420p",
		)
		if seg.textFile != "" {
			filters = append(filters, drawText(seg.textFile, cv, cv.height/12, "(h-text_h)/2"))
		}
	}
	if seg.fadeIn {
		filters = append(filters, "fade=t=in:st=0:d="+seconds(cardFade))
	}
	if seg.fadeOut {
		start := seg.duration - cardFade
		if start < 0 {
			start = 0
		}
		filters = append(filters, fmt.Sprintf("fade=t=out:st=%s:d=%s", seconds(start), seconds(cardFade)))
	}
	return fmt.Sprintf("%s%s[v%d]", source, strings.Join(filters, ","), i)
}

func audioChain(i int, seg segment) string {
	format := fmt.Sprintf("aformat=sample_rates=%d:channel_layouts=stereo", audioSampleRate)
	if seg.kind == segmentClip && seg.hasAudio {
		return fmt.Sprintf("[%d:a]atrim=duration=%s,asetpts=PTS-STARTPTS,%s[a%d]", seg.input, seconds(seg.duration), format, i)
	}
	return fmt.Sprintf("anullsrc=r=%d:cl=stereo,atrim=duration=%s,%s[a%d]", audioSampleRate, seconds(seg.duration), format, i)
}

func drawText(textFile string, cv canvas, fontSize int, y string) string {
	opts := []string{
		"textfile=" + quoteFilterValue(textFile),
		"fontcolor=white",
		"fontsize=" + strconv.Itoa(fontSize),
		"line_spacing=12",
		"x=(w-text_w)/2",
		"y=" + y,
		"box=1",
		"boxcolor=black@0.35",
		"boxborderw=24",
	}
	if cv.fontFile != "" {
		opts = append([]string{"fontfile=" + quoteFilterValue(cv.fontFile)}, opts...)
	}
	return "drawtext=" + strings.Join(opts, ":")
}

// quoteFilterValue single-quotes a filter option so ':' and ',' in paths
// survive filtergraph parsing.
func quoteFilterValue(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

func seconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

// wrapText breaks text on word boundaries so no line exceeds width runes.
func wrapText(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len([]rune(current))+1+len([]rune(word)) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	lines = append(lines, current)
	return strings.Join(lines, "\n")
}
