package scenes

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"mindmovie/internal/goals"
	"mindmovie/internal/services"
	"mindmovie/internal/textutil"
)

const (
	// MinScenes and MaxScenes bound the scene count of every spec.
	MinScenes = 10
	MaxScenes = 15

	DefaultTitle              = "My Vision"
	DefaultClosingAffirmation = "I Am Grateful For My Beautiful Life"

	minNameLength        = 3
	maxNameLength        = 60
	minAffirmationLength = 5
	maxAffirmationLength = 100
	minPromptLength      = 50
	maxTitleLength       = 100
)

// ErrSchemaViolation marks a scene document that does not satisfy the
// MindMovieSpec structure.
var ErrSchemaViolation = errors.New("scene schema violation")

// Mood is the emotional tone of a scene.
type Mood string

const (
	MoodWarm      Mood = "warm"
	MoodEnergetic Mood = "energetic"
	MoodPeaceful  Mood = "peaceful"
	MoodRomantic  Mood = "romantic"
	MoodConfident Mood = "confident"
	MoodJoyful    Mood = "joyful"
	MoodSerene    Mood = "serene"
)

// Moods lists the accepted moods.
var Moods = []Mood{MoodWarm, MoodEnergetic, MoodPeaceful, MoodRomantic, MoodConfident, MoodJoyful, MoodSerene}

func (m Mood) valid() bool {
	for _, known := range Moods {
		if m == known {
			return true
		}
	}
	return false
}

// Scene is one clip of the movie.
type Scene struct {
	Index       int                `json:"index"`
	Name        string             `json:"name"`
	Category    goals.LifeCategory `json:"category"`
	Affirmation string             `json:"affirmation"`
	VideoPrompt string             `json:"video_prompt"`
	Mood        Mood               `json:"mood"`
}

// MindMovieSpec is the complete scene plan for a movie.
type MindMovieSpec struct {
	Title              string  `json:"title"`
	Scenes             []Scene `json:"scenes"`
	MusicMood          string  `json:"music_mood"`
	ClosingAffirmation string  `json:"closing_affirmation"`
}

// TotalDuration is the running time in seconds including title and closing cards.
func (s *MindMovieSpec) TotalDuration(sceneDuration, titleDuration, closingDuration int) int {
	return titleDuration + len(s.Scenes)*sceneDuration + closingDuration
}

// ScenesByCategory groups scenes by life category, preserving scene order.
func (s *MindMovieSpec) ScenesByCategory() map[goals.LifeCategory][]Scene {
	out := make(map[goals.LifeCategory][]Scene)
	for _, scene := range s.Scenes {
		out[scene.Category] = append(out[scene.Category], scene)
	}
	return out
}

// Scene returns the scene with the given index.
func (s *MindMovieSpec) Scene(index int) (Scene, bool) {
	for _, scene := range s.Scenes {
		if scene.Index == index {
			return scene, true
		}
	}
	return Scene{}, false
}

// wireScene detects a missing index, which would otherwise decode as 0.
type wireScene struct {
	Index       *int               `json:"index"`
	Name        string             `json:"name"`
	Category    goals.LifeCategory `json:"category"`
	Affirmation string             `json:"affirmation"`
	VideoPrompt string             `json:"video_prompt"`
	Mood        Mood               `json:"mood"`
}

type wireSpec struct {
	Title              *string     `json:"title"`
	Scenes             []wireScene `json:"scenes"`
	MusicMood          string      `json:"music_mood"`
	ClosingAffirmation *string     `json:"closing_affirmation"`
}

// Parse decodes a scene document, applies defaults, and validates it. Scenes
// are returned sorted by index.
func Parse(data []byte) (*MindMovieSpec, error) {
	var wire wireSpec
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, violation(fmt.Sprintf("malformed scene document: %v", err))
	}

	spec := &MindMovieSpec{
		Title:              DefaultTitle,
		MusicMood:          strings.TrimSpace(wire.MusicMood),
		ClosingAffirmation: DefaultClosingAffirmation,
	}
	if wire.Title != nil {
		spec.Title = strings.TrimSpace(*wire.Title)
	}
	if wire.ClosingAffirmation != nil {
		spec.ClosingAffirmation = strings.TrimSpace(*wire.ClosingAffirmation)
	}
	for i, ws := range wire.Scenes {
		if ws.Index == nil {
			return nil, violation(fmt.Sprintf("scenes[%d]: index is required", i))
		}
		spec.Scenes = append(spec.Scenes, Scene{
			Index:       *ws.Index,
			Name:        ws.Name,
			Category:    goals.LifeCategory(strings.ToLower(strings.TrimSpace(string(ws.Category)))),
			Affirmation: ws.Affirmation,
			VideoPrompt: strings.TrimSpace(ws.VideoPrompt),
			Mood:        Mood(strings.ToLower(strings.TrimSpace(string(ws.Mood)))),
		})
	}
	sort.SliceStable(spec.Scenes, func(a, b int) bool { return spec.Scenes[a].Index < spec.Scenes[b].Index })

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// FromMap validates a structured-output mapping.
func FromMap(raw map[string]any) (*MindMovieSpec, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, violation(fmt.Sprintf("encode structured output: %v", err))
	}
	return Parse(data)
}

// Validate checks the structural invariants and normalizes scene names.
func (s *MindMovieSpec) Validate() error {
	if n := utf8.RuneCountInString(s.Title); n < 1 || n > maxTitleLength {
		return violation(fmt.Sprintf("title must be 1-%d characters", maxTitleLength))
	}
	if s.MusicMood == "" {
		return violation("music_mood is required")
	}
	if len(s.Scenes) < MinScenes || len(s.Scenes) > MaxScenes {
		return violation(fmt.Sprintf("expected %d-%d scenes, got %d", MinScenes, MaxScenes, len(s.Scenes)))
	}
	for i := range s.Scenes {
		scene := &s.Scenes[i]
		if scene.Index != i {
			return violation(fmt.Sprintf("scene indices must form the range 0-%d; found %d at position %d", len(s.Scenes)-1, scene.Index, i))
		}
		if err := scene.validate(); err != nil {
			return violation(fmt.Sprintf("scenes[%d]: %s", scene.Index, err))
		}
	}
	return nil
}

func (sc *Scene) validate() error {
	if sc.Index < 0 {
		return errors.New("index must be non-negative")
	}
	if strings.TrimSpace(sc.Name) == "" {
		return errors.New("name is required")
	}
	sc.Name = textutil.SanitizeToken(sc.Name)
	if n := utf8.RuneCountInString(sc.Name); n < minNameLength || n > maxNameLength {
		return fmt.Errorf("name must be %d-%d characters, got %q", minNameLength, maxNameLength, sc.Name)
	}
	if !sc.Category.Valid() {
		return fmt.Errorf("unknown category %q", sc.Category)
	}
	if n := utf8.RuneCountInString(sc.Affirmation); n < minAffirmationLength || n > maxAffirmationLength {
		return fmt.Errorf("affirmation must be %d-%d characters", minAffirmationLength, maxAffirmationLength)
	}
	if !strings.HasPrefix(strings.TrimSpace(sc.Affirmation), "I ") {
		return fmt.Errorf("affirmation must be first-person (start with 'I'): %q", textutil.Truncate(sc.Affirmation, 30))
	}
	if utf8.RuneCountInString(sc.VideoPrompt) < minPromptLength {
		return fmt.Errorf("video_prompt must be at least %d characters", minPromptLength)
	}
	if !sc.Mood.valid() {
		return fmt.Errorf("unknown mood %q", sc.Mood)
	}
	return nil
}

func violation(msg string) error {
	return services.Wrap(services.ErrValidation, "scenes", "validate", msg, ErrSchemaViolation)
}
