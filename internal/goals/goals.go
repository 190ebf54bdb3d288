package goals

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mindmovie/internal/services"
	"mindmovie/internal/textutil"
)

// DefaultTitle is used when the user does not name their movie.
const DefaultTitle = "My Vision"

// LifeCategory is one of the six areas a mind movie covers.
type LifeCategory string

const (
	Health        LifeCategory = "health"
	Wealth        LifeCategory = "wealth"
	Career        LifeCategory = "career"
	Relationships LifeCategory = "relationships"
	Growth        LifeCategory = "growth"
	Lifestyle     LifeCategory = "lifestyle"
)

// Categories lists every life category in questionnaire order.
var Categories = []LifeCategory{Health, Wealth, Career, Relationships, Growth, Lifestyle}

// Valid reports whether c is a known category.
func (c LifeCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Display returns the title-cased category name.
func (c LifeCategory) Display() string {
	return textutil.Title(string(c))
}

// CategoryGoal is the user's vision for one life category.
type CategoryGoal struct {
	Category      LifeCategory `json:"category"`
	Vision        string       `json:"vision"`
	VisualDetails string       `json:"visual_details"`
	Actions       string       `json:"actions"`
	Emotions      string       `json:"emotions"`
	Skipped       bool         `json:"skipped"`
}

// PhysicalAppearance keeps the depicted person consistent across clips.
type PhysicalAppearance struct {
	Description string `json:"description"`
}

// ExtractedGoals is the questionnaire result.
type ExtractedGoals struct {
	Title          string              `json:"title"`
	Appearance     *PhysicalAppearance `json:"appearance,omitempty"`
	InitialVision  string              `json:"initial_vision,omitempty"`
	Categories     []CategoryGoal      `json:"categories"`
	ConversationID string              `json:"conversation_id"`
}

// ActiveCategories returns the categories the user did not skip.
func (g *ExtractedGoals) ActiveCategories() []CategoryGoal {
	active := make([]CategoryGoal, 0, len(g.Categories))
	for _, cat := range g.Categories {
		if !cat.Skipped {
			active = append(active, cat)
		}
	}
	return active
}

// CategoryCount is the number of active categories.
func (g *ExtractedGoals) CategoryCount() int {
	return len(g.ActiveCategories())
}

// ApplyDefaults fills the title and conversation id when absent.
func (g *ExtractedGoals) ApplyDefaults() {
	g.Title = strings.TrimSpace(g.Title)
	if g.Title == "" {
		g.Title = DefaultTitle
	}
	if strings.TrimSpace(g.ConversationID) == "" {
		g.ConversationID = uuid.NewString()
	}
	if g.Appearance != nil && strings.TrimSpace(g.Appearance.Description) == "" {
		g.Appearance = nil
	}
}

// Validate checks structural invariants: known, unique categories and
// complete details for every active category.
func (g *ExtractedGoals) Validate() error {
	if strings.TrimSpace(g.ConversationID) == "" {
		return invalid("conversation_id is required")
	}
	if len(g.Title) > 100 {
		return invalid("title must be at most 100 characters")
	}
	seen := make(map[LifeCategory]struct{}, len(g.Categories))
	for i, cat := range g.Categories {
		if !cat.Category.Valid() {
			return invalid(fmt.Sprintf("categories[%d]: unknown category %q", i, cat.Category))
		}
		if _, dup := seen[cat.Category]; dup {
			return invalid(fmt.Sprintf("categories[%d]: duplicate category %q", i, cat.Category))
		}
		seen[cat.Category] = struct{}{}
		if cat.Skipped {
			continue
		}
		for _, field := range []struct{ name, value string }{
			{"vision", cat.Vision},
			{"visual_details", cat.VisualDetails},
			{"actions", cat.Actions},
			{"emotions", cat.Emotions},
		} {
			if strings.TrimSpace(field.value) == "" {
				return invalid(fmt.Sprintf("categories[%d] (%s): %s is required for an active category", i, cat.Category, field.name))
			}
		}
	}
	return nil
}

// Parse decodes, defaults, and validates a goals document.
func Parse(data []byte) (*ExtractedGoals, error) {
	var g ExtractedGoals
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, services.Wrap(services.ErrValidation, "goals", "decode", "malformed goals document", err)
	}
	g.ApplyDefaults()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

func invalid(msg string) error {
	return services.Wrap(services.ErrValidation, "goals", "validate", msg, nil)
}
