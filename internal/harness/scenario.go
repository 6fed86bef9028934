package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tilecanvas/internal/canvas"
)

// Scenario is a scripted sequence of canvas operations with assertions.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Geometry overrides the canvas shape. Defaults to SmallGeometry.
	Geometry *canvas.Geometry `yaml:"geometry,omitempty"`

	// Cooldown overrides the per-actor cooldown. Defaults to 30s.
	Cooldown time.Duration `yaml:"cooldown,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step actions.
const (
	ActionStart   = "start"
	ActionEdit    = "edit"
	ActionPaint   = "paint" // edit addressed by absolute canvas coordinates
	ActionAdvance = "advance"
)

// Step outcomes.
const (
	OutcomeOK              = "ok"
	OutcomeApplied         = "applied"
	OutcomeCooldown        = "cooldown"
	OutcomeInvalidIndex    = "invalid_index"
	OutcomeInvalidPosition = "invalid_position"
	OutcomeAlreadyStarted  = "already_started"
	OutcomeUnauthenticated = "unauthenticated"
)

// Step is one scenario operation.
type Step struct {
	// Action is start, edit, paint or advance.
	Action string `yaml:"action"`

	// Actor submits an edit. Empty sends no identity.
	Actor string `yaml:"actor,omitempty"`

	// Tile, X and Y address an edit. For paint, X and Y are absolute.
	Tile uint32 `yaml:"tile,omitempty"`
	X    uint32 `yaml:"x,omitempty"`
	Y    uint32 `yaml:"y,omitempty"`

	// Color is #rrggbbaa or #rrggbb.
	Color string `yaml:"color,omitempty"`

	// By is how far advance moves the clock.
	By time.Duration `yaml:"by,omitempty"`

	// Expect is the required outcome. Empty accepts any outcome.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertPixel           = "pixel"
	AssertOutcomeCount    = "outcome_count"
	AssertOverviewRegions = "overview_regions"
	AssertJournalCount    = "journal_count"
)

// Assertion validates the state after the last step.
type Assertion struct {
	// Type is pixel, outcome_count, overview_regions or journal_count.
	Type string `yaml:"type"`

	// Tile, X, Y and Color select and match a pixel (pixel).
	Tile  uint32 `yaml:"tile,omitempty"`
	X     uint32 `yaml:"x,omitempty"`
	Y     uint32 `yaml:"y,omitempty"`
	Color string `yaml:"color,omitempty"`

	// Outcome and Count are used by outcome_count and journal_count.
	Outcome string `yaml:"outcome,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	// Tiles lists exactly the tiles whose overview region is not fully
	// transparent (overview_regions).
	Tiles []uint32 `yaml:"tiles,omitempty"`
}

// SmallGeometry is the default scenario canvas: 4×4 tiles of 8px.
func SmallGeometry() canvas.Geometry {
	return canvas.Geometry{RowLength: 4, TileSize: 8, OverviewTileSize: 2}
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Geometry != nil {
		if err := s.Geometry.Validate(); err != nil {
			return fmt.Errorf("geometry: %w", err)
		}
	}
	if s.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Action {
	case ActionStart:
	case ActionEdit, ActionPaint:
		if _, err := canvas.ParseColor(s.Color); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case ActionAdvance:
		if s.By <= 0 {
			return fmt.Errorf("steps[%d]: by must be positive for advance", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, s.Action)
	}

	switch s.Expect {
	case "", OutcomeOK, OutcomeApplied, OutcomeCooldown, OutcomeInvalidIndex,
		OutcomeInvalidPosition, OutcomeAlreadyStarted, OutcomeUnauthenticated:
		return nil
	default:
		return fmt.Errorf("steps[%d]: unknown outcome %q", index, s.Expect)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertPixel:
		if _, err := canvas.ParseColor(a.Color); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertJournalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertOverviewRegions:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
