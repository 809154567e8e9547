package worker

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/maze"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMaxIterations is the rip-up and reroute pass budget of a tile.
	DefaultMaxIterations = 8

	// DefaultMarkerDecay scales history cost once per pass.
	DefaultMarkerDecay = 0.95

	// DefaultTaperRadius is the taper zone margin around instance pins of
	// NDR nets, in pitches.
	DefaultTaperRadius = 1

	// HistoryCost is the history counter added at every marker per pass.
	HistoryCost = 16
)

// RipupMode selects which nets are rerouted after the first pass.
type RipupMode int

// Rip-up modes.
const (
	RipupMarkers RipupMode = iota // nets touched by a marker
	RipupAll                      // every routable net
)

var ripupModeNames = [...]string{"markers", "all"}

func (m RipupMode) String() string {
	if int(m) >= 0 && int(m) < len(ripupModeNames) {
		return ripupModeNames[m]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (m RipupMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *RipupMode) UnmarshalText(b []byte) error {
	for i, name := range ripupModeNames {
		if string(b) == name {
			*m = RipupMode(i)
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidConfig, "unknown rip-up mode %q (want markers or all)", b)
}

// =============================================================================
// Config
// =============================================================================

// Config holds the tunables of one tile worker. The zero value is valid
// after ValidateAndSetDefaults; boolean features are off unless set.
type Config struct {
	MaxIterations int       `toml:"max_iterations" json:"max_iterations"`
	RipupMode     RipupMode `toml:"ripup_mode" json:"ripup_mode"`

	// Cost weights. Zero selects the maze defaults.
	DRCCost    int64 `toml:"drc_cost" json:"drc_cost"`
	ShapeCost  int64 `toml:"shape_cost" json:"shape_cost"`
	MarkerCost int64 `toml:"marker_cost" json:"marker_cost"`
	// MarkerDecay in (0, 1] multiplies history cost once per pass.
	MarkerDecay float64 `toml:"marker_decay" json:"marker_decay"`

	GuideMode maze.GuideMode `toml:"guide_mode" json:"guide_mode"`
	GuideCost int64          `toml:"guide_cost" json:"guide_cost"`

	// ViaAccessReservation charges the access via of every pin of the
	// nets still waiting in a pass, so earlier nets keep clear of them.
	ViaAccessReservation bool `toml:"via_access_reservation" json:"via_access_reservation"`
	BoundaryMinAreaFix   bool `toml:"boundary_min_area_fix" json:"boundary_min_area_fix"`
	// TaperRadius is the taper zone margin in pitches. Zero disables
	// tapering.
	TaperRadius int  `toml:"taper_radius" json:"taper_radius"`
	SurgicalFix bool `toml:"surgical_fix" json:"surgical_fix"`
	// ShuffleSeed enables seeded adjacent swaps of the net order on passes
	// after the first. Zero keeps the sorted order.
	ShuffleSeed uint64 `toml:"shuffle_seed" json:"shuffle_seed"`

	validated bool
}

// DefaultConfig returns a validated configuration with every feature on.
func DefaultConfig() Config {
	c := Config{
		ViaAccessReservation: true,
		BoundaryMinAreaFix:   true,
		SurgicalFix:          true,
		GuideMode:            maze.GuideSoft,
		TaperRadius:          DefaultTaperRadius,
	}
	_ = c.ValidateAndSetDefaults()
	return c
}

// LoadConfig reads a TOML router configuration on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	c.validated = false
	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
	}
	if _, err := toml.Decode(string(data), &c); err != nil {
		return c, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := c.ValidateAndSetDefaults(); err != nil {
		return c, err
	}
	return c, nil
}

// ValidateAndSetDefaults checks ranges and fills zero fields with defaults.
// Calling it more than once has no further effect.
func (c *Config) ValidateAndSetDefaults() error {
	if c.validated {
		return nil
	}
	if c.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_iterations must not be negative, got %d", c.MaxIterations)
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.RipupMode != RipupMarkers && c.RipupMode != RipupAll {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid rip-up mode %d", int(c.RipupMode))
	}
	if c.GuideMode < maze.GuideOff || c.GuideMode > maze.GuideStrict {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid guide mode %d", int(c.GuideMode))
	}
	for _, w := range []struct {
		name string
		v    *int64
		def  int64
	}{
		{"drc_cost", &c.DRCCost, maze.DefaultDRCCost},
		{"shape_cost", &c.ShapeCost, maze.DefaultShapeCost},
		{"marker_cost", &c.MarkerCost, maze.DefaultMarkerCost},
		{"guide_cost", &c.GuideCost, maze.DefaultGuideCost},
	} {
		if *w.v < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s must not be negative, got %d", w.name, *w.v)
		}
		if *w.v == 0 {
			*w.v = w.def
		}
	}
	if c.MarkerDecay < 0 || c.MarkerDecay > 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "marker_decay must be in (0, 1], got %g", c.MarkerDecay)
	}
	if c.MarkerDecay == 0 {
		c.MarkerDecay = DefaultMarkerDecay
	}
	if c.TaperRadius < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "taper_radius must not be negative, got %d", c.TaperRadius)
	}
	c.validated = true
	return nil
}

// Validate checks c afresh, also when it was validated before and
// changed since.
func (c *Config) Validate() error {
	c.validated = false
	return c.ValidateAndSetDefaults()
}

// Weights returns the maze weights of the configuration.
func (c *Config) Weights() maze.Weights {
	w := maze.DefaultWeights()
	w.DRC = c.DRCCost
	w.Shape = c.ShapeCost
	w.Marker = c.MarkerCost
	w.Guide = c.GuideCost
	return w
}
