package worker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/maze"
)

func TestValidateAndSetDefaults(t *testing.T) {
	var c Config
	if err := c.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if c.MaxIterations != DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, want %d", c.MaxIterations, DefaultMaxIterations)
	}
	if c.MarkerDecay != DefaultMarkerDecay {
		t.Errorf("MarkerDecay = %v, want %v", c.MarkerDecay, DefaultMarkerDecay)
	}
	if w := c.Weights(); w != maze.DefaultWeights() {
		t.Errorf("Weights() = %+v, want %+v", w, maze.DefaultWeights())
	}
	if c.TaperRadius != 0 {
		t.Errorf("TaperRadius = %d, want 0", c.TaperRadius)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative iterations", Config{MaxIterations: -1}},
		{"decay above one", Config{MarkerDecay: 1.5}},
		{"negative decay", Config{MarkerDecay: -0.1}},
		{"negative cost", Config{ShapeCost: -1}},
		{"negative taper", Config{TaperRadius: -2}},
		{"bad ripup mode", Config{RipupMode: 7}},
		{"bad guide mode", Config{GuideMode: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateAndSetDefaults()
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("error = %v, want %s", err, errors.ErrCodeInvalidConfig)
			}
		})
	}
}

func TestRipupModeText(t *testing.T) {
	var m RipupMode
	if err := m.UnmarshalText([]byte("all")); err != nil || m != RipupAll {
		t.Errorf("UnmarshalText(all) = %v, %v", m, err)
	}
	if b, _ := RipupMarkers.MarshalText(); string(b) != "markers" {
		t.Errorf("MarshalText = %q, want markers", b)
	}
	if err := m.UnmarshalText([]byte("some")); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("UnmarshalText(some) error = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.toml")
	data := `
max_iterations = 3
ripup_mode = "all"
guide_mode = "strict"
marker_decay = 0.5
surgical_fix = false
shuffle_seed = 11
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if c.MaxIterations != 3 || c.RipupMode != RipupAll || c.GuideMode != maze.GuideStrict {
		t.Errorf("loaded %+v", c)
	}
	if c.MarkerDecay != 0.5 || c.SurgicalFix || c.ShuffleSeed != 11 {
		t.Errorf("loaded %+v", c)
	}
	// untouched keys keep the defaults
	if !c.ViaAccessReservation || c.TaperRadius != DefaultTaperRadius {
		t.Errorf("defaults lost: %+v", c)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte(`guide_mode = "sideways"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("bad guide mode error = %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(nil, testTile(), Config{MaxIterations: -1}, nil)
	var fe *FatalError
	if err == nil {
		t.Fatal("New() accepted a negative pass budget")
	}
	if fe, _ = err.(*FatalError); fe == nil || fe.Code() != errors.ErrCodeInvalidConfig {
		t.Errorf("err = %v, want a fatal INVALID_CONFIG", err)
	}
}

func TestValidateRechecksChangedConfig(t *testing.T) {
	c := DefaultConfig()
	c.MarkerDecay = 3
	if err := c.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() on a validated config = %v, want nil", err)
	}
	if err := c.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Validate() = %v, want INVALID_CONFIG", err)
	}
}
