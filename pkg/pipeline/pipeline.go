// Package pipeline routes a set of tiles with one technology and router
// configuration.
//
// It is the single entry point for the CLI: inputs are loaded and hashed,
// every tile is handed to its own worker, results are cached by the hash
// of everything that influences them, and the outcome can be recorded in
// the run store.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    TechPath:  "demo3.toml",
//	    TilePaths: []string{"t0.toml", "t1.toml"},
//	    GuidePath: "design.guide",
//	    Config:    worker.DefaultConfig(),
//	})
//
// Tiles run in parallel, bounded by Options.Jobs. A fatal tile does not
// stop the others unless FailFast is set; cancellation of ctx is checked
// before each tile starts.
package pipeline

import (
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/worker"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultJobs is the number of tiles routed at the same time.
	DefaultJobs = 4

	// MaxJobs bounds Options.Jobs.
	MaxJobs = 256
)

// =============================================================================
// Options
// =============================================================================

// Options configures one pipeline run.
type Options struct {
	TechPath  string   `json:"tech"`
	TilePaths []string `json:"tiles"`
	// GuidePath is an optional route-guide file applied to every tile.
	GuidePath string `json:"guides,omitempty"`

	Config worker.Config `json:"config"`

	Jobs int `json:"jobs,omitempty"`
	// Refresh reroutes tiles even when a cached result exists. The new
	// results are still written to the cache.
	Refresh bool `json:"refresh,omitempty"`
	// FailFast cancels the remaining tiles after the first failure.
	FailFast bool `json:"fail_fast,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.Config.Validate(); err != nil {
		return err
	}
	if o.Jobs < 0 || o.Jobs > MaxJobs {
		return errors.New(errors.ErrCodeInvalidInput, "jobs must be between 1 and %d, got %d", MaxJobs, o.Jobs)
	}
	if o.Jobs == 0 {
		o.Jobs = DefaultJobs
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the input paths.
func (o *Options) ValidateForLoad() error {
	if o.TechPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "technology file is required")
	}
	if err := errors.ValidatePath(o.TechPath); err != nil {
		return err
	}
	if len(o.TilePaths) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one tile file is required")
	}
	for _, p := range o.TilePaths {
		if err := errors.ValidatePath(p); err != nil {
			return err
		}
	}
	if o.GuidePath != "" {
		if err := errors.ValidatePath(o.GuidePath); err != nil {
			return err
		}
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return nil
}

// ConfigJSON returns the router configuration as JSON.
func (o *Options) ConfigJSON() string {
	data, _ := json.Marshal(o.Config)
	return string(data)
}

// =============================================================================
// Results
// =============================================================================

// Result is the outcome of a pipeline run.
type Result struct {
	Inputs *Inputs
	// Tiles are in input order.
	Tiles []TileOutcome
	Stats Stats
}

// TileOutcome is the outcome of one tile.
type TileOutcome struct {
	Tile   string
	Result *worker.Result
	// Err is set when the tile failed; it is a *worker.FatalError for
	// routing failures.
	Err      error
	Cached   bool
	Duration time.Duration
}

// Markers returns the residual marker count of a routed tile.
func (t *TileOutcome) Markers() int {
	if t.Result == nil {
		return 0
	}
	return len(t.Result.Markers)
}

// Iterations returns the number of passes run for the tile.
func (t *TileOutcome) Iterations() int {
	if t.Result == nil {
		return 0
	}
	return len(t.Result.Iterations)
}

// Stats summarizes a run.
type Stats struct {
	Tiles     int
	Failed    int
	CacheHits int
	Markers   int
	Duration  time.Duration
}

// Failed returns the outcomes that did not produce a result.
func (r *Result) Failed() []TileOutcome {
	var out []TileOutcome
	for _, t := range r.Tiles {
		if t.Err != nil {
			out = append(out, t)
		}
	}
	return out
}

// Clean reports whether every tile routed without residual markers.
func (r *Result) Clean() bool { return r.Stats.Failed == 0 && r.Stats.Markers == 0 }

// Nets returns the routed nets of a tile outcome, or the input nets when
// the tile failed.
func (r *Result) Nets(i int) []*design.Net {
	if res := r.Tiles[i].Result; res != nil {
		return res.Nets
	}
	return r.Inputs.Tiles[i].Nets
}
