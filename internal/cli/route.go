package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/maze"
	"github.com/matzehuels/tileroute/pkg/observability"
	"github.com/matzehuels/tileroute/pkg/pipeline"
	"github.com/matzehuels/tileroute/pkg/worker"
)

// routeOpts holds the flags of the route command.
type routeOpts struct {
	tech     string
	guides   string
	config   string
	output   string // directory receiving one <tile>.json per routed tile
	jobs     int
	refresh  bool
	failFast bool
	jsonOut  bool
	quiet    bool

	storePath string
	noStore   bool
	label     string

	cache cacheFlags

	// router overrides, applied on top of the config file
	maxIterations int
	ripup         string
	guideMode     string
	shuffleSeed   uint64
	taperRadius   int
	noSurgical    bool
	noReservation bool
	noBoundaryFix bool
}

func (c *CLI) routeCommand() *cobra.Command {
	var opts routeOpts

	cmd := &cobra.Command{
		Use:   "route [tile.toml...]",
		Short: "Route tiles and record the run",
		Long: `Route one or more tiles with the given technology and optional route guides.

Each tile runs in its own worker; tiles run in parallel. Results are cached by
the hash of the technology, tile, guides and router configuration, and every run
is recorded in the run store unless --no-store is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.routerConfig(cmd)
			if err != nil {
				return err
			}
			return c.runRoute(cmd.Context(), args, cfg, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.tech, "tech", "t", "", "technology file (required)")
	f.StringVarP(&opts.guides, "guides", "g", "", "route-guide file")
	f.StringVarP(&opts.config, "config", "c", "", "router configuration file (TOML)")
	f.StringVarP(&opts.output, "output", "o", "", "write each tile result as JSON into this directory")
	f.IntVarP(&opts.jobs, "jobs", "j", pipeline.DefaultJobs, "tiles routed in parallel")
	f.BoolVar(&opts.refresh, "refresh", false, "reroute even when a cached result exists")
	f.BoolVar(&opts.failFast, "fail-fast", false, "stop after the first failed tile")
	f.BoolVar(&opts.jsonOut, "json", false, "print the run summary as JSON")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "no spinner or tables")
	f.StringVar(&opts.storePath, "store", "", "run store path (default in the XDG data dir)")
	f.BoolVar(&opts.noStore, "no-store", false, "do not record the run")
	f.StringVar(&opts.label, "label", "", "label recorded with the run")
	opts.cache.register(cmd)

	f.IntVar(&opts.maxIterations, "max-iterations", 0, "rip-up and reroute pass budget")
	f.StringVar(&opts.ripup, "ripup", "", "nets rerouted after the first pass: markers, all")
	f.StringVar(&opts.guideMode, "guide-mode", "", "route guide handling: off, soft, strict")
	f.Uint64Var(&opts.shuffleSeed, "shuffle-seed", 0, "seed of the net order permutation (0 disables)")
	f.IntVar(&opts.taperRadius, "taper-radius", 0, "taper zone around instance pins of NDR nets in pitches (0 disables)")
	f.BoolVar(&opts.noSurgical, "no-surgical-fix", false, "disable per-net minimum-area repair")
	f.BoolVar(&opts.noReservation, "no-via-reservation", false, "disable access via reservation")
	f.BoolVar(&opts.noBoundaryFix, "no-boundary-fix", false, "disable the boundary minimum-area fix")
	_ = cmd.MarkFlagRequired("tech")

	return cmd
}

// routerConfig loads the configuration file and applies the flags that
// were set explicitly.
func (o *routeOpts) routerConfig(cmd *cobra.Command) (worker.Config, error) {
	cfg := worker.DefaultConfig()
	if o.config != "" {
		var err error
		if cfg, err = worker.LoadConfig(o.config); err != nil {
			return cfg, err
		}
	}
	changed := cmd.Flags().Changed
	if changed("max-iterations") {
		cfg.MaxIterations = o.maxIterations
	}
	if changed("ripup") {
		if err := cfg.RipupMode.UnmarshalText([]byte(o.ripup)); err != nil {
			return cfg, err
		}
	}
	if changed("guide-mode") {
		var m maze.GuideMode
		if err := m.UnmarshalText([]byte(o.guideMode)); err != nil {
			return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "--guide-mode")
		}
		cfg.GuideMode = m
	}
	if changed("shuffle-seed") {
		cfg.ShuffleSeed = o.shuffleSeed
	}
	if changed("taper-radius") {
		cfg.TaperRadius = o.taperRadius
	}
	if o.noSurgical {
		cfg.SurgicalFix = false
	}
	if o.noReservation {
		cfg.ViaAccessReservation = false
	}
	if o.noBoundaryFix {
		cfg.BoundaryMinAreaFix = false
	}
	return cfg, cfg.Validate()
}

func (c *CLI) runRoute(ctx context.Context, tiles []string, cfg worker.Config, o *routeOpts) error {
	runner, err := c.newRunner(ctx, o.cache)
	if err != nil {
		return err
	}
	defer runner.Close()

	opts := pipeline.Options{
		TechPath:  o.tech,
		TilePaths: tiles,
		GuidePath: o.guides,
		Config:    cfg,
		Jobs:      o.jobs,
		Refresh:   o.refresh,
		FailFast:  o.failFast,
		Logger:    c.Logger,
	}

	prog := newProgress(c.Logger)
	var spinner *Spinner
	if !o.quiet && !o.jsonOut {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("routing %d tiles", len(tiles)))
		restore := watchTiles(spinner, len(tiles))
		defer restore()
		spinner.Start()
	}
	res, err := runner.Execute(ctx, opts)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil && res == nil {
		return err
	}
	prog.done(fmt.Sprintf("Routed %d tiles", len(res.Tiles)))

	if o.output != "" {
		if err := c.writeResults(o.output, res); err != nil {
			return err
		}
	}

	var runID string
	if !o.noStore {
		if runID, err = c.recordRun(ctx, o, opts, res); err != nil {
			c.Logger.Warn("run not recorded", "err", err)
		}
	}

	if o.jsonOut {
		if err := c.printRunJSON(runID, res); err != nil {
			return err
		}
	} else if !o.quiet {
		c.printTileTable(res)
		c.printRouteSummary(runID, res)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if res.Stats.Failed > 0 {
		return &ExitError{Code: ExitTileFailed, Msg: fmt.Sprintf("%d of %d tiles failed", res.Stats.Failed, res.Stats.Tiles)}
	}
	return nil
}

// watchTiles counts finished tiles on the spinner through the router
// hooks. The returned function restores the previous hooks.
func watchTiles(s *Spinner, total int) func() {
	prev := observability.Router()
	h := &tileCounter{RouterHooks: prev, spinner: s, total: total}
	observability.SetRouterHooks(h)
	return func() { observability.SetRouterHooks(prev) }
}

type tileCounter struct {
	observability.RouterHooks
	spinner *Spinner
	total   int
	done    atomic.Int32
}

func (t *tileCounter) OnTileComplete(ctx context.Context, tile string, iterations, markers int, d time.Duration, err error) {
	t.RouterHooks.OnTileComplete(ctx, tile, iterations, markers, d, err)
	t.spinner.SetMessage("routing tiles %d/%d (last: %s)", t.done.Add(1), t.total, tile)
}

func (c *CLI) writeResults(dir string, res *pipeline.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, o := range res.Tiles {
		if o.Result == nil {
			continue
		}
		data, err := json.MarshalIndent(o.Result, "", "  ")
		if err != nil {
			return err
		}
		path := filepath.Join(dir, o.Tile+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		c.Logger.Debug("wrote tile result", "path", path)
	}
	return nil
}

func (c *CLI) recordRun(ctx context.Context, o *routeOpts, opts pipeline.Options, res *pipeline.Result) (string, error) {
	db, err := c.openStore(o.storePath)
	if err != nil {
		return "", err
	}
	defer db.Close()
	run, err := res.Record(opts, o.label)
	if err != nil {
		return "", err
	}
	// A cancelled command still records what finished.
	return db.SaveRun(context.WithoutCancel(ctx), run)
}

// runSummary is the JSON form of a route run.
type runSummary struct {
	RunID string        `json:"run_id,omitempty"`
	Tiles []tileSummary `json:"tiles"`
	Stats struct {
		Tiles     int   `json:"tiles"`
		Failed    int   `json:"failed"`
		CacheHits int   `json:"cache_hits"`
		Markers   int   `json:"markers"`
		Millis    int64 `json:"duration_ms"`
	} `json:"stats"`
}

type tileSummary struct {
	Tile       string `json:"tile"`
	Iterations int    `json:"iterations"`
	Markers    int    `json:"markers"`
	Cached     bool   `json:"cached"`
	Code       string `json:"error_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (c *CLI) printRunJSON(runID string, res *pipeline.Result) error {
	var s runSummary
	s.RunID = runID
	for _, o := range res.Tiles {
		ts := tileSummary{Tile: o.Tile, Iterations: o.Iterations(), Markers: o.Markers(), Cached: o.Cached}
		if o.Err != nil {
			ts.Code, ts.Error = string(errors.GetCode(o.Err)), o.Err.Error()
		}
		s.Tiles = append(s.Tiles, ts)
	}
	s.Stats.Tiles, s.Stats.Failed = res.Stats.Tiles, res.Stats.Failed
	s.Stats.CacheHits, s.Stats.Markers = res.Stats.CacheHits, res.Stats.Markers
	s.Stats.Millis = res.Stats.Duration.Milliseconds()

	return c.encodeJSON(s)
}

func (c *CLI) printRouteSummary(runID string, res *pipeline.Result) {
	switch {
	case res.Clean():
		c.printSuccess("All %d tiles routed clean", res.Stats.Tiles)
	case res.Stats.Failed > 0:
		c.printError("%d of %d tiles failed", res.Stats.Failed, res.Stats.Tiles)
		for _, o := range res.Failed() {
			c.printDetail("%s", o.Err.Error())
		}
	default:
		c.printWarning("%d residual markers", res.Stats.Markers)
	}
	if res.Stats.CacheHits > 0 {
		c.printDetail("%d of %d tiles from cache", res.Stats.CacheHits, res.Stats.Tiles)
	}
	if runID != "" {
		c.printKeyValue("Run", runID)
		c.printNextStep("Inspect", "tileroute runs show "+shortID(runID))
	}
}
