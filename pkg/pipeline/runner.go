package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/tileroute/pkg/buildinfo"
	"github.com/matzehuels/tileroute/pkg/cache"
	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/drc"
	"github.com/matzehuels/tileroute/pkg/observability"
	"github.com/matzehuels/tileroute/pkg/tech"
	"github.com/matzehuels/tileroute/pkg/worker"
)

// Runner executes the pipeline with caching.
//
// The Runner holds no per-run state; several goroutines may share one
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// selects the DefaultKeyer and a nil logger discards output.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute loads the inputs and routes every tile.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	in, err := Load(opts)
	if err != nil {
		return nil, err
	}
	for _, n := range in.UnknownGuideNets {
		r.Logger.Warn("guide net not found in any tile", "net", n)
	}
	r.Logger.Info("loaded inputs",
		"tech", in.Tech.Name,
		"tiles", len(in.Tiles),
		"guides", opts.GuidePath != "")

	return r.Route(ctx, in, opts)
}

// Route routes the tiles of in. Tiles run in parallel up to opts.Jobs; a
// tile that has not started when ctx is cancelled is reported with the
// context error.
func (r *Runner) Route(ctx context.Context, in *Inputs, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{Inputs: in, Tiles: make([]TileOutcome, len(in.Tiles))}
	configHash, err := cache.HashJSON(opts.Config)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for i, tile := range in.Tiles {
		g.Go(func() error {
			out := &res.Tiles[i]
			out.Tile = tile.Name
			if err := gctx.Err(); err != nil {
				out.Err = err
				return nil
			}
			key := r.Keyer.TileKey(in.TechHash, in.TileHashes[i], cache.TileKeyOpts{
				GuideHash:  in.GuideHash,
				ConfigHash: configHash,
				Version:    buildinfo.CacheTag(),
			})
			*out = r.routeTile(gctx, in.Tech, tile, key, opts)
			if out.Err != nil && opts.FailFast {
				return out.Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.Logger.Warn("stopped after first failure", "err", err)
	}

	for _, t := range res.Tiles {
		res.Stats.Tiles++
		if t.Err != nil {
			res.Stats.Failed++
		}
		if t.Cached {
			res.Stats.CacheHits++
		}
		res.Stats.Markers += t.Markers()
	}
	res.Stats.Duration = time.Since(start)
	r.Logger.Info("routed tiles",
		"tiles", res.Stats.Tiles,
		"failed", res.Stats.Failed,
		"cached", res.Stats.CacheHits,
		"markers", res.Stats.Markers,
		"duration", res.Stats.Duration)
	return res, ctx.Err()
}

// routeTile routes one tile, consulting the cache first.
func (r *Runner) routeTile(ctx context.Context, t *tech.Tech, tile *design.Tile, key string, opts Options) TileOutcome {
	start := time.Now()
	out := TileOutcome{Tile: tile.Name}
	logger := r.Logger.With("tile", tile.Name)

	if !opts.Refresh {
		if res, ok := r.cachedResult(ctx, key); ok {
			logger.Debug("cache hit")
			out.Result, out.Cached = res, true
			out.Duration = time.Since(start)
			return out
		}
	}

	w, err := worker.New(t, tile, opts.Config, opts.Logger)
	if err != nil {
		out.Err = err
		out.Duration = time.Since(start)
		return out
	}
	out.Result, out.Err = w.Run(ctx)
	out.Duration = time.Since(start)
	if out.Err != nil {
		var fe *worker.FatalError
		if errors.As(out.Err, &fe) {
			logger.Error("tile failed", "code", fe.Code(), "net", fe.NetName)
		}
		return out
	}

	if data, err := json.Marshal(out.Result); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLTileResult); err != nil {
			logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, cache.KeyTypeTile, len(data))
		}
	}
	return out
}

func (r *Runner) cachedResult(ctx context.Context, key string) (*worker.Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypeTile)
		return nil, false
	}
	var res worker.Result
	if err := json.Unmarshal(data, &res); err != nil {
		_ = r.Cache.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypeTile)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, cache.KeyTypeTile)
	return &res, true
}

// Check runs a fresh rule check over the nets of a routed tile. The report
// is cached under the hash of the technology and the nets.
func (r *Runner) Check(ctx context.Context, t *tech.Tech, techHash string, tile *design.Tile, nets []*design.Net) ([]design.Marker, error) {
	netData, err := json.Marshal(struct {
		Tile *design.Tile  `json:"tile"`
		Nets []*design.Net `json:"nets"`
	}{tile, nets})
	if err != nil {
		return nil, err
	}
	key := r.Keyer.CheckKey(techHash, cache.Hash(netData))

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var ms []design.Marker
		if json.Unmarshal(data, &ms) == nil {
			observability.Cache().OnCacheHit(ctx, cache.KeyTypeCheck)
			return ms, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, cache.KeyTypeCheck)

	start := time.Now()
	ms := drc.CheckTile(t, tile, nets, r.Logger)
	r.Logger.Info("checked tile", "tile", tile.Name, "markers", len(ms), "duration", time.Since(start))

	if data, err := json.Marshal(ms); err == nil {
		if r.Cache.Set(ctx, key, data, cache.TTLCheck) == nil {
			observability.Cache().OnCacheSet(ctx, cache.KeyTypeCheck, len(data))
		}
	}
	return ms, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
