// Package pkg provides the core libraries of tileroute, a detailed router
// for bounded tiles of a chip.
//
// # Overview
//
// A tile is a rectangle of a placed design together with the technology
// rules that govern it. tileroute turns the coarse route guides of a global
// router into exact wires and vias, then repairs and checks them until the
// tile is free of spacing, end-of-line, cut and minimum-area violations or
// the pass budget runs out.
//
// # Architecture
//
// The data flow through tileroute:
//
//	technology + tile + guides
//	         ↓
//	    [tech], [design], [guide] (parse and resolve names)
//	         ↓
//	    [grid] + [cost] (routing graph with per-node cost)
//	         ↓
//	    [maze] (path search per net)
//	         ↓
//	    [commit] (wires, vias, patches)
//	         ↓
//	    [drc] over [spatial] (markers)
//	         ↓
//	    [worker] (rip-up and reroute passes)
//	         ↓
//	    [pipeline] (parallel tiles, cache, run records)
//
// # Quick Start
//
//	opts := pipeline.Options{
//	    TechPath:  "demo3.toml",
//	    TilePaths: []string{"demo.toml"},
//	    GuidePath: "demo.guide",
//	    Config:    worker.DefaultConfig(),
//	}
//	r := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	res, err := r.Execute(ctx, opts)
//
// # Main Packages
//
// ## Routing
//
// [geom] - Integer points and rectangles in database units.
//
// [tech] - Layers, cut levels, via definitions, spacing tables and
// non-default rules, read from TOML.
//
// [design] - Tiles, nets, pins, shapes, route figures and markers.
//
// [guide] - Route-guide file parser.
//
// [grid] - Track graph of a tile with per-edge capabilities.
//
// [cost] - Per-node cost counters (shape, marker, history, blocked).
//
// [maze] - Weighted path search over the grid.
//
// [commit] - Turns paths into route figures and repairs minimum area.
//
// [spatial] - Region queries over committed shapes.
//
// [drc] - Rule checks producing markers.
//
// [worker] - One tile end to end: initial route, passes, best result.
//
// ## Infrastructure
//
// [pipeline] - Loads inputs, routes tiles in parallel, caches results and
// builds run records.
//
// [cache] - Tile result cache with file, Redis and null backends.
//
// [store] - SQLite run store with embedded migrations.
//
// [observability] - Hooks for router, cache and store events.
//
// [errors] - Coded errors shared by every package.
//
// [buildinfo] - Version information, also part of cache keys.
//
// # Testing
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/worker/...   # Specific package
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/geom
// [tech]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/tech
// [design]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/design
// [guide]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/guide
// [grid]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/grid
// [cost]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/cost
// [maze]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/maze
// [commit]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/commit
// [spatial]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/spatial
// [drc]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/drc
// [worker]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/worker
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/store
// [observability]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/tileroute/pkg/buildinfo
package pkg
