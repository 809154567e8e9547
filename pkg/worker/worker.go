// Package worker runs the rip-up and reroute loop of one tile.
//
// A Worker owns everything mutable about its tile: the routing grid, the
// cost model, the spatial index, the rule checker and the nets. It moves
// through the states
//
//	Init -> {Setup -> Route -> DRC -> Evaluate}* -> Done | Fatal
//
// Setup picks the nets to reroute (all of them on the first pass or in full
// rip-up mode, otherwise the nets touched by a marker), orders them and rips
// every one of them up before any is routed. Route connects each net pin by
// pin with the maze search and commits the geometry. DRC checks the whole
// route box. Evaluate turns markers into history cost and rip-up flags and
// keeps the best pass seen. The loop ends when a pass is clean, when the
// pass budget runs out or when no net is left to reroute.
//
// A Worker is single threaded. Separate tiles may run in parallel as long
// as they only share the technology.
package worker

import (
	"cmp"
	"context"
	"io"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tileroute/pkg/commit"
	"github.com/matzehuels/tileroute/pkg/cost"
	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/drc"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/grid"
	"github.com/matzehuels/tileroute/pkg/maze"
	"github.com/matzehuels/tileroute/pkg/observability"
	"github.com/matzehuels/tileroute/pkg/spatial"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// State is a controller state.
type State int

// Controller states.
const (
	StateInit State = iota
	StateSetup
	StateRoute
	StateDRC
	StateEvaluate
	StateDone
	StateFatal
)

var stateNames = [...]string{"init", "setup", "route", "drc", "evaluate", "done", "fatal"}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// IterationStats summarises one pass.
type IterationStats struct {
	Iteration int           `json:"iteration"`
	Routed    int           `json:"routed"`
	Markers   int           `json:"markers"`
	Duration  time.Duration `json:"duration"`
}

// Result is the outcome of a tile: the best pass seen.
type Result struct {
	Tile string `json:"tile"`
	// Nets are copies of the tile nets, in tile order, holding the
	// figures of the best pass.
	Nets       []*design.Net    `json:"nets"`
	Markers    []design.Marker  `json:"markers"`
	Iterations []IterationStats `json:"iterations"`
	Best       int              `json:"best_iteration"`
}

// Worker routes one tile.
type Worker struct {
	cfg    Config
	tech   *tech.Tech
	tile   *design.Tile
	logger *log.Logger

	state  State
	g      *grid.Graph
	cost   *cost.Model
	search *maze.Searcher
	writer *commit.Writer
	index  *spatial.Index
	drc    *drc.Engine

	// nets are the routable nets in tile order.
	nets     []*commit.Net
	byID     map[int]*commit.Net
	reserved map[int][]design.Figure

	iter    int
	markers []design.Marker
	stats   []IterationStats
	best    snapshot
}

type snapshot struct {
	valid   bool
	iter    int
	figs    []design.FigureList // indexed like tile.Nets
	markers []design.Marker
}

// New creates a worker for tile. The tile's nets are copied, so the caller's
// tile is left untouched. A nil logger discards output.
func New(t *tech.Tech, tile *design.Tile, cfg Config, logger *log.Logger) (*Worker, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	own := *tile
	own.Nets = make([]*design.Net, len(tile.Nets))
	for i, n := range tile.Nets {
		own.Nets[i] = n.Clone()
	}
	if own.ExtBox == (geom.Rect{}) {
		own.ExtBox = own.Box
	}
	w := &Worker{
		tech:     t,
		tile:     &own,
		logger:   logger.With("tile", tile.Name),
		byID:     make(map[int]*commit.Net),
		reserved: make(map[int][]design.Figure),
	}
	cfg.validated = false
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, w.fatal(nil, nil, err)
	}
	w.cfg = cfg
	return w, nil
}

// State returns the current controller state.
func (w *Worker) State() State { return w.state }

// Run routes the tile and returns the best pass. Every error is a
// *FatalError. The context is only passed to observability hooks; a
// running search is never interrupted.
func (w *Worker) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	hooks := observability.Router()

	err := w.init()
	if err == nil {
		hooks.OnTileStart(ctx, w.tile.Name, len(w.nets))
		err = w.loop(ctx)
	}
	if err != nil {
		w.state = StateFatal
		w.logger.Error("tile failed", "err", err)
		hooks.OnTileComplete(ctx, w.tile.Name, len(w.stats), len(w.markers), time.Since(start), err)
		return nil, err
	}

	w.state = StateDone
	res := w.result()
	w.logger.Info("tile done",
		"passes", len(w.stats),
		"best", res.Best,
		"markers", len(res.Markers),
		"duration", time.Since(start))
	hooks.OnTileComplete(ctx, w.tile.Name, len(w.stats), len(res.Markers), time.Since(start), nil)
	return res, nil
}

func (w *Worker) loop(ctx context.Context) error {
	for w.iter = 0; ; w.iter++ {
		start := time.Now()
		w.state = StateSetup
		cands := w.setup()
		if w.iter > 0 && len(cands) == 0 {
			w.logger.Debug("no net left to reroute", "pass", w.iter)
			return nil
		}

		w.state = StateRoute
		for _, cn := range cands {
			if err := w.routeNet(cn); err != nil {
				return err
			}
		}

		w.state = StateDRC
		w.drc.ClearTargetNet()
		w.markers = w.drc.Run()

		w.state = StateEvaluate
		done := w.evaluate()
		st := IterationStats{Iteration: w.iter, Routed: len(cands), Markers: len(w.markers), Duration: time.Since(start)}
		w.stats = append(w.stats, st)
		w.logger.Info("pass",
			"pass", w.iter,
			"routed", st.Routed,
			"markers", st.Markers,
			"history", w.g.HistoryNodes(),
			"duration", st.Duration)
		observability.Router().OnIteration(ctx, w.tile.Name, w.iter, st.Routed, st.Markers, st.Duration)
		if done {
			return nil
		}
	}
}

// =============================================================================
// Init
// =============================================================================

func (w *Worker) init() error {
	w.state = StateInit
	tile := w.tile

	var aps []geom.Point
	for _, n := range tile.Nets {
		for _, p := range n.Pins {
			for _, ap := range p.APs {
				aps = append(aps, ap.Point)
			}
		}
	}
	g, err := grid.Build(w.tech, tile.Box, aps)
	if err != nil {
		return w.fatal(nil, nil, err)
	}
	w.g = g
	w.cost = cost.New(w.tech, g, w.logger)
	w.search = maze.New(w.tech, g, w.cfg.Weights())
	w.writer = commit.NewWriter(w.tech, g, commit.Options{
		TaperRadius:        w.cfg.TaperRadius,
		BoundaryMinAreaFix: w.cfg.BoundaryMinAreaFix,
		Weights:            w.cfg.Weights(),
	})
	w.index = spatial.New(tile.ExtBox, w.tech.NumLayers(), spatial.DefaultBucket)

	for _, s := range tile.Fixed {
		w.cost.Shape(grid.AddFixed, s)
		w.index.Add(s, spatial.Fixed)
	}
	for _, s := range tile.PinShapes() {
		w.cost.Shape(grid.AddFixed, s)
		w.index.Add(s, spatial.Fixed)
	}

	for _, n := range tile.Nets {
		if n.Routable() {
			cn, err := w.writer.Prepare(n)
			if err != nil {
				return w.fatal(n, nil, err)
			}
			w.nets = append(w.nets, cn)
			w.byID[n.ID] = cn
		}
		if len(n.Figures) == 0 {
			continue
		}
		rule, err := w.rule(n)
		if err != nil {
			return w.fatal(n, nil, err)
		}
		for _, f := range n.Figures {
			w.cost.Figure(grid.AddRoute, f, rule)
		}
		w.index.AddNet(w.tech, n)
	}

	w.drc = drc.New(w.tech, w.logger)
	w.drc.Init(drc.Region{Box: tile.Box, ExtBox: tile.ExtBox}, w.index, tile.Nets)

	nx, ny, nz := g.Dims()
	w.logger.Debug("tile initialised",
		"grid", [3]int{nx, ny, nz},
		"nets", len(w.nets),
		"fixed", len(tile.Fixed),
		"shapes", w.index.Len())
	return nil
}

func (w *Worker) rule(n *design.Net) (*tech.NDR, error) {
	if !n.HasNDR() {
		return nil, nil
	}
	if n.NDR >= len(w.tech.NDRs) {
		return nil, errors.New(errors.ErrCodeInvalidTile, "net %s: unknown non-default rule %d", n.Name, n.NDR)
	}
	return w.tech.NDRs[n.NDR], nil
}

// =============================================================================
// Setup
// =============================================================================

// setup selects, orders and rips up the nets of this pass.
func (w *Worker) setup() []*commit.Net {
	var cands []*commit.Net
	for _, cn := range w.nets {
		if w.iter == 0 || w.cfg.RipupMode == RipupAll || cn.Ripup {
			cands = append(cands, cn)
		}
		cn.Ripup = false
	}
	w.order(cands)
	for _, cn := range cands {
		w.ripup(cn)
	}
	if w.cfg.ViaAccessReservation {
		for _, cn := range cands {
			w.reserve(cn)
		}
	}
	return cands
}

type orderKey struct {
	ndr  bool
	pins int
	area int64
	dist int64
}

// order sorts nets: NDR nets first, then by pin count, pin box area and
// distance to the nearest marker, with the net ID breaking ties.
func (w *Worker) order(cands []*commit.Net) {
	keys := make(map[int]orderKey, len(cands))
	for _, cn := range cands {
		box := cn.PinBox()
		keys[cn.ID] = orderKey{ndr: cn.HasNDR(), pins: len(cn.Net.Pins), area: box.Area(), dist: w.markerDist(box)}
	}
	slices.SortFunc(cands, func(a, b *commit.Net) int {
		ka, kb := keys[a.ID], keys[b.ID]
		if ka.ndr != kb.ndr {
			if ka.ndr {
				return -1
			}
			return 1
		}
		return cmp.Or(
			cmp.Compare(ka.pins, kb.pins),
			cmp.Compare(ka.area, kb.area),
			cmp.Compare(ka.dist, kb.dist),
			cmp.Compare(a.ID, b.ID),
		)
	})
	if w.cfg.ShuffleSeed == 0 || w.iter == 0 {
		return
	}
	rng := rand.New(rand.NewPCG(w.cfg.ShuffleSeed, uint64(w.iter)))
	for i := 0; i+1 < len(cands); i++ {
		if rng.IntN(2) == 0 {
			cands[i], cands[i+1] = cands[i+1], cands[i]
		}
	}
}

func (w *Worker) markerDist(box geom.Rect) int64 {
	if len(w.markers) == 0 {
		return 0
	}
	best := geom.DistSq(box, w.markers[0].BBox)
	for _, m := range w.markers[1:] {
		best = min(best, geom.DistSq(box, m.BBox))
	}
	return best
}

// ripup removes the net's figures from the cost model and the index.
func (w *Worker) ripup(cn *commit.Net) {
	for _, f := range cn.Figures {
		w.cost.Figure(grid.SubtractRoute, f, cn.Rule)
	}
	w.index.RemoveNet(cn.ID)
	cn.Figures = nil
}

// reserve charges the default access via above every access point of the
// net until the net itself is routed.
func (w *Worker) reserve(cn *commit.Net) {
	var vias []design.Figure
	for _, p := range cn.Net.Pins {
		for _, ap := range p.APs {
			def := w.tech.DefaultVia(ap.Layer)
			if def == nil {
				continue
			}
			v := &design.Via{Origin: ap.Point, Def: def.ID, Bottom: ap.Layer}
			w.cost.Figure(grid.AddRoute, v, nil)
			vias = append(vias, v)
		}
	}
	if len(vias) > 0 {
		w.reserved[cn.ID] = vias
	}
}

func (w *Worker) release(cn *commit.Net) {
	for _, v := range w.reserved[cn.ID] {
		w.cost.Figure(grid.SubtractRoute, v, nil)
	}
	delete(w.reserved, cn.ID)
}

// =============================================================================
// Route
// =============================================================================

func (w *Worker) routeNet(cn *commit.Net) error {
	w.release(cn)
	pins := w.ownPinShapes(cn)
	for _, s := range pins {
		w.cost.Shape(grid.SubtractFixed, s)
	}
	w.g.ClearGuides()
	for _, gd := range cn.Guides {
		w.g.MarkGuide(gd.Layer, gd.Rect)
	}

	figs, err := w.connect(cn)

	for _, s := range pins {
		w.cost.Shape(grid.AddFixed, s)
	}
	w.g.ClearGuides()
	if err != nil {
		return err
	}

	cn.Figures = figs
	w.commit(cn, 0)
	if w.cfg.SurgicalFix {
		w.surgical(cn)
	}
	w.logger.Debug("routed", "net", cn.Name, "figures", len(cn.Figures))
	return nil
}

func (w *Worker) ownPinShapes(cn *commit.Net) []design.Shape {
	var out []design.Shape
	for _, p := range cn.Net.Pins {
		for _, s := range p.Shapes {
			s.Net = cn.ID
			out = append(out, s)
		}
	}
	return out
}

// connect grows the net from its first source pin, connecting the nearest
// pending pin each time, and returns the figures of all paths.
func (w *Worker) connect(cn *commit.Net) (design.FigureList, error) {
	g := w.g
	g.ResetSearch()

	first := maze.FirstSource(g, cn.Net.Pins)
	src := slices.Clone(cn.Pins[first])
	var b maze.Bounds
	for _, i := range src {
		b.Add(g, i)
	}
	var pending []*design.Pin
	var targets [][]grid.Index
	for pi, p := range cn.Net.Pins {
		if pi != first {
			pending = append(pending, p)
			targets = append(targets, cn.Pins[pi])
		}
	}

	var figs design.FigureList
	for len(pending) > 0 {
		k := maze.NextTarget(g, pending, &b)
		path, err := w.search.Route(maze.Request{
			Src:    src,
			Dst:    targets[k],
			NDR:    cn.Rule,
			Taper:  cn.Taper,
			Bounds: w.tile.Box,
			Guide:  w.cfg.GuideMode,
		})
		if err != nil {
			return nil, w.fatal(cn.Net, pending, err)
		}
		f, err := w.writer.Path(cn, path)
		if err != nil {
			return nil, w.fatal(cn.Net, nil, err)
		}
		figs = append(figs, f...)
		figs = append(figs, w.writer.MinArea(cn, path)...)

		for _, i := range path {
			if !g.IsSrc(i) {
				src = append(src, i)
				b.Add(g, i)
			}
		}
		pending = slices.Delete(pending, k, k+1)
		targets = slices.Delete(targets, k, k+1)
	}
	return figs, nil
}

// commit adds the net's figures from position from on to the cost model and
// the index.
func (w *Worker) commit(cn *commit.Net, from int) {
	for i := from; i < len(cn.Figures); i++ {
		f := cn.Figures[i]
		w.cost.Figure(grid.AddRoute, f, cn.Rule)
		w.index.AddFigure(w.tech, cn.ID, i, f)
	}
}

// surgical checks the freshly routed net alone and folds the minimum-area
// patches the checker synthesises into it.
func (w *Worker) surgical(cn *commit.Net) {
	w.drc.SetTargetNet(cn.ID)
	w.drc.EnableSurgicalFix(true)
	w.drc.Run()
	patches := w.drc.ApplyPatches()
	w.drc.EnableSurgicalFix(false)
	w.drc.ClearTargetNet()

	from := len(cn.Figures)
	for _, p := range patches {
		if p.Net == cn.ID {
			cn.Figures = append(cn.Figures, p.Wire)
		}
	}
	if len(cn.Figures) > from {
		w.commit(cn, from)
		w.logger.Debug("surgical patches", "net", cn.Name, "patches", len(cn.Figures)-from)
	}
}

// =============================================================================
// Evaluate
// =============================================================================

// evaluate applies history cost and rip-up flags for the markers of this
// pass and reports whether the loop is finished.
func (w *Worker) evaluate() bool {
	w.g.DecayMarkerCost(w.cfg.MarkerDecay)
	for _, m := range w.markers {
		w.addHistory(m)
		for _, id := range m.Nets {
			if cn, ok := w.byID[id]; ok {
				cn.Ripup = true
			}
		}
	}
	if !w.best.valid || len(w.markers) < len(w.best.markers) {
		w.snapshot()
	}
	return len(w.markers) == 0 || w.iter+1 >= w.cfg.MaxIterations
}

// addHistory charges the lattice nodes around a marker: planar cost on its
// routing layer, via cost on its cut level.
func (w *Worker) addHistory(m design.Marker) {
	z, ch := m.Layer, grid.Planar
	if m.Cut {
		ch = grid.Via
	}
	box := m.BBox.Bloat(w.tech.Layer(z).Width)
	x0, x1 := w.g.XRange(box.XMin, box.XMax)
	y0, y1 := w.g.YRange(box.YMin, box.YMax)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			w.g.AddMarkerCost(grid.Index{X: x, Y: y, Z: z}, ch, HistoryCost)
		}
	}
}

func (w *Worker) snapshot() {
	w.best = snapshot{
		valid:   true,
		iter:    w.iter,
		figs:    make([]design.FigureList, len(w.tile.Nets)),
		markers: slices.Clone(w.markers),
	}
	for i, n := range w.tile.Nets {
		w.best.figs[i] = slices.Clone(n.Figures)
	}
}

func (w *Worker) result() *Result {
	res := &Result{
		Tile:       w.tile.Name,
		Nets:       make([]*design.Net, len(w.tile.Nets)),
		Markers:    append([]design.Marker{}, w.best.markers...),
		Iterations: w.stats,
		Best:       w.best.iter,
	}
	for i, n := range w.tile.Nets {
		c := n.Clone()
		c.Figures = w.best.figs[i]
		c.Ripup = false
		res.Nets[i] = c
	}
	return res
}
