// Package grid implements the per-tile 3-D routing lattice.
//
// A [Graph] is built from the sorted x and y coordinates of the routing
// tracks (plus access-point coordinates) inside the tile's route box and one
// z level per routing layer. Every node connects to its lattice neighbours
// with planar edges (East/West/North/South) and, where the technology
// defines a via for the level, vertical edges (Up/Down).
//
// All per-node state lives in flat slices addressed by [Graph.Flat]; an
// [Index] is the only way to name a node. Edge state is stored on the lower
// endpoint, so the West edge of a node is the East edge of its western
// neighbour.
//
// # Cost Counters
//
// Each node carries additive counters in two channels, planar and via:
//
//   - route-shape cost from committed route figures of other nets
//   - fixed-shape cost from pins and neighbouring geometry
//   - history (marker) cost left behind by design-rule violations
//
// Route- and fixed-shape counters are changed only through [Graph.Apply]
// with an explicit [CostOp], so adding and then subtracting the same
// contribution restores the graph exactly. History cost decays
// multiplicatively every iteration.
//
// # Search Scratch
//
// The graph also carries per-search scratch (source and destination flags,
// predecessor directions and best-known cost) used by the maze search. It is
// cleared by [Graph.ResetSearch] and never survives across searches.
package grid
