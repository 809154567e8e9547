// Package maze implements the path search that connects one pin of a net to
// the already-routed part of the same net.
//
// The search is an A* over a [grid.Graph]. Every node of the connected
// component is a source and every access point of the target pin is a
// destination, so one search finds the cheapest attachment of the pin to the
// component. Edge costs come from the counters that the cost package keeps on
// the grid: wire length, a small bend penalty, and a weighted surcharge for
// every kind of cost present on the edge.
//
// Search scratch (predecessors and best costs) lives in the grid, so a
// Searcher must not be shared between goroutines or grids.
package maze
