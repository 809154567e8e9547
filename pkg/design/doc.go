// Package design defines the routing problem of one tile and the geometry the
// router produces for it.
//
// A [Tile] holds its route box, an extended context box, the nets assigned
// to it and fixed geometry (obstructions and shapes of neighbouring tiles).
// Each [Net] owns its pins, its route guides and an ordered list of
// [Figure] values. Figures form a closed sum type: [PathSegment], [Via] and
// [PatchWire] are the only implementations, and each is owned by exactly one
// net. Anything that needs to refer to a figure from outside the net (the
// spatial index, markers) stores the net ID and figure index instead.
//
// A [Marker] is an immutable design-rule violation record produced by the
// checker.
//
// All coordinates are database units. Layers are routing-layer indices of
// the technology (see package tech); cut shapes carry the cut level index
// with Cut set.
package design
