// Package tech holds the read-only technology rule database consumed by the
// router: routing layers with their widths, pitches and spacing tables,
// cut levels with cut-spacing rules, via definitions and non-default rules.
//
// # Layer Numbering
//
// Routing layers are numbered from 0 upwards in the order they appear in the
// technology file; that number is the z coordinate of the routing grid. Cut
// level k sits between routing layers k and k+1, so a technology with L
// routing layers has L-1 cut levels.
//
// # Spacing Tables
//
// Spacing is table driven. A [SpacingTable] is indexed by width rows and
// either parallel-run-length columns ("prl" tables) or a second width
// ("twowidths" tables). Lookups pick the largest threshold not exceeding
// the query in each dimension. A parallel run length of zero or less always
// selects the first column, the "no overlap" entry.
//
// Table kinds the router does not know are kept verbatim so that consumers
// can log them once and skip enforcement; see [SpacingTable.Supported].
//
// # File Format
//
// Technologies are loaded from TOML with [Load] or [Parse]:
//
//	name = "demo"
//	manufacturing_grid = 5
//
//	[[layer]]
//	name = "M1"
//	direction = "horizontal"
//	width = 100
//	pitch = 200
//	min_area = 40000
//	[layer.spacing]
//	kind = "prl"
//	prl = [0]
//	widths = [0]
//	values = [[100]]
//
//	[[cut]]
//	name = "V1"
//	spacing = 150
//	default_via = "VIA12"
//
//	[[via]]
//	name = "VIA12"
//	cut = "V1"
//	bottom = { xl = -50, yl = -50, xh = 50, yh = 50 }
//	cuts = [{ xl = -25, yl = -25, xh = 25, yh = 25 }]
//	top = { xl = -50, yl = -50, xh = 50, yh = 50 }
package tech
