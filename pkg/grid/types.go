package grid

import "fmt"

// Index addresses one lattice node.
type Index struct {
	X, Y, Z int
}

func (i Index) String() string { return fmt.Sprintf("(%d,%d,%d)", i.X, i.Y, i.Z) }

// Dir is an edge direction out of a node.
type Dir uint8

// Edge directions. NoDir marks a node without predecessor.
const (
	East Dir = iota
	West
	North
	South
	Up
	Down
	NoDir Dir = 0xff
)

// Dirs lists every direction in expansion order.
var Dirs = [...]Dir{East, West, North, South, Up, Down}

var dirNames = [...]string{"E", "W", "N", "S", "U", "D"}

func (d Dir) String() string {
	if int(d) < len(dirNames) {
		return dirNames[d]
	}
	return "-"
}

// Reverse returns the opposite direction.
func (d Dir) Reverse() Dir {
	if d == NoDir {
		return NoDir
	}
	return d ^ 1
}

// Planar reports whether d stays on a layer.
func (d Dir) Planar() bool { return d < Up }

// Step returns the index one step from i in direction d.
func (i Index) Step(d Dir) Index {
	switch d {
	case East:
		i.X++
	case West:
		i.X--
	case North:
		i.Y++
	case South:
		i.Y--
	case Up:
		i.Z++
	case Down:
		i.Z--
	}
	return i
}

// Channel selects the planar or via cost counters of a node.
type Channel uint8

// Cost channels.
const (
	Planar Channel = iota
	Via
)

// Kind is the origin of a cost contribution.
type Kind uint8

// Cost kinds.
const (
	RouteShape Kind = iota // committed route figures
	FixedShape             // pins, obstructions and neighbouring geometry
)

// Sign is the direction of a cost update.
type Sign uint8

// Cost signs.
const (
	Add Sign = iota
	Subtract
)

// CostOp is one kind of cost update.
type CostOp struct {
	Kind Kind
	Sign Sign
}

// Common operations.
var (
	AddRoute      = CostOp{RouteShape, Add}
	SubtractRoute = CostOp{RouteShape, Subtract}
	AddFixed      = CostOp{FixedShape, Add}
	SubtractFixed = CostOp{FixedShape, Subtract}
)

// Inverse returns the operation that undoes op.
func (op CostOp) Inverse() CostOp {
	return CostOp{Kind: op.Kind, Sign: op.Sign ^ 1}
}

func (op CostOp) String() string {
	k := "route"
	if op.Kind == FixedShape {
		k = "fixed"
	}
	if op.Sign == Subtract {
		return "subtract-" + k
	}
	return "add-" + k
}
