package worker

import (
	"fmt"
	"strings"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
)

// PinRef identifies a pin in a fatal report.
type PinRef struct {
	ID   int            `json:"id"`
	Name string         `json:"name"`
	Type design.PinType `json:"type"`
}

// FatalError aborts a tile. It is returned for connectivity failures and
// for resource or configuration errors raised while the tile is processed.
type FatalError struct {
	Tile string
	Box  geom.Rect
	// NetID is -1 when the failure is not tied to a net.
	NetID   int
	NetName string
	// Unreached lists the pins the net could not connect.
	Unreached []PinRef
	Err       error
}

func (e *FatalError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tile %s %v", e.Tile, e.Box)
	if e.NetID >= 0 {
		fmt.Fprintf(&b, ": net %s (%d)", e.NetName, e.NetID)
	}
	if len(e.Unreached) > 0 {
		b.WriteString(": unreached pins")
		for _, p := range e.Unreached {
			fmt.Fprintf(&b, " %s(%d,%s)", p.Name, p.ID, p.Type)
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *FatalError) Unwrap() error { return e.Err }

// Code returns the code of the underlying error.
func (e *FatalError) Code() errors.Code { return errors.GetCode(e.Err) }

func (w *Worker) fatal(n *design.Net, unreached []*design.Pin, err error) *FatalError {
	fe := &FatalError{Tile: w.tile.Name, Box: w.tile.Box, NetID: -1, Err: err}
	if n != nil {
		fe.NetID, fe.NetName = n.ID, n.Name
	}
	for _, p := range unreached {
		fe.Unreached = append(fe.Unreached, PinRef{ID: p.ID, Name: p.Name, Type: p.Type})
	}
	return fe
}
