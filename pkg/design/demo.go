package design

import (
	_ "embed"

	"github.com/matzehuels/tileroute/pkg/tech"
)

//go:embed demo_tile.toml
var demoTileTOML []byte

// DemoTileTOML returns the source of the demonstration tile.
func DemoTileTOML() []byte { return demoTileTOML }

// DemoTile returns the demonstration tile resolved against the demo
// technology.
func DemoTile() *Tile {
	t, err := ParseTile(demoTileTOML, tech.Demo())
	if err != nil {
		panic("design: invalid built-in demo tile: " + err.Error())
	}
	return t
}
