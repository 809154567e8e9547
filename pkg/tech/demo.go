package tech

import _ "embed"

//go:embed demo.toml
var demoTOML []byte

// DemoTOML returns the source of the built-in demonstration technology.
func DemoTOML() []byte { return demoTOML }

// Demo returns the built-in three-layer demonstration technology. It backs
// `tileroute init` and the package tests throughout the router.
func Demo() *Tech {
	t, err := Parse(demoTOML)
	if err != nil {
		panic("tech: invalid built-in demo technology: " + err.Error())
	}
	return t
}
