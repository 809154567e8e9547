package tech

import (
	"testing"

	"github.com/matzehuels/tileroute/pkg/errors"
)

func TestSpacingTableFind(t *testing.T) {
	prl := SpacingTable{
		Kind:   SpacingPRL,
		PRL:    []int{0, 400, 1000},
		Widths: []int{0, 200, 500},
		Values: [][]int{
			{100, 110, 120},
			{150, 200, 250},
			{300, 350, 400},
		},
	}
	two := SpacingTable{
		Kind:   SpacingTwoWidths,
		Widths: []int{0, 200},
		Values: [][]int{{100, 150}, {150, 220}},
	}

	tests := []struct {
		name   string
		table  *SpacingTable
		w1, w2 int
		prl    int
		want   int
	}{
		{"default no prl", &prl, 100, 100, 0, 100},
		{"negative prl uses first column", &prl, 100, 100, -50, 100},
		{"prl below second column", &prl, 100, 100, 399, 100},
		{"prl on threshold", &prl, 100, 100, 400, 110},
		{"wide row by max width", &prl, 100, 200, 500, 200},
		{"widest row last column", &prl, 900, 100, 5000, 400},
		{"two widths narrow", &two, 100, 100, 0, 100},
		{"two widths mixed", &two, 100, 300, 0, 150},
		{"two widths wide", &two, 300, 300, 0, 220},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.table.Find(tt.w1, tt.w2, tt.prl); got != tt.want {
				t.Errorf("Find(%d, %d, %d) = %d, want %d", tt.w1, tt.w2, tt.prl, got, tt.want)
			}
		})
	}
}

func TestSpacingTableUnsupported(t *testing.T) {
	tbl := SpacingTable{Kind: "influence", Widths: []int{0}, Values: [][]int{{500}}}
	if tbl.Supported() {
		t.Error("Supported() = true, want false")
	}
	if got := tbl.Find(100, 100, 0); got != 0 {
		t.Errorf("Find() = %d, want 0 for unsupported table", got)
	}
}

func TestDemo(t *testing.T) {
	tc := Demo()

	if tc.NumLayers() != 3 || len(tc.Cuts) != 2 {
		t.Fatalf("layers/cuts = %d/%d, want 3/2", tc.NumLayers(), len(tc.Cuts))
	}
	m2, ok := tc.LayerByName("M2")
	if !ok || m2.Index != 1 || m2.Horizontal() {
		t.Errorf("M2 = %+v, want vertical layer 1", m2)
	}
	if got := m2.MinSpacing(); got != 100 {
		t.Errorf("M2 MinSpacing = %d, want 100", got)
	}
	if v := tc.DefaultVia(0); v == nil || v.Name != "VIA12" {
		t.Errorf("DefaultVia(0) = %v, want VIA12", v)
	}
	if tc.DefaultVia(2) != nil {
		t.Error("DefaultVia(2) should be nil above the top layer")
	}

	wide, ok := tc.NDRByName("wide")
	if !ok {
		t.Fatal("ndr wide missing")
	}
	if got := tc.WireWidth(0, wide); got != 200 {
		t.Errorf("WireWidth(ndr) = %d, want 200", got)
	}
	if got := tc.WireWidth(0, nil); got != 100 {
		t.Errorf("WireWidth(nil) = %d, want 100", got)
	}
	if v := tc.ViaFor(1, wide); v.Name != "VIA23_W" {
		t.Errorf("ViaFor(1, wide) = %s, want VIA23_W", v.Name)
	}
	if got := tc.Via(0).HalfEnclosureArea(false); got != 6000 {
		t.Errorf("HalfEnclosureArea = %d, want 6000", got)
	}
}

func TestTracks(t *testing.T) {
	l := &Layer{Pitch: 200, Offset: 100}
	got := l.Tracks(-250, 500)
	want := []int{-100, 100, 300, 500}
	if len(got) != len(want) {
		t.Fatalf("Tracks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tracks[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSnapUp(t *testing.T) {
	tc := &Tech{ManufacturingGrid: 5}
	for in, want := range map[int]int{0: 0, 1: 5, 5: 5, 6: 10} {
		if got := tc.SnapUp(in); got != want {
			t.Errorf("SnapUp(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no layers", `name = "x"`},
		{"bad direction", `
[[layer]]
name = "M1"
direction = "diagonal"
width = 10
pitch = 20`},
		{"missing cut level", `
[[layer]]
name = "M1"
direction = "h"
width = 10
pitch = 20
[[layer]]
name = "M2"
direction = "v"
width = 10
pitch = 20`},
		{"unknown key", `
bogus = 1
[[layer]]
name = "M1"
direction = "h"
width = 10
pitch = 20`},
		{"ragged table", `
[[layer]]
name = "M1"
direction = "h"
width = 10
pitch = 20
[layer.spacing]
kind = "prl"
prl = [0, 100]
widths = [0]
values = [[10]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			if !errors.Is(err, errors.ErrCodeInvalidTech) {
				t.Errorf("Parse() error = %v, want %s", err, errors.ErrCodeInvalidTech)
			}
		})
	}
}

func TestParseKeepsUnsupportedTable(t *testing.T) {
	tc, err := Parse([]byte(`
[[layer]]
name = "M1"
direction = "h"
width = 10
pitch = 20
[layer.spacing]
kind = "influence"
widths = [0]
values = [[30]]`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tc.Layer(0).Spacing.Supported() {
		t.Error("influence table should be kept but unsupported")
	}
}
