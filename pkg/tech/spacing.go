package tech

import "sort"

// Spacing table kinds understood by the router.
const (
	SpacingPRL       = "prl"
	SpacingTwoWidths = "twowidths"
)

// SpacingTable is a width/parallel-run-length spacing lookup table.
type SpacingTable struct {
	Kind   string  `toml:"kind" json:"kind"`
	PRL    []int   `toml:"prl" json:"prl,omitempty"`
	Widths []int   `toml:"widths" json:"widths"`
	Values [][]int `toml:"values" json:"values"`
}

// Supported reports whether the router can enforce this table.
func (t *SpacingTable) Supported() bool {
	return t.Kind == SpacingPRL || t.Kind == SpacingTwoWidths
}

// Empty reports whether the table has no entries.
func (t *SpacingTable) Empty() bool {
	return len(t.Values) == 0 || len(t.Values[0]) == 0
}

// Find returns the required spacing between two shapes of widths w1 and w2
// that run in parallel for prl. Unsupported or empty tables return 0.
func (t *SpacingTable) Find(w1, w2, prl int) int {
	if t.Empty() || !t.Supported() {
		return 0
	}
	hi, lo := max(w1, w2), min(w1, w2)
	row := floorIndex(t.Widths, hi)
	var col int
	switch t.Kind {
	case SpacingPRL:
		if prl > 0 {
			col = floorIndex(t.PRL, prl)
		}
	case SpacingTwoWidths:
		col = floorIndex(t.Widths, lo)
	}
	vals := t.Values[row]
	if col >= len(vals) {
		col = len(vals) - 1
	}
	return vals[col]
}

// Max returns the largest value in the table.
func (t *SpacingTable) Max() int {
	m := 0
	for _, row := range t.Values {
		for _, v := range row {
			m = max(m, v)
		}
	}
	return m
}

// Min returns the "no overlap" spacing for the narrowest width.
func (t *SpacingTable) Min() int {
	if t.Empty() {
		return 0
	}
	return t.Values[0][0]
}

// floorIndex returns the index of the largest threshold <= v, or 0.
func floorIndex(thresholds []int, v int) int {
	i := sort.Search(len(thresholds), func(i int) bool { return thresholds[i] > v })
	return max(0, i-1)
}
