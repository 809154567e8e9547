package tech

import (
	"bytes"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
)

// =============================================================================
// File Schema
// =============================================================================

type techFile struct {
	Name              string      `toml:"name"`
	ManufacturingGrid int         `toml:"manufacturing_grid"`
	Layers            []layerFile `toml:"layer"`
	Cuts              []cutFile   `toml:"cut"`
	Vias              []viaFile   `toml:"via"`
	NDRs              []ndrFile   `toml:"ndr"`
}

type layerFile struct {
	Name          string       `toml:"name"`
	Direction     string       `toml:"direction"`
	Width         int          `toml:"width"`
	WrongDirWidth int          `toml:"wrong_dir_width"`
	Pitch         int          `toml:"pitch"`
	Offset        int          `toml:"offset"`
	MinArea       int64        `toml:"min_area"`
	Spacing       SpacingTable `toml:"spacing"`
	EOL           []EOLRule    `toml:"eol"`
	MinCut        []MinCutRule `toml:"min_cut"`
}

type cutFile struct {
	Name              string `toml:"name"`
	Spacing           int    `toml:"spacing"`
	CenterToCenter    bool   `toml:"center_to_center"`
	AdjacentSpacing   int    `toml:"adjacent_spacing"`
	AdjacentCuts      int    `toml:"adjacent_cuts"`
	AdjacentWithin    int    `toml:"adjacent_within"`
	InterLayerSpacing int    `toml:"inter_layer_spacing"`
	NoStack           bool   `toml:"no_stack"`
	DefaultVia        string `toml:"default_via"`
}

type viaFile struct {
	Name   string      `toml:"name"`
	Cut    string      `toml:"cut"`
	Bottom geom.Rect   `toml:"bottom"`
	Cuts   []geom.Rect `toml:"cuts"`
	Top    geom.Rect   `toml:"top"`
}

type ndrFile struct {
	Name   string         `toml:"name"`
	Layers []ndrLayerFile `toml:"layer"`
	Vias   []ndrViaFile   `toml:"via"`
}

type ndrLayerFile struct {
	Layer   string `toml:"layer"`
	Width   int    `toml:"width"`
	Spacing int    `toml:"spacing"`
	WireExt int    `toml:"wire_ext"`
}

type ndrViaFile struct {
	Cut string `toml:"cut"`
	Via string `toml:"via"`
}

// =============================================================================
// Loading
// =============================================================================

// Load reads and validates a technology file.
func Load(path string) (*Tech, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "technology file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidTech, err, "failed to read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a technology from TOML.
func Parse(data []byte) (*Tech, error) {
	var f techFile
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTech, err, "failed to decode technology")
	}
	if und := md.Undecoded(); len(und) > 0 {
		keys := make([]string, len(und))
		for i, k := range und {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidTech, "unknown keys: %s", strings.Join(keys, ", "))
	}
	return build(&f)
}

func build(f *techFile) (*Tech, error) {
	t := &Tech{
		Name:              f.Name,
		ManufacturingGrid: max(f.ManufacturingGrid, 1),
		layerByName:       make(map[string]int),
		viaByName:         make(map[string]int),
		ndrByName:         make(map[string]int),
	}
	if len(f.Layers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidTech, "no routing layers")
	}
	if len(f.Cuts) != len(f.Layers)-1 {
		return nil, errors.New(errors.ErrCodeInvalidTech,
			"%d routing layers need %d cut levels, got %d", len(f.Layers), len(f.Layers)-1, len(f.Cuts))
	}

	for i, lf := range f.Layers {
		l, err := buildLayer(i, lf)
		if err != nil {
			return nil, err
		}
		if _, dup := t.layerByName[l.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidTech, "duplicate layer %q", l.Name)
		}
		t.layerByName[l.Name] = i
		t.Layers = append(t.Layers, l)
	}

	cutByName := make(map[string]int)
	for i, cf := range f.Cuts {
		if err := errors.ValidateName("cut", cf.Name); err != nil {
			return nil, err
		}
		if _, dup := cutByName[cf.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidTech, "duplicate cut level %q", cf.Name)
		}
		cutByName[cf.Name] = i
		t.Cuts = append(t.Cuts, &CutLevel{
			Name:              cf.Name,
			Index:             i,
			Spacing:           cf.Spacing,
			CenterToCenter:    cf.CenterToCenter,
			AdjacentSpacing:   cf.AdjacentSpacing,
			AdjacentCuts:      cf.AdjacentCuts,
			AdjacentWithin:    cf.AdjacentWithin,
			InterLayerSpacing: cf.InterLayerSpacing,
			NoStack:           cf.NoStack,
			DefaultVia:        -1,
		})
	}

	for _, vf := range f.Vias {
		if err := errors.ValidateName("via", vf.Name); err != nil {
			return nil, err
		}
		level, ok := cutByName[vf.Cut]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidTech, "via %q: unknown cut level %q", vf.Name, vf.Cut)
		}
		if len(vf.Cuts) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidTech, "via %q has no cuts", vf.Name)
		}
		if vf.Bottom.Area() <= 0 || vf.Top.Area() <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidTech, "via %q has empty enclosure", vf.Name)
		}
		if _, dup := t.viaByName[vf.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidTech, "duplicate via %q", vf.Name)
		}
		id := len(t.Vias)
		t.viaByName[vf.Name] = id
		t.Vias = append(t.Vias, &ViaDef{ID: id, Name: vf.Name, Level: level, Bottom: vf.Bottom, Cuts: vf.Cuts, Top: vf.Top})
	}

	for i, cf := range f.Cuts {
		if cf.DefaultVia == "" {
			continue
		}
		v, ok := t.ViaByName(cf.DefaultVia)
		if !ok || v.Level != i {
			return nil, errors.New(errors.ErrCodeInvalidTech, "cut %q: default via %q not defined on this level", cf.Name, cf.DefaultVia)
		}
		t.Cuts[i].DefaultVia = v.ID
	}

	for _, nf := range f.NDRs {
		n, err := t.buildNDR(nf, cutByName)
		if err != nil {
			return nil, err
		}
		if _, dup := t.ndrByName[n.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidTech, "duplicate non-default rule %q", n.Name)
		}
		t.ndrByName[n.Name] = len(t.NDRs)
		t.NDRs = append(t.NDRs, n)
	}
	return t, nil
}

func buildLayer(i int, lf layerFile) (*Layer, error) {
	if err := errors.ValidateName("layer", lf.Name); err != nil {
		return nil, err
	}
	l := &Layer{
		Name:          lf.Name,
		Index:         i,
		Width:         lf.Width,
		WrongDirWidth: lf.WrongDirWidth,
		Pitch:         lf.Pitch,
		Offset:        lf.Offset,
		MinArea:       lf.MinArea,
		Spacing:       lf.Spacing,
		EOL:           lf.EOL,
		MinCut:        lf.MinCut,
	}
	switch strings.ToLower(lf.Direction) {
	case "horizontal", "h":
		l.Direction = Horizontal
	case "vertical", "v":
		l.Direction = Vertical
	default:
		return nil, errors.New(errors.ErrCodeInvalidTech, "layer %q: invalid direction %q", lf.Name, lf.Direction)
	}
	if l.Width <= 0 || l.Pitch <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidTech, "layer %q: width and pitch must be positive", lf.Name)
	}
	if l.WrongDirWidth == 0 {
		l.WrongDirWidth = l.Width
	}
	if l.Spacing.Kind == "" && !l.Spacing.Empty() {
		l.Spacing.Kind = SpacingPRL
	}
	if l.Spacing.Supported() {
		if err := checkTable(lf.Name, &l.Spacing); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func checkTable(layer string, t *SpacingTable) error {
	if len(t.Values) != len(t.Widths) {
		return errors.New(errors.ErrCodeInvalidTech, "layer %q: spacing table has %d rows for %d widths", layer, len(t.Values), len(t.Widths))
	}
	cols := len(t.PRL)
	if t.Kind == SpacingTwoWidths {
		cols = len(t.Widths)
	}
	for i, row := range t.Values {
		if len(row) != cols {
			return errors.New(errors.ErrCodeInvalidTech, "layer %q: spacing row %d has %d columns, want %d", layer, i, len(row), cols)
		}
	}
	for i := 1; i < len(t.Widths); i++ {
		if t.Widths[i] <= t.Widths[i-1] {
			return errors.New(errors.ErrCodeInvalidTech, "layer %q: spacing widths must increase", layer)
		}
	}
	for i := 1; i < len(t.PRL); i++ {
		if t.PRL[i] <= t.PRL[i-1] {
			return errors.New(errors.ErrCodeInvalidTech, "layer %q: spacing prl must increase", layer)
		}
	}
	return nil
}

func (t *Tech) buildNDR(nf ndrFile, cutByName map[string]int) (*NDR, error) {
	if err := errors.ValidateName("ndr", nf.Name); err != nil {
		return nil, err
	}
	n := &NDR{
		Name:   nf.Name,
		Layers: make([]NDRLayer, len(t.Layers)),
		Vias:   make([]int, len(t.Cuts)),
	}
	for i := range n.Vias {
		n.Vias[i] = -1
	}
	for _, lf := range nf.Layers {
		z, ok := t.layerByName[lf.Layer]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidTech, "ndr %q: unknown layer %q", nf.Name, lf.Layer)
		}
		n.Layers[z] = NDRLayer{Width: lf.Width, Spacing: lf.Spacing, WireExt: lf.WireExt}
	}
	for _, vf := range nf.Vias {
		level, ok := cutByName[vf.Cut]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidTech, "ndr %q: unknown cut level %q", nf.Name, vf.Cut)
		}
		v, ok := t.ViaByName(vf.Via)
		if !ok || v.Level != level {
			return nil, errors.New(errors.ErrCodeInvalidTech, "ndr %q: via %q not defined on %s", nf.Name, vf.Via, vf.Cut)
		}
		n.Vias[level] = v.ID
	}
	return n, nil
}
