package design

import (
	"bytes"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// DefaultExtension is the context margin used when a tile file gives none.
const DefaultExtension = 1000

type tileFile struct {
	Name      string      `toml:"name"`
	Box       geom.Rect   `toml:"box"`
	Extension *int        `toml:"extension"`
	Nets      []netFile   `toml:"net"`
	Fixed     []shapeFile `toml:"fixed"`
}

type netFile struct {
	Name   string      `toml:"name"`
	NDR    string      `toml:"ndr"`
	Locked bool        `toml:"locked"`
	Pins   []pinFile   `toml:"pin"`
	Guides []shapeFile `toml:"guide"`
	Wires  []wireFile  `toml:"wire"`
	Vias   []viaFile   `toml:"via"`
}

type pinFile struct {
	Name   string      `toml:"name"`
	Type   PinType     `toml:"type"`
	Shapes []shapeFile `toml:"shape"`
	APs    []apFile    `toml:"ap"`
}

type shapeFile struct {
	Net   string    `toml:"net"`
	Layer string    `toml:"layer"`
	Cut   bool      `toml:"cut"`
	Rect  geom.Rect `toml:"rect"`
}

type apFile struct {
	X         int    `toml:"x"`
	Y         int    `toml:"y"`
	Layer     string `toml:"layer"`
	BeginArea int64  `toml:"begin_area"`
	Cost      int    `toml:"cost"`
}

type wireFile struct {
	Layer string     `toml:"layer"`
	Begin geom.Point `toml:"begin"`
	End   geom.Point `toml:"end"`
	Width int        `toml:"width"`
}

type viaFile struct {
	Via string     `toml:"via"`
	At  geom.Point `toml:"at"`
}

// LoadTile reads a tile description and resolves its names against t.
func LoadTile(path string, t *tech.Tech) (*Tile, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "tile file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidTile, err, "failed to read %s", path)
	}
	return ParseTile(data, t)
}

// ParseTile decodes a tile from TOML.
func ParseTile(data []byte, t *tech.Tech) (*Tile, error) {
	var f tileFile
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTile, err, "failed to decode tile")
	}
	return (&tileBuilder{tech: t}).build(&f)
}

type tileBuilder struct {
	tech  *tech.Tech
	pinID int
}

func (b *tileBuilder) layer(name string, cut bool) (int, error) {
	if cut {
		for _, c := range b.tech.Cuts {
			if c.Name == name {
				return c.Index, nil
			}
		}
		return 0, errors.New(errors.ErrCodeInvalidTile, "unknown cut level %q", name)
	}
	l, ok := b.tech.LayerByName(name)
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidTile, "unknown layer %q", name)
	}
	return l.Index, nil
}

func (b *tileBuilder) build(f *tileFile) (*Tile, error) {
	if f.Box.Area() <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidTile, "tile %q has an empty box", f.Name)
	}
	ext := DefaultExtension
	if f.Extension != nil {
		ext = *f.Extension
	}
	tile := &Tile{Name: f.Name, Box: f.Box, ExtBox: f.Box.Bloat(ext)}

	netIDs := make(map[string]int)
	for i, nf := range f.Nets {
		if err := errors.ValidateName("net", nf.Name); err != nil {
			return nil, err
		}
		if _, dup := netIDs[nf.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidTile, "duplicate net %q", nf.Name)
		}
		netIDs[nf.Name] = i
		n, err := b.net(i, nf)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidTile, err, "net %q", nf.Name)
		}
		tile.Nets = append(tile.Nets, n)
	}

	for _, sf := range f.Fixed {
		z, err := b.layer(sf.Layer, sf.Cut)
		if err != nil {
			return nil, err
		}
		net := Obstruction
		if sf.Net != "" {
			id, ok := netIDs[sf.Net]
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidTile, "fixed shape references unknown net %q", sf.Net)
			}
			net = id
		}
		tile.Fixed = append(tile.Fixed, Shape{Net: net, Layer: z, Cut: sf.Cut, Rect: sf.Rect})
	}
	return tile, nil
}

func (b *tileBuilder) net(id int, nf netFile) (*Net, error) {
	n := &Net{ID: id, Name: nf.Name, NDR: -1, Locked: nf.Locked}
	if nf.NDR != "" {
		ndr, ok := b.tech.NDRByName(nf.NDR)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidTile, "unknown non-default rule %q", nf.NDR)
		}
		for i, r := range b.tech.NDRs {
			if r == ndr {
				n.NDR = i
			}
		}
	}
	for _, pf := range nf.Pins {
		p := &Pin{ID: b.pinID, Name: pf.Name, Type: pf.Type}
		b.pinID++
		for _, sf := range pf.Shapes {
			z, err := b.layer(sf.Layer, sf.Cut)
			if err != nil {
				return nil, err
			}
			p.Shapes = append(p.Shapes, Shape{Net: id, Layer: z, Cut: sf.Cut, Rect: sf.Rect})
		}
		for _, af := range pf.APs {
			z, err := b.layer(af.Layer, false)
			if err != nil {
				return nil, err
			}
			p.APs = append(p.APs, AccessPoint{Point: geom.Pt(af.X, af.Y), Layer: z, BeginArea: af.BeginArea, Cost: af.Cost})
		}
		if len(p.APs) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidTile, "pin %q has no access points", pf.Name)
		}
		n.Pins = append(n.Pins, p)
	}
	for _, gf := range nf.Guides {
		z, err := b.layer(gf.Layer, false)
		if err != nil {
			return nil, err
		}
		n.Guides = append(n.Guides, Guide{Layer: z, Rect: gf.Rect})
	}
	for _, wf := range nf.Wires {
		z, err := b.layer(wf.Layer, false)
		if err != nil {
			return nil, err
		}
		if wf.Begin.X != wf.End.X && wf.Begin.Y != wf.End.Y {
			return nil, errors.New(errors.ErrCodeInvalidTile, "wire %v-%v is not axis aligned", wf.Begin, wf.End)
		}
		w := wf.Width
		if w == 0 {
			w = b.tech.Layer(z).Width
		}
		begin, end := wf.Begin, wf.End
		if end.Less(begin) {
			begin, end = end, begin
		}
		n.Figures = append(n.Figures, &PathSegment{
			Begin: begin, End: end, Layer: z,
			Style: SegmentStyle{Width: w, BeginExt: w / 2, EndExt: w / 2},
		})
	}
	for _, vf := range nf.Vias {
		v, ok := b.tech.ViaByName(vf.Via)
		if !ok {
			return nil, errors.New(errors.ErrCodeMissingVia, "unknown via %q", vf.Via)
		}
		n.Figures = append(n.Figures, &Via{Origin: vf.At, Def: v.ID, Bottom: v.Level})
	}
	return n, nil
}
