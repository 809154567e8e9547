// Package guide reads coarse route guides produced by a global router.
//
// A guide file lists, per net, the rectangles the detailed route should stay
// within:
//
//	net_a
//	(
//	0 0 2000 400 M1
//	1600 0 2000 2000 M2
//	)
//
// Guides are advisory in soft mode and binding in strict mode; see the
// worker configuration.
package guide

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// Parser parses route-guide files.
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser creates a new guide parser.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[File](
		participle.Lexer(GuideLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	return &Parser{parser: parser}, nil
}

// Parse parses a guide file from a reader.
func (p *Parser) Parse(r io.Reader) (*File, error) {
	f, err := p.parser.Parse("", r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGuide, err, "parse error")
	}
	return f, nil
}

// ParseString parses a guide file from a string.
func (p *Parser) ParseString(input string) (*File, error) {
	f, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGuide, err, "parse error")
	}
	return f, nil
}

// ParseFile parses a guide file from a path.
func (p *Parser) ParseFile(filename string) (*File, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "guide file %s", filename)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidGuide, err, "failed to open file")
	}
	defer file.Close()

	return p.Parse(file)
}

// Guides resolves the layer names of a parsed file and groups the
// rectangles by net name, preserving file order.
func (f *File) Guides(t *tech.Tech) (map[string][]design.Guide, error) {
	out := make(map[string][]design.Guide, len(f.Nets))
	for _, ng := range f.Nets {
		for _, r := range ng.Rects {
			l, ok := t.LayerByName(r.Layer)
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidGuide, "%s: net %s: unknown layer %q", r.Pos, ng.Name, r.Layer)
			}
			out[ng.Name] = append(out[ng.Name], design.Guide{Layer: l.Index, Rect: geom.R(r.XL, r.YL, r.XH, r.YH)})
		}
	}
	return out, nil
}

// Apply replaces the guides of every tile net named in the file. It returns
// the names of guide nets that are not in the tile, in file order.
func (f *File) Apply(tile *design.Tile, t *tech.Tech) ([]string, error) {
	byNet, err := f.Guides(t)
	if err != nil {
		return nil, err
	}
	var unknown []string
	for _, ng := range f.Nets {
		gs, ok := byNet[ng.Name]
		if !ok {
			continue
		}
		delete(byNet, ng.Name)
		n, ok := tile.NetByName(ng.Name)
		if !ok {
			unknown = append(unknown, ng.Name)
			continue
		}
		n.Guides = gs
	}
	return unknown, nil
}
