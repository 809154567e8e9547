package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/guide"
	"github.com/matzehuels/tileroute/pkg/pipeline"
	"github.com/matzehuels/tileroute/pkg/tech"
)

func (c *CLI) guidesCommand() *cobra.Command {
	var techPath, tilePath string

	cmd := &cobra.Command{
		Use:   "guides <file.guide>",
		Short: "Validate a route-guide file and summarize it per net",
		Long: `Parse a route-guide file, resolve its layers against the technology and
print one row per net. With --tile, guide nets missing from the tile are
reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGuides(args[0], techPath, tilePath)
		},
	}

	cmd.Flags().StringVarP(&techPath, "tech", "t", "", "technology file (required)")
	cmd.Flags().StringVar(&tilePath, "tile", "", "tile file to match the guides against")
	_ = cmd.MarkFlagRequired("tech")

	return cmd
}

func (c *CLI) runGuides(path, techPath, tilePath string) error {
	var (
		t    *tech.Tech
		tile *design.Tile
	)
	if tilePath != "" {
		in, err := pipeline.Load(pipeline.Options{TechPath: techPath, TilePaths: []string{tilePath}, Logger: c.Logger})
		if err != nil {
			return err
		}
		t, tile = in.Tech, in.Tiles[0]
	} else {
		var err error
		if t, err = tech.Load(techPath); err != nil {
			return err
		}
	}

	p, err := guide.NewParser()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "build guide parser")
	}
	f, err := p.ParseFile(path)
	if err != nil {
		return err
	}
	byNet, err := f.Guides(t)
	if err != nil {
		return err
	}

	tbl := newTable("Net", "Rects", "Layers", "BBox")
	for _, ng := range f.Nets {
		gs := byNet[ng.Name]
		if len(gs) == 0 {
			continue
		}
		delete(byNet, ng.Name)
		tbl.Row(ng.Name, strconv.Itoa(len(gs)), guideLayers(t, gs), guideBBox(gs).String())
	}
	fmt.Fprintln(c.Out, tbl.Render())

	if tile == nil {
		c.printSuccess("%d guided nets in %s", len(f.Nets), path)
		return nil
	}
	unknown, err := f.Apply(tile, t)
	if err != nil {
		return err
	}
	if len(unknown) > 0 {
		c.printWarning("%d guide nets are not in tile %s", len(unknown), tile.Name)
		for _, n := range unknown {
			c.printDetail("%s", n)
		}
		return nil
	}
	c.printSuccess("All guide nets found in tile %s", tile.Name)
	return nil
}

// guideLayers lists the layers a net's guides use, bottom up.
func guideLayers(t *tech.Tech, gs []design.Guide) string {
	used := make([]bool, t.NumLayers())
	for _, g := range gs {
		used[g.Layer] = true
	}
	s := ""
	for z, ok := range used {
		if !ok {
			continue
		}
		if s != "" {
			s += ","
		}
		s += t.Layer(z).Name
	}
	return s
}

func guideBBox(gs []design.Guide) geom.Rect {
	bb := gs[0].Rect
	for _, g := range gs[1:] {
		bb = bb.Union(g.Rect)
	}
	return bb
}
