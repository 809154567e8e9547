package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/pipeline"
	"github.com/matzehuels/tileroute/pkg/tech"
	"github.com/matzehuels/tileroute/pkg/worker"
)

type checkOpts struct {
	tech      string
	tile      string
	run       string
	storePath string
	jsonOut   bool
	cache     cacheFlags
}

func (c *CLI) checkCommand() *cobra.Command {
	var opts checkOpts

	cmd := &cobra.Command{
		Use:   "check [result.json]",
		Short: "Re-run the rule check on a routed tile",
		Long: `Run a fresh design-rule check over the nets of a routed tile.

The routed nets come from a result file written by 'route --output' or from a
recorded run (--run). The tile file supplies the fixed geometry and pin shapes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (opts.run != "") {
				return errors.New(errors.ErrCodeInvalidInput, "give either a result file or --run")
			}
			result := ""
			if len(args) == 1 {
				result = args[0]
			}
			return c.runCheck(cmd.Context(), result, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.tech, "tech", "t", "", "technology file (required)")
	f.StringVar(&opts.tile, "tile", "", "tile file the result was routed from (required)")
	f.StringVar(&opts.run, "run", "", "check the tile result of a recorded run")
	f.StringVar(&opts.storePath, "store", "", "run store path (default in the XDG data dir)")
	f.BoolVar(&opts.jsonOut, "json", false, "print markers as JSON")
	opts.cache.register(cmd)
	_ = cmd.MarkFlagRequired("tech")
	_ = cmd.MarkFlagRequired("tile")

	return cmd
}

func (c *CLI) runCheck(ctx context.Context, resultPath string, o *checkOpts) error {
	in, err := pipeline.Load(pipeline.Options{TechPath: o.tech, TilePaths: []string{o.tile}, Logger: c.Logger})
	if err != nil {
		return err
	}
	t, tile := in.Tech, in.Tiles[0]

	res, err := c.loadResult(ctx, resultPath, tile.Name, o)
	if err != nil {
		return err
	}
	if res.Tile != tile.Name {
		return errors.New(errors.ErrCodeInvalidInput, "result is for tile %q, not %q", res.Tile, tile.Name)
	}

	runner, err := c.newRunner(ctx, o.cache)
	if err != nil {
		return err
	}
	defer runner.Close()
	ms, err := runner.Check(ctx, t, in.TechHash, tile, res.Nets)
	if err != nil {
		return err
	}

	if o.jsonOut {
		if ms == nil {
			ms = []design.Marker{}
		}
		if err := c.encodeJSON(ms); err != nil {
			return err
		}
	} else if len(ms) == 0 {
		c.printSuccess("Tile %s is clean (%d nets)", tile.Name, len(res.Nets))
	} else {
		c.printMarkerTable(layerNamer(t), ms)
		c.printWarning("%d markers in tile %s", len(ms), tile.Name)
	}
	if len(ms) > 0 {
		return &ExitError{Code: ExitMarkers, Msg: fmt.Sprintf("%d markers", len(ms))}
	}
	return nil
}

func (c *CLI) loadResult(ctx context.Context, path, tile string, o *checkOpts) (*worker.Result, error) {
	var data []byte
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "result file %s", path)
		}
	} else {
		db, err := c.openStore(o.storePath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		if data, err = db.TileResult(ctx, o.run, tile); err != nil {
			return nil, err
		}
	}
	return pipeline.DecodeResult(data)
}

// layerNamer resolves marker layers to technology names.
func layerNamer(t *tech.Tech) func(z int, cut bool) string {
	return func(z int, cut bool) string {
		if cut {
			if z >= 0 && z < len(t.Cuts) {
				return t.Cuts[z].Name
			}
		} else if z >= 0 && z < t.NumLayers() {
			return t.Layer(z).Name
		}
		return fmt.Sprint(z)
	}
}
