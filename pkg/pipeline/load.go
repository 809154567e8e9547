package pipeline

import (
	"os"

	"github.com/matzehuels/tileroute/pkg/cache"
	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/guide"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// Inputs are the loaded, hashed inputs of a run.
type Inputs struct {
	Tech     *tech.Tech
	TechHash string

	Tiles      []*design.Tile
	TileHashes []string

	// GuideHash is empty when no guide file was given.
	GuideHash string
	// UnknownGuideNets lists guide nets found in no tile.
	UnknownGuideNets []string
}

// Load reads the technology, tiles and guides named by opts. Guides are
// applied to every tile.
func Load(opts Options) (*Inputs, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}

	data, err := readInput(opts.TechPath, "technology", errors.ErrCodeInvalidTech)
	if err != nil {
		return nil, err
	}
	t, err := tech.Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", opts.TechPath)
	}
	in := &Inputs{Tech: t, TechHash: cache.Hash(data)}

	var gf *guide.File
	if opts.GuidePath != "" {
		data, err := readInput(opts.GuidePath, "guide", errors.ErrCodeInvalidGuide)
		if err != nil {
			return nil, err
		}
		p, err := guide.NewParser()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "build guide parser")
		}
		if gf, err = p.ParseString(string(data)); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGuide, err, "%s", opts.GuidePath)
		}
		in.GuideHash = cache.Hash(data)
	}

	seen := make(map[string]bool)
	missing := make(map[string]int)
	for _, path := range opts.TilePaths {
		data, err := readInput(path, "tile", errors.ErrCodeInvalidTile)
		if err != nil {
			return nil, err
		}
		tile, err := design.ParseTile(data, t)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
		}
		if tile.Name == "" {
			tile.Name = path
		}
		if seen[tile.Name] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate tile name %q (%s)", tile.Name, path)
		}
		seen[tile.Name] = true

		if gf != nil {
			unknown, err := gf.Apply(tile, t)
			if err != nil {
				return nil, err
			}
			for _, n := range unknown {
				missing[n]++
			}
		}
		in.Tiles = append(in.Tiles, tile)
		in.TileHashes = append(in.TileHashes, cache.Hash(data))
	}

	if gf != nil {
		for _, ng := range gf.Nets {
			if missing[ng.Name] == len(in.Tiles) {
				in.UnknownGuideNets = append(in.UnknownGuideNets, ng.Name)
				missing[ng.Name] = 0
			}
		}
	}
	return in, nil
}

func readInput(path, kind string, code errors.Code) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s file %s", kind, path)
		}
		return nil, errors.Wrap(code, err, "failed to read %s", path)
	}
	return data, nil
}
