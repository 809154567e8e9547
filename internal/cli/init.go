package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/guide"
	"github.com/matzehuels/tileroute/pkg/tech"
	"github.com/matzehuels/tileroute/pkg/worker"
)

// Files written by init.
const (
	initTechFile   = "demo3.toml"
	initTileFile   = "demo.toml"
	initGuideFile  = "demo.guide"
	initConfigFile = "router.toml"
)

// initCommand writes a demonstration project.
func (c *CLI) initCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a demo technology, tile, guides and router config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return c.runInit(dir, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files")

	return cmd
}

func (c *CLI) runInit(dir string, force bool) error {
	var cfg bytes.Buffer
	cfg.WriteString("# tileroute router configuration\n")
	if err := toml.NewEncoder(&cfg).Encode(worker.DefaultConfig()); err != nil {
		return fmt.Errorf("encode router config: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{initTechFile, tech.DemoTOML()},
		{initTileFile, design.DemoTileTOML()},
		{initGuideFile, []byte(guide.DemoGuide())},
		{initConfigFile, cfg.Bytes()},
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if !force {
		for _, f := range files {
			path := filepath.Join(dir, f.name)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s exists (use --force to overwrite)", path)
			}
		}
	}

	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), f.data, 0o644); err != nil {
			return err
		}
	}
	c.printSuccess("Wrote demo project")
	for _, f := range files {
		c.printFile(filepath.Join(dir, f.name))
	}
	c.printNextStep("Route it", fmt.Sprintf("tileroute route -t %s -g %s -c %s %s",
		filepath.Join(dir, initTechFile), filepath.Join(dir, initGuideFile),
		filepath.Join(dir, initConfigFile), filepath.Join(dir, initTileFile)))
	return nil
}
