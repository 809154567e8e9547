package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tileroute/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	var flags cacheFlags

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the tile result cache",
	}
	cmd.PersistentFlags().StringVar(&flags.redisURL, "redis", "", "operate on a shared Redis cache (redis:// URL, default $"+envRedisURL+")")

	cmd.AddCommand(c.cacheClearCommand(&flags))
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand(flags *cacheFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached tile results and check reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.redisURL == "" && os.Getenv(envRedisURL) == "" {
				dir, err := cacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					c.printInfo("Cache is empty")
					return nil
				}
			}

			ch, err := c.newCache(cmd.Context(), *flags)
			if err != nil {
				return err
			}
			defer ch.Close()
			cl, ok := ch.(cache.Clearer)
			if !ok {
				return fmt.Errorf("cache %T cannot be cleared", ch)
			}
			n, err := cl.Clear(cmd.Context())
			if err != nil {
				return err
			}

			c.printSuccess("Cleared %d cached entries", n)
			if fc, ok := ch.(*cache.FileCache); ok {
				c.printDetail("Directory: %s", fc.Dir())
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(c.Out, dir)
			return nil
		},
	}
}
