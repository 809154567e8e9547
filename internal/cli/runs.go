package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tileroute/pkg/store"
)

// runsCommand creates the run store browsing command.
func (c *CLI) runsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List, inspect and delete recorded runs",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "store", "", "run store path (default in the XDG data dir)")

	cmd.AddCommand(c.runsListCommand(&dbPath))
	cmd.AddCommand(c.runsShowCommand(&dbPath))
	cmd.AddCommand(c.runsBrowseCommand(&dbPath))
	cmd.AddCommand(c.runsDeleteCommand(&dbPath))

	return cmd
}

func (c *CLI) runsListCommand(dbPath *string) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(*dbPath, func(db *store.DB) error {
				runs, err := db.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					if runs == nil {
						runs = []store.Summary{}
					}
					return c.encodeJSON(runs)
				}
				if len(runs) == 0 {
					c.printInfo("No recorded runs")
					return nil
				}
				c.printRunTable(runs)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print runs as JSON")
	return cmd
}

func (c *CLI) runsShowCommand(dbPath *string) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:               "show <run-id>",
		Short:             "Show the tiles of a run (a unique ID prefix is enough)",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeRunIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(*dbPath, func(db *store.DB) error {
				return c.showRun(cmd.Context(), db, args[0], jsonOut)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the run as JSON")
	return cmd
}

func (c *CLI) runsBrowseCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Pick a run interactively and show it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(*dbPath, func(db *store.DB) error {
				runs, err := db.ListRuns(cmd.Context(), 0)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					c.printInfo("No recorded runs")
					return nil
				}
				p := tea.NewProgram(NewRunListModel(runs), tea.WithContext(cmd.Context()))
				final, err := p.Run()
				if err != nil {
					return fmt.Errorf("run browser: %w", err)
				}
				m, ok := final.(RunListModel)
				if !ok || m.Selected == nil {
					return nil
				}
				return c.showRun(cmd.Context(), db, m.Selected.ID, false)
			})
		},
	}
}

func (c *CLI) runsDeleteCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:               "delete <run-id>...",
		Short:             "Delete recorded runs",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.completeRunIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(*dbPath, func(db *store.DB) error {
				for _, id := range args {
					if err := db.DeleteRun(cmd.Context(), id); err != nil {
						return err
					}
					c.printSuccess("Deleted run %s", id)
				}
				return nil
			})
		},
	}
}

func (c *CLI) showRun(ctx context.Context, db *store.DB, id string, jsonOut bool) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if jsonOut {
		return c.encodeJSON(run)
	}
	c.printKeyValue("Run", run.ID)
	c.printKeyValue("Created", run.CreatedAt.Local().Format(time.DateTime))
	if run.Label != "" {
		c.printKeyValue("Label", run.Label)
	}
	c.printKeyValue("Tech", run.TechName)
	c.printKeyValue("Version", run.Version)
	c.printKeyValue("Tiles", strconv.Itoa(len(run.Tiles)))
	c.printStoredTiles(run)
	return nil
}

// completeRunIDs offers recorded run IDs, described by label or date.
func (c *CLI) completeRunIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	path := ""
	if f := cmd.Flag("store"); f != nil {
		path = f.Value.String()
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var ids []string
	err := c.withStore(path, func(db *store.DB) error {
		runs, err := db.ListRuns(ctx, 0)
		if err != nil {
			return err
		}
		for _, r := range runs {
			if !strings.HasPrefix(r.ID, toComplete) || slices.Contains(args, r.ID) {
				continue
			}
			desc := r.Label
			if desc == "" {
				desc = r.CreatedAt.Local().Format(time.DateTime)
			}
			ids = append(ids, r.ID+"\t"+desc)
		}
		return nil
	})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError | cobra.ShellCompDirectiveNoFileComp
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func (c *CLI) withStore(path string, fn func(*store.DB) error) error {
	db, err := c.openStore(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func (c *CLI) encodeJSON(v any) error {
	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// db
// =============================================================================

// dbCommand manages the run store schema.
func (c *CLI) dbCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the run store schema",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "store", "", "run store path (default in the XDG data dir)")

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRawStore(dbPath, func(db *store.DB) error {
				if err := db.MigrateUp(); err != nil {
					return err
				}
				return c.printSchemaVersion(db)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRawStore(dbPath, func(db *store.DB) error {
				if err := db.MigrateDown(); err != nil {
					return err
				}
				return c.printSchemaVersion(db)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRawStore(dbPath, c.printSchemaVersion)
		},
	})

	return cmd
}

func (c *CLI) printSchemaVersion(db *store.DB) error {
	v, dirty, err := db.MigrateVersion()
	if err != nil {
		return err
	}
	s := strconv.FormatUint(uint64(v), 10)
	if dirty {
		s += " (dirty)"
	}
	c.printKeyValue("Schema", s)
	return nil
}

// withRawStore runs fn on the store without migrating it first.
func (c *CLI) withRawStore(path string, fn func(*store.DB) error) error {
	path, err := storePath(path)
	if err != nil {
		return err
	}
	db, err := store.OpenUnmigrated(path, c.Logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
