package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/pipeline"
	"github.com/matzehuels/tileroute/pkg/store"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failures.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleHeader   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleCommand  = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func (c *CLI) printSuccess(format string, args ...any) {
	fmt.Fprintln(c.Out, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func (c *CLI) printError(format string, args ...any) {
	fmt.Fprintln(c.Out, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func (c *CLI) printWarning(format string, args ...any) {
	fmt.Fprintln(c.Out, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (c *CLI) printInfo(format string, args ...any) {
	fmt.Fprintln(c.Out, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented dim line.
func (c *CLI) printDetail(format string, args ...any) {
	fmt.Fprintln(c.Out, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written file.
func (c *CLI) printFile(path string) {
	fmt.Fprintln(c.Out, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func (c *CLI) printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(c.Out, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func (c *CLI) printNextStep(description, cmd string) {
	fmt.Fprintln(c.Out, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Tables
// =============================================================================

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// printTileTable prints one row per tile outcome of a run.
func (c *CLI) printTileTable(res *pipeline.Result) {
	t := newTable("Tile", "Status", "Passes", "Markers", "Time", "Source")
	for _, o := range res.Tiles {
		status := StyleSuccess.Render("clean")
		switch {
		case o.Err != nil:
			status = StyleError.Render(string(errors.GetCode(o.Err)))
		case o.Markers() > 0:
			status = StyleWarning.Render("markers")
		}
		src := styleComputed.Render(iconFresh)
		if o.Cached {
			src = styleCached.Render(iconCached)
		}
		t.Row(o.Tile, status, strconv.Itoa(o.Iterations()), strconv.Itoa(o.Markers()),
			o.Duration.Round(time.Millisecond).String(), src)
	}
	fmt.Fprintln(c.Out, t.Render())
}

// printStoredTiles prints the tiles of a stored run.
func (c *CLI) printStoredTiles(run *store.Run) {
	t := newTable("Tile", "Status", "Passes", "Markers", "Time", "Error")
	for _, tr := range run.Tiles {
		status := StyleSuccess.Render(tr.Status)
		if tr.Status != store.StatusDone {
			status = StyleError.Render(tr.Status)
		} else if tr.Markers > 0 {
			status = StyleWarning.Render(tr.Status)
		}
		if tr.Cached {
			status += " " + styleCached.Render(iconCached)
		}
		t.Row(tr.Tile, status, strconv.Itoa(tr.Iterations), strconv.Itoa(tr.Markers),
			tr.Duration.String(), truncate(tr.Error, 48))
	}
	fmt.Fprintln(c.Out, t.Render())
}

// printRunTable prints run summaries, newest first.
func (c *CLI) printRunTable(runs []store.Summary) {
	t := newTable("Run", "Created", "Label", "Tech", "Tiles", "Failed", "Markers")
	for _, r := range runs {
		t.Row(shortID(r.ID), r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Label, r.TechName,
			strconv.Itoa(r.TileCount), strconv.Itoa(r.Failed), strconv.Itoa(r.MarkerSum))
	}
	fmt.Fprintln(c.Out, t.Render())
}

// printMarkerTable prints violations with their layer names resolved.
func (c *CLI) printMarkerTable(layerName func(z int, cut bool) string, ms []design.Marker) {
	t := newTable("Rule", "Layer", "BBox", "Nets")
	for _, m := range ms {
		nets := make([]string, len(m.Nets))
		for i, n := range m.Nets {
			if n == design.Obstruction {
				nets[i] = "obs"
				continue
			}
			nets[i] = strconv.Itoa(n)
		}
		t.Row(m.Rule.String(), layerName(m.Layer, m.Cut), m.BBox.String(), strings.Join(nets, ","))
	}
	fmt.Fprintln(c.Out, t.Render())
}

// =============================================================================
// Utilities
// =============================================================================

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
