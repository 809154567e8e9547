package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tileroute/pkg/store"
)

// testCLI runs commands against isolated cache and data directories.
type testCLI struct {
	t   *testing.T
	dir string
	out bytes.Buffer
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv(envRedisURL, "")
	return &testCLI{t: t, dir: dir}
}

func (tc *testCLI) run(args ...string) (string, error) {
	tc.t.Helper()
	tc.out.Reset()
	c := &CLI{Logger: log.New(io.Discard), Out: &tc.out}
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return tc.out.String(), err
}

func (tc *testCLI) path(name string) string { return filepath.Join(tc.dir, "proj", name) }

func TestInitWritesProject(t *testing.T) {
	tc := newTestCLI(t)
	out, err := tc.run("init", filepath.Join(tc.dir, "proj"))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, f := range []string{initTechFile, initTileFile, initGuideFile, initConfigFile} {
		if _, err := os.Stat(tc.path(f)); err != nil {
			t.Errorf("%s not written: %v", f, err)
		}
		if !strings.Contains(out, f) {
			t.Errorf("output does not list %s:\n%s", f, out)
		}
	}

	if _, err := tc.run("init", filepath.Join(tc.dir, "proj")); err == nil {
		t.Error("second init without --force succeeded")
	}
	if _, err := tc.run("init", "--force", filepath.Join(tc.dir, "proj")); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestRouteCheckAndRuns(t *testing.T) {
	tc := newTestCLI(t)
	if _, err := tc.run("init", filepath.Join(tc.dir, "proj")); err != nil {
		t.Fatalf("init: %v", err)
	}
	results := filepath.Join(tc.dir, "results")

	out, err := tc.run("route", "-t", tc.path(initTechFile), "-g", tc.path(initGuideFile),
		"-c", tc.path(initConfigFile), "-o", results, "--label", "e2e", "--json", tc.path(initTileFile))
	if err != nil {
		t.Fatalf("route: %v\n%s", err, out)
	}
	var sum runSummary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("route --json output: %v\n%s", err, out)
	}
	if sum.RunID == "" || len(sum.Tiles) != 1 || sum.Tiles[0].Tile != "demo" {
		t.Fatalf("route summary = %+v", sum)
	}
	markers := sum.Tiles[0].Markers

	checkArgs := []string{"check", "-t", tc.path(initTechFile), "--tile", tc.path(initTileFile)}
	checkErr := func(err error) {
		t.Helper()
		var ee *ExitError
		switch {
		case markers == 0 && err != nil:
			t.Errorf("check on a clean tile: %v", err)
		case markers > 0 && (!errors.As(err, &ee) || ee.Code != ExitMarkers):
			t.Errorf("check error = %v, want exit code %d", err, ExitMarkers)
		}
	}
	_, err = tc.run(append(checkArgs, filepath.Join(results, "demo.json"))...)
	checkErr(err)
	_, err = tc.run(append(checkArgs, "--run", shortID(sum.RunID))...)
	checkErr(err)

	if _, err := tc.run(checkArgs...); err == nil {
		t.Error("check without a result source succeeded")
	}

	out, err = tc.run("runs", "list", "--json")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	var runs []store.Summary
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("runs list --json output: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].ID != sum.RunID || runs[0].Label != "e2e" || runs[0].TileCount != 1 {
		t.Fatalf("runs = %+v", runs)
	}

	out, err = tc.run("runs", "show", shortID(sum.RunID))
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	if !strings.Contains(out, sum.RunID) || !strings.Contains(out, "demo") {
		t.Errorf("runs show output:\n%s", out)
	}

	if _, err := tc.run("runs", "delete", sum.RunID); err != nil {
		t.Fatalf("runs delete: %v", err)
	}
	if _, err := tc.run("runs", "show", sum.RunID); err == nil {
		t.Error("deleted run still shown")
	}
}

func TestRouteCachesAcrossRuns(t *testing.T) {
	tc := newTestCLI(t)
	if _, err := tc.run("init", filepath.Join(tc.dir, "proj")); err != nil {
		t.Fatalf("init: %v", err)
	}
	args := []string{"route", "-t", tc.path(initTechFile), "--no-store", "--json", tc.path(initTileFile)}

	for i, wantCached := range []bool{false, true} {
		out, err := tc.run(args...)
		if err != nil {
			t.Fatalf("route %d: %v", i, err)
		}
		var sum runSummary
		if err := json.Unmarshal([]byte(out), &sum); err != nil {
			t.Fatalf("route %d output: %v", i, err)
		}
		if sum.RunID != "" {
			t.Errorf("route %d recorded run %s with --no-store", i, sum.RunID)
		}
		if got := sum.Tiles[0].Cached; got != wantCached {
			t.Errorf("route %d cached = %v, want %v", i, got, wantCached)
		}
	}

	out, err := tc.run("cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 cached entries") {
		t.Errorf("cache clear output:\n%s", out)
	}
}

func TestRouteRejectsBadOverrides(t *testing.T) {
	tc := newTestCLI(t)
	if _, err := tc.run("init", filepath.Join(tc.dir, "proj")); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, flag := range []string{"--ripup=some", "--guide-mode=sideways", "--taper-radius=-1"} {
		if _, err := tc.run("route", "-t", tc.path(initTechFile), "--no-store", "--no-cache", flag, tc.path(initTileFile)); err == nil {
			t.Errorf("route %s succeeded", flag)
		}
	}
}

func TestGuidesCommand(t *testing.T) {
	tc := newTestCLI(t)
	if _, err := tc.run("init", filepath.Join(tc.dir, "proj")); err != nil {
		t.Fatalf("init: %v", err)
	}
	out, err := tc.run("guides", "-t", tc.path(initTechFile), "--tile", tc.path(initTileFile), tc.path(initGuideFile))
	if err != nil {
		t.Fatalf("guides: %v", err)
	}
	for _, want := range []string{"M1,M2", "All guide nets found"} {
		if !strings.Contains(out, want) {
			t.Errorf("guides output missing %q:\n%s", want, out)
		}
	}

	bad := filepath.Join(tc.dir, "bad.guide")
	if err := os.WriteFile(bad, []byte("a\n(\n0 0 10 10 M9\n)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := tc.run("guides", "-t", tc.path(initTechFile), bad); err == nil {
		t.Error("guides accepted an unknown layer")
	}
}

func TestDBCommands(t *testing.T) {
	tc := newTestCLI(t)
	db := filepath.Join(tc.dir, "runs.db")

	out, err := tc.run("db", "version", "--store", db)
	if err != nil || !strings.Contains(out, "0") {
		t.Fatalf("db version on a new store = %q, %v", out, err)
	}
	out, err = tc.run("db", "migrate", "--store", db)
	if err != nil || !strings.Contains(out, "2") {
		t.Fatalf("db migrate = %q, %v", out, err)
	}
	out, err = tc.run("db", "down", "--store", db)
	if err != nil || !strings.Contains(out, "1") {
		t.Fatalf("db down = %q, %v", out, err)
	}
}

func TestCompletion(t *testing.T) {
	tc := newTestCLI(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := tc.run("completion", shell)
		if err != nil {
			t.Fatalf("completion %s: %v", shell, err)
		}
		if !strings.Contains(out, appName) {
			t.Errorf("completion %s does not mention %s", shell, appName)
		}
	}
	if _, err := tc.run("completion", "tcsh"); err == nil {
		t.Error("completion accepted an unknown shell")
	}
}

func TestCompleteRunIDs(t *testing.T) {
	tc := newTestCLI(t)
	db := filepath.Join(tc.dir, "runs.db")
	s, err := store.Open(db, nil)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.SaveRun(context.Background(), &store.Run{Label: "nightly", TechName: "demo3"})
	s.Close()
	if err != nil {
		t.Fatal(err)
	}

	out, err := tc.run(cobraCompleteCmd, "runs", "show", "--store", db, id[:4])
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !strings.Contains(out, id+"\tnightly") {
		t.Errorf("completion output = %q, want %s", out, id)
	}
}

// cobraCompleteCmd is cobra's hidden completion request command.
const cobraCompleteCmd = "__complete"
