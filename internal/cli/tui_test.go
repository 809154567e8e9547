package cli

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/tileroute/pkg/store"
)

func testRuns(n int) []store.Summary {
	runs := make([]store.Summary, n)
	for i := range runs {
		runs[i].ID = strings.Repeat(string(rune('a'+i)), 12)
		runs[i].TechName = "demo3"
		runs[i].TileCount = i + 1
	}
	return runs
}

func press(m tea.Model, key string) tea.Model {
	var msg tea.KeyMsg
	switch key {
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	m, _ = m.Update(msg)
	return m
}

func TestRunListNavigation(t *testing.T) {
	m := NewRunListModel(testRuns(4))
	m.Height = 2

	var model tea.Model = m
	for _, k := range []string{"down", "j", "down", "down"} {
		model = press(model, k)
	}
	got := model.(RunListModel)
	if got.Cursor != 3 {
		t.Errorf("Cursor = %d, want 3", got.Cursor)
	}
	if got.Offset != 2 {
		t.Errorf("Offset = %d, want 2", got.Offset)
	}

	model = press(press(press(model, "k"), "up"), "up")
	got = model.(RunListModel)
	if got.Cursor != 0 || got.Offset != 0 {
		t.Errorf("Cursor, Offset = %d, %d, want 0, 0", got.Cursor, got.Offset)
	}
}

func TestRunListSelect(t *testing.T) {
	var model tea.Model = NewRunListModel(testRuns(3))
	model = press(model, "j")
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := model.(RunListModel)
	if got.Selected == nil || got.Selected.ID != testRuns(3)[1].ID {
		t.Fatalf("Selected = %+v, want the second run", got.Selected)
	}
	if cmd == nil {
		t.Error("enter should quit the program")
	}
}

func TestRunListQuitWithoutSelection(t *testing.T) {
	model, cmd := NewRunListModel(testRuns(2)).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if model.(RunListModel).Selected != nil {
		t.Error("q selected a run")
	}
	if cmd == nil {
		t.Error("q should quit the program")
	}
}

func TestRunListView(t *testing.T) {
	m := NewRunListModel(testRuns(2))
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	m.Runs[0].CreatedAt = now.Add(-2 * time.Hour)
	m.Runs[1].CreatedAt = now.Add(-30 * 24 * time.Hour)

	view := m.View()
	for _, want := range []string{"Recorded Runs", "aaaaaaaa", "bbbbbbbb", "2h ago", "[1/2]"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestRunListWindowSize(t *testing.T) {
	model, _ := NewRunListModel(testRuns(1)).Update(tea.WindowSizeMsg{Width: 80, Height: 8})
	if h := model.(RunListModel).Height; h != 5 {
		t.Errorf("Height = %d, want 5", h)
	}
}
