package historyview

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/msto63/parsecheck/internal/history"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedModel(t *testing.T) Model {
	t.Helper()
	return loadedModelWith(t, DefaultConfig())
}

func loadedModelWith(t *testing.T, cfg Config) Model {
	t.Helper()
	store := history.NewMemoryStore()
	now := time.Now()
	for i, r := range []*history.Run{
		{ID: "acc", Input: "ok.txt", Verdict: "ACCEPT"},
		{ID: "rej", Input: "bad.txt", Verdict: "REJECT", ExitCode: 15, Code: "PARSE_REJECTED"},
		{ID: "ovr", Input: "long.txt", Verdict: "OVERSHOOT", ExitCode: 15},
		{ID: "unk", Input: "odd.txt", Verdict: "UNKNOWN"},
		{ID: "err", Input: "broken.txt", ExitCode: 11, Code: "BUILD_FAILED"},
	} {
		r.StartedAt = now.Add(-time.Duration(i) * time.Minute)
		if err := store.Record(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}

	m := New(store, cfg)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	updated, _ = updated.(Model).Update(m.loadRuns())
	return updated.(Model)
}

func visibleIDs(m Model) string {
	var ids []string
	for _, r := range m.Visible() {
		ids = append(ids, r.ID)
	}
	return strings.Join(ids, ",")
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		verdict string
		want    Category
	}{
		{"ACCEPT", CategoryAccept},
		{"REJECT", CategoryReject},
		{"OVERSHOOT", CategoryOther},
		{"UNKNOWN", CategoryOther},
		{"", CategoryError},
	}
	for _, tt := range tests {
		if got := Categorize(&history.Run{Verdict: tt.verdict}); got != tt.want {
			t.Errorf("Categorize(%q) = %v, want %v", tt.verdict, got, tt.want)
		}
	}
}

func TestModel_LoadsRunsNewestFirst(t *testing.T) {
	m := loadedModel(t)
	if m.loading {
		t.Error("still loading after runsLoadedMsg")
	}
	if got := visibleIDs(m); got != "acc,rej,ovr,unk,err" {
		t.Errorf("visible = %s", got)
	}
	if m.stats == nil || m.stats.Total != 5 {
		t.Errorf("stats = %+v", m.stats)
	}
	if !strings.Contains(m.View(), "ok.txt") {
		t.Error("view does not list runs")
	}
}

func TestModel_FilterToggles(t *testing.T) {
	tests := []struct {
		keys []string
		want string
	}{
		{[]string{"1"}, "rej,ovr,unk,err"},
		{[]string{"2"}, "acc,ovr,unk,err"},
		{[]string{"3"}, "acc,rej,err"},
		{[]string{"4"}, "acc,rej,ovr,unk"},
		{[]string{"1", "2", "3"}, "err"},
		{[]string{"1", "1"}, "acc,rej,ovr,unk,err"},
		{[]string{"1", "2", "3", "4", "0"}, "acc,rej,ovr,unk,err"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.keys, ""), func(t *testing.T) {
			m := loadedModel(t)
			for _, k := range tt.keys {
				updated, _ := m.Update(key(k))
				m = updated.(Model)
			}
			if got := visibleIDs(m); got != tt.want {
				t.Errorf("after %v visible = %s, want %s", tt.keys, got, tt.want)
			}
		})
	}
}

func TestModel_QuitKeys(t *testing.T) {
	m := loadedModel(t)
	for _, msg := range []tea.KeyMsg{key("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("%v: no command", msg)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%v: expected quit", msg)
		}
	}
}

func TestModel_Refresh(t *testing.T) {
	m := loadedModel(t)
	_, cmd := m.Update(key("r"))
	if cmd == nil {
		t.Fatal("r returned no command")
	}
	if _, ok := cmd().(refreshMsg); !ok {
		t.Error("r should request a refresh")
	}

	updated, _ := m.Update(refreshMsg{})
	if !updated.(Model).loading {
		t.Error("refresh should set loading")
	}
}

func TestModel_LoadError(t *testing.T) {
	m := loadedModel(t)
	updated, _ := m.Update(runsLoadedMsg{err: errors.New("database is locked")})
	m = updated.(Model)
	if m.err == nil {
		t.Fatal("error not recorded")
	}
	if got := visibleIDs(m); got == "" {
		t.Error("previous runs should stay visible after a failed reload")
	}
}

func TestModel_StoreFilter(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"verdict", Config{Filter: history.Filter{Verdict: "reject"}}, "rej"},
		{"input", Config{Filter: history.Filter{Input: "o"}}, "acc,ovr,unk,err"},
		{"failed only", Config{Filter: history.Filter{FailedOnly: true}}, "rej,ovr,err"},
		{"config limit wins", Config{Limit: 2, Filter: history.Filter{Limit: 1}}, "acc,rej"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := loadedModelWith(t, tt.cfg)
			if got := visibleIDs(m); got != tt.want {
				t.Errorf("visible = %s, want %s", got, tt.want)
			}
		})
	}
}
