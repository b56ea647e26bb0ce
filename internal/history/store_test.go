package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/msto63/parsecheck/internal/pipeline"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "nested", "history.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func seed(t *testing.T, s Store) time.Time {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	runs := []*Run{
		{ID: "a", StartedAt: now.Add(-3 * time.Hour), Input: "tests/ok.txt", Verdict: "ACCEPT", Duration: 120 * time.Millisecond, Tokens: 12,
			Stages: []pipeline.StageResult{{Stage: pipeline.StageParse, Status: "succeeded"}}},
		{ID: "b", StartedAt: now.Add(-2 * time.Hour), Input: "tests/bad.txt", Verdict: "REJECT", Code: "PARSE_REJECTED", ExitCode: 15},
		{ID: "c", StartedAt: now.Add(-1 * time.Hour), Input: "tests/ok.txt", Verdict: "ACCEPT", Kept: true, Workspace: "/tmp/parsecheck-x"},
		{ID: "d", StartedAt: now.Add(-48 * time.Hour), Input: "tests/old.txt", Code: "BUILD_FAILED", ExitCode: 11},
	}
	for _, r := range runs {
		if err := s.Record(ctx, r); err != nil {
			t.Fatalf("Record(%s) error = %v", r.ID, err)
		}
	}
	return now
}

func ids(runs []*Run) string {
	var out string
	for _, r := range runs {
		out += r.ID
	}
	return out
}

func TestStore_Query(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			now := seed(t, s)
			ctx := context.Background()

			tests := []struct {
				name   string
				filter Filter
				want   string
			}{
				{"all newest first", Filter{}, "cbad"},
				{"limit", Filter{Limit: 2}, "cb"},
				{"offset", Filter{Offset: 1, Limit: 2}, "ba"},
				{"offset without limit", Filter{Offset: 3}, "d"},
				{"verdict", Filter{Verdict: "accept"}, "ca"},
				{"input substring", Filter{Input: "ok"}, "ca"},
				{"failed only", Filter{FailedOnly: true}, "bd"},
				{"since", Filter{Since: now.Add(-150 * time.Minute)}, "cb"},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					runs, err := s.Query(ctx, tt.filter)
					if err != nil {
						t.Fatalf("Query() error = %v", err)
					}
					if got := ids(runs); got != tt.want {
						t.Errorf("Query(%+v) = %s, want %s", tt.filter, got, tt.want)
					}
				})
			}
		})
	}
}

func TestStore_RoundTripFields(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)
			runs, err := s.Query(context.Background(), Filter{Input: "ok", Limit: 1, Offset: 1})
			if err != nil || len(runs) != 1 {
				t.Fatalf("Query() = %v, %v", runs, err)
			}
			r := runs[0]
			if r.ID != "a" || r.Tokens != 12 || r.Duration != 120*time.Millisecond {
				t.Errorf("run = %+v", r)
			}
			if len(r.Stages) != 1 || r.Stages[0].Stage != pipeline.StageParse {
				t.Errorf("Stages = %+v", r.Stages)
			}
		})
	}
}

func TestStore_Stats(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			now := seed(t, s)
			stats, err := s.Stats(context.Background())
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if stats.Total != 4 {
				t.Errorf("Total = %d, want 4", stats.Total)
			}
			if stats.Failures != 2 {
				t.Errorf("Failures = %d, want 2", stats.Failures)
			}
			if stats.ByVerdict["ACCEPT"] != 2 || stats.ByVerdict["REJECT"] != 1 || stats.ByVerdict["NONE"] != 1 {
				t.Errorf("ByVerdict = %v", stats.ByVerdict)
			}
			if d := stats.LastRun.Sub(now.Add(-time.Hour)); d < -time.Second || d > time.Second {
				t.Errorf("LastRun = %v, want %v", stats.LastRun, now.Add(-time.Hour))
			}
		})
	}
}

func TestSQLiteStore_CorruptStagesSurfaceError(t *testing.T) {
	s, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "history.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Record(ctx, &Run{ID: "bad", Input: "a.txt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE runs SET stages = '{not json' WHERE id = 'bad'`); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Query(ctx, Filter{}); err == nil {
		t.Error("Query() error = nil for undecodable stages")
	}
}

func TestSQLiteStore_StatsHonoursContext(t *testing.T) {
	s, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "history.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if stats, err := s.Stats(ctx); err == nil {
		t.Errorf("Stats() = %+v with a cancelled context, want error", stats)
	}
}

func TestStore_Prune(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)
			ctx := context.Background()

			deleted, err := s.Prune(ctx, 24*time.Hour)
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != 1 {
				t.Errorf("deleted = %d, want 1", deleted)
			}
			runs, _ := s.Query(ctx, Filter{})
			if got := ids(runs); got != "cba" {
				t.Errorf("remaining = %s, want cba", got)
			}
		})
	}
}

func TestStore_RecordAssignsIDAndTime(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			run := &Run{Input: "x.txt", Verdict: "ACCEPT"}
			if err := s.Record(context.Background(), run); err != nil {
				t.Fatalf("Record() error = %v", err)
			}
			if run.ID == "" || run.StartedAt.IsZero() {
				t.Errorf("run = %+v, want id and start time", run)
			}
		})
	}
}

func TestFromReport(t *testing.T) {
	rep := &pipeline.Report{
		RunID:    "r1",
		Input:    "t.txt",
		Verdict:  pipeline.VerdictOvershoot,
		Code:     "PARSE_REJECTED",
		ExitCode: 15,
		Tokens:   7,
		Stages:   []pipeline.StageResult{{Stage: pipeline.StageBuild, Status: "skipped"}},
	}

	run := FromReport(rep)
	if run.ID != "r1" || run.Verdict != "OVERSHOOT" || run.ExitCode != 15 || run.Tokens != 7 {
		t.Errorf("FromReport() = %+v", run)
	}
	if !run.Failed() {
		t.Error("Failed() = false for exit 15")
	}
}
