// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     history
// Description: Persistent record of acceptance runs
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/msto63/parsecheck/internal/pipeline"
)

// Run is one recorded acceptance run
type Run struct {
	ID        string                 `json:"id" yaml:"id"`
	StartedAt time.Time              `json:"started_at" yaml:"started_at"`
	Input     string                 `json:"input" yaml:"input"`
	Verdict   string                 `json:"verdict" yaml:"verdict"`
	Code      string                 `json:"code,omitempty" yaml:"code,omitempty"`
	ExitCode  int                    `json:"exit_code" yaml:"exit_code"`
	Duration  time.Duration          `json:"duration_ns" yaml:"duration"`
	Tokens    int                    `json:"tokens" yaml:"tokens"`
	Kept      bool                   `json:"kept" yaml:"kept"`
	Workspace string                 `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	Stages    []pipeline.StageResult `json:"stages,omitempty" yaml:"stages,omitempty"`
}

// Failed reports whether the run ended with a non-zero exit status
func (r *Run) Failed() bool {
	return r.ExitCode != 0
}

// FromReport converts a pipeline report into a history record
func FromReport(rep *pipeline.Report) *Run {
	return &Run{
		ID:        rep.RunID,
		StartedAt: rep.StartedAt,
		Input:     rep.Input,
		Verdict:   string(rep.Verdict),
		Code:      rep.Code,
		ExitCode:  rep.ExitCode,
		Duration:  rep.Duration,
		Tokens:    rep.Tokens,
		Kept:      rep.Kept,
		Workspace: rep.Workspace,
		Stages:    rep.Stages,
	}
}

// Filter defines criteria for listing runs
type Filter struct {
	// Input matches as a substring of the input path
	Input   string
	Verdict string
	// FailedOnly selects runs with a non-zero exit status
	FailedOnly bool
	Since      time.Time
	Limit      int
	Offset     int
}

// Stats summarises the store
type Stats struct {
	Total     int64            `json:"total" yaml:"total"`
	Failures  int64            `json:"failures" yaml:"failures"`
	ByVerdict map[string]int64 `json:"by_verdict" yaml:"by_verdict"`
	LastRun   time.Time        `json:"last_run,omitempty" yaml:"last_run,omitempty"`
}

// Store defines the interface for run persistence
type Store interface {
	Record(ctx context.Context, run *Run) error
	Query(ctx context.Context, filter Filter) ([]*Run, error)
	Stats(ctx context.Context) (*Stats, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// SQLiteConfig holds configuration for the SQLite store
type SQLiteConfig struct {
	Path string
}

// NewSQLiteStore opens or creates the history database
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		input TEXT NOT NULL,
		verdict TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT '',
		exit_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		tokens INTEGER NOT NULL DEFAULT 0,
		kept INTEGER NOT NULL DEFAULT 0,
		workspace TEXT,
		stages TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_input ON runs(input);
	CREATE INDEX IF NOT EXISTS idx_runs_verdict ON runs(verdict);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record stores a run
func (s *SQLiteStore) Record(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(run)

	var stagesJSON []byte
	if len(run.Stages) > 0 {
		stagesJSON, _ = json.Marshal(run.Stages)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, started_at, input, verdict, code, exit_code, duration_ms, tokens, kept, workspace, stages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC(), run.Input, run.Verdict, run.Code, run.ExitCode,
		run.Duration.Milliseconds(), run.Tokens, run.Kept, run.Workspace, string(stagesJSON))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Query lists runs newest first
func (s *SQLiteStore) Query(ctx context.Context, filter Filter) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, started_at, input, verdict, code, exit_code, duration_ms, tokens, kept, workspace, stages FROM runs WHERE 1=1`
	var args []interface{}

	if filter.Input != "" {
		query += " AND input LIKE ?"
		args = append(args, "%"+filter.Input+"%")
	}
	if filter.Verdict != "" {
		query += " AND verdict = ?"
		args = append(args, strings.ToUpper(filter.Verdict))
	}
	if filter.FailedOnly {
		query += " AND exit_code != 0"
	}
	if !filter.Since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var durationMS int64
		var workspace, stagesJSON sql.NullString

		if err := rows.Scan(&run.ID, &run.StartedAt, &run.Input, &run.Verdict, &run.Code,
			&run.ExitCode, &durationMS, &run.Tokens, &run.Kept, &workspace, &stagesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Duration = time.Duration(durationMS) * time.Millisecond
		if workspace.Valid {
			run.Workspace = workspace.String
		}
		if stagesJSON.Valid && stagesJSON.String != "" {
			if err := json.Unmarshal([]byte(stagesJSON.String), &run.Stages); err != nil {
				return nil, fmt.Errorf("failed to decode stages of run %s: %w", run.ID, err)
			}
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// Stats returns run statistics
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{ByVerdict: make(map[string]int64)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE exit_code != 0`).Scan(&stats.Failures); err != nil {
		return nil, fmt.Errorf("failed to count failures: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT verdict, COUNT(*) FROM runs GROUP BY verdict`)
	if err != nil {
		return nil, fmt.Errorf("failed to group runs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var verdict string
		var count int64
		if err := rows.Scan(&verdict, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats.ByVerdict[verdictLabel(verdict)] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to group runs: %w", err)
	}

	// MAX over DATETIME comes back as text from the driver
	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(started_at) FROM runs`).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}
	if last.Valid {
		stats.LastRun = parseSQLiteTime(last.String)
	}

	return stats, nil
}

// Prune removes runs older than the given duration
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).UTC()
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// MemoryStore is an in-memory implementation for testing and for
// runs with history disabled
type MemoryStore struct {
	mu   sync.RWMutex
	runs []*Run
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record stores a run
func (s *MemoryStore) Record(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(run)
	for i, r := range s.runs {
		if r.ID == run.ID {
			s.runs[i] = run
			return nil
		}
	}
	s.runs = append(s.runs, run)
	return nil
}

// Query lists runs newest first
func (s *MemoryStore) Query(ctx context.Context, filter Filter) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Run
	for _, run := range s.runs {
		if filter.Input != "" && !strings.Contains(run.Input, filter.Input) {
			continue
		}
		if filter.Verdict != "" && run.Verdict != strings.ToUpper(filter.Verdict) {
			continue
		}
		if filter.FailedOnly && !run.Failed() {
			continue
		}
		if !filter.Since.IsZero() && run.StartedAt.Before(filter.Since) {
			continue
		}
		results = append(results, run)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return nil, nil
		}
		results = results[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(results) {
		results = results[:filter.Limit]
	}

	return results, nil
}

// Stats returns run statistics
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{ByVerdict: make(map[string]int64)}
	for _, run := range s.runs {
		stats.Total++
		if run.Failed() {
			stats.Failures++
		}
		stats.ByVerdict[verdictLabel(run.Verdict)]++
		if run.StartedAt.After(stats.LastRun) {
			stats.LastRun = run.StartedAt
		}
	}
	return stats, nil
}

// Prune removes runs older than the given duration
func (s *MemoryStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var deleted int64
	kept := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		if run.StartedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, run)
	}
	s.runs = kept
	return deleted, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

func prepare(run *Run) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
}

// verdictLabel names runs that never reached the parser
func verdictLabel(verdict string) string {
	if verdict == "" {
		return "NONE"
	}
	return verdict
}

func parseSQLiteTime(s string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999Z07:00",
		time.RFC3339Nano,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
