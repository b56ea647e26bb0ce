// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     cmd
// Description: List, summarise, prune and browse recorded runs
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/parsecheck/internal/history"
	"github.com/msto63/parsecheck/internal/report"
	"github.com/msto63/parsecheck/internal/tui/historyview"
	pcerror "github.com/msto63/parsecheck/pkg/core/error"
)

var (
	historyLimit       int
	historyVerdict     string
	historyInput       string
	historyFailed      bool
	historyPrune       time.Duration
	historyStats       bool
	historyInteractive bool
	historyOutput      string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs",
	Long: `Lists runs recorded in the history store, newest first.

Interactive mode (-i) opens a terminal browser:
  1-4         toggle ACCEPT, REJECT, OVERSHOOT/UNKNOWN, errors
  0           show all
  r           refresh
  g / G       top / bottom
  q, Ctrl+C   quit`,
	Args: rangeArgs(0, 0),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	historyCmd.Flags().StringVar(&historyVerdict, "verdict", "", "only runs with this verdict (ACCEPT, REJECT, OVERSHOOT, UNKNOWN)")
	historyCmd.Flags().StringVar(&historyInput, "input", "", "only runs whose input path contains this text")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only runs with a non-zero exit status")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "delete runs older than this duration, e.g. 720h")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "show statistics instead of runs")
	historyCmd.Flags().BoolVarP(&historyInteractive, "interactive", "i", false, "open the interactive browser")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "text", "output format: text, json, yaml")
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(historyOutput)
	if err != nil {
		return pcerror.Wrap(err, "invalid --output").WithCode(pcerror.CodeUsage)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	store, err := history.NewSQLiteStore(history.SQLiteConfig{Path: cfg.History.Path})
	if err != nil {
		return pcerror.Wrap(err, "open history store").
			WithCode(pcerror.CodeStorageError).
			WithDetail("path", cfg.History.Path)
	}
	defer store.Close()
	logger.Debug("History store opened", "path", cfg.History.Path)

	ctx := cmd.Context()

	switch {
	case historyPrune > 0:
		deleted, err := store.Prune(ctx, historyPrune)
		if err != nil {
			return pcerror.Wrap(err, "prune history").WithCode(pcerror.CodeStorageError)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs older than %s\n", deleted, historyPrune)
		return nil

	case historyStats:
		stats, err := store.Stats(ctx)
		if err != nil {
			return pcerror.Wrap(err, "history statistics").WithCode(pcerror.CodeStorageError)
		}
		return report.RenderStats(cmd.OutOrStdout(), stats, format)

	}

	filter := history.Filter{
		Input:      historyInput,
		Verdict:    historyVerdict,
		FailedOnly: historyFailed,
		Limit:      historyLimit,
	}
	if historyInteractive {
		return historyview.Run(store, historyview.Config{Limit: historyLimit, Filter: filter})
	}

	runs, err := store.Query(ctx, filter)
	if err != nil {
		return pcerror.Wrap(err, "query history").WithCode(pcerror.CodeStorageError)
	}
	return report.RenderRuns(cmd.OutOrStdout(), runs, format)
}
