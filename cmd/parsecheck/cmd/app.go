// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     cmd
// Description: Shared wiring of configuration, logging, pipeline and history
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/parsecheck/internal/history"
	"github.com/msto63/parsecheck/internal/pipeline"
	"github.com/msto63/parsecheck/internal/procrun"
	"github.com/msto63/parsecheck/pkg/core/config"
	"github.com/msto63/parsecheck/pkg/core/logging"
)

// app bundles everything a command needs to check test files
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	pipeline *pipeline.Pipeline
	history  history.Store
}

// loadConfig discovers the configuration file and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Discover(cfgFile)
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.General.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.General.LogFormat = logFormat
	}
	if buildDir != "" {
		cfg.Build.Dir = buildDir
	}
	if tokenizer != "" {
		cfg.Tokenizer.Binary = tokenizer
	}
	if grammar != "" {
		cfg.Parser.Grammar = grammar
	}
	if parserCmd != "" {
		cfg.Parser.Command = parserCmd
	}
	if artifactDir != "" {
		cfg.Artifacts.Root = artifactDir
	}
	if noClean {
		cfg.Build.SkipClean = true
	}
	if noBuild {
		cfg.Build.SkipBuild = true
	}
	if noHistory {
		disabled := false
		cfg.History.Enabled = &disabled
	}
	if timeout > 0 {
		cfg.SetAllTimeouts(timeout)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Name:   "parsecheck",
		Level:  cfg.General.LogLevel,
		Format: cfg.General.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
}

// newApp loads the configuration and wires the pipeline. The history
// store is opened when enabled; failing to open it only logs a warning.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd, cfg)
	source := cfg.Source()
	if source == "" {
		source = "built-in defaults"
	}
	logger.Debug("Configuration loaded", "source", source, "build_dir", cfg.BuildDir())

	runner := procrun.NewExecutor(procrun.DefaultConfig(), logger)
	a := &app{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline.New(pipeline.ConfigFrom(cfg), runner, logger),
	}

	if cfg.HistoryEnabled() {
		store, err := history.NewSQLiteStore(history.SQLiteConfig{Path: cfg.History.Path})
		if err != nil {
			logger.Warn("History store unavailable", "path", cfg.History.Path, "error", err)
		} else {
			a.history = store
		}
	}

	return a, nil
}

// record stores a finished run; failures never change the run's outcome
func (a *app) record(rep *pipeline.Report) {
	if a.history == nil || rep == nil {
		return
	}
	// the run context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.history.Record(ctx, history.FromReport(rep)); err != nil {
		a.logger.Warn("Failed to record run", "run_id", rep.RunID, "error", err)
	}
}

func (a *app) close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Debug("Closing history store failed", "error", err)
		}
	}
}
