// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     cmd
// Description: Doctor command verifying the external toolchain
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/parsecheck/internal/report"
	"github.com/msto63/parsecheck/pkg/core/config"
	pcerror "github.com/msto63/parsecheck/pkg/core/error"
	"github.com/msto63/parsecheck/pkg/core/health"
)

var doctorOutput string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify that the build tool, tokenizer and parser are usable",
	Long: `Checks every prerequisite of a run without executing any stage:
the build directory and build command, the tokenizer binary, the parser
command and grammar, the artifact root and the history database.

A tokenizer that does not exist yet is only a warning while the build
stage is enabled, since the build produces it. Any failing check exits
with the configuration error status.`,
	Args: rangeArgs(0, 0),
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().StringVarP(&doctorOutput, "output", "o", "text", "output format: text, json, yaml")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(doctorOutput)
	if err != nil {
		return pcerror.Wrap(err, "invalid --output").WithCode(pcerror.CodeUsage)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	rep := prerequisites(cfg).Check(ctx)
	if err := report.RenderHealth(cmd.OutOrStdout(), rep, format); err != nil {
		return err
	}

	if !rep.Healthy() {
		failed := 0
		for _, c := range rep.Checks {
			if c.Status == health.StatusUnhealthy {
				failed++
			}
		}
		return pcerror.Newf("%d prerequisite check(s) failed", failed).
			WithCode(pcerror.CodeConfigError).
			WithDetail("failed", failed)
	}
	return nil
}

// prerequisites registers one check per external dependency of a run
func prerequisites(cfg *config.Config) *health.Registry {
	r := health.NewRegistry()

	r.Register(health.DirCheck("build_dir", cfg.BuildDir()))

	buildNeeded := !(cfg.Build.SkipClean && cfg.Build.SkipBuild)
	if buildNeeded {
		r.Register(health.ExecutableCheck("build_command", cfg.Build.Command, health.StatusUnhealthy))
	} else {
		r.Register(health.Skipped("build_command", "clean and build disabled"))
	}

	// the build stage produces the tokenizer
	missingTokenizer := health.StatusUnhealthy
	if !cfg.Build.SkipBuild {
		missingTokenizer = health.StatusDegraded
	}
	r.Register(health.ExecutableCheck("tokenizer", cfg.TokenizerPath(), missingTokenizer))

	r.Register(health.ExecutableCheck("parser", cfg.Parser.Command, health.StatusUnhealthy))
	r.Register(health.FileCheck("grammar", cfg.GrammarPath()))
	r.Register(health.WritableDirCheck("artifact_root", cfg.ArtifactRoot()))

	if cfg.HistoryEnabled() {
		r.Register(health.ParentWritableCheck("history", cfg.History.Path))
	} else {
		r.Register(health.Skipped("history", "disabled"))
	}

	return r
}
