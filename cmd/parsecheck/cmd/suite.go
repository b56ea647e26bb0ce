// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     cmd
// Description: Check a directory of test files against one build
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package cmd

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/msto63/parsecheck/internal/pipeline"
	"github.com/msto63/parsecheck/internal/report"
	pcerror "github.com/msto63/parsecheck/pkg/core/error"
)

var (
	suitePattern  string
	suiteOutput   string
	suiteFailFast bool
)

var suiteCmd = &cobra.Command{
	Use:   "suite <dir|file>...",
	Short: "Build once and check every test file",
	Long: `Runs the clean and build stages once, then tokenizes, flattens and
parses every test file found. Directories are searched recursively for
files matching --pattern.

When a golden file exists next to a test (tests/expr.txt ->
tests/expr.expected) the interpreter output must match it; trailing
whitespace is ignored. The suite passes only if every file passes.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
			return pcerror.Wrap(err, cmd.UseLine()).WithCode(pcerror.CodeUsage)
		}
		return nil
	},
	RunE: runSuite,
}

func init() {
	rootCmd.AddCommand(suiteCmd)

	suiteCmd.Flags().StringVar(&suitePattern, "pattern", "*.txt", "file name pattern for test files in directories")
	suiteCmd.Flags().StringVarP(&suiteOutput, "output", "o", "text", "summary format: text, json, yaml")
	suiteCmd.Flags().BoolVar(&suiteFailFast, "fail-fast", false, "stop at the first failing file")
	suiteCmd.Flags().BoolVar(&keepFlag, "keep", false, "keep intermediate files of every run")
}

func runSuite(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(suiteOutput)
	if err != nil {
		return pcerror.Wrap(err, "invalid --output").WithCode(pcerror.CodeUsage)
	}
	if _, err := filepath.Match(suitePattern, ""); err != nil {
		return pcerror.Wrapf(err, "invalid --pattern %q", suitePattern).WithCode(pcerror.CodeUsage)
	}

	files, err := collectTestFiles(args, suitePattern)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	opts := pipeline.Options{
		Keep:        keepFlag || a.cfg.Artifacts.Keep,
		Stdout:      io.Discard,
		Diagnostics: cmd.ErrOrStderr(),
		Observer: func(ev pipeline.StageEvent) {
			if ev.Stage == pipeline.StageBuild && ev.Status == pipeline.StageStarted {
				a.logger.Info("Building tokenizer", "dir", a.cfg.BuildDir())
			}
		},
	}

	if _, err := a.pipeline.Build(ctx, opts); err != nil {
		return err
	}

	summary := report.NewSummary()
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		a.logger.Debug("Checking test file", "input", file)

		rep, _ := a.pipeline.Check(ctx, file, opts)
		outcome := report.FromReport(rep)

		if rep.Succeeded() {
			golden, gerr := report.CompareGolden(rep.ParserOutput, report.GoldenPath(file))
			switch {
			case gerr != nil:
				outcome.Passed = false
				outcome.Message = gerr.Error()
			case golden.Found:
				outcome.Golden = golden.Path
				if !golden.Match {
					outcome.Passed = false
					outcome.Code = pcerror.CodeOutputMismatch.String()
					outcome.ExitCode = pcerror.CodeOutputMismatch.ExitCode()
					outcome.Message = golden.Describe()
					rep.Code = outcome.Code
					rep.ExitCode = outcome.ExitCode
					rep.Error = outcome.Message
				}
			}
		}

		a.record(rep)
		summary.Add(outcome)
		if !outcome.Passed && suiteFailFast {
			break
		}
	}
	summary.Finish()

	if err := report.Render(cmd.OutOrStdout(), summary, format); err != nil {
		return pcerror.Wrap(err, "render summary")
	}

	if ctx.Err() != nil {
		return pcerror.Wrap(ctx.Err(), "suite interrupted").WithCode(pcerror.CodeCanceled)
	}
	if !summary.AllPassed() {
		return pcerror.Newf("%d of %d test files failed", summary.Failed, summary.Total).
			WithCode(pcerror.CodeSuiteFailed)
	}
	return nil
}

// collectTestFiles expands directories to the files matching pattern.
// Explicit file arguments are taken as given.
func collectTestFiles(args []string, pattern string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, pcerror.Wrapf(err, "test path %s", arg).WithCode(pcerror.CodeInputNotFound)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if ok, _ := filepath.Match(pattern, d.Name()); ok {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, pcerror.Wrapf(err, "scan %s", arg).WithCode(pcerror.CodeInputNotFound)
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}

	if len(files) == 0 {
		return nil, pcerror.Newf("no test files matching %q", pattern).WithCode(pcerror.CodeInputNotFound)
	}
	return files, nil
}
