// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     cmd
// Description: Single-file acceptance check (the root command action)
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msto63/parsecheck/internal/pipeline"
)

func runCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), usageLine)
		return errUsage
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	input := args[0]
	// any second argument requests the intermediates; its value is irrelevant
	keep := len(args) > 1 || keepFlag || a.cfg.Artifacts.Keep
	if len(args) > 2 {
		a.logger.Debug("Ignoring extra arguments", "args", args[2:])
	}

	timer := a.logger.StartTimer("check")
	rep, err := a.pipeline.Run(cmd.Context(), input, pipeline.Options{
		Keep:        keep,
		Stdout:      cmd.OutOrStdout(),
		Diagnostics: cmd.ErrOrStderr(),
	})
	a.record(rep)
	timer.Stop("input", input, "verdict", rep.Verdict, "tokens", rep.Tokens, "exit_code", rep.ExitCode)

	return err
}
