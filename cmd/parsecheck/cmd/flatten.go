// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     cmd
// Description: Flatten a token stream without running any tool
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/msto63/parsecheck/internal/artifact"
	pcerror "github.com/msto63/parsecheck/pkg/core/error"
	"github.com/msto63/parsecheck/pkg/core/logging"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten <tokens_file> [output_file]",
	Short: "Join a one-token-per-line stream into a single line",
	Long: `Replaces every newline of the token stream with a space and
terminates the result with exactly one newline, the form the Menhir
interpreter reads as one sentence. Writes to stdout when no output file
is given.`,
	Args: rangeArgs(1, 2),
	RunE: runFlatten,
}

func init() {
	rootCmd.AddCommand(flattenCmd)
}

func runFlatten(cmd *cobra.Command, args []string) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	logger := logging.NewLogger(logging.Config{
		Name:   "parsecheck",
		Level:  level,
		Format: logFormat,
		Output: cmd.ErrOrStderr(),
	})

	if _, err := os.Stat(args[0]); err != nil {
		return pcerror.Wrapf(err, "tokens file %s", args[0]).
			WithCode(pcerror.CodeInputNotFound).
			WithOperation("flatten")
	}

	var (
		n   int
		err error
	)
	if len(args) == 2 {
		n, err = artifact.FlattenFile(args[0], args[1])
	} else {
		var in *os.File
		in, err = os.Open(args[0])
		if err == nil {
			n, err = artifact.Flatten(in, cmd.OutOrStdout())
			in.Close()
		}
	}

	if errors.Is(err, artifact.ErrSameFile) {
		return pcerror.Wrap(err, "refusing to overwrite the tokens file").
			WithCode(pcerror.CodeUsage).
			WithOperation("flatten")
	}
	if err != nil {
		return pcerror.Wrap(err, "flatten failed").
			WithCode(pcerror.CodeFlattenFailed).
			WithOperation("flatten")
	}

	logger.Debug("Token stream flattened", "input", args[0], "newlines", n)
	return nil
}

// rangeArgs validates the positional argument count and reports a
// violation as a usage error
func rangeArgs(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(min, max)(cmd, args); err != nil {
			return pcerror.Wrap(err, cmd.UseLine()).WithCode(pcerror.CodeUsage)
		}
		return nil
	}
}
