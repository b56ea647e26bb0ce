// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     cmd
// Description: Root command, persistent flags and error reporting
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	pcerror "github.com/msto63/parsecheck/pkg/core/error"
)

// usageLine is printed verbatim to stdout when no test file is given
const usageLine = "Usage: parsecheck test_filepath intermediate_files[optional]"

// errUsage is returned after the usage line has been printed
var errUsage = pcerror.New("missing test file").WithCode(pcerror.CodeUsage)

var (
	cfgFile     string
	verbose     bool
	logFormat   string
	buildDir    string
	tokenizer   string
	grammar     string
	parserCmd   string
	artifactDir string
	noClean     bool
	noBuild     bool
	noHistory   bool
	timeout     time.Duration
	keepFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "parsecheck <test_file> [keep]",
	Short: "Grammar acceptance driver for a Menhir parser",
	Long: `parsecheck rebuilds the debug tokenizer, tokenizes a test file,
flattens the token stream onto one line and feeds it to the Menhir
interpreter, which prints ACCEPT/REJECT and the concrete syntax tree.

  parsecheck tests/expr.txt          check one file, remove intermediates
  parsecheck tests/expr.txt keep     check one file, keep intermediates

A test file named like a subcommand (version, suite, doctor, history,
flatten, help) must be given with a path, e.g. ./version; the bare name
is refused while such a file exists in the working directory.

Exit status:
  0   success               12  tokenize failed      16  output mismatch
  2   tokens unreadable     13  flatten failed       64  usage
  10  clean failed          14  parse failed         66  test file missing
  11  build failed          15  parser rejected      78  bad configuration
                                                     130 interrupted`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCheck,
}

// refuseShadowedFile rejects a subcommand whose name is also a regular
// file in the working directory
func refuseShadowedFile(cmd *cobra.Command, args []string) error {
	if cmd == rootCmd {
		return nil
	}
	name := cmd.Name()
	info, err := os.Stat(name)
	if err != nil || info.IsDir() {
		return nil
	}
	return pcerror.Newf("%q is both a subcommand and a file in the working directory; use ./%s to check the file", name, name).
		WithCode(pcerror.CodeUsage).
		WithDetail("file", name)
}

// Execute runs the CLI. Errors are reported on stderr; the caller maps
// them to an exit status.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errUsage) {
		printError(err)
	}
	return err
}

func init() {
	// assigned here: refuseShadowedFile refers to rootCmd
	rootCmd.PersistentPreRunE = refuseShadowedFile

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./parsecheck.toml, ~/.config/parsecheck/config.toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&logFormat, "log-format", "", "log format: text, console, json")
	flags.StringVar(&buildDir, "build-dir", "", "directory containing the Makefile, tokenizer and grammar")
	flags.StringVar(&tokenizer, "tokenizer", "", "tokenizer binary (relative to the build directory)")
	flags.StringVar(&grammar, "grammar", "", "grammar file (relative to the build directory)")
	flags.StringVar(&parserCmd, "parser", "", "parser-interpreter command")
	flags.StringVar(&artifactDir, "artifact-dir", "", "directory for per-run workspaces (default: system temp dir)")
	flags.BoolVar(&noClean, "no-clean", false, "skip the clean stage")
	flags.BoolVar(&noBuild, "no-build", false, "skip the build stage")
	flags.BoolVar(&noHistory, "no-history", false, "do not record runs in the history store")
	flags.DurationVar(&timeout, "timeout", 0, "timeout applied to every stage (0 keeps configured values)")

	rootCmd.Flags().BoolVar(&keepFlag, "keep", false, "keep intermediate files (same as a second argument)")

	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return pcerror.Wrap(err, "invalid arguments").WithCode(pcerror.CodeUsage)
	})
}

func printError(err error) {
	fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
}
