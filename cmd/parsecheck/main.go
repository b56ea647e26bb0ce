// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     main
// Description: Entry point of the parsecheck CLI
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package main

import (
	"os"

	"github.com/msto63/parsecheck/cmd/parsecheck/cmd"
	pcerror "github.com/msto63/parsecheck/pkg/core/error"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(pcerror.ExitCode(err))
	}
}
