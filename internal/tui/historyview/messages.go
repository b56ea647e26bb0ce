// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     historyview
// Description: Message types for async operations in the history browser
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package historyview

import (
	"github.com/msto63/parsecheck/internal/history"
)

// runsLoadedMsg is sent when runs are loaded from the store
type runsLoadedMsg struct {
	runs  []*history.Run
	stats *history.Stats
	err   error
}

// refreshMsg signals a reload
type refreshMsg struct{}
