// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     artifact
// Description: Private per-run workspace holding the intermediate artifacts
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Fixed artifact names inside a workspace. Each run gets its own
// directory, so the names never collide between concurrent runs.
const (
	TokenizedName = "tokenized_test.txt"
	FormattedName = "formated_tokenized_test.txt"

	workspacePrefix = "parsecheck-"
)

// Workspace is a directory owned by exactly one run
type Workspace struct {
	id  string
	dir string

	mu      sync.Mutex
	removed bool
}

// NewWorkspace creates a fresh workspace under root. An empty root means
// the OS temp directory. The directory is created with mode 0700.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root: %w", err)
	}

	id := uuid.NewString()
	dir, err := os.MkdirTemp(root, workspacePrefix+id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Workspace{id: id, dir: dir}, nil
}

// ID returns the run ID the workspace was created for
func (w *Workspace) ID() string {
	return w.id
}

// Dir returns the workspace directory
func (w *Workspace) Dir() string {
	return w.dir
}

// TokenizedPath returns the path of the raw tokenizer output
func (w *Workspace) TokenizedPath() string {
	return filepath.Join(w.dir, TokenizedName)
}

// FormattedPath returns the path of the flattened tokenizer output
func (w *Workspace) FormattedPath() string {
	return filepath.Join(w.dir, FormattedName)
}

// CreateTokenized creates (or truncates) the tokenized artifact for writing
func (w *Workspace) CreateTokenized() (*os.File, error) {
	return os.OpenFile(w.TokenizedPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
}

// Remove deletes the workspace and both artifacts. Calling it twice is safe.
func (w *Workspace) Remove() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.removed {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", w.dir, err)
	}
	w.removed = true
	return nil
}

// Removed reports whether Remove succeeded
func (w *Workspace) Removed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removed
}
