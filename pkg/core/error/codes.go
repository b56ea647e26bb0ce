// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     error
// Description: Error codes and their process exit statuses
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package error

// Code represents a structured error code for categorizing errors
type Code string

const (
	// Generic codes
	CodeUnknown  Code = "UNKNOWN"
	CodeInternal Code = "INTERNAL"
	CodeCanceled Code = "CANCELED"

	// Invocation
	CodeUsage         Code = "USAGE"
	CodeInputNotFound Code = "INPUT_NOT_FOUND"

	// Pipeline stages
	CodeCleanFailed        Code = "CLEAN_FAILED"
	CodeBuildFailed        Code = "BUILD_FAILED"
	CodeTokenizeFailed     Code = "TOKENIZE_FAILED"
	CodeArtifactUnreadable Code = "ARTIFACT_UNREADABLE"
	CodeFlattenFailed      Code = "FLATTEN_FAILED"
	CodeParseFailed        Code = "PARSE_FAILED"
	CodeParseRejected      Code = "PARSE_REJECTED"

	// Suite
	CodeOutputMismatch Code = "OUTPUT_MISMATCH"
	CodeSuiteFailed    Code = "SUITE_FAILED"

	// Configuration and storage
	CodeConfigError   Code = "CONFIG_ERROR"
	CodeInvalidConfig Code = "INVALID_CONFIG"
	CodeStorageError  Code = "STORAGE_ERROR"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// IsValid checks if the error code is a known valid code
func (c Code) IsValid() bool {
	switch c {
	case CodeUnknown, CodeInternal, CodeCanceled,
		CodeUsage, CodeInputNotFound,
		CodeCleanFailed, CodeBuildFailed, CodeTokenizeFailed, CodeArtifactUnreadable,
		CodeFlattenFailed, CodeParseFailed, CodeParseRejected,
		CodeOutputMismatch, CodeSuiteFailed,
		CodeConfigError, CodeInvalidConfig, CodeStorageError:
		return true
	default:
		return false
	}
}

// Category returns the high-level category of the error code
func (c Code) Category() string {
	switch c {
	case CodeUsage, CodeInputNotFound:
		return "invocation"
	case CodeCleanFailed, CodeBuildFailed:
		return "build"
	case CodeTokenizeFailed, CodeArtifactUnreadable, CodeFlattenFailed:
		return "tokenize"
	case CodeParseFailed, CodeParseRejected, CodeOutputMismatch:
		return "parse"
	case CodeSuiteFailed:
		return "suite"
	case CodeConfigError, CodeInvalidConfig:
		return "configuration"
	case CodeStorageError:
		return "storage"
	default:
		return "generic"
	}
}

// ExitCode returns the process exit status for this error code.
// Status 2 for an unreadable tokenized artifact is part of the driver's
// external contract and must not change.
func (c Code) ExitCode() int {
	switch c {
	case CodeArtifactUnreadable:
		return 2
	case CodeCleanFailed:
		return 10
	case CodeBuildFailed:
		return 11
	case CodeTokenizeFailed:
		return 12
	case CodeFlattenFailed:
		return 13
	case CodeParseFailed:
		return 14
	case CodeParseRejected:
		return 15
	case CodeOutputMismatch, CodeSuiteFailed:
		return 16
	case CodeUsage:
		return 64
	case CodeInputNotFound:
		return 66
	case CodeConfigError, CodeInvalidConfig:
		return 78
	case CodeCanceled:
		return 130
	default:
		return 1
	}
}
