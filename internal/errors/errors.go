package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all analysis failure modes
type ErrorCode string

const (
	// ConfigNotFound indicates no project manifest could be found at the root
	ConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	// ToolUnavailable indicates the analyzer binary is missing or unusable
	ToolUnavailable ErrorCode = "TOOL_UNAVAILABLE"
	// AnalysisTimeout indicates the analyzer process exceeded its deadline
	AnalysisTimeout ErrorCode = "ANALYSIS_TIMEOUT"
	// AnalysisFailed indicates the analyzer exited non-zero or rejected its input
	AnalysisFailed ErrorCode = "ANALYSIS_FAILED"
	// MalformedOutput indicates the analyzer stdout was not a valid document
	MalformedOutput ErrorCode = "MALFORMED_OUTPUT"
	// InvalidInput indicates a bad CLI argument or caller input
	InvalidInput ErrorCode = "INVALID_INPUT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
)

// InstallMethod represents methods for installing tools
type InstallMethod string

const (
	// NPM installation via npm
	NPM InstallMethod = "npm"
	// Brew installation via Homebrew
	Brew InstallMethod = "brew"
	// Builtin uses the analyzer bundled with archlens
	Builtin InstallMethod = "builtin"
	// Manual installation
	Manual InstallMethod = "manual"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType   `json:"type"`
	Command     string          `json:"command,omitempty"`
	Safe        bool            `json:"safe,omitempty"`
	Description string          `json:"description,omitempty"`
	URL         string          `json:"url,omitempty"`
	Tool        string          `json:"tool,omitempty"`
	Methods     []InstallMethod `json:"methods,omitempty"`
}

// Error represents an archlens error with code, message, and suggestions
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error with the default fix suggestions for its code.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Is reports whether err carries the given error code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the error code from err, or "" if it is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsAnalysisUnavailable reports whether err means architecture analysis could not
// run for this invocation. Callers treat these as degraded, not fatal.
func IsAnalysisUnavailable(err error) bool {
	switch CodeOf(err) {
	case ToolUnavailable, AnalysisTimeout, AnalysisFailed, MalformedOutput:
		return true
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ConfigNotFound: {
		{
			Type:        OpenDocs,
			Description: "Run archlens against a directory containing package.json, go.mod, Cargo.toml or pyproject.toml",
		},
	},
	ToolUnavailable: {
		{
			Type:        InstallTool,
			Tool:        "dependency-cruiser",
			Command:     "npm install --save-dev dependency-cruiser",
			Methods:     []InstallMethod{NPM},
			Description: "Install the dependency analyzer",
		},
		{
			Type:        RunCommand,
			Command:     "archlens analyze --builtin",
			Safe:        true,
			Methods:     []InstallMethod{Builtin},
			Description: "Use the bundled reference analyzer instead",
		},
	},
	AnalysisTimeout: {
		{
			Type:        EditConfig,
			Command:     "archlens analyze --timeout=5m",
			Safe:        true,
			Description: "Raise analyzer.timeoutMs or pass a longer --timeout",
		},
	},
	AnalysisFailed: {
		{
			Type:        RunCommand,
			Command:     "archlens doctor",
			Safe:        true,
			Description: "Check analyzer and rule configuration",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
