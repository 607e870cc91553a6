// Package output renders Caller-interface results (search hits, context
// expansions, diagnostics) at one of four verbosity levels.
package output

import (
	"io"
	"os"
)

// Formatter renders a Result to w.
type Formatter interface {
	Format(result Result, w io.Writer) error
}

// VerbosityLevel determines output detail
type VerbosityLevel int

const (
	VerbosityQuiet    VerbosityLevel = iota // Level 1: one-line summary
	VerbosityStandard                       // Level 2: tabular detail
	VerbosityExplain                        // Level 3: full trace (rejections included)
	VerbosityAIMode                         // Level 4: machine-readable JSON
)

// NewFormatter creates the appropriate formatter for level.
func NewFormatter(level VerbosityLevel) Formatter {
	switch level {
	case VerbosityQuiet:
		return &QuietFormatter{}
	case VerbosityStandard:
		return &StandardFormatter{}
	case VerbosityExplain:
		return &ExplainFormatter{}
	case VerbosityAIMode:
		return &JSONFormatter{}
	default:
		return &StandardFormatter{}
	}
}

// GetDefaultVerbosity returns appropriate default based on environment
func GetDefaultVerbosity() VerbosityLevel {
	if os.Getenv("CI") == "true" {
		return VerbosityStandard
	}
	if os.Getenv("INTELCORE_AI_MODE") == "1" {
		return VerbosityAIMode
	}
	return VerbosityStandard
}
