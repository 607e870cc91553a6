package output

import "github.com/spf13/cobra"

// VerbosityFromFlags resolves the effective VerbosityLevel from a
// command's --quiet/--explain/--ai-mode flags, falling back to
// GetDefaultVerbosity when none are set.
func VerbosityFromFlags(cmd *cobra.Command) VerbosityLevel {
	quiet, _ := cmd.Flags().GetBool("quiet")
	explain, _ := cmd.Flags().GetBool("explain")
	aiMode, _ := cmd.Flags().GetBool("ai-mode")

	switch {
	case quiet:
		return VerbosityQuiet
	case explain:
		return VerbosityExplain
	case aiMode:
		return VerbosityAIMode
	default:
		return GetDefaultVerbosity()
	}
}
