package output

import (
	"fmt"
	"io"
)

// ExplainFormatter renders full detail including rejected candidates and
// their reasons, for debugging gravity-based expansions.
type ExplainFormatter struct{}

func (f *ExplainFormatter) Format(result Result, w io.Writer) error {
	std := &StandardFormatter{}
	if err := std.Format(result, w); err != nil {
		return err
	}

	if result.Expansion != nil && len(result.Expansion.Rejected) > 0 {
		fmt.Fprintln(w, "rejections:")
		for _, r := range result.Expansion.Rejected {
			fmt.Fprintf(w, "  - %s: %s\n", r.NodeID, r.Reason)
		}
	}
	return nil
}
