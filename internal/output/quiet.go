package output

import (
	"fmt"
	"io"
)

// QuietFormatter outputs a one-line summary, for scripting/pre-commit use.
type QuietFormatter struct{}

func (f *QuietFormatter) Format(result Result, w io.Writer) error {
	switch {
	case result.SearchHits != nil:
		fmt.Fprintf(w, "%d hits\n", len(result.SearchHits))
	case result.Expansion != nil:
		e := result.Expansion
		fmt.Fprintf(w, "%d admitted, %d rejected, budget_exceeded=%v\n", len(e.Admitted), len(e.Rejected), e.BudgetExceeded)
	case result.Diagnostics != nil:
		d := result.Diagnostics
		fmt.Fprintf(w, "%d nodes, %d edges\n", d.NodeCount, d.EdgeCount)
	case result.Hotspots != nil:
		fmt.Fprintf(w, "%d hotspots\n", len(result.Hotspots))
	default:
		fmt.Fprintln(w, "(empty result)")
	}
	return nil
}
