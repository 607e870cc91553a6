package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter renders the populated field of Result as machine-readable
// JSON, for AI-mode/scripted consumption.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(result Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	var payload any
	switch {
	case result.SearchHits != nil:
		payload = result.SearchHits
	case result.Expansion != nil:
		payload = result.Expansion
	case result.Diagnostics != nil:
		payload = result.Diagnostics
	case result.Hotspots != nil:
		payload = result.Hotspots
	default:
		payload = struct{}{}
	}
	return enc.Encode(payload)
}
