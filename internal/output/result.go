package output

import (
	"github.com/coderisk-labs/intelcore/internal/embeddings"
	"github.com/coderisk-labs/intelcore/internal/store"
	"github.com/coderisk-labs/intelcore/internal/traversal"
)

// Result carries exactly one Caller-interface operation's output. Exactly
// one field is populated per call to Format; which one depends on which
// command built the Result.
type Result struct {
	ProjectID string

	SearchHits  []embeddings.ScoredNode
	Expansion   *traversal.Result
	Diagnostics *store.Diagnostics
	Hotspots    []store.Hotspot
}
