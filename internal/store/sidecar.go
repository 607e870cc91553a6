package store

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/coderisk-labs/intelcore/internal/graph"
	"github.com/coderisk-labs/intelcore/internal/models"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"
)

// Sidecar is the bbolt-backed fast-cold-start snapshot named in spec.md
// §4.9: a serialized in-memory graph alongside the primary Store, plus a
// BLAKE2b-256 checksum over intel_nodes that decides whether the sidecar's
// graph is used in place of the graph a Store Load returned.
type Sidecar struct {
	db *bolt.DB
}

var sidecarBucket = []byte("graph_snapshots")
var checksumBucket = []byte("checksums")

// OpenSidecar opens (creating if necessary) the bbolt file at path.
func OpenSidecar(path string) (*Sidecar, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open sidecar: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(sidecarBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(checksumBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init sidecar buckets: %w", err)
	}
	return &Sidecar{db: db}, nil
}

func (s *Sidecar) Close() error { return s.db.Close() }

// ChecksumNodes computes the BLAKE2b-256 checksum of a node set the same
// way a caller would compute it over a Store's intel_nodes table: nodes
// sorted by id, each contributing (id, content_hash, updated_at).
func ChecksumNodes(nodes []models.Node) ([]byte, error) {
	sorted := make([]models.Node, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	var tsBuf [8]byte
	for _, n := range sorted {
		h.Write([]byte(n.ID))
		h.Write([]byte(n.ContentHash))
		binary.BigEndian.PutUint64(tsBuf[:], uint64(n.UpdatedAt.UnixNano()))
		h.Write(tsBuf[:])
	}
	return h.Sum(nil), nil
}

// Put writes g's serialized form and its node checksum under projectID.
func (s *Sidecar) Put(projectID string, g *graph.Graph) error {
	blob, err := g.Serialize()
	if err != nil {
		return fmt.Errorf("serialize graph: %w", err)
	}
	checksum, err := ChecksumNodes(g.AllNodes())
	if err != nil {
		return fmt.Errorf("checksum nodes: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(sidecarBucket).Put([]byte(projectID), blob); err != nil {
			return err
		}
		return tx.Bucket(checksumBucket).Put([]byte(projectID), checksum)
	})
}

// Get returns the sidecar's graph for projectID only if its stored
// checksum matches authorityChecksum (typically computed over the
// primary Store's current intel_nodes) — per spec.md §4.9, the sidecar
// is authoritative only when checksums match.
func (s *Sidecar) Get(projectID string, authorityChecksum []byte) (*graph.Graph, bool, error) {
	var blob, storedChecksum []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		blob = tx.Bucket(sidecarBucket).Get([]byte(projectID))
		storedChecksum = tx.Bucket(checksumBucket).Get([]byte(projectID))
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if blob == nil || storedChecksum == nil {
		return nil, false, nil
	}
	if !checksumsEqual(storedChecksum, authorityChecksum) {
		return nil, false, nil
	}

	g, err := graph.Deserialize(blob)
	if err != nil {
		return nil, false, fmt.Errorf("deserialize sidecar snapshot: %w", err)
	}
	return g, true, nil
}

func checksumsEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Delete removes projectID's snapshot and checksum.
func (s *Sidecar) Delete(projectID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(sidecarBucket).Delete([]byte(projectID)); err != nil {
			return err
		}
		return tx.Bucket(checksumBucket).Delete([]byte(projectID))
	})
}
