// Package cache implements the content-hash-keyed incremental cache:
// avoiding recomputation of derived analyses when a node's content is
// unchanged. See spec.md §4.4.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coderisk-labs/intelcore/internal/errors"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Entry is the value stored against a content_hash key: an opaque blob of
// derived analyses (control-flow summary, complexity metrics, ...) plus
// the time it was computed.
type Entry struct {
	Blob       []byte
	ComputedAt time.Time
}

// StoreBackend is the subset of the Store contract the cache needs: the
// analysis_cache table (spec.md §4.5) as the durable second tier behind
// the in-memory front, plus the per-file node/hash lookup
// affected_nodes(file_path) answers from.
type StoreBackend interface {
	NodesInFile(filePath string) (map[string]string, error) // node_id -> content_hash
	CacheGet(ctx context.Context, nodeHash string) ([]byte, bool, error)
	CachePut(ctx context.Context, nodeHash string, cfgData, complexityMetrics []byte) error
}

// Manager is the incremental cache. It keeps an expiring in-memory front
// (github.com/patrickmn/go-cache, no size bound) layered over the Store's analysis_cache
// table when a Store is wired; persist is the fallback second tier used
// when store is nil (e.g. unit tests, ephemeral in-process use), so
// Manager stays testable without a live backend.
type Manager struct {
	mu      sync.RWMutex
	mem     *gocache.Cache
	logger  *logrus.Logger
	store   StoreBackend
	persist map[string]Entry // fallback persistent layer when no Store is wired
}

// NewManager constructs a cache Manager. store may be nil, in which case
// AffectedNodes always returns an empty set (no Store to consult).
func NewManager(store StoreBackend, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		mem:     gocache.New(5*time.Minute, 10*time.Minute),
		logger:  logger,
		store:   store,
		persist: make(map[string]Entry),
	}
}

// IsCached reports whether hash has a cached entry.
func (m *Manager) IsCached(hash string) bool {
	_, ok := m.Get(hash)
	return ok
}

// Get returns the cached entry for hash, checking the in-memory layer
// first and falling back to the Store's analysis_cache table (or, with
// no Store wired, the in-memory fallback map) on a miss.
func (m *Manager) Get(hash string) (Entry, bool) {
	if v, ok := m.mem.Get(hash); ok {
		return v.(Entry), true
	}

	if m.store != nil {
		blob, ok, err := m.store.CacheGet(context.Background(), hash)
		if err != nil {
			m.logger.WithError(err).WithField("hash", hash).Warn("analysis cache lookup failed")
		} else if ok {
			e := Entry{Blob: blob, ComputedAt: time.Now()}
			m.mem.SetDefault(hash, e)
			return e, true
		}
		return Entry{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.persist[hash]
	if ok {
		m.mem.SetDefault(hash, e)
	}
	return e, ok
}

// Put stores blob under hash, idempotently: a later Put with the same
// hash overwrites the previous entry and refreshes computed_at. When a
// Store is wired, blob is written through to its analysis_cache table as
// cfg_data; with no Store, the in-memory fallback map is the only
// durable copy.
func (m *Manager) Put(hash string, blob []byte) {
	e := Entry{Blob: blob, ComputedAt: time.Now()}
	m.mem.SetDefault(hash, e)

	if m.store != nil {
		if err := m.store.CachePut(context.Background(), hash, blob, nil); err != nil {
			m.logger.WithError(err).WithField("hash", hash).Warn("analysis cache write failed")
		}
		return
	}

	m.mu.Lock()
	m.persist[hash] = e
	m.mu.Unlock()
}

// InvalidateBefore removes every entry whose computed_at is strictly
// older than cutoff. With no Store wired, this reaches the persistent
// fallback map fully; with a Store wired, it only evicts the in-memory
// front — the analysis_cache table itself is overwritten in place on
// the next Put for that hash rather than aged out here.
func (m *Manager) InvalidateBefore(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for hash, e := range m.persist {
		if e.ComputedAt.Before(cutoff) {
			delete(m.persist, hash)
			m.mem.Delete(hash)
			removed++
		}
	}
	for hash, item := range m.mem.Items() {
		if _, stillPersist := m.persist[hash]; stillPersist {
			continue
		}
		e, ok := item.Object.(Entry)
		if ok && e.ComputedAt.Before(cutoff) {
			m.mem.Delete(hash)
			removed++
		}
	}
	return removed
}

// AffectedNodes enumerates, via the Store, the nodes in filePath whose
// content_hash is not currently cached here — i.e. the nodes a caller
// should recompute derived analyses for.
func (m *Manager) AffectedNodes(filePath string) ([]string, error) {
	if m.store == nil {
		return nil, nil
	}

	nodeHashes, err := m.store.NodesInFile(filePath)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}

	var affected []string
	for nodeID, hash := range nodeHashes {
		if !m.IsCached(hash) {
			affected = append(affected, nodeID)
		}
	}
	return affected, nil
}

// Size returns the number of entries cached: the persistent fallback map
// with no Store wired, otherwise the in-memory front (the Store's own
// analysis_cache row count is queried directly, not mirrored here).
func (m *Manager) Size() int {
	if m.store != nil {
		return m.mem.ItemCount()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.persist)
}

// Clear removes every cached entry, in-memory and persistent.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persist = make(map[string]Entry)
	m.mem.Flush()
	m.logger.Debug("incremental cache cleared")
}

func (e Entry) String() string {
	return fmt.Sprintf("Entry{%d bytes, computed_at=%s}", len(e.Blob), e.ComputedAt.Format(time.RFC3339))
}
