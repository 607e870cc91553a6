package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	coreerrors "github.com/coderisk-labs/intelcore/internal/errors"
	"github.com/coderisk-labs/intelcore/internal/graph"
	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteStore is the default, single-file backend: one database per
// project root, WAL journaling for concurrent readers alongside the
// single writer (spec.md §9 "Shared resources").
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger

	// synchronousBulk is the PRAGMA synchronous level Save relaxes to for
	// its bulk replace-all-nodes-and-edges transaction, restoring
	// synchronousSteady once it commits. Matches store.synchronous_bulk
	// (spec.md §6); store.cache_pages is applied once, at open, since
	// SQLite's page cache size isn't something worth varying per
	// transaction.
	synchronousBulk string
}

const synchronousSteady = "NORMAL"

// sqliteSynchronousPragma maps the store.synchronous_bulk config values
// ("off"/"normal"/"full") onto SQLite's PRAGMA synchronous levels.
func sqliteSynchronousPragma(level string) string {
	switch level {
	case "off":
		return "OFF"
	case "full":
		return "FULL"
	default:
		return synchronousSteady
	}
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed Store at
// path. cachePages sets PRAGMA cache_size (spec.md §6's
// store.cache_pages; 0 leaves SQLite's own default in place).
// synchronousBulk is the store.synchronous_bulk level Save relaxes to
// during its bulk load transaction.
func NewSQLiteStore(path string, cachePages int, synchronousBulk string, logger *logrus.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")
	db.Exec(fmt.Sprintf("PRAGMA synchronous = %s", synchronousSteady))
	if cachePages != 0 {
		db.Exec(fmt.Sprintf("PRAGMA cache_size = %d", cachePages))
	}

	s := &SQLiteStore{db: db, logger: logger, synchronousBulk: sqliteSynchronousPragma(synchronousBulk)}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS intel_nodes (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		file_path TEXT NOT NULL,
		symbol_name TEXT NOT NULL,
		qualified_name TEXT,
		node_type TEXT NOT NULL,
		signature TEXT,
		byte_start INTEGER,
		byte_end INTEGER,
		complexity INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT NOT NULL,
		embedding BLOB,
		created_at DATETIME,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS intel_edges (
		caller_id TEXT NOT NULL,
		callee_id TEXT NOT NULL,
		edge_type TEXT NOT NULL,
		metadata TEXT,
		PRIMARY KEY (caller_id, callee_id, edge_type),
		FOREIGN KEY (caller_id) REFERENCES intel_nodes(id),
		FOREIGN KEY (callee_id) REFERENCES intel_nodes(id)
	);

	CREATE TABLE IF NOT EXISTS analysis_cache (
		node_hash TEXT PRIMARY KEY,
		cfg_data BLOB,
		complexity_metrics BLOB,
		timestamp DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_project ON intel_nodes(project_id);
	CREATE INDEX IF NOT EXISTS idx_nodes_file ON intel_nodes(file_path);
	CREATE INDEX IF NOT EXISTS idx_nodes_symbol ON intel_nodes(symbol_name);
	CREATE INDEX IF NOT EXISTS idx_nodes_hash ON intel_nodes(content_hash);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// nodeRow is the flattened, db-tagged row shape intel_nodes maps to;
// models.Node embeds ByteRange without db tags, so round-trip goes
// through this intermediate rather than a direct StructScan.
type nodeRow struct {
	ID            string    `db:"id"`
	ProjectID     string    `db:"project_id"`
	FilePath      string    `db:"file_path"`
	SymbolName    string    `db:"symbol_name"`
	QualifiedName string    `db:"qualified_name"`
	NodeType      string    `db:"node_type"`
	Signature     string    `db:"signature"`
	ByteStart     int64     `db:"byte_start"`
	ByteEnd       int64     `db:"byte_end"`
	Complexity    int       `db:"complexity"`
	ContentHash   string    `db:"content_hash"`
	Embedding     []byte    `db:"embedding"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func toRow(n models.Node) nodeRow {
	var emb []byte
	if len(n.Embedding) > 0 {
		emb, _ = json.Marshal(n.Embedding)
	}
	return nodeRow{
		ID: n.ID, ProjectID: n.ProjectID, FilePath: n.FilePath,
		SymbolName: n.SymbolName, QualifiedName: n.QualifiedName,
		NodeType: string(n.NodeType), Signature: n.Signature,
		ByteStart: n.ByteRange.Start, ByteEnd: n.ByteRange.End,
		Complexity: n.Complexity, ContentHash: n.ContentHash,
		Embedding: emb, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
	}
}

func fromRow(r nodeRow) models.Node {
	n := models.Node{
		ID: r.ID, ProjectID: r.ProjectID, FilePath: r.FilePath,
		SymbolName: r.SymbolName, QualifiedName: r.QualifiedName,
		NodeType: models.NodeType(r.NodeType), Signature: r.Signature,
		ByteRange:   models.ByteRange{Start: r.ByteStart, End: r.ByteEnd},
		Complexity:  r.Complexity,
		ContentHash: r.ContentHash,
		CreatedAt:   r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if len(r.Embedding) > 0 {
		json.Unmarshal(r.Embedding, &n.Embedding)
	}
	return n
}

func (s *SQLiteStore) InsertNode(ctx context.Context, n models.Node) error {
	return s.BatchInsertNodes(ctx, []models.Node{n})
}

func (s *SQLiteStore) BatchInsertNodes(ctx context.Context, nodes []models.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT OR REPLACE INTO intel_nodes
		(id, project_id, file_path, symbol_name, qualified_name, node_type,
		 signature, byte_start, byte_end, complexity, content_hash, embedding,
		 created_at, updated_at)
		VALUES (:id, :project_id, :file_path, :symbol_name, :qualified_name, :node_type,
		 :signature, :byte_start, :byte_end, :complexity, :content_hash, :embedding,
		 :created_at, :updated_at)
	`
	for _, n := range nodes {
		if _, err := tx.NamedExecContext(ctx, query, toRow(n)); err != nil {
			return fmt.Errorf("batch insert nodes: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetNode(ctx context.Context, id string) (models.Node, error) {
	var r nodeRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM intel_nodes WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Node{}, ErrNotFound
		}
		return models.Node{}, err
	}
	return fromRow(r), nil
}

func (s *SQLiteStore) FindByHash(ctx context.Context, contentHash string) ([]models.Node, error) {
	var rows []nodeRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM intel_nodes WHERE content_hash = ?`, contentHash)
	if err != nil {
		return nil, err
	}
	out := make([]models.Node, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out, nil
}

func (s *SQLiteStore) NodesInFile(filePath string) (map[string]string, error) {
	var rows []struct {
		ID   string `db:"id"`
		Hash string `db:"content_hash"`
	}
	err := s.db.Select(&rows, `SELECT id, content_hash FROM intel_nodes WHERE file_path = ?`, filePath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Hash
	}
	return out, nil
}

func (s *SQLiteStore) InsertEdge(ctx context.Context, e models.Edge) error {
	return s.BatchInsertEdges(ctx, []models.Edge{e})
}

func (s *SQLiteStore) BatchInsertEdges(ctx context.Context, edges []models.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT OR REPLACE INTO intel_edges (caller_id, callee_id, edge_type, metadata)
		VALUES (?, ?, ?, ?)
	`
	for _, e := range edges {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal edge metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, e.CallerID, e.CalleeID, string(e.Type), string(meta)); err != nil {
			return fmt.Errorf("batch insert edges: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) edgesWhere(ctx context.Context, clause string, arg interface{}) ([]models.Edge, error) {
	var rows []struct {
		CallerID string `db:"caller_id"`
		CalleeID string `db:"callee_id"`
		EdgeType string `db:"edge_type"`
		Metadata string `db:"metadata"`
	}
	err := s.db.SelectContext(ctx, &rows, `SELECT caller_id, callee_id, edge_type, metadata FROM intel_edges WHERE `+clause, arg)
	if err != nil {
		return nil, err
	}
	out := make([]models.Edge, len(rows))
	for i, r := range rows {
		var meta map[string]interface{}
		if r.Metadata != "" {
			json.Unmarshal([]byte(r.Metadata), &meta)
		}
		out[i] = models.Edge{CallerID: r.CallerID, CalleeID: r.CalleeID, Type: models.EdgeType(r.EdgeType), Metadata: meta}
	}
	return out, nil
}

func (s *SQLiteStore) EdgesByCaller(ctx context.Context, callerID string) ([]models.Edge, error) {
	return s.edgesWhere(ctx, "caller_id = ?", callerID)
}

func (s *SQLiteStore) EdgesByCallee(ctx context.Context, calleeID string) ([]models.Edge, error) {
	return s.edgesWhere(ctx, "callee_id = ?", calleeID)
}

func (s *SQLiteStore) EdgesByType(ctx context.Context, t models.EdgeType) ([]models.Edge, error) {
	return s.edgesWhere(ctx, "edge_type = ?", string(t))
}

func (s *SQLiteStore) CacheGet(ctx context.Context, nodeHash string) ([]byte, bool, error) {
	var row struct {
		CfgData []byte `db:"cfg_data"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT cfg_data FROM analysis_cache WHERE node_hash = ?`, nodeHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row.CfgData, true, nil
}

func (s *SQLiteStore) CachePut(ctx context.Context, nodeHash string, cfgData, complexityMetrics []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO analysis_cache (node_hash, cfg_data, complexity_metrics, timestamp)
		VALUES (?, ?, ?, ?)`, nodeHash, cfgData, complexityMetrics, time.Now())
	return err
}

// Save persists the entire graph, replacing any nodes/edges already
// recorded under projectID that no longer appear in g. Durability is
// relaxed to store.synchronous_bulk for the duration of the replace, then
// restored, per spec.md §6.
func (s *SQLiteStore) Save(ctx context.Context, projectID string, g *graph.Graph) error {
	nodes := g.AllNodes()
	edges := g.AllEdges()

	if s.synchronousBulk != synchronousSteady {
		s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA synchronous = %s", s.synchronousBulk))
		defer s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA synchronous = %s", synchronousSteady))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM intel_edges WHERE caller_id IN (SELECT id FROM intel_nodes WHERE project_id = ?)`, projectID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM intel_nodes WHERE project_id = ?`, projectID); err != nil {
		return err
	}

	nodeQuery := `
		INSERT INTO intel_nodes
		(id, project_id, file_path, symbol_name, qualified_name, node_type,
		 signature, byte_start, byte_end, complexity, content_hash, embedding,
		 created_at, updated_at)
		VALUES (:id, :project_id, :file_path, :symbol_name, :qualified_name, :node_type,
		 :signature, :byte_start, :byte_end, :complexity, :content_hash, :embedding,
		 :created_at, :updated_at)
	`
	for _, n := range nodes {
		row := toRow(n)
		row.ProjectID = projectID
		if _, err := tx.NamedExecContext(ctx, nodeQuery, row); err != nil {
			return fmt.Errorf("save nodes: %w", err)
		}
	}

	edgeQuery := `INSERT INTO intel_edges (caller_id, callee_id, edge_type, metadata) VALUES (?, ?, ?, ?)`
	for _, e := range edges {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal edge metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, edgeQuery, e.CallerID, e.CalleeID, string(e.Type), string(meta)); err != nil {
			return fmt.Errorf("save edges: %w", err)
		}
	}

	return tx.Commit()
}

// Load reconstructs nodes, edges, and rebuilds the in-memory indices.
// On any FK violation or missing endpoint it aborts with CorruptStore.
func (s *SQLiteStore) Load(ctx context.Context, projectID string) (*graph.Graph, error) {
	var rows []nodeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM intel_nodes WHERE project_id = ?`, projectID); err != nil {
		return nil, err
	}

	g := graph.New()
	known := make(map[string]bool, len(rows))
	for _, r := range rows {
		n := fromRow(r)
		g.AddNode(n)
		known[n.ID] = true
	}

	edges, err := s.edgesForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if !known[e.CallerID] || !known[e.CalleeID] {
			return nil, coreerrors.CorruptStore(fmt.Sprintf("edge %s->%s references unknown node", e.CallerID, e.CalleeID))
		}
		if err := g.AddEdge(e.CallerID, e.CalleeID, e.Type, e.Metadata); err != nil {
			return nil, coreerrors.CorruptStore(err.Error())
		}
	}
	return g, nil
}

func (s *SQLiteStore) edgesForProject(ctx context.Context, projectID string) ([]models.Edge, error) {
	var rows []struct {
		CallerID string `db:"caller_id"`
		CalleeID string `db:"callee_id"`
		EdgeType string `db:"edge_type"`
		Metadata string `db:"metadata"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT e.caller_id, e.callee_id, e.edge_type, e.metadata
		FROM intel_edges e
		JOIN intel_nodes n ON n.id = e.caller_id
		WHERE n.project_id = ?`, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Edge, len(rows))
	for i, r := range rows {
		var meta map[string]interface{}
		if r.Metadata != "" {
			json.Unmarshal([]byte(r.Metadata), &meta)
		}
		out[i] = models.Edge{CallerID: r.CallerID, CalleeID: r.CalleeID, Type: models.EdgeType(r.EdgeType), Metadata: meta}
	}
	return out, nil
}

func (s *SQLiteStore) Analytics(ctx context.Context, projectID string) (Diagnostics, error) {
	var rows []nodeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM intel_nodes WHERE project_id = ?`, projectID); err != nil {
		return Diagnostics{}, err
	}
	d := Diagnostics{
		NodesByType:      map[models.NodeType]int{},
		EdgesByType:      map[models.EdgeType]int{},
		ComplexityBucket: map[ComplexityBucket]int{},
	}
	d.NodeCount = len(rows)
	for _, r := range rows {
		d.NodesByType[models.NodeType(r.NodeType)]++
		d.ComplexityBucket[BucketFor(r.Complexity)]++
	}

	edges, err := s.edgesForProject(ctx, projectID)
	if err != nil {
		return Diagnostics{}, err
	}
	d.EdgeCount = len(edges)
	for _, e := range edges {
		d.EdgesByType[e.Type]++
	}
	return d, nil
}

func (s *SQLiteStore) Hotspots(ctx context.Context, projectID string, thresholdFanout, thresholdComplexity int) ([]Hotspot, error) {
	var rows []nodeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM intel_nodes WHERE project_id = ? AND complexity >= ?`, projectID, thresholdComplexity); err != nil {
		return nil, err
	}

	var hotspots []Hotspot
	for _, r := range rows {
		var fanout int
		if err := s.db.GetContext(ctx, &fanout, `SELECT COUNT(*) FROM intel_edges WHERE caller_id = ?`, r.ID); err != nil {
			return nil, err
		}
		if fanout >= thresholdFanout {
			hotspots = append(hotspots, Hotspot{NodeID: r.ID, Complexity: r.Complexity, Fanout: fanout})
		}
	}
	return hotspots, nil
}
