package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	coreerrors "github.com/coderisk-labs/intelcore/internal/errors"
	"github.com/coderisk-labs/intelcore/internal/graph"
	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PostgresStore is the shared, concurrent-writer backend. It keeps a
// sqlx.DB (over database/sql, via pgx's stdlib adapter) for ordinary
// CRUD and a raw pgxpool.Pool for BatchInsertNodes, which uses COPY
// FROM for bulk ingest.
type PostgresStore struct {
	db     *sqlx.DB
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

// NewPostgresStore connects to PostgreSQL at dsn and tunes the pool.
func NewPostgresStore(ctx context.Context, dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = logrus.New()
	}

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}

	s := &PostgresStore{db: db, pool: pool, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS intel_nodes (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		file_path TEXT NOT NULL,
		symbol_name TEXT NOT NULL,
		qualified_name TEXT,
		node_type TEXT NOT NULL,
		signature TEXT,
		byte_start BIGINT,
		byte_end BIGINT,
		complexity INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT NOT NULL,
		embedding BYTEA,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS intel_edges (
		caller_id TEXT NOT NULL REFERENCES intel_nodes(id),
		callee_id TEXT NOT NULL REFERENCES intel_nodes(id),
		edge_type TEXT NOT NULL,
		metadata JSONB,
		PRIMARY KEY (caller_id, callee_id, edge_type)
	);

	CREATE TABLE IF NOT EXISTS analysis_cache (
		node_hash TEXT PRIMARY KEY,
		cfg_data BYTEA,
		complexity_metrics BYTEA,
		timestamp TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_project ON intel_nodes(project_id);
	CREATE INDEX IF NOT EXISTS idx_nodes_file ON intel_nodes(file_path);
	CREATE INDEX IF NOT EXISTS idx_nodes_symbol ON intel_nodes(symbol_name);
	CREATE INDEX IF NOT EXISTS idx_nodes_hash ON intel_nodes(content_hash);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return s.db.Close()
}

func (s *PostgresStore) InsertNode(ctx context.Context, n models.Node) error {
	return s.BatchInsertNodes(ctx, []models.Node{n})
}

// BatchInsertNodes uses pgx's CopyFrom for throughput, matching spec.md
// P8 (atomic batch insert): COPY runs inside a single pgx transaction and
// fails closed — any row error aborts the whole copy.
func (s *PostgresStore) BatchInsertNodes(ctx context.Context, nodes []models.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin copy transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// COPY cannot express ON CONFLICT, so stage into a temp table and
	// upsert from there.
	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE intel_nodes_staging (LIKE intel_nodes INCLUDING DEFAULTS) ON COMMIT DROP
	`); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}

	rows := make([][]interface{}, len(nodes))
	for i, n := range nodes {
		var emb []byte
		if len(n.Embedding) > 0 {
			emb, _ = json.Marshal(n.Embedding)
		}
		rows[i] = []interface{}{
			n.ID, n.ProjectID, n.FilePath, n.SymbolName, n.QualifiedName,
			string(n.NodeType), n.Signature, n.ByteRange.Start, n.ByteRange.End,
			n.Complexity, n.ContentHash, emb, n.CreatedAt, n.UpdatedAt,
		}
	}

	cols := []string{
		"id", "project_id", "file_path", "symbol_name", "qualified_name",
		"node_type", "signature", "byte_start", "byte_end", "complexity",
		"content_hash", "embedding", "created_at", "updated_at",
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"intel_nodes_staging"}, cols, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy nodes: %w", err)
	}

	setClauses := `
		file_path = EXCLUDED.file_path, symbol_name = EXCLUDED.symbol_name,
		qualified_name = EXCLUDED.qualified_name, node_type = EXCLUDED.node_type,
		signature = EXCLUDED.signature, byte_start = EXCLUDED.byte_start,
		byte_end = EXCLUDED.byte_end, complexity = EXCLUDED.complexity,
		content_hash = EXCLUDED.content_hash, embedding = EXCLUDED.embedding,
		updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO intel_nodes SELECT * FROM intel_nodes_staging
		ON CONFLICT (id) DO UPDATE SET %s
	`, setClauses)); err != nil {
		return fmt.Errorf("upsert from staging: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetNode(ctx context.Context, id string) (models.Node, error) {
	var r nodeRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM intel_nodes WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Node{}, ErrNotFound
		}
		return models.Node{}, fmt.Errorf("get node: %w", err)
	}
	return fromRow(r), nil
}

func (s *PostgresStore) FindByHash(ctx context.Context, contentHash string) ([]models.Node, error) {
	var rows []nodeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM intel_nodes WHERE content_hash = $1`, contentHash); err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	out := make([]models.Node, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out, nil
}

func (s *PostgresStore) NodesInFile(filePath string) (map[string]string, error) {
	var rows []struct {
		ID   string `db:"id"`
		Hash string `db:"content_hash"`
	}
	if err := s.db.Select(&rows, `SELECT id, content_hash FROM intel_nodes WHERE file_path = $1`, filePath); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Hash
	}
	return out, nil
}

func (s *PostgresStore) InsertEdge(ctx context.Context, e models.Edge) error {
	return s.BatchInsertEdges(ctx, []models.Edge{e})
}

func (s *PostgresStore) BatchInsertEdges(ctx context.Context, edges []models.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO intel_edges (caller_id, callee_id, edge_type, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (caller_id, callee_id, edge_type) DO UPDATE SET metadata = EXCLUDED.metadata
	`
	for _, e := range edges {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal edge metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, e.CallerID, e.CalleeID, string(e.Type), meta); err != nil {
			return fmt.Errorf("batch insert edges: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) edgesWhere(ctx context.Context, clause string, arg interface{}) ([]models.Edge, error) {
	var rows []struct {
		CallerID string `db:"caller_id"`
		CalleeID string `db:"callee_id"`
		EdgeType string `db:"edge_type"`
		Metadata string `db:"metadata"`
	}
	err := s.db.SelectContext(ctx, &rows, `SELECT caller_id, callee_id, edge_type, metadata::text FROM intel_edges WHERE `+clause, arg)
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

func (s *PostgresStore) EdgesByCaller(ctx context.Context, callerID string) ([]models.Edge, error) {
	return s.edgesWhere(ctx, "caller_id = $1", callerID)
}

func (s *PostgresStore) EdgesByCallee(ctx context.Context, calleeID string) ([]models.Edge, error) {
	return s.edgesWhere(ctx, "callee_id = $1", calleeID)
}

func (s *PostgresStore) EdgesByType(ctx context.Context, t models.EdgeType) ([]models.Edge, error) {
	return s.edgesWhere(ctx, "edge_type = $1", string(t))
}

func (s *PostgresStore) CacheGet(ctx context.Context, nodeHash string) ([]byte, bool, error) {
	var row struct {
		CfgData []byte `db:"cfg_data"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT cfg_data FROM analysis_cache WHERE node_hash = $1`, nodeHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row.CfgData, true, nil
}

func (s *PostgresStore) CachePut(ctx context.Context, nodeHash string, cfgData, complexityMetrics []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_cache (node_hash, cfg_data, complexity_metrics, timestamp)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (node_hash) DO UPDATE SET
			cfg_data = EXCLUDED.cfg_data, complexity_metrics = EXCLUDED.complexity_metrics,
			timestamp = EXCLUDED.timestamp
	`, nodeHash, cfgData, complexityMetrics, time.Now())
	return err
}

func (s *PostgresStore) Save(ctx context.Context, projectID string, g *graph.Graph) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM intel_edges WHERE caller_id IN (SELECT id FROM intel_nodes WHERE project_id = $1)`, projectID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM intel_nodes WHERE project_id = $1`, projectID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	nodes := g.AllNodes()
	for i := range nodes {
		nodes[i].ProjectID = projectID
	}
	if err := s.BatchInsertNodes(ctx, nodes); err != nil {
		return fmt.Errorf("save nodes: %w", err)
	}
	if err := s.BatchInsertEdges(ctx, g.AllEdges()); err != nil {
		return fmt.Errorf("save edges: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, projectID string) (*graph.Graph, error) {
	var rows []nodeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM intel_nodes WHERE project_id = $1`, projectID); err != nil {
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

func (s *PostgresStore) edgesForProject(ctx context.Context, projectID string) ([]models.Edge, error) {
	var rows []struct {
		CallerID string `db:"caller_id"`
		CalleeID string `db:"callee_id"`
		EdgeType string `db:"edge_type"`
		Metadata string `db:"metadata"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT e.caller_id, e.callee_id, e.edge_type, e.metadata::text
		FROM intel_edges e
		JOIN intel_nodes n ON n.id = e.caller_id
		WHERE n.project_id = $1`, projectID)
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

func (s *PostgresStore) Analytics(ctx context.Context, projectID string) (Diagnostics, error) {
	var rows []nodeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM intel_nodes WHERE project_id = $1`, projectID); err != nil {
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

func (s *PostgresStore) Hotspots(ctx context.Context, projectID string, thresholdFanout, thresholdComplexity int) ([]Hotspot, error) {
	var rows []struct {
		ID         string `db:"id"`
		Complexity int    `db:"complexity"`
		Fanout     int    `db:"fanout"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT n.id, n.complexity, COUNT(e.callee_id) AS fanout
		FROM intel_nodes n
		LEFT JOIN intel_edges e ON e.caller_id = n.id
		WHERE n.project_id = $1
		GROUP BY n.id, n.complexity
		HAVING n.complexity >= $2 AND COUNT(e.callee_id) >= $3
	`, projectID, thresholdComplexity, thresholdFanout)
	if err != nil {
		return nil, err
	}
	out := make([]Hotspot, len(rows))
	for i, r := range rows {
		out[i] = Hotspot{NodeID: r.ID, Complexity: r.Complexity, Fanout: r.Fanout}
	}
	return out, nil
}
