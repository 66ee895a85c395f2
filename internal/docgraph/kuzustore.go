//go:build cgo

package docgraph

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements Store on KuzuDB. It requires CGO because the go-kuzu
// driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a database directory at
// dbPath. KuzuDB creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	db, err := kuzu.OpenDatabase(path, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema. Node tables
// precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS SemanticNode(
		id STRING,
		kind STRING,
		name STRING,
		collection STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS PARENT_OF(FROM SemanticNode TO SemanticNode)`,
	`CREATE REL TABLE IF NOT EXISTS REFERS_TO(FROM SemanticNode TO SemanticNode)`,
	`CREATE REL TABLE IF NOT EXISTS HAS_SOURCE(FROM SemanticNode TO SemanticNode)`,
	`CREATE REL TABLE IF NOT EXISTS HAS_TARGET(FROM SemanticNode TO SemanticNode)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddNode inserts a SemanticNode.
func (s *KuzuStore) AddNode(_ context.Context, node NodeRecord) error {
	return s.exec(
		"CREATE (n:SemanticNode {id: $id, kind: $kind, name: $name, collection: $coll})",
		map[string]any{
			"id":   node.ID,
			"kind": node.Kind,
			"name": node.Name,
			"coll": node.Collection,
		},
	)
}

// AddEdge inserts a relationship between two existing nodes.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	if !knownEdgeKind(edge.Kind) {
		return fmt.Errorf("kuzu: unsupported edge kind: %s", edge.Kind)
	}
	// Rel table names are fixed constants, not user input.
	cypher := fmt.Sprintf(`MATCH (a:SemanticNode {id: $src}), (b:SemanticNode {id: $dst})
		CREATE (a)-[:%s]->(b)`, edge.Kind)
	return s.exec(cypher, map[string]any{"src": edge.SourceID, "dst": edge.TargetID})
}

func knownEdgeKind(kind EdgeKind) bool {
	for _, k := range EdgeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ---------- Read operations ----------

// GetNode retrieves a single node by id, or returns nil if not found.
func (s *KuzuStore) GetNode(_ context.Context, id string) (*NodeRecord, error) {
	rows, err := s.query(
		"MATCH (n:SemanticNode {id: $id}) RETURN n.id, n.kind, n.name, n.collection",
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToNode(rows[0]), nil
}

// QueryNodes returns nodes whose id or name contains query.
func (s *KuzuStore) QueryNodes(_ context.Context, query string, limit int) ([]NodeRecord, error) {
	cypher := `MATCH (n:SemanticNode)
		WHERE lower(n.id) CONTAINS lower($q) OR lower(n.name) CONTAINS lower($q)
		RETURN n.id, n.kind, n.name, n.collection
		ORDER BY n.id`
	params := map[string]any{"q": query}
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]NodeRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToNode(r))
	}
	return out, nil
}

// GetAllEdges returns all edges across all relationship tables.
func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	var edges []Edge
	for _, kind := range EdgeKinds {
		cypher := fmt.Sprintf("MATCH (a:SemanticNode)-[:%s]->(b:SemanticNode) RETURN a.id, b.id", kind)
		rows, err := s.query(cypher, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, Edge{SourceID: toString(r[0]), TargetID: toString(r[1]), Kind: kind})
		}
	}
	return edges, nil
}

// ---------- Graph traversal ----------

// GetChains performs a BFS over PARENT_OF edges starting from id.
func (s *KuzuStore) GetChains(_ context.Context, id string, dir Direction, maxDepth int) ([]Chain, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{id: true}
	queue := []bfsEntry{{path: []string{id}}}
	var chains []Chain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.containment(tip, dir)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			path := make([]string, len(cur.path)+1)
			copy(path, cur.path)
			path[len(cur.path)] = nb
			chains = append(chains, Chain{Nodes: path, Depth: cur.depth + 1})
			queue = append(queue, bfsEntry{path: path, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// containment returns immediate neighbors along PARENT_OF edges.
func (s *KuzuStore) containment(id string, dir Direction) ([]string, error) {
	var cypher string
	switch dir {
	case DirectionDownstream:
		cypher = "MATCH (a:SemanticNode {id: $id})-[:PARENT_OF]->(b:SemanticNode) RETURN b.id"
	case DirectionUpstream:
		cypher = "MATCH (a:SemanticNode)-[:PARENT_OF]->(b:SemanticNode {id: $id}) RETURN a.id"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	return s.ids(cypher, id)
}

// pointingAt returns the nodes with a reference or endpoint edge into id.
func (s *KuzuStore) pointingAt(id string) ([]string, error) {
	var out []string
	for _, kind := range EdgeKinds {
		if kind == EdgeKindParentOf {
			continue
		}
		cypher := fmt.Sprintf("MATCH (a:SemanticNode)-[:%s]->(b:SemanticNode {id: $id}) RETURN a.id", kind)
		ids, err := s.ids(cypher, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return out, nil
}

// AssessImpact walks reference and endpoint edges backwards from the
// changed nodes.
func (s *KuzuStore) AssessImpact(_ context.Context, changed []string) (*ImpactResult, error) {
	total, err := s.countNodes()
	if err != nil {
		return nil, err
	}
	changedSet := make(map[string]bool, len(changed))
	for _, id := range changed {
		changedSet[id] = true
	}

	direct := map[string]bool{}
	all := map[string]bool{}
	frontier := changed
	for first := true; len(frontier) > 0; first = false {
		var next []string
		for _, id := range frontier {
			srcs, err := s.pointingAt(id)
			if err != nil {
				return nil, err
			}
			for _, src := range srcs {
				if changedSet[src] || all[src] {
					continue
				}
				all[src] = true
				if first {
					direct[src] = true
				}
				next = append(next, src)
			}
		}
		frontier = next
	}

	risk := 0.0
	if total > 0 {
		risk = math.Min(1.0, float64(len(all))/float64(total))
	}
	return &ImpactResult{
		DirectlyAffected:     setToSlice(direct),
		TransitivelyAffected: setToSlice(all),
		RiskScore:            risk,
	}, nil
}

// ---------- Stats ----------

// Stats returns node counts per kind and the total edge count.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	rows, err := s.query("MATCH (n:SemanticNode) RETURN n.kind, count(n)", nil)
	if err != nil {
		return nil, err
	}
	st := &Stats{Kinds: make(map[string]int)}
	for _, r := range rows {
		c := toInt(r[1])
		st.Kinds[toString(r[0])] = c
		st.NodeCount += c
	}
	for _, kind := range EdgeKinds {
		cypher := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", kind)
		rows, err := s.query(cypher, nil)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			st.EdgeCount += toInt(rows[0][0])
		}
	}
	return st, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a Cypher statement and collects all result rows in column
// order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// ids runs a one-column query parameterized by $id.
func (s *KuzuStore) ids(cypher, id string) ([]string, error) {
	rows, err := s.query(cypher, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	sort.Strings(out)
	return out, nil
}

func (s *KuzuStore) countNodes() (int, error) {
	rows, err := s.query("MATCH (n:SemanticNode) RETURN count(n)", nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToNode converts an id, kind, name, collection row.
func rowToNode(r []any) *NodeRecord {
	return &NodeRecord{
		ID:         toString(r[0]),
		Kind:       toString(r[1]),
		Name:       toString(r[2]),
		Collection: toString(r[3]),
	}
}

// ---------- Type coercion helpers ----------

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
