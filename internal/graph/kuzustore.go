//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
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

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the directory itself for new databases.
// For existing databases, the directory must contain valid KuzuDB files.
// Finished maps persisted here can be queried across sessions.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// Ensure parent directory exists (KuzuDB creates the leaf directory).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open file database: %w", err)
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

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Module(
		id STRING,
		name STRING,
		path STRING,
		purpose STRING,
		key_files STRING,
		complexity STRING,
		category STRING,
		ord INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Category(
		name STRING,
		description STRING,
		PRIMARY KEY(name)
	)`,
	`CREATE REL TABLE IF NOT EXISTS DEPENDS_ON(FROM Module TO Module)`,
	`CREATE REL TABLE IF NOT EXISTS IN_CATEGORY(FROM Module TO Category)`,
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

// AddModule inserts a Module node. Key files are stored newline-joined.
func (s *KuzuStore) AddModule(_ context.Context, m ModuleInfo) error {
	n, err := s.countTable("Module")
	if err != nil {
		return err
	}
	return s.exec(
		`CREATE (m:Module {
			id: $id,
			name: $name,
			path: $path,
			purpose: $purpose,
			key_files: $kf,
			complexity: $cx,
			category: $cat,
			ord: $ord
		})`,
		map[string]any{
			"id":      m.ID,
			"name":    m.Name,
			"path":    m.Path,
			"purpose": m.Purpose,
			"kf":      strings.Join(m.KeyFiles, "\n"),
			"cx":      string(m.Complexity),
			"cat":     m.Category,
			"ord":     int64(n),
		},
	)
}

// AddCategory inserts a Category node.
func (s *KuzuStore) AddCategory(_ context.Context, c CategoryInfo) error {
	return s.exec(
		"CREATE (c:Category {name: $name, description: $desc})",
		map[string]any{
			"name": c.Name,
			"desc": c.Description,
		},
	)
}

// AddEdge inserts a relationship edge between two nodes.
// The Cypher statement is chosen based on the EdgeKind.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	cypher, err := edgeCypher(edge.Kind)
	if err != nil {
		return err
	}
	return s.exec(cypher, map[string]any{
		"src": edge.SourceID,
		"dst": edge.TargetID,
	})
}

// edgeCypher returns the MATCH-CREATE Cypher for the given edge kind.
func edgeCypher(kind EdgeKind) (string, error) {
	switch kind {
	case EdgeKindDependsOn:
		return `MATCH (a:Module {id: $src}), (b:Module {id: $dst})
				CREATE (a)-[:DEPENDS_ON]->(b)`, nil
	case EdgeKindInCategory:
		return `MATCH (a:Module {id: $src}), (b:Category {name: $dst})
				CREATE (a)-[:IN_CATEGORY]->(b)`, nil
	default:
		return "", fmt.Errorf("kuzu: unsupported edge kind: %s", kind)
	}
}

// ---------- Read operations ----------

const moduleColumns = "m.id, m.name, m.path, m.purpose, m.key_files, m.complexity, m.category, m.ord"

// GetModule retrieves a single Module node by id, or returns nil if not found.
func (s *KuzuStore) GetModule(_ context.Context, id string) (*ModuleInfo, error) {
	rows, err := s.query(
		"MATCH (m:Module {id: $id}) RETURN "+moduleColumns,
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	m := rowToModule(rows[0])
	if err := s.fillEdges(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListModules returns modules in insertion order, optionally restricted to
// one category.
func (s *KuzuStore) ListModules(_ context.Context, category string) ([]ModuleInfo, error) {
	var (
		rows [][]any
		err  error
	)
	if category == "" {
		rows, err = s.query("MATCH (m:Module) RETURN "+moduleColumns+" ORDER BY m.ord", nil)
	} else {
		rows, err = s.query(
			"MATCH (m:Module) WHERE m.category = $cat RETURN "+moduleColumns+" ORDER BY m.ord",
			map[string]any{"cat": category},
		)
	}
	if err != nil {
		return nil, err
	}
	out := make([]ModuleInfo, 0, len(rows))
	for _, r := range rows {
		m := rowToModule(r)
		if err := s.fillEdges(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// fillEdges loads Dependencies and Dependents for m from DEPENDS_ON.
func (s *KuzuStore) fillEdges(m *ModuleInfo) error {
	deps, err := s.moduleNeighbors(m.ID, DirectionUpstream)
	if err != nil {
		return err
	}
	dependents, err := s.moduleNeighbors(m.ID, DirectionDownstream)
	if err != nil {
		return err
	}
	m.Dependencies = deps
	m.Dependents = dependents
	return nil
}

// ---------- Graph traversal ----------

// GetDependencies performs a BFS over DEPENDS_ON edges starting from the
// given module id. It returns one DependencyChain per reachable module.
func (s *KuzuStore) GetDependencies(_ context.Context, id string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		maxDepth = 10
	}

	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{id: true}
	queue := []bfsEntry{{path: []string{id}, depth: 0}}
	var chains []DependencyChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.moduleNeighbors(tip, dir)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, DependencyChain{
				Nodes: newPath,
				Depth: cur.depth + 1,
			})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// moduleNeighbors returns immediate module neighbors along DEPENDS_ON edges.
func (s *KuzuStore) moduleNeighbors(id string, dir Direction) ([]string, error) {
	var cypher string
	switch dir {
	case DirectionUpstream:
		cypher = "MATCH (a:Module {id: $id})-[:DEPENDS_ON]->(b:Module) RETURN b.id, b.ord ORDER BY b.ord"
	case DirectionDownstream:
		cypher = "MATCH (a:Module)-[:DEPENDS_ON]->(b:Module {id: $id}) RETURN a.id, a.ord ORDER BY a.ord"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	rows, err := s.query(cypher, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// ---------- Stats ----------

// Stats returns counts of all node and edge tables.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	modules, err := s.countTable("Module")
	if err != nil {
		return nil, err
	}
	categories, err := s.countTable("Category")
	if err != nil {
		return nil, err
	}
	edges, err := s.countEdges()
	if err != nil {
		return nil, err
	}
	return &GraphStats{
		ModuleCount:   modules,
		CategoryCount: categories,
		EdgeCount:     edges,
	}, nil
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

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
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

// countTable returns the number of rows in a node table.
func (s *KuzuStore) countTable(table string) (int, error) {
	// Table name is a fixed internal constant, not user input.
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// countEdges returns the total number of edges across all relationship tables.
func (s *KuzuStore) countEdges() (int, error) {
	tables := []string{"DEPENDS_ON", "IN_CATEGORY"}
	total := 0
	for _, t := range tables {
		cypher := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", t)
		rows, err := s.query(cypher, nil)
		if err != nil {
			// Table may not exist yet; treat as zero.
			continue
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			total += toInt(rows[0][0])
		}
	}
	return total, nil
}

// rowToModule converts a result row into a ModuleInfo.
// Column order follows moduleColumns.
func rowToModule(r []any) ModuleInfo {
	var keyFiles []string
	if kf := toString(r[4]); kf != "" {
		keyFiles = strings.Split(kf, "\n")
	}
	return ModuleInfo{
		ID:         toString(r[0]),
		Name:       toString(r[1]),
		Path:       toString(r[2]),
		Purpose:    toString(r[3]),
		KeyFiles:   keyFiles,
		Complexity: Complexity(toString(r[5])),
		Category:   toString(r[6]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
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
	case float64:
		return int(n)
	default:
		return 0
	}
}
