package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const nodeColumns = "id, project, unit, type, name, semantic_id, file_path, start_line, end_line, properties"

// NodeQuery selects nodes within a project; empty fields match anything.
type NodeQuery struct {
	Type     string
	Name     string
	FilePath string
	Unit     string
}

// UpsertNode inserts or replaces a node (dedup by semantic_id).
func (s *Store) UpsertNode(n *Node) (int64, error) {
	ids, err := s.UpsertNodeBatch([]*Node{n})
	if err != nil {
		return 0, err
	}
	return ids[n.SemanticID], nil
}

// FindNodeBySemanticID returns the node with the given semantic id, or nil
// when there is none.
func (s *Store) FindNodeBySemanticID(project, semanticID string) (*Node, error) {
	row := s.q.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE project=? AND semantic_id=?`, project, semanticID)
	return scanNode(row)
}

// FindNodes returns nodes matching q in insertion order.
func (s *Store) FindNodes(project string, q NodeQuery) ([]*Node, error) {
	where, args := []string{"project=?"}, []any{project}
	if q.Type != "" {
		where, args = append(where, "type=?"), append(args, q.Type)
	}
	if q.Name != "" {
		where, args = append(where, "name=?"), append(args, q.Name)
	}
	if q.FilePath != "" {
		where, args = append(where, "file_path=?"), append(args, q.FilePath)
	}
	if q.Unit != "" {
		where, args = append(where, "unit=?"), append(args, q.Unit)
	}
	rows, err := s.q.Query(`SELECT `+nodeColumns+` FROM nodes WHERE `+strings.Join(where, " AND ")+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("find nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// CountNodes returns the number of nodes in a project.
func (s *Store) CountNodes(project string) (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM nodes WHERE project=?", project).Scan(&count)
	return count, err
}

// DeleteNodesByFile deletes all nodes for a specific file in a project.
// Edges touching them go with them.
func (s *Store) DeleteNodesByFile(project, filePath string) error {
	_, err := s.q.Exec("DELETE FROM nodes WHERE project=? AND file_path=?", project, filePath)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*Node, error) {
	var n Node
	var props string
	err := row.Scan(&n.ID, &n.Project, &n.Unit, &n.Type, &n.Name, &n.SemanticID, &n.FilePath, &n.StartLine, &n.EndLine, &props)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	n.Properties = unmarshalProps(props)
	return &n, nil
}

func scanNodes(rows *sql.Rows) ([]*Node, error) {
	var result []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// SQLite has a 999 bind variable limit.
const numNodeCols = 9
const nodesBatchSize = 999 / numNodeCols // = 111

// UpsertNodeBatch inserts or updates nodes in batched multi-row INSERTs.
// Returns a map of semantic id to row id for all upserted nodes.
func (s *Store) UpsertNodeBatch(nodes []*Node) (map[string]int64, error) {
	result := make(map[string]int64, len(nodes))
	for i := 0; i < len(nodes); i += nodesBatchSize {
		end := min(i+nodesBatchSize, len(nodes))
		if err := s.upsertNodeChunk(nodes[i:end], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) upsertNodeChunk(batch []*Node, idMap map[string]int64) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO nodes (project, unit, type, name, semantic_id, file_path, start_line, end_line, properties) VALUES `)

	args := make([]any, 0, len(batch)*numNodeCols)
	for i, n := range batch {
		if n.SemanticID == "" {
			return fmt.Errorf("upsert node %q: empty semantic id", n.Name)
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?)")
		args = append(args, n.Project, n.Unit, n.Type, n.Name, n.SemanticID, n.FilePath, n.StartLine, n.EndLine, marshalProps(n.Properties))
	}
	sb.WriteString(` ON CONFLICT(project, semantic_id) DO UPDATE SET
		unit=excluded.unit, type=excluded.type, name=excluded.name, file_path=excluded.file_path,
		start_line=excluded.start_line, end_line=excluded.end_line, properties=excluded.properties`)

	if _, err := s.q.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("upsert node batch: %w", err)
	}

	// LastInsertId is unreliable for ON CONFLICT DO UPDATE; read ids back.
	byProject := make(map[string][]string)
	for _, n := range batch {
		byProject[n.Project] = append(byProject[n.Project], n.SemanticID)
	}
	for project, sids := range byProject {
		if err := s.resolveNodeIDs(project, sids, idMap); err != nil {
			return err
		}
	}
	return nil
}

// resolveNodeIDs fetches row ids for semantic ids in a single project,
// batching the IN clause under the bind variable limit.
func (s *Store) resolveNodeIDs(project string, sids []string, idMap map[string]int64) error {
	const maxPerQuery = 998

	for i := 0; i < len(sids); i += maxPerQuery {
		chunk := sids[i:min(i+maxPerQuery, len(sids))]

		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)+1)
		args = append(args, project)
		for j, sid := range chunk {
			placeholders[j] = "?"
			args = append(args, sid)
		}

		query := fmt.Sprintf("SELECT id, semantic_id FROM nodes WHERE project = ? AND semantic_id IN (%s)",
			strings.Join(placeholders, ","))

		if err := func() error {
			rows, err := s.q.Query(query, args...)
			if err != nil {
				return fmt.Errorf("resolve node ids: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var id int64
				var sid string
				if err := rows.Scan(&id, &sid); err != nil {
					return err
				}
				idMap[sid] = id
			}
			return rows.Err()
		}(); err != nil {
			return err
		}
	}
	return nil
}

// FindNodeIDs returns a map of semantic id to row id for the ids that exist.
func (s *Store) FindNodeIDs(project string, sids []string) (map[string]int64, error) {
	idMap := make(map[string]int64, len(sids))
	if err := s.resolveNodeIDs(project, sids, idMap); err != nil {
		return nil, err
	}
	return idMap, nil
}
