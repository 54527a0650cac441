package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// EdgeQuery selects edges within a project; empty fields match anything.
type EdgeQuery struct {
	Type     string
	SourceID string // semantic id
	TargetID string // semantic id
}

// InsertEdge inserts an edge (dedup by source_id, target_id, type).
func (s *Store) InsertEdge(e *Edge) error {
	return s.InsertEdgeBatch([]*Edge{e})
}

// FindEdges returns edges matching q with both endpoint semantic ids filled.
func (s *Store) FindEdges(project string, q EdgeQuery) ([]*Edge, error) {
	where, args := []string{"e.project=?"}, []any{project}
	if q.Type != "" {
		where, args = append(where, "e.type=?"), append(args, q.Type)
	}
	if q.SourceID != "" {
		where, args = append(where, "src.semantic_id=?"), append(args, q.SourceID)
	}
	if q.TargetID != "" {
		where, args = append(where, "dst.semantic_id=?"), append(args, q.TargetID)
	}
	rows, err := s.q.Query(`SELECT e.id, e.project, e.source_id, e.target_id, src.semantic_id, dst.semantic_id, e.type, e.properties
		FROM edges e
		JOIN nodes src ON src.id = e.source_id
		JOIN nodes dst ON dst.id = e.target_id
		WHERE `+strings.Join(where, " AND ")+` ORDER BY e.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("find edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// CountEdges returns the number of edges in a project.
func (s *Store) CountEdges(project string) (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM edges WHERE project=?", project).Scan(&count)
	return count, err
}

// DeleteEdgesByType deletes all edges of a given type for a project.
func (s *Store) DeleteEdgesByType(project, edgeType string) error {
	_, err := s.q.Exec("DELETE FROM edges WHERE project=? AND type=?", project, edgeType)
	return err
}

// 5 cols x 150 = 750 vars < 999.
const edgesBatchSize = 150

// InsertEdgeBatch inserts edges in batched multi-row INSERTs. SourceID and
// TargetID must be row ids.
func (s *Store) InsertEdgeBatch(edges []*Edge) error {
	for i := 0; i < len(edges); i += edgesBatchSize {
		if err := s.insertEdgeChunk(edges[i:min(i+edgesBatchSize, len(edges))]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertEdgeChunk(batch []*Edge) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO edges (project, source_id, target_id, type, properties) VALUES `)

	args := make([]any, 0, len(batch)*5)
	for i, e := range batch {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?)")
		args = append(args, e.Project, e.SourceID, e.TargetID, e.Type, marshalProps(e.Properties))
	}
	sb.WriteString(` ON CONFLICT(source_id, target_id, type) DO UPDATE SET properties=excluded.properties`)

	if _, err := s.q.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("insert edge batch: %w", err)
	}
	return nil
}

func scanEdges(rows *sql.Rows) ([]*Edge, error) {
	var result []*Edge
	for rows.Next() {
		var e Edge
		var props string
		if err := rows.Scan(&e.ID, &e.Project, &e.SourceID, &e.TargetID, &e.SourceSemanticID, &e.TargetSemanticID, &e.Type, &props); err != nil {
			return nil, err
		}
		e.Properties = unmarshalProps(props)
		result = append(result, &e)
	}
	return result, rows.Err()
}
