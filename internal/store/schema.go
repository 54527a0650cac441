package store

import (
	"fmt"

	"github.com/Disentinel/grafema-sub012/internal/fqn"
)

// Stats summarizes a project's stored graph.
type Stats struct {
	Nodes     int         `json:"nodes"`
	Edges     int         `json:"edges"`
	NodeTypes []TypeCount `json:"node_types"`
	EdgeTypes []TypeCount `json:"edge_types"`
	// LegacyIDs counts nodes whose identifier is not in semantic form.
	LegacyIDs int `json:"legacy_ids"`
}

// TypeCount is a node or edge type with its count.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// GetStats returns graph statistics for a project.
func (s *Store) GetStats(project string) (*Stats, error) {
	st := &Stats{}
	var err error
	if st.Nodes, err = s.CountNodes(project); err != nil {
		return nil, err
	}
	if st.Edges, err = s.CountEdges(project); err != nil {
		return nil, err
	}
	if st.NodeTypes, err = s.typeCounts("SELECT type, COUNT(*) AS cnt FROM nodes WHERE project=? GROUP BY type ORDER BY cnt DESC, type", project); err != nil {
		return nil, fmt.Errorf("node types: %w", err)
	}
	if st.EdgeTypes, err = s.typeCounts("SELECT type, COUNT(*) AS cnt FROM edges WHERE project=? GROUP BY type ORDER BY cnt DESC, type", project); err != nil {
		return nil, fmt.Errorf("edge types: %w", err)
	}
	if st.LegacyIDs, err = s.CountLegacyIDs(project); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) typeCounts(query, project string) ([]TypeCount, error) {
	rows, err := s.q.Query(query, project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// CountLegacyIDs counts nodes whose identifier does not parse as a semantic
// id. Graphs written by older analyzers carry positional ids.
func (s *Store) CountLegacyIDs(project string) (int, error) {
	rows, err := s.q.Query("SELECT semantic_id FROM nodes WHERE project=?", project)
	if err != nil {
		return 0, fmt.Errorf("scan ids: %w", err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		if !fqn.IsSemantic(id) {
			n++
		}
	}
	return n, rows.Err()
}
