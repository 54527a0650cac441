package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Project represents an analyzed project.
type Project struct {
	Name      string
	IndexedAt string
	RootPath  string
	RunID     string
}

// UpsertProject creates or updates a project record.
func (s *Store) UpsertProject(name, rootPath, runID string) error {
	_, err := s.q.Exec(`
		INSERT INTO projects (name, indexed_at, root_path, run_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET indexed_at=excluded.indexed_at, root_path=excluded.root_path, run_id=excluded.run_id`,
		name, Now(), rootPath, runID)
	return err
}

// GetProject returns a project by name, or nil when it does not exist.
func (s *Store) GetProject(name string) (*Project, error) {
	var p Project
	err := s.q.QueryRow("SELECT name, indexed_at, root_path, run_id FROM projects WHERE name=?", name).
		Scan(&p.Name, &p.IndexedAt, &p.RootPath, &p.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns all analyzed projects.
func (s *Store) ListProjects() ([]*Project, error) {
	rows, err := s.q.Query("SELECT name, indexed_at, root_path, run_id FROM projects ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.Name, &p.IndexedAt, &p.RootPath, &p.RunID); err != nil {
			return nil, err
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}

// DeleteProject deletes a project and all associated data (CASCADE).
func (s *Store) DeleteProject(name string) error {
	_, err := s.q.Exec("DELETE FROM projects WHERE name=?", name)
	return err
}

// ClearProject drops every node, edge and file hash of a project but keeps
// the project row. A full re-analysis starts from here.
func (s *Store) ClearProject(name string) error {
	for _, stmt := range []string{
		"DELETE FROM edges WHERE project=?",
		"DELETE FROM nodes WHERE project=?",
		"DELETE FROM file_hashes WHERE project=?",
	} {
		if _, err := s.q.Exec(stmt, name); err != nil {
			return fmt.Errorf("clear project %s: %w", name, err)
		}
	}
	return nil
}

// UpsertFileHash stores a file's content hash.
func (s *Store) UpsertFileHash(project, relPath, hash string) error {
	_, err := s.q.Exec(`
		INSERT INTO file_hashes (project, rel_path, hash) VALUES (?, ?, ?)
		ON CONFLICT(project, rel_path) DO UPDATE SET hash=excluded.hash`,
		project, relPath, hash)
	return err
}

// 3 cols x 300 = 900 vars < 999.
const fileHashBatchSize = 300

// UpsertFileHashBatch stores many hashes keyed by relative path.
func (s *Store) UpsertFileHashBatch(project string, hashes map[string]string) error {
	paths := make([]string, 0, len(hashes))
	for p := range hashes {
		paths = append(paths, p)
	}
	for i := 0; i < len(paths); i += fileHashBatchSize {
		chunk := paths[i:min(i+fileHashBatchSize, len(paths))]
		var sb strings.Builder
		sb.WriteString(`INSERT INTO file_hashes (project, rel_path, hash) VALUES `)
		args := make([]any, 0, len(chunk)*3)
		for j, p := range chunk {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString("(?,?,?)")
			args = append(args, project, p, hashes[p])
		}
		sb.WriteString(` ON CONFLICT(project, rel_path) DO UPDATE SET hash=excluded.hash`)
		if _, err := s.q.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("upsert file hash batch: %w", err)
		}
	}
	return nil
}

// GetFileHashes returns all file hashes for a project.
func (s *Store) GetFileHashes(project string) (map[string]string, error) {
	rows, err := s.q.Query("SELECT rel_path, hash FROM file_hashes WHERE project=?", project)
	if err != nil {
		return nil, fmt.Errorf("get file hashes: %w", err)
	}
	defer rows.Close()
	result := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, err
		}
		result[path] = hash
	}
	return result, rows.Err()
}
