package store

import (
	"database/sql"
	"fmt"
)

// Repository represents an indexed repository.
type Repository struct {
	Name       string
	IndexedAt  string
	RootPath   string
	Generation int64
}

// UpsertRepository creates or updates a repository record.
func (s *Store) UpsertRepository(name, rootPath string) error {
	_, err := s.q.Exec(`
		INSERT INTO repositories (name, indexed_at, root_path) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET indexed_at=excluded.indexed_at, root_path=excluded.root_path`,
		name, Now(), rootPath)
	return err
}

// GetRepository returns a repository by name, or nil if not indexed.
func (s *Store) GetRepository(name string) (*Repository, error) {
	var r Repository
	err := s.q.QueryRow("SELECT name, indexed_at, root_path, generation FROM repositories WHERE name=?", name).
		Scan(&r.Name, &r.IndexedAt, &r.RootPath, &r.Generation)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// ListRepositories returns all indexed repositories.
func (s *Store) ListRepositories() ([]*Repository, error) {
	rows, err := s.q.Query("SELECT name, indexed_at, root_path, generation FROM repositories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*Repository
	for rows.Next() {
		var r Repository
		if err := rows.Scan(&r.Name, &r.IndexedAt, &r.RootPath, &r.Generation); err != nil {
			return nil, err
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}

// DeleteRepository deletes a repository and all associated data (CASCADE).
func (s *Store) DeleteRepository(name string) error {
	_, err := s.q.Exec("DELETE FROM repositories WHERE name=?", name)
	return err
}

// NextGeneration increments and returns the repository's generation counter.
// Nodes written during an index pass carry the returned value; untouched
// nodes keep an older generation and are pruned after the pass.
func (s *Store) NextGeneration(name string) (int64, error) {
	_, err := s.q.Exec("UPDATE repositories SET generation = generation + 1 WHERE name=?", name)
	if err != nil {
		return 0, fmt.Errorf("bump generation: %w", err)
	}
	var gen int64
	err = s.q.QueryRow("SELECT generation FROM repositories WHERE name=?", name).Scan(&gen)
	if err != nil {
		return 0, fmt.Errorf("read generation: %w", err)
	}
	return gen, nil
}

// UpsertFileHash stores a file's content hash.
func (s *Store) UpsertFileHash(repo, relPath, hash string) error {
	_, err := s.q.Exec(`
		INSERT INTO file_hashes (repo, rel_path, hash) VALUES (?, ?, ?)
		ON CONFLICT(repo, rel_path) DO UPDATE SET hash=excluded.hash`,
		repo, relPath, hash)
	return err
}

// GetFileHashes returns all stored file hashes for a repository.
func (s *Store) GetFileHashes(repo string) (map[string]string, error) {
	rows, err := s.q.Query("SELECT rel_path, hash FROM file_hashes WHERE repo=?", repo)
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

// DeleteFileHash deletes a single file hash entry.
func (s *Store) DeleteFileHash(repo, relPath string) error {
	_, err := s.q.Exec("DELETE FROM file_hashes WHERE repo=? AND rel_path=?", repo, relPath)
	return err
}

// DeleteFileHashes deletes all file hashes for a repository.
func (s *Store) DeleteFileHashes(repo string) error {
	_, err := s.q.Exec("DELETE FROM file_hashes WHERE repo=?", repo)
	return err
}
