package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const nodeColumns = "id, repo, label, name, qualified_name, file_path, start_line, end_line, generation, properties"

// UpsertNode inserts or replaces a node (dedup by qualified_name).
// Note: LastInsertId() can return stale IDs for ON CONFLICT DO UPDATE,
// causing occasional FK failures in downstream edge inserts. This is
// accepted for performance — the fallback SELECT only runs when id==0.
func (s *Store) UpsertNode(n *Node) (int64, error) {
	res, err := s.q.Exec(`
		INSERT INTO nodes (repo, label, name, qualified_name, file_path, start_line, end_line, generation, properties)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo, qualified_name) DO UPDATE SET
			label=excluded.label, name=excluded.name, file_path=excluded.file_path,
			start_line=excluded.start_line, end_line=excluded.end_line,
			generation=excluded.generation, properties=excluded.properties`,
		n.Repo, n.Label, n.Name, n.QualifiedName, n.FilePath, n.StartLine, n.EndLine, n.Generation, marshalProps(n.Properties))
	if err != nil {
		return 0, fmt.Errorf("upsert node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	// On conflict, LastInsertId may return 0; query the actual id
	if id == 0 {
		err = s.q.QueryRow("SELECT id FROM nodes WHERE repo=? AND qualified_name=?", n.Repo, n.QualifiedName).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("get node id: %w", err)
		}
	}
	return id, nil
}

// FindNodeByID finds a node by its primary key ID.
func (s *Store) FindNodeByID(id int64) (*Node, error) {
	row := s.q.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE id=?`, id)
	return scanNode(row)
}

// FindNodeByQN finds a node by repository and qualified name.
func (s *Store) FindNodeByQN(repo, qualifiedName string) (*Node, error) {
	row := s.q.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE repo=? AND qualified_name=?`, repo, qualifiedName)
	return scanNode(row)
}

// FindNodesByName finds nodes by repository and name.
func (s *Store) FindNodesByName(repo, name string) ([]*Node, error) {
	rows, err := s.q.Query(`SELECT `+nodeColumns+` FROM nodes WHERE repo=? AND name=?`, repo, name)
	if err != nil {
		return nil, fmt.Errorf("find by name: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// FindNodesByNameAndLabel finds nodes matching both a name and a label.
func (s *Store) FindNodesByNameAndLabel(repo, name, label string) ([]*Node, error) {
	rows, err := s.q.Query(`SELECT `+nodeColumns+` FROM nodes WHERE repo=? AND name=? AND label=?`, repo, name, label)
	if err != nil {
		return nil, fmt.Errorf("find by name+label: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// FindNodesByLabel finds all nodes with a given label in a repository.
func (s *Store) FindNodesByLabel(repo, label string) ([]*Node, error) {
	rows, err := s.q.Query(`SELECT `+nodeColumns+` FROM nodes WHERE repo=? AND label=? ORDER BY qualified_name`, repo, label)
	if err != nil {
		return nil, fmt.Errorf("find by label: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// FindNodesByNameLike finds nodes whose name matches a SQL LIKE pattern,
// optionally filtered by label. Used by the class listing surfaces.
func (s *Store) FindNodesByNameLike(repo, pattern, label string, limit int) ([]*Node, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE repo=? AND name LIKE ?`
	args := []any{repo, pattern}
	if label != "" {
		query += ` AND label=?`
		args = append(args, label)
	}
	query += ` ORDER BY qualified_name LIMIT ?`
	args = append(args, limit)

	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find by name like: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// FindNodesByFile finds all nodes in a given file.
func (s *Store) FindNodesByFile(repo, filePath string) ([]*Node, error) {
	rows, err := s.q.Query(`SELECT `+nodeColumns+` FROM nodes WHERE repo=? AND file_path=?`, repo, filePath)
	if err != nil {
		return nil, fmt.Errorf("find by file: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// CountNodes returns the number of nodes in a repository.
func (s *Store) CountNodes(repo string) (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM nodes WHERE repo=?", repo).Scan(&count)
	return count, err
}

// CountNodesByLabel returns node counts per label for a repository.
func (s *Store) CountNodesByLabel(repo string) (map[string]int, error) {
	rows, err := s.q.Query("SELECT label, COUNT(*) FROM nodes WHERE repo=? GROUP BY label", repo)
	if err != nil {
		return nil, fmt.Errorf("count by label: %w", err)
	}
	defer rows.Close()
	result := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		result[label] = count
	}
	return result, rows.Err()
}

// DeleteNodesByRepo deletes all nodes for a repository.
func (s *Store) DeleteNodesByRepo(repo string) error {
	_, err := s.q.Exec("DELETE FROM nodes WHERE repo=?", repo)
	return err
}

// DeleteNodesByFile deletes all nodes for a specific file in a repository.
func (s *Store) DeleteNodesByFile(repo, filePath string) error {
	_, err := s.q.Exec("DELETE FROM nodes WHERE repo=? AND file_path=?", repo, filePath)
	return err
}

// TouchNodesByFile moves a file's nodes to the given generation without
// rewriting them. Used for unchanged files during incremental reindex so the
// post-pass prune only removes nodes of deleted files.
func (s *Store) TouchNodesByFile(repo, filePath string, generation int64) error {
	_, err := s.q.Exec("UPDATE nodes SET generation=? WHERE repo=? AND file_path=?", generation, repo, filePath)
	return err
}

// PruneStale deletes nodes whose generation predates the given one.
// Edges referencing pruned nodes go with them via ON DELETE CASCADE.
// Returns the number of nodes removed.
func (s *Store) PruneStale(repo string, generation int64) (int64, error) {
	res, err := s.q.Exec("DELETE FROM nodes WHERE repo=? AND generation < ?", repo, generation)
	if err != nil {
		return 0, fmt.Errorf("prune stale: %w", err)
	}
	return res.RowsAffected()
}

// FindNodesByIDs returns a map of nodeID → *Node for the given IDs.
func (s *Store) FindNodesByIDs(ids []int64) (map[int64]*Node, error) {
	if len(ids) == 0 {
		return map[int64]*Node{}, nil
	}
	result := make(map[int64]*Node, len(ids))
	const batchSize = 998 // leave room under 999 limit

	for i := 0; i < len(ids); i += batchSize {
		end := i + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[i:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for j, id := range chunk {
			placeholders[j] = "?"
			args[j] = id
		}

		query := fmt.Sprintf("SELECT %s FROM nodes WHERE id IN (%s)", nodeColumns, strings.Join(placeholders, ","))

		if err := func() error {
			rows, err := s.q.Query(query, args...)
			if err != nil {
				return fmt.Errorf("find nodes by ids: %w", err)
			}
			defer rows.Close()
			nodes, err := scanNodes(rows)
			if err != nil {
				return err
			}
			for _, n := range nodes {
				result[n.ID] = n
			}
			return nil
		}(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// AllNodes returns all nodes for a repository.
func (s *Store) AllNodes(repo string) ([]*Node, error) {
	rows, err := s.q.Query(`SELECT `+nodeColumns+` FROM nodes WHERE repo=?`, repo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*Node, error) {
	var n Node
	var props string
	err := row.Scan(&n.ID, &n.Repo, &n.Label, &n.Name, &n.QualifiedName, &n.FilePath, &n.StartLine, &n.EndLine, &n.Generation, &props)
	if err != nil {
		if err == sql.ErrNoRows {
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
		var n Node
		var props string
		if err := rows.Scan(&n.ID, &n.Repo, &n.Label, &n.Name, &n.QualifiedName, &n.FilePath, &n.StartLine, &n.EndLine, &n.Generation, &props); err != nil {
			return nil, err
		}
		n.Properties = unmarshalProps(props)
		result = append(result, &n)
	}
	return result, rows.Err()
}

// Formula-derived batch size: SQLite has a 999 bind variable limit.
const numNodeCols = 9
const nodesBatchSize = 999 / numNodeCols // = 111

// UpsertNodeBatch inserts or updates multiple nodes in batched multi-row INSERTs.
// Returns a map of qualifiedName → ID for all upserted nodes.
func (s *Store) UpsertNodeBatch(nodes []*Node) (map[string]int64, error) {
	if len(nodes) == 0 {
		return map[string]int64{}, nil
	}

	result := make(map[string]int64, len(nodes))

	for i := 0; i < len(nodes); i += nodesBatchSize {
		end := i + nodesBatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[i:end]

		if err := s.upsertNodeChunk(batch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) upsertNodeChunk(batch []*Node, idMap map[string]int64) error {
	// Build multi-row INSERT
	var sb strings.Builder
	sb.WriteString(`INSERT INTO nodes (repo, label, name, qualified_name, file_path, start_line, end_line, generation, properties) VALUES `)

	args := make([]any, 0, len(batch)*numNodeCols)
	for i, n := range batch {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?)")
		args = append(args, n.Repo, n.Label, n.Name, n.QualifiedName, n.FilePath, n.StartLine, n.EndLine, n.Generation, marshalProps(n.Properties))
	}
	sb.WriteString(` ON CONFLICT(repo, qualified_name) DO UPDATE SET
		label=excluded.label, name=excluded.name, file_path=excluded.file_path,
		start_line=excluded.start_line, end_line=excluded.end_line,
		generation=excluded.generation, properties=excluded.properties`)

	if _, err := s.q.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("upsert node batch: %w", err)
	}

	// Recover IDs via SELECT ... IN (...)
	// Group by repo since the UNIQUE constraint is (repo, qualified_name)
	byRepo := make(map[string][]string)
	for _, n := range batch {
		byRepo[n.Repo] = append(byRepo[n.Repo], n.QualifiedName)
	}

	for repo, qns := range byRepo {
		if err := s.resolveNodeIDs(repo, qns, idMap); err != nil {
			return err
		}
	}
	return nil
}

// resolveNodeIDs fetches IDs for a set of qualified names in a single repo.
// Respects the 999-var limit by batching the IN clause.
func (s *Store) resolveNodeIDs(repo string, qns []string, idMap map[string]int64) error {
	// 1 var for repo + N vars for QNs; batch to stay under 999
	const maxQNsPerQuery = 998

	for i := 0; i < len(qns); i += maxQNsPerQuery {
		end := i + maxQNsPerQuery
		if end > len(qns) {
			end = len(qns)
		}
		chunk := qns[i:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)+1)
		args = append(args, repo)
		for j, qn := range chunk {
			placeholders[j] = "?"
			args = append(args, qn)
		}

		query := fmt.Sprintf("SELECT id, qualified_name FROM nodes WHERE repo = ? AND qualified_name IN (%s)",
			strings.Join(placeholders, ","))

		if err := func() error {
			rows, err := s.q.Query(query, args...)
			if err != nil {
				return fmt.Errorf("resolve node IDs: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var id int64
				var qn string
				if err := rows.Scan(&id, &qn); err != nil {
					return err
				}
				idMap[qn] = id
			}
			return rows.Err()
		}(); err != nil {
			return err
		}
	}
	return nil
}

// FindNodeIDsByQNs returns a map of qualifiedName → ID for the given QNs in a repo.
func (s *Store) FindNodeIDsByQNs(repo string, qns []string) (map[string]int64, error) {
	if len(qns) == 0 {
		return map[string]int64{}, nil
	}
	idMap := make(map[string]int64, len(qns))
	if err := s.resolveNodeIDs(repo, qns, idMap); err != nil {
		return nil, err
	}
	return idMap, nil
}
