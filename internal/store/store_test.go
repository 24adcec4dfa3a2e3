package store

import (
	"fmt"
	"testing"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.UpsertRepository("test", "/tmp/test"); err != nil {
		t.Fatalf("UpsertRepository: %v", err)
	}
	return s
}

func TestOpenMemory(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	s.Close()
}

func TestNodeCRUD(t *testing.T) {
	s := openTest(t)

	n := &Node{
		Repo:          "test",
		Label:         LabelMethod,
		Name:          "save",
		QualifiedName: "test.models.Invoice.save",
		FilePath:      "models.py",
		StartLine:     10,
		EndLine:       20,
		Generation:    1,
		Properties:    map[string]any{"required_params": float64(2)},
	}
	id, err := s.UpsertNode(n)
	if err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	found, err := s.FindNodeByQN("test", "test.models.Invoice.save")
	if err != nil {
		t.Fatalf("FindNodeByQN: %v", err)
	}
	if found == nil {
		t.Fatal("expected node, got nil")
	}
	if found.Name != "save" {
		t.Errorf("expected save, got %s", found.Name)
	}
	if found.Generation != 1 {
		t.Errorf("expected generation 1, got %d", found.Generation)
	}
	if found.Properties["required_params"] != float64(2) {
		t.Errorf("unexpected required_params: %v", found.Properties["required_params"])
	}

	nodes, err := s.FindNodesByName("test", "save")
	if err != nil {
		t.Fatalf("FindNodesByName: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}

	count, err := s.CountNodes("test")
	if err != nil {
		t.Fatalf("CountNodes: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1, got %d", count)
	}
}

func TestNodeDedup(t *testing.T) {
	s := openTest(t)

	// Insert same qualified_name twice — should update, not duplicate
	n1 := &Node{Repo: "test", Label: LabelClass, Name: "Invoice", QualifiedName: "test.models.Invoice"}
	n2 := &Node{Repo: "test", Label: LabelClass, Name: "Invoice", QualifiedName: "test.models.Invoice", Properties: map[string]any{"updated": true}}

	if _, err := s.UpsertNode(n1); err != nil {
		t.Fatalf("UpsertNode n1: %v", err)
	}
	if _, err := s.UpsertNode(n2); err != nil {
		t.Fatalf("UpsertNode n2: %v", err)
	}

	count, _ := s.CountNodes("test")
	if count != 1 {
		t.Errorf("expected 1 node after dedup, got %d", count)
	}

	found, _ := s.FindNodeByQN("test", "test.models.Invoice")
	if found.Properties["updated"] != true {
		t.Error("expected updated property")
	}
}

func TestEdgeCRUD(t *testing.T) {
	s := openTest(t)

	id1, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelClass, Name: "A", QualifiedName: "test.A"})
	id2, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelClass, Name: "B", QualifiedName: "test.B"})

	if _, err := s.InsertEdge(&Edge{Repo: "test", SourceID: id1, TargetID: id2, Type: EdgeInheritsFrom}); err != nil {
		t.Fatalf("InsertEdge: %v", err)
	}

	edges, err := s.FindEdgesBySource(id1)
	if err != nil {
		t.Fatalf("FindEdgesBySource: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if edges[0].Type != EdgeInheritsFrom {
		t.Errorf("expected %s, got %s", EdgeInheritsFrom, edges[0].Type)
	}

	count, _ := s.CountEdges("test")
	if count != 1 {
		t.Errorf("expected 1, got %d", count)
	}
}

func TestCascadeDelete(t *testing.T) {
	s := openTest(t)

	id1, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelClass, Name: "A", QualifiedName: "test.A"})
	id2, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelClass, Name: "B", QualifiedName: "test.B"})
	if _, err := s.InsertEdge(&Edge{Repo: "test", SourceID: id1, TargetID: id2, Type: EdgeInheritsFrom}); err != nil {
		t.Fatalf("InsertEdge: %v", err)
	}
	if err := s.UpsertFileHash("test", "a.py", "abc123"); err != nil {
		t.Fatalf("UpsertFileHash: %v", err)
	}

	if err := s.DeleteRepository("test"); err != nil {
		t.Fatalf("DeleteRepository: %v", err)
	}

	nodes, _ := s.CountNodes("test")
	edges, _ := s.CountEdges("test")
	if nodes != 0 {
		t.Errorf("expected 0 nodes after cascade, got %d", nodes)
	}
	if edges != 0 {
		t.Errorf("expected 0 edges after cascade, got %d", edges)
	}
	hashes, _ := s.GetFileHashes("test")
	if len(hashes) != 0 {
		t.Errorf("expected 0 file hashes after cascade, got %d", len(hashes))
	}
}

func TestRepositoryCRUD(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()

	if err := s.UpsertRepository("myrepo", "/home/user/myrepo"); err != nil {
		t.Fatalf("UpsertRepository: %v", err)
	}

	r, err := s.GetRepository("myrepo")
	if err != nil {
		t.Fatalf("GetRepository: %v", err)
	}
	if r == nil || r.RootPath != "/home/user/myrepo" {
		t.Fatalf("unexpected repository: %+v", r)
	}
	if r.IndexedAt == "" {
		t.Error("expected indexed_at to be set")
	}

	missing, err := s.GetRepository("nope")
	if err != nil {
		t.Fatalf("GetRepository missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing repository, got %+v", missing)
	}

	repos, err := s.ListRepositories()
	if err != nil {
		t.Fatalf("ListRepositories: %v", err)
	}
	if len(repos) != 1 || repos[0].Name != "myrepo" {
		t.Errorf("unexpected repos: %+v", repos)
	}
}

func TestNextGeneration(t *testing.T) {
	s := openTest(t)

	g1, err := s.NextGeneration("test")
	if err != nil {
		t.Fatalf("NextGeneration: %v", err)
	}
	g2, err := s.NextGeneration("test")
	if err != nil {
		t.Fatalf("NextGeneration: %v", err)
	}
	if g2 != g1+1 {
		t.Errorf("expected %d, got %d", g1+1, g2)
	}
}

func TestPruneStale(t *testing.T) {
	s := openTest(t)

	oldID, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelClass, Name: "Old", QualifiedName: "test.Old", Generation: 1})
	newID, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelClass, Name: "New", QualifiedName: "test.New", Generation: 2})
	if _, err := s.InsertEdge(&Edge{Repo: "test", SourceID: newID, TargetID: oldID, Type: EdgeInheritsFrom}); err != nil {
		t.Fatalf("InsertEdge: %v", err)
	}

	pruned, err := s.PruneStale("test", 2)
	if err != nil {
		t.Fatalf("PruneStale: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned, got %d", pruned)
	}

	if n, _ := s.FindNodeByQN("test", "test.Old"); n != nil {
		t.Error("stale node should be gone")
	}
	if n, _ := s.FindNodeByQN("test", "test.New"); n == nil {
		t.Error("current node should survive")
	}
	// Edge referencing the pruned node cascades away
	edges, _ := s.FindEdgesBySource(newID)
	if len(edges) != 0 {
		t.Errorf("expected 0 edges after prune cascade, got %d", len(edges))
	}
}

func TestUpsertNodeBatch(t *testing.T) {
	s := openTest(t)

	// Enough nodes to span multiple chunks
	nodes := make([]*Node, 0, 300)
	for i := 0; i < 300; i++ {
		nodes = append(nodes, &Node{
			Repo:          "test",
			Label:         LabelFunction,
			Name:          fmt.Sprintf("fn%d", i),
			QualifiedName: fmt.Sprintf("test.mod.fn%d", i),
			Generation:    1,
		})
	}

	idMap, err := s.UpsertNodeBatch(nodes)
	if err != nil {
		t.Fatalf("UpsertNodeBatch: %v", err)
	}
	if len(idMap) != 300 {
		t.Fatalf("expected 300 ids, got %d", len(idMap))
	}

	count, _ := s.CountNodes("test")
	if count != 300 {
		t.Errorf("expected 300 nodes, got %d", count)
	}

	// Re-upsert is an update, not a duplicate
	if _, err := s.UpsertNodeBatch(nodes); err != nil {
		t.Fatalf("UpsertNodeBatch again: %v", err)
	}
	count, _ = s.CountNodes("test")
	if count != 300 {
		t.Errorf("expected 300 nodes after re-upsert, got %d", count)
	}
}

func TestInsertEdgeBatch(t *testing.T) {
	s := openTest(t)

	hubID, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelModule, Name: "mod", QualifiedName: "test.mod"})
	edges := make([]*Edge, 0, 200)
	for i := 0; i < 200; i++ {
		id, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelFunction, Name: fmt.Sprintf("fn%d", i), QualifiedName: fmt.Sprintf("test.mod.fn%d", i)})
		edges = append(edges, &Edge{Repo: "test", SourceID: hubID, TargetID: id, Type: EdgeDefines})
	}

	if err := s.InsertEdgeBatch(edges); err != nil {
		t.Fatalf("InsertEdgeBatch: %v", err)
	}
	count, _ := s.CountEdges("test")
	if count != 200 {
		t.Errorf("expected 200 edges, got %d", count)
	}

	// Dedup on re-insert
	if err := s.InsertEdgeBatch(edges); err != nil {
		t.Fatalf("InsertEdgeBatch again: %v", err)
	}
	count, _ = s.CountEdges("test")
	if count != 200 {
		t.Errorf("expected 200 edges after re-insert, got %d", count)
	}
}

func TestWithTransactionRollback(t *testing.T) {
	s := openTest(t)

	err := s.WithTransaction(func(tx *Store) error {
		if _, err := tx.UpsertNode(&Node{Repo: "test", Label: LabelClass, Name: "X", QualifiedName: "test.X"}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatal("expected error from transaction")
	}

	count, _ := s.CountNodes("test")
	if count != 0 {
		t.Errorf("expected rollback, got %d nodes", count)
	}
}

func TestAncestors(t *testing.T) {
	s := openTest(t)

	// C -> B -> A, plus a cycle A -> C to prove termination
	a, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelClass, Name: "A", QualifiedName: "test.A"})
	b, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelClass, Name: "B", QualifiedName: "test.B"})
	c, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelClass, Name: "C", QualifiedName: "test.C"})
	for _, e := range []*Edge{
		{Repo: "test", SourceID: c, TargetID: b, Type: EdgeInheritsFrom},
		{Repo: "test", SourceID: b, TargetID: a, Type: EdgeInheritsFrom},
		{Repo: "test", SourceID: a, TargetID: c, Type: EdgeInheritsFrom},
	} {
		if _, err := s.InsertEdge(e); err != nil {
			t.Fatalf("InsertEdge: %v", err)
		}
	}

	ancestors, err := s.Ancestors(c, 10)
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if len(ancestors) != 3 {
		t.Fatalf("expected 3 ancestors (self included), got %d", len(ancestors))
	}
	if ancestors[0].Name != "C" {
		t.Errorf("expected self first, got %s", ancestors[0].Name)
	}
}

func TestFileHashes(t *testing.T) {
	s := openTest(t)

	if err := s.UpsertFileHash("test", "a.py", "h1"); err != nil {
		t.Fatalf("UpsertFileHash: %v", err)
	}
	if err := s.UpsertFileHash("test", "a.py", "h2"); err != nil {
		t.Fatalf("UpsertFileHash update: %v", err)
	}
	if err := s.UpsertFileHash("test", "b.py", "h3"); err != nil {
		t.Fatalf("UpsertFileHash b: %v", err)
	}

	hashes, err := s.GetFileHashes("test")
	if err != nil {
		t.Fatalf("GetFileHashes: %v", err)
	}
	if len(hashes) != 2 || hashes["a.py"] != "h2" {
		t.Errorf("unexpected hashes: %v", hashes)
	}

	if err := s.DeleteFileHash("test", "a.py"); err != nil {
		t.Fatalf("DeleteFileHash: %v", err)
	}
	hashes, _ = s.GetFileHashes("test")
	if len(hashes) != 1 {
		t.Errorf("expected 1 hash, got %d", len(hashes))
	}
}

func TestGetStats(t *testing.T) {
	s := openTest(t)

	classID, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelClass, Name: "Invoice", QualifiedName: "test.Invoice"})
	methodID, _ := s.UpsertNode(&Node{Repo: "test", Label: LabelMethod, Name: "save", QualifiedName: "test.Invoice.save"})
	if _, err := s.InsertEdge(&Edge{Repo: "test", SourceID: classID, TargetID: methodID, Type: EdgeHasMethod}); err != nil {
		t.Fatalf("InsertEdge: %v", err)
	}

	stats, err := s.GetStats("test")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if len(stats.NodeLabels) != 2 {
		t.Errorf("expected 2 labels, got %+v", stats.NodeLabels)
	}
	if len(stats.EdgeTypes) != 1 || stats.EdgeTypes[0].Type != EdgeHasMethod {
		t.Errorf("unexpected edge types: %+v", stats.EdgeTypes)
	}
	if len(stats.SampleClassNames) != 1 || stats.SampleClassNames[0] != "Invoice" {
		t.Errorf("unexpected class samples: %v", stats.SampleClassNames)
	}
}
