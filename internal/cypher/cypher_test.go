package cypher

import (
	"testing"

	"github.com/graphlint/graphlint/internal/store"
)

// --- Lexer tests ---

func TestLexBasicQuery(t *testing.T) {
	tokens, err := Lex(`MATCH (c:Class) WHERE c.name = "Invoice" RETURN c.name`)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}

	expected := []TokenType{
		TokMatch, TokLParen, TokIdent, TokColon, TokIdent, TokRParen,
		TokWhere, TokIdent, TokDot, TokIdent, TokEQ, TokString,
		TokReturn, TokIdent, TokDot, TokIdent, TokEOF,
	}

	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}
	for i, tok := range tokens {
		if tok.Type != expected[i] {
			t.Errorf("token[%d]: expected type %d, got %d (%q)", i, expected[i], tok.Type, tok.Value)
		}
	}
}

func TestLexRegexOperator(t *testing.T) {
	tokens, err := Lex(`c.name =~ ".*Error"`)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if tokens[3].Type != TokRegex {
		t.Errorf("expected TokRegex, got type %d (%q)", tokens[3].Type, tokens[3].Value)
	}
}

func TestLexVariableLengthPath(t *testing.T) {
	tokens, err := Lex(`MATCH (a)-[:INHERITS_FROM*1..3]->(b) RETURN b`)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	var sawStar bool
	for _, tok := range tokens {
		if tok.Type == TokStar {
			sawStar = true
		}
	}
	if !sawStar {
		t.Error("expected a star token in variable-length pattern")
	}
}

// --- Parser tests ---

func TestParseNodePattern(t *testing.T) {
	q, err := Parse(`MATCH (c:Class) RETURN c.name`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Match.Pattern.Elements) != 1 {
		t.Fatalf("expected 1 pattern element, got %d", len(q.Match.Pattern.Elements))
	}
	node, ok := q.Match.Pattern.Elements[0].(*NodePattern)
	if !ok {
		t.Fatalf("expected NodePattern, got %T", q.Match.Pattern.Elements[0])
	}
	if node.Variable != "c" || node.Label != "Class" {
		t.Errorf("node pattern: var=%q label=%q", node.Variable, node.Label)
	}
}

func TestParseRelationship(t *testing.T) {
	q, err := Parse(`MATCH (c:Class)-[:HAS_METHOD]->(m:Method) RETURN c.name, m.name`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Match.Pattern.Elements) != 3 {
		t.Fatalf("expected 3 pattern elements, got %d", len(q.Match.Pattern.Elements))
	}
	rel, ok := q.Match.Pattern.Elements[1].(*RelPattern)
	if !ok {
		t.Fatalf("expected RelPattern, got %T", q.Match.Pattern.Elements[1])
	}
	if len(rel.Types) != 1 || rel.Types[0] != "HAS_METHOD" {
		t.Errorf("rel types: got %v", rel.Types)
	}
	if rel.Direction != "outbound" {
		t.Errorf("direction: got %q, want outbound", rel.Direction)
	}
}

func TestParseVariableLength(t *testing.T) {
	q, err := Parse(`MATCH (c:Class)-[:INHERITS_FROM*1..4]->(a:Class) RETURN a.name`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rel := q.Match.Pattern.Elements[1].(*RelPattern)
	if rel.MinHops != 1 || rel.MaxHops != 4 {
		t.Errorf("hops: got %d..%d, want 1..4", rel.MinHops, rel.MaxHops)
	}
}

func TestParseWhereRegex(t *testing.T) {
	q, err := Parse(`MATCH (c:Class) WHERE c.name =~ ".*Base" RETURN c.name`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Where.Conditions) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(q.Where.Conditions))
	}
	if q.Where.Conditions[0].Operator != "=~" {
		t.Errorf("operator: got %q, want =~", q.Where.Conditions[0].Operator)
	}
}

func TestParseReturnWithCount(t *testing.T) {
	q, err := Parse(`MATCH (c:Class)-[:HAS_METHOD]->(m:Method) RETURN c.name, COUNT(m) AS methods`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Return.Items) != 2 {
		t.Fatalf("expected 2 return items, got %d", len(q.Return.Items))
	}
	count := q.Return.Items[1]
	if count.Func != "COUNT" || count.Alias != "methods" {
		t.Errorf("count item: func=%q alias=%q", count.Func, count.Alias)
	}
}

func TestParseInbound(t *testing.T) {
	q, err := Parse(`MATCH (a:Class)<-[:INHERITS_FROM]-(c:Class) RETURN c.name`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rel := q.Match.Pattern.Elements[1].(*RelPattern)
	if rel.Direction != "inbound" {
		t.Errorf("direction: got %q, want inbound", rel.Direction)
	}
}

func TestParseMultipleRelTypes(t *testing.T) {
	q, err := Parse(`MATCH (c)-[:HAS_METHOD|HAS_ATTRIBUTE]->(m) RETURN m.name`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rel := q.Match.Pattern.Elements[1].(*RelPattern)
	if len(rel.Types) != 2 {
		t.Fatalf("expected 2 rel types, got %v", rel.Types)
	}
}

func TestParseDistinct(t *testing.T) {
	q, err := Parse(`MATCH (c:Class) RETURN DISTINCT c.file_path`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !q.Return.Distinct {
		t.Error("expected DISTINCT to be set")
	}
}

// --- Executor tests ---

// setupTestStore seeds a small billing graph:
//
//	billing.models (Module)
//	  Base <- Invoice <- CreditNote   (INHERITS_FROM chain)
//	  Invoice HAS_METHOD save, HAS_ATTRIBUTE total
//	billing.models IMPORTS billing.util (symbol=round_cents)
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.UpsertRepository("billing", "/tmp/billing"); err != nil {
		t.Fatalf("upsert repository: %v", err)
	}

	ids := map[string]int64{}
	add := func(label, name, qn, file string, startLine int, props map[string]any) {
		id, err := s.UpsertNode(&store.Node{
			Repo: "billing", Label: label, Name: name, QualifiedName: qn,
			FilePath: file, StartLine: startLine, Properties: props,
		})
		if err != nil {
			t.Fatalf("upsert node %s: %v", qn, err)
		}
		ids[qn] = id
	}

	add(store.LabelModule, "models", "billing.models", "models.py", 1, nil)
	add(store.LabelModule, "util", "billing.util", "util.py", 1, nil)
	add(store.LabelClass, "Base", "billing.models.Base", "models.py", 3, nil)
	add(store.LabelClass, "Invoice", "billing.models.Invoice", "models.py", 10, nil)
	add(store.LabelClass, "CreditNote", "billing.models.CreditNote", "models.py", 40, nil)
	add(store.LabelMethod, "save", "billing.models.Invoice.save", "models.py", 12,
		map[string]any{"required_params": 0, "total_params": 1})
	add(store.LabelAttribute, "total", "billing.models.Invoice.total", "models.py", 11, nil)

	edge := func(srcQN, dstQN, typ string, props map[string]any) {
		if _, err := s.InsertEdge(&store.Edge{
			Repo: "billing", SourceID: ids[srcQN], TargetID: ids[dstQN], Type: typ, Properties: props,
		}); err != nil {
			t.Fatalf("insert edge %s-%s: %v", srcQN, dstQN, err)
		}
	}

	edge("billing.models", "billing.models.Base", store.EdgeDefines, nil)
	edge("billing.models", "billing.models.Invoice", store.EdgeDefines, nil)
	edge("billing.models", "billing.models.CreditNote", store.EdgeDefines, nil)
	edge("billing.models.Invoice", "billing.models.Base", store.EdgeInheritsFrom, nil)
	edge("billing.models.CreditNote", "billing.models.Invoice", store.EdgeInheritsFrom, nil)
	edge("billing.models.Invoice", "billing.models.Invoice.save", store.EdgeHasMethod, nil)
	edge("billing.models.Invoice", "billing.models.Invoice.total", store.EdgeHasAttribute, nil)
	edge("billing.models", "billing.util", store.EdgeImports,
		map[string]any{"path": "billing.util", "symbol": "round_cents"})

	return s
}

func TestExecuteSimpleMatch(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(`MATCH (c:Class) RETURN c.name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Errorf("expected 3 classes, got %d", len(result.Rows))
	}
}

func TestExecuteRelationshipQuery(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(`MATCH (c:Class)-[:HAS_METHOD]->(m:Method) RETURN c.name, m.name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	row := result.Rows[0]
	if row["c.name"] != "Invoice" || row["m.name"] != "save" {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestExecuteWhereFilter(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(`MATCH (c:Class) WHERE c.name = "Invoice" RETURN c.name, c.file_path`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if result.Rows[0]["c.file_path"] != "models.py" {
		t.Errorf("file_path: got %v", result.Rows[0]["c.file_path"])
	}
}

func TestExecuteWhereRegex(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(`MATCH (c:Class) WHERE c.name =~ ".*Note" RETURN c.name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["c.name"] != "CreditNote" {
		t.Errorf("regex match: got %v", result.Rows)
	}
}

func TestExecuteWhereStartsWith(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(`MATCH (c:Class) WHERE c.qualified_name STARTS WITH "billing.models" RETURN c.name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Errorf("expected 3 rows, got %d", len(result.Rows))
	}
}

func TestExecuteWhereNumeric(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(`MATCH (c:Class) WHERE c.start_line > 5 RETURN c.name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Errorf("expected 2 rows (Invoice, CreditNote), got %d", len(result.Rows))
	}
}

func TestExecuteVariableLengthInheritance(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(
		`MATCH (c:Class)-[:INHERITS_FROM*1..3]->(a:Class) WHERE c.name = "CreditNote" RETURN a.name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// CreditNote -> Invoice -> Base
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 ancestors, got %d: %v", len(result.Rows), result.Rows)
	}
}

func TestExecuteWithLimit(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(`MATCH (c:Class) RETURN c.name LIMIT 2`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Errorf("expected 2 rows with LIMIT 2, got %d", len(result.Rows))
	}
}

func TestExecuteWithOrderBy(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(`MATCH (c:Class) RETURN c.name ORDER BY c.name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := []string{"Base", "CreditNote", "Invoice"}
	for i, name := range want {
		if result.Rows[i]["c.name"] != name {
			t.Fatalf("order: row %d got %v, want %s", i, result.Rows[i]["c.name"], name)
		}
	}
}

func TestExecuteCountAggregation(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(
		`MATCH (m:Module)-[:DEFINES]->(c:Class) RETURN m.name, COUNT(c) AS classes`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 group, got %d", len(result.Rows))
	}
	if result.Rows[0]["classes"] != 3 {
		t.Errorf("count: got %v, want 3", result.Rows[0]["classes"])
	}
}

func TestExecuteInboundRelationship(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(
		`MATCH (a:Class)<-[:INHERITS_FROM]-(c:Class) WHERE a.name = "Base" RETURN c.name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["c.name"] != "Invoice" {
		t.Errorf("inbound: got %v", result.Rows)
	}
}

func TestExecuteInlinePropertyFilter(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(`MATCH (c:Class {name: "Base"}) RETURN c.qualified_name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["c.qualified_name"] != "billing.models.Base" {
		t.Errorf("inline filter: got %v", result.Rows)
	}
}

func TestExecuteEdgePropertyAccess(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(
		`MATCH (m:Module)-[i:IMPORTS]->(u:Module) RETURN m.name, u.name, i.symbol`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 import row, got %d", len(result.Rows))
	}
	if result.Rows[0]["i.symbol"] != "round_cents" {
		t.Errorf("edge property: got %v", result.Rows[0]["i.symbol"])
	}
}

func TestExecuteEdgePropertyInWhere(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(
		`MATCH (m:Module)-[i:IMPORTS]->(u:Module) WHERE i.symbol = "round_cents" RETURN u.name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["u.name"] != "util" {
		t.Errorf("edge filter: got %v", result.Rows)
	}
}

func TestExecuteNodePropertyFromJSON(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(
		`MATCH (m:Method) WHERE m.total_params >= 1 RETURN m.name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["m.name"] != "save" {
		t.Errorf("json property filter: got %v", result.Rows)
	}
}

func TestExecuteDistinct(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(`MATCH (c:Class) RETURN DISTINCT c.file_path`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Errorf("expected 1 distinct file, got %d", len(result.Rows))
	}
}

func TestExecuteNoResults(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	result, err := exec.Execute(`MATCH (c:Class) WHERE c.name = "Ghost" RETURN c.name`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(result.Rows))
	}
}

func TestParseError(t *testing.T) {
	exec := &Executor{Store: setupTestStore(t)}

	if _, err := exec.Execute(`MATCH RETURN`); err == nil {
		t.Fatal("expected parse error")
	}
}
