package cypher

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/graphlint/graphlint/internal/store"
)

// maxResultRows caps a single query's output.
const maxResultRows = 200

// Executor runs parsed queries against the graph store.
type Executor struct {
	Store *store.Store
}

// Result holds the tabular output of a query.
type Result struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// match is one candidate assignment of pattern variables. anchor is the
// node the next relationship hop expands from.
type match struct {
	nodes  map[string]*store.Node
	edges  map[string]*store.Edge
	anchor *store.Node
}

func (m match) clone() match {
	c := match{
		nodes:  make(map[string]*store.Node, len(m.nodes)+1),
		edges:  make(map[string]*store.Edge, len(m.edges)+1),
		anchor: m.anchor,
	}
	for k, v := range m.nodes {
		c.nodes[k] = v
	}
	for k, v := range m.edges {
		c.edges[k] = v
	}
	return c
}

// neighbor pairs an expansion target with the edge that reached it. The edge
// is nil for variable-length hops, which traverse whole paths.
type neighbor struct {
	node *store.Node
	edge *store.Edge
}

// Execute runs one query across all indexed repositories.
func (e *Executor) Execute(query string) (*Result, error) {
	q, err := Parse(query)
	if err != nil {
		return nil, err
	}
	if err := checkVariables(q); err != nil {
		return nil, err
	}

	repos, err := e.Store.ListRepositories()
	if err != nil {
		return nil, err
	}

	var matches []match
	for _, repo := range repos {
		found, err := e.matchRepo(repo.Name, q.Match.Pattern)
		if err != nil {
			return nil, fmt.Errorf("repository %s: %w", repo.Name, err)
		}
		matches = append(matches, found...)
	}

	if q.Where != nil {
		filtered := matches[:0]
		for _, m := range matches {
			ok, err := evalConditions(m, q.Where.Conditions)
			if err != nil {
				return nil, err
			}
			if ok {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}

	return project(matches, q.Return)
}

// checkVariables rejects WHERE and RETURN references to variables the
// pattern never binds.
func checkVariables(q *Query) error {
	bound := make(map[string]bool)
	for _, el := range q.Match.Pattern.Elements {
		switch p := el.(type) {
		case *NodePattern:
			if p.Variable != "" {
				bound[p.Variable] = true
			}
		case *RelPattern:
			if p.Variable != "" {
				bound[p.Variable] = true
			}
		}
	}
	if q.Where != nil {
		for _, c := range q.Where.Conditions {
			if !bound[c.Var] {
				return fmt.Errorf("cypher: unbound variable %q in WHERE", c.Var)
			}
		}
	}
	for _, it := range q.Return.Items {
		if !bound[it.Var] {
			return fmt.Errorf("cypher: unbound variable %q in RETURN", it.Var)
		}
	}
	return nil
}

// matchRepo evaluates the pattern within one repository's subgraph.
func (e *Executor) matchRepo(repo string, pattern Pattern) ([]match, error) {
	first := pattern.Elements[0].(*NodePattern)
	seeds, err := e.seedNodes(repo, first)
	if err != nil {
		return nil, err
	}

	current := make([]match, 0, len(seeds))
	for _, n := range seeds {
		m := match{
			nodes:  make(map[string]*store.Node, 1),
			edges:  make(map[string]*store.Edge),
			anchor: n,
		}
		if first.Variable != "" {
			m.nodes[first.Variable] = n
		}
		current = append(current, m)
	}

	for i := 1; i+1 < len(pattern.Elements); i += 2 {
		rel := pattern.Elements[i].(*RelPattern)
		next := pattern.Elements[i+1].(*NodePattern)

		var expanded []match
		for _, m := range current {
			neighbors, err := e.expand(m.anchor, rel)
			if err != nil {
				return nil, err
			}
			for _, nb := range neighbors {
				if !nodeMatches(nb.node, next) {
					continue
				}
				if next.Variable != "" {
					if prev, ok := m.nodes[next.Variable]; ok && prev.ID != nb.node.ID {
						continue
					}
				}
				nm := m.clone()
				nm.anchor = nb.node
				if next.Variable != "" {
					nm.nodes[next.Variable] = nb.node
				}
				if rel.Variable != "" && nb.edge != nil {
					nm.edges[rel.Variable] = nb.edge
				}
				expanded = append(expanded, nm)
			}
		}
		current = expanded
	}
	return current, nil
}

func (e *Executor) seedNodes(repo string, np *NodePattern) ([]*store.Node, error) {
	var nodes []*store.Node
	var err error
	if np.Label != "" {
		nodes, err = e.Store.FindNodesByLabel(repo, np.Label)
	} else {
		nodes, err = e.Store.AllNodes(repo)
	}
	if err != nil {
		return nil, err
	}
	if len(np.Props) == 0 {
		return nodes, nil
	}
	kept := nodes[:0]
	for _, n := range nodes {
		if nodeMatches(n, np) {
			kept = append(kept, n)
		}
	}
	return kept, nil
}

func nodeMatches(n *store.Node, np *NodePattern) bool {
	if np.Label != "" && n.Label != np.Label {
		return false
	}
	for key, want := range np.Props {
		got, ok := nodeProp(n, key)
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// expand returns the neighbors one relationship pattern reaches from a node.
func (e *Executor) expand(from *store.Node, rel *RelPattern) ([]neighbor, error) {
	if rel.VarLength {
		return e.expandVarLength(from, rel)
	}

	var edges []*store.Edge
	var err error
	switch {
	case len(rel.Types) == 0 && rel.Direction == "outbound":
		edges, err = e.Store.FindEdgesBySource(from.ID)
	case len(rel.Types) == 0:
		edges, err = e.Store.FindEdgesByTarget(from.ID)
	default:
		for _, typ := range rel.Types {
			var found []*store.Edge
			if rel.Direction == "outbound" {
				found, err = e.Store.FindEdgesBySourceAndType(from.ID, typ)
			} else {
				found, err = e.Store.FindEdgesByTargetAndType(from.ID, typ)
			}
			if err != nil {
				break
			}
			edges = append(edges, found...)
		}
	}
	if err != nil {
		return nil, err
	}

	var out []neighbor
	for _, edge := range edges {
		otherID := edge.TargetID
		if rel.Direction == "inbound" {
			otherID = edge.SourceID
		}
		n, err := e.Store.FindNodeByID(otherID)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, neighbor{node: n, edge: edge})
		}
	}
	return out, nil
}

func (e *Executor) expandVarLength(from *store.Node, rel *RelPattern) ([]neighbor, error) {
	types := rel.Types
	if len(types) == 0 {
		// The graph's one transitive relation.
		types = []string{store.EdgeInheritsFrom}
	}
	res, err := e.Store.BFS(from.ID, rel.Direction, types, rel.MaxHops, maxResultRows)
	if err != nil {
		return nil, err
	}
	var out []neighbor
	for _, hop := range res.Visited {
		if hop.Hop >= rel.MinHops {
			out = append(out, neighbor{node: hop.Node})
		}
	}
	return out, nil
}

func evalConditions(m match, conds []Condition) (bool, error) {
	for _, c := range conds {
		ok, err := evalCondition(m, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func evalCondition(m match, c Condition) (bool, error) {
	val, ok := entityProp(m, c.Var, c.Prop)
	if !ok || val == nil {
		return false, nil
	}
	switch c.Operator {
	case "=":
		return valuesEqual(val, c.Value), nil
	case "<>":
		return !valuesEqual(val, c.Value), nil
	case "=~":
		re, err := regexp.Compile("^(?:" + asString(c.Value) + ")$")
		if err != nil {
			return false, fmt.Errorf("cypher: bad regex: %w", err)
		}
		return re.MatchString(asString(val)), nil
	case "CONTAINS":
		return strings.Contains(asString(val), asString(c.Value)), nil
	case "STARTS WITH":
		return strings.HasPrefix(asString(val), asString(c.Value)), nil
	case "ENDS WITH":
		return strings.HasSuffix(asString(val), asString(c.Value)), nil
	case "<", ">", "<=", ">=":
		a, aok := asFloat(val)
		b, bok := asFloat(c.Value)
		if !aok || !bok {
			return false, nil
		}
		switch c.Operator {
		case "<":
			return a < b, nil
		case ">":
			return a > b, nil
		case "<=":
			return a <= b, nil
		default:
			return a >= b, nil
		}
	}
	return false, fmt.Errorf("cypher: unsupported operator %q", c.Operator)
}

// entityProp resolves var.prop against the match's node or edge bindings.
func entityProp(m match, variable, prop string) (any, bool) {
	if n, ok := m.nodes[variable]; ok {
		return nodeProp(n, prop)
	}
	if edge, ok := m.edges[variable]; ok {
		if prop == "type" {
			return edge.Type, true
		}
		v, ok := edge.Properties[prop]
		return v, ok
	}
	return nil, false
}

func nodeProp(n *store.Node, prop string) (any, bool) {
	switch prop {
	case "name":
		return n.Name, true
	case "qualified_name":
		return n.QualifiedName, true
	case "label":
		return n.Label, true
	case "repo":
		return n.Repo, true
	case "file_path":
		return n.FilePath, true
	case "start_line":
		return n.StartLine, true
	case "end_line":
		return n.EndLine, true
	}
	v, ok := n.Properties[prop]
	return v, ok
}

// project shapes filtered matches into the result table: COUNT grouping,
// DISTINCT, ORDER BY, LIMIT, and the global row cap.
func project(matches []match, ret *ReturnClause) (*Result, error) {
	cols := make([]string, len(ret.Items))
	for i, it := range ret.Items {
		if it.Alias != "" {
			cols[i] = it.Alias
		} else {
			cols[i] = it.Key()
		}
	}

	hasCount := false
	for _, it := range ret.Items {
		if it.Func == "COUNT" {
			hasCount = true
		}
	}

	var rows []map[string]any
	if hasCount {
		rows = aggregateRows(matches, ret.Items, cols)
	} else {
		for _, m := range matches {
			row := make(map[string]any, len(ret.Items))
			for i, it := range ret.Items {
				row[cols[i]] = itemValue(m, it)
			}
			rows = append(rows, row)
		}
	}

	if ret.Distinct {
		rows = distinctRows(rows, cols)
	}
	if ret.OrderBy != "" {
		key := ret.OrderBy
		sort.SliceStable(rows, func(i, j int) bool {
			less := compareValues(rows[i][key], rows[j][key])
			if ret.Desc {
				return !less
			}
			return less
		})
	}
	limit := maxResultRows
	if ret.Limit > 0 && ret.Limit < limit {
		limit = ret.Limit
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return &Result{Columns: cols, Rows: rows}, nil
}

// aggregateRows groups matches by the non-COUNT items and counts group sizes.
func aggregateRows(matches []match, items []ReturnItem, cols []string) []map[string]any {
	type group struct {
		row   map[string]any
		count int
	}
	groups := make(map[string]*group)
	var order []string

	for _, m := range matches {
		var keyParts []string
		row := make(map[string]any, len(items))
		for i, it := range items {
			if it.Func == "COUNT" {
				continue
			}
			v := itemValue(m, it)
			row[cols[i]] = v
			keyParts = append(keyParts, fmt.Sprintf("%v", v))
		}
		key := strings.Join(keyParts, "\x1f")
		g, ok := groups[key]
		if !ok {
			g = &group{row: row}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
	}

	rows := make([]map[string]any, 0, len(order))
	for _, key := range order {
		g := groups[key]
		for i, it := range items {
			if it.Func == "COUNT" {
				g.row[cols[i]] = g.count
			}
		}
		rows = append(rows, g.row)
	}
	return rows
}

func itemValue(m match, it ReturnItem) any {
	if it.Prop != "" {
		v, _ := entityProp(m, it.Var, it.Prop)
		return v
	}
	if n, ok := m.nodes[it.Var]; ok {
		return n.QualifiedName
	}
	if edge, ok := m.edges[it.Var]; ok {
		return edge.Type
	}
	return nil
}

func distinctRows(rows []map[string]any, cols []string) []map[string]any {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, row := range rows {
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = fmt.Sprintf("%v", row[c])
		}
		key := strings.Join(parts, "\x1f")
		if !seen[key] {
			seen[key] = true
			out = append(out, row)
		}
	}
	return out
}

func valuesEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
	}
	return a == b
}

func compareValues(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af < bf
		}
	}
	return asString(a) < asString(b)
}

// asFloat normalizes the numeric types seen in node fields and JSON
// properties (ints from struct fields, float64 from decoded JSON).
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
