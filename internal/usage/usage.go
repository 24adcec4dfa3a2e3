// Package usage walks a candidate script's expression tree into flat symbol
// usage records: calls, attribute accesses, instantiations, and imports, each
// with its resolved import context and call-site argument shape. Records are
// ephemeral and request-scoped; the validator checks them against the graph.
package usage

import (
	"sort"
	"strings"
	"unicode"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/graphlint/graphlint/internal/analyze"
	"github.com/graphlint/graphlint/internal/lang"
	"github.com/graphlint/graphlint/internal/parser"
)

// Kind classifies a symbol usage.
type Kind string

const (
	KindCall          Kind = "call"
	KindAttribute     Kind = "attribute"
	KindInstantiation Kind = "instantiation"
	KindImport        Kind = "import"
)

// SymbolUse is one usage record extracted from a script.
type SymbolUse struct {
	Kind Kind

	// Name is the dotted name as written at the use site ("inv.save",
	// "Invoice", "np.array").
	Name string

	// Receiver is the local variable a method call or attribute access is
	// invoked on, "" for plain calls and imports.
	Receiver string

	// ReceiverClass is the best-effort class name for the receiver, tracked
	// from constructor-style assignments ("inv = Invoice()"). Only meaningful
	// when ReceiverKnown is true.
	ReceiverClass string

	// ReceiverKnown is false when the receiver could not be resolved; such
	// usages must never be judged VALID or INVALID.
	ReceiverKnown bool

	// ImportPath and ImportSymbol carry the originating import of the name's
	// head, as written in the script. Empty when the head was not imported.
	ImportPath   string
	ImportSymbol string

	// Argument shape at the call site; meaningful for call/instantiation.
	Positional int
	Keywords   []string

	Line int
}

// Module returns the repo-scoped module QN the usage's import context points
// at, or "" when the usage has no import context.
func (u *SymbolUse) Module(repo string) string {
	if u.ImportPath == "" && u.ImportSymbol == "" {
		return ""
	}
	imp := analyze.ImportDecl{Path: u.ImportPath}
	return analyze.ResolveModule(repo, "script", imp)
}

// extractor holds per-script state during the walk.
type extractor struct {
	source []byte
	spec   *lang.LanguageSpec

	imports map[string]analyze.ImportDecl // local name → originating import
	local   map[string]bool               // names declared by the script itself
	varCls  map[string]string             // local variable → constructor class name

	uses []SymbolUse
}

// Extract produces the ordered symbol usage list for a script.
// The script text is supplied directly; no file I/O happens here.
func Extract(source []byte, language lang.Language) ([]SymbolUse, error) {
	mod, err := analyze.File("script", language, source)
	if err != nil {
		return nil, err
	}

	ex := &extractor{
		source:  source,
		spec:    lang.ForLanguage(language),
		imports: make(map[string]analyze.ImportDecl, len(mod.Imports)),
		local:   make(map[string]bool),
		varCls:  make(map[string]string),
	}

	for _, imp := range mod.Imports {
		local := imp.LocalName()
		if local != "" && local != "*" {
			ex.imports[local] = imp
		}
		ex.uses = append(ex.uses, SymbolUse{
			Kind:         KindImport,
			Name:         local,
			ImportPath:   imp.Path,
			ImportSymbol: imp.Symbol,
			Line:         imp.Line,
		})
	}

	// Names the script defines itself are not validated against the graph.
	for _, c := range mod.Classes {
		ex.local[strings.Split(c.Name, ".")[0]] = true
	}
	for _, fn := range mod.Functions {
		ex.local[fn.Name] = true
	}

	tree, err := parser.Parse(language, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	ex.walk(tree.RootNode())

	sort.SliceStable(ex.uses, func(i, j int) bool { return ex.uses[i].Line < ex.uses[j].Line })
	return ex.uses, nil
}

func (ex *extractor) walk(root *tree_sitter.Node) {
	callTypes := toSet(ex.spec.CallNodeTypes)
	attrTypes := toSet(ex.spec.AttributeNodeTypes)
	assignTypes := toSet(ex.spec.AssignmentNodeTypes)

	parser.Walk(root, func(node *tree_sitter.Node) bool {
		kind := node.Kind()

		if assignTypes[kind] {
			ex.trackAssignment(node)
			return true
		}
		if callTypes[kind] {
			ex.recordCall(node)
			// Arguments may contain further calls; the callee itself is done.
			return true
		}
		if attrTypes[kind] {
			ex.recordAttribute(node)
			return false
		}
		return true
	})
}

// trackAssignment records constructor-style assignments for receiver
// resolution: `inv = Invoice(...)` binds inv to class Invoice.
func (ex *extractor) trackAssignment(node *tree_sitter.Node) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}
	// Go wraps both sides in expression lists; unwrap single-name ones.
	if left.Kind() == "expression_list" && left.NamedChildCount() == 1 {
		left = left.NamedChild(0)
	}
	if right.Kind() == "expression_list" && right.NamedChildCount() == 1 {
		right = right.NamedChild(0)
	}
	if left == nil || right == nil || left.Kind() != "identifier" {
		return
	}
	if !isCallNode(right, ex.spec) {
		return
	}
	callee := calleeNode(right)
	if callee == nil {
		return
	}
	name := parser.NodeText(callee, ex.source)
	if !looksLikeConstructor(name) {
		return
	}
	ex.varCls[parser.NodeText(left, ex.source)] = name
}

// recordCall classifies one call site: instantiation, module-function call,
// or method call on a resolved receiver.
func (ex *extractor) recordCall(node *tree_sitter.Node) {
	callee := calleeNode(node)
	if callee == nil {
		return
	}
	line := lineOf(node)
	positional, keywords := ex.argShape(node)

	obj, member := ex.splitMember(callee)
	if obj == nil {
		// Plain call: Foo() or helper()
		name := parser.NodeText(callee, ex.source)
		if name == "" || ex.local[name] {
			return
		}
		use := SymbolUse{
			Kind:       KindCall,
			Name:       name,
			Positional: positional,
			Keywords:   keywords,
			Line:       line,
		}
		if looksLikeConstructor(name) {
			use.Kind = KindInstantiation
		}
		if imp, ok := ex.imports[name]; ok {
			use.ImportPath = imp.Path
			use.ImportSymbol = imp.Symbol
			use.ReceiverKnown = true
			use.ReceiverClass = name
		}
		ex.uses = append(ex.uses, use)
		return
	}

	// Member call: receiver.method() or alias.func()
	use := SymbolUse{
		Kind:       KindCall,
		Name:       parser.NodeText(callee, ex.source),
		Positional: positional,
		Keywords:   keywords,
		Line:       line,
	}
	recv := parser.NodeText(obj, ex.source)
	use.Receiver = recv
	if ex.local[recv] || recv == "self" || recv == "this" || recv == "cls" {
		return
	}

	switch {
	case ex.varCls[recv] != "":
		// Tracked local: inv = Invoice(); inv.save()
		ex.resolveClassMember(&use, ex.varCls[recv], member)
	case isCallNode(obj, ex.spec):
		// Chained constructor: Foo().bar()
		if ctor := calleeNode(obj); ctor != nil {
			cls := parser.NodeText(ctor, ex.source)
			if looksLikeConstructor(cls) && !ex.local[cls] {
				ex.resolveClassMember(&use, cls, member)
				break
			}
		}
		use.ReceiverKnown = false
	case obj.Kind() == "identifier" && hasImport(ex.imports, recv):
		// Module alias or imported class used directly: np.array(), Invoice.create()
		imp := ex.imports[recv]
		use.ImportPath = imp.Path
		use.ImportSymbol = imp.Symbol
		use.ReceiverClass = recv
		use.ReceiverKnown = true
	default:
		// Function returns, deep chains, unannotated parameters.
		use.ReceiverKnown = false
	}
	ex.uses = append(ex.uses, use)
}

// resolveClassMember fills the receiver fields of a usage whose receiver
// class name is known, rewriting Name to the class-scoped form.
func (ex *extractor) resolveClassMember(use *SymbolUse, cls, member string) {
	use.ReceiverClass = cls
	use.ReceiverKnown = true
	use.Name = cls + "." + member
	if imp, ok := ex.imports[strings.Split(cls, ".")[0]]; ok {
		use.ImportPath = imp.Path
		use.ImportSymbol = imp.Symbol
	}
}

// splitMember decomposes a member-access callee into its object node and
// member name. Returns a nil object for plain identifiers.
func (ex *extractor) splitMember(callee *tree_sitter.Node) (*tree_sitter.Node, string) {
	var objField, memberField string
	switch callee.Kind() {
	case "attribute":
		objField, memberField = "object", "attribute"
	case "member_expression":
		objField, memberField = "object", "property"
	case "selector_expression":
		objField, memberField = "operand", "field"
	default:
		return nil, ""
	}
	obj := callee.ChildByFieldName(objField)
	member := callee.ChildByFieldName(memberField)
	if obj == nil || member == nil {
		return nil, ""
	}
	return obj, parser.NodeText(member, ex.source)
}

// recordAttribute captures bare attribute accesses (not call targets, which
// recordCall already covers).
func (ex *extractor) recordAttribute(node *tree_sitter.Node) {
	if p := node.Parent(); p != nil && isCallNode(p, ex.spec) {
		if fn := calleeNode(p); fn != nil && fn.Id() == node.Id() {
			return
		}
	}

	name := parser.NodeText(node, ex.source)
	if name == "" || strings.ContainsAny(name, "()[]\n") {
		return
	}
	head := strings.Split(name, ".")[0]
	if ex.local[head] || head == "self" || head == "this" || head == "cls" {
		return
	}

	use := SymbolUse{
		Kind:     KindAttribute,
		Name:     name,
		Receiver: head,
		Line:     lineOf(node),
	}
	switch {
	case strings.Count(name, ".") > 1:
		// Multi-hop chain: the outer member's receiver is itself an
		// attribute access, not the tracked variable. Its class cannot be
		// resolved, so the usage stays unjudgeable.
		use.ReceiverKnown = false
	case ex.varCls[head] != "":
		use.ReceiverClass = ex.varCls[head]
		use.ReceiverKnown = true
		use.Name = use.ReceiverClass + name[strings.Index(name, "."):]
		if imp, ok := ex.imports[strings.Split(use.ReceiverClass, ".")[0]]; ok {
			use.ImportPath = imp.Path
			use.ImportSymbol = imp.Symbol
		}
	case hasImport(ex.imports, head):
		imp := ex.imports[head]
		use.ImportPath = imp.Path
		use.ImportSymbol = imp.Symbol
		use.ReceiverClass = head
		use.ReceiverKnown = true
	default:
		use.ReceiverKnown = false
	}
	ex.uses = append(ex.uses, use)
}

// argShape counts positional arguments and collects keyword names.
func (ex *extractor) argShape(call *tree_sitter.Node) (int, []string) {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return 0, nil
	}
	positional := 0
	var keywords []string
	for i := uint(0); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		if arg == nil {
			continue
		}
		switch arg.Kind() {
		case "keyword_argument":
			if nn := arg.ChildByFieldName("name"); nn != nil {
				keywords = append(keywords, parser.NodeText(nn, ex.source))
			}
		case "comment":
		default:
			positional++
		}
	}
	return positional, keywords
}

// calleeNode returns the function expression of a call node.
func calleeNode(call *tree_sitter.Node) *tree_sitter.Node {
	for _, field := range []string{"function", "constructor"} {
		if fn := call.ChildByFieldName(field); fn != nil {
			return fn
		}
	}
	return nil
}

func isCallNode(node *tree_sitter.Node, spec *lang.LanguageSpec) bool {
	for _, k := range spec.CallNodeTypes {
		if node.Kind() == k {
			return true
		}
	}
	return false
}

// looksLikeConstructor reports whether a dotted name's last segment is
// class-cased ("Invoice", "models.Invoice").
func looksLikeConstructor(name string) bool {
	last := name[strings.LastIndex(name, ".")+1:]
	if last == "" {
		return false
	}
	return unicode.IsUpper(rune(last[0]))
}

func hasImport(imports map[string]analyze.ImportDecl, name string) bool {
	_, ok := imports[name]
	return ok
}

func lineOf(node *tree_sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, item := range items {
		m[item] = true
	}
	return m
}
