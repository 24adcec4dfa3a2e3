// Package validate cross-checks extracted symbol usages against the knowledge
// graph, producing a verdict per usage. Absence of evidence is never treated
// as evidence of absence: anything the graph cannot positively confirm or
// refute stays UNCERTAIN.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/graphlint/graphlint/internal/analyze"
	"github.com/graphlint/graphlint/internal/config"
	"github.com/graphlint/graphlint/internal/store"
	"github.com/graphlint/graphlint/internal/usage"
)

// Status is the validator's judgment for one usage.
type Status string

const (
	StatusValid     Status = "VALID"
	StatusInvalid   Status = "INVALID"
	StatusUncertain Status = "UNCERTAIN"
)

// Verdict pairs a usage with its judgment and the graph evidence behind it.
type Verdict struct {
	Usage       usage.SymbolUse
	Status      Status
	MatchedQN   string
	MatchedID   int64
	Explanation string
}

// Validator answers usage checks against one shared store. It is read-only
// and safe for concurrent validation requests.
type Validator struct {
	store *store.Store
	cfg   *config.Config
}

func New(s *store.Store, cfg *config.Config) *Validator {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Validator{store: s, cfg: cfg}
}

// Validate judges every usage against the named repository's graph.
// A store failure is fatal for the whole call; a verdict list computed
// against a half-readable graph would be misleading.
func (v *Validator) Validate(ctx context.Context, repoName string, usages []usage.SymbolUse) ([]Verdict, error) {
	repo, err := v.store.GetRepository(repoName)
	if err != nil {
		return nil, fmt.Errorf("load repository %s: %w", repoName, err)
	}

	verdicts := make([]Verdict, 0, len(usages))
	for _, u := range usages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if repo == nil {
			verdicts = append(verdicts, Verdict{
				Usage:       u,
				Status:      StatusUncertain,
				Explanation: fmt.Sprintf("repository %s is not indexed", repoName),
			})
			continue
		}
		verdict, err := v.judge(repoName, u)
		if err != nil {
			return nil, err
		}
		verdicts = append(verdicts, verdict)
	}

	slog.Debug("validate.done", "repo", repoName, "usages", len(usages))
	return verdicts, nil
}

func (v *Validator) judge(repo string, u usage.SymbolUse) (Verdict, error) {
	switch u.Kind {
	case usage.KindImport:
		return v.judgeImport(repo, u)
	case usage.KindInstantiation:
		return v.judgeInstantiation(repo, u)
	case usage.KindCall, usage.KindAttribute:
		if u.Receiver != "" {
			return v.judgeMember(repo, u)
		}
		return v.judgeFunction(repo, u)
	default:
		return Verdict{
			Usage:       u,
			Status:      StatusUncertain,
			Explanation: fmt.Sprintf("unrecognized usage kind %q", u.Kind),
		}, nil
	}
}

// judgeImport checks the imported module, and symbol when present, against
// the graph. An unindexed module is UNCERTAIN since it may be an external
// dependency.
func (v *Validator) judgeImport(repo string, u usage.SymbolUse) (Verdict, error) {
	imp := analyze.ImportDecl{Path: u.ImportPath, Symbol: u.ImportSymbol}
	moduleQN := analyze.ResolveModule(repo, "script", imp)

	moduleNode, err := v.store.FindNodeByQN(repo, moduleQN)
	if err != nil {
		return Verdict{}, err
	}
	if moduleNode == nil {
		return Verdict{
			Usage:       u,
			Status:      StatusUncertain,
			Explanation: fmt.Sprintf("module %s is not in the graph (possibly external)", moduleQN),
		}, nil
	}
	if u.ImportSymbol == "" || u.ImportSymbol == "*" {
		return verdictValid(u, moduleNode, fmt.Sprintf("module %s exists", moduleQN)), nil
	}

	symbolNode, err := v.store.FindNodeByQN(repo, moduleQN+"."+u.ImportSymbol)
	if err != nil {
		return Verdict{}, err
	}
	if symbolNode == nil {
		return Verdict{
			Usage:       u,
			Status:      StatusInvalid,
			Explanation: fmt.Sprintf("module %s exists but does not define %s", moduleQN, u.ImportSymbol),
		}, nil
	}
	return verdictValid(u, symbolNode, fmt.Sprintf("%s exists in %s", u.ImportSymbol, moduleQN)), nil
}

// judgeInstantiation checks the class exists and the constructor arity fits.
func (v *Validator) judgeInstantiation(repo string, u usage.SymbolUse) (Verdict, error) {
	candidates, explain, err := v.resolveClasses(repo, u, u.Name)
	if err != nil {
		return Verdict{}, err
	}
	if len(candidates) == 0 {
		return Verdict{Usage: u, Status: StatusUncertain, Explanation: explain}, nil
	}

	var fallback *Verdict
	for _, cls := range candidates {
		init, err := v.lookupMember(repo, cls, "__init__", store.LabelMethod)
		if err != nil {
			return Verdict{}, err
		}
		var verdict Verdict
		if init == nil {
			// No recorded constructor; existence of the class is the best
			// evidence available.
			verdict = verdictValid(u, cls, fmt.Sprintf("class %s exists", cls.QualifiedName))
		} else {
			verdict = v.checkArity(u, init, fmt.Sprintf("constructor of %s", cls.QualifiedName))
		}
		if verdict.Status == StatusValid {
			return verdict, nil
		}
		if fallback == nil {
			fallback = &verdict
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return Verdict{Usage: u, Status: StatusUncertain, Explanation: explain}, nil
}

// judgeMember checks a method call or attribute access against the receiver's
// class and its ancestors.
func (v *Validator) judgeMember(repo string, u usage.SymbolUse) (Verdict, error) {
	if !u.ReceiverKnown {
		return Verdict{
			Usage:       u,
			Status:      StatusUncertain,
			Explanation: fmt.Sprintf("receiver %q could not be resolved to a class", u.Receiver),
		}, nil
	}

	member := u.Name[strings.LastIndex(u.Name, ".")+1:]
	candidates, explain, err := v.resolveClasses(repo, u, u.ReceiverClass)
	if err != nil {
		return Verdict{}, err
	}
	if len(candidates) == 0 {
		// Module alias rather than class: np.array() resolves through the
		// imported module, not a Class node.
		if u.ImportPath != "" && u.ImportSymbol == "" {
			return v.judgeModuleMember(repo, u, member)
		}
		return Verdict{Usage: u, Status: StatusUncertain, Explanation: explain}, nil
	}

	labels := []string{store.LabelMethod, store.LabelAttribute}
	if u.Kind == usage.KindCall {
		labels = []string{store.LabelMethod}
	}

	// Same-named classes: any candidate owning the member validates the use.
	var fallback *Verdict
	for _, cls := range candidates {
		for _, label := range labels {
			node, err := v.lookupMember(repo, cls, member, label)
			if err != nil {
				return Verdict{}, err
			}
			if node == nil {
				continue
			}
			var verdict Verdict
			if u.Kind == usage.KindCall {
				verdict = v.checkArity(u, node, node.QualifiedName)
			} else {
				verdict = verdictValid(u, node, fmt.Sprintf("%s defines %s", cls.QualifiedName, member))
			}
			if verdict.Status == StatusValid {
				return verdict, nil
			}
			if fallback == nil {
				fallback = &verdict
			}
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return Verdict{
		Usage:       u,
		Status:      StatusInvalid,
		Explanation: fmt.Sprintf("no member %s on %s or its ancestors", member, candidates[0].QualifiedName),
	}, nil
}

// judgeModuleMember handles alias.member() where the alias binds a whole
// module: the member must be a function or class defined in that module.
func (v *Validator) judgeModuleMember(repo string, u usage.SymbolUse, member string) (Verdict, error) {
	imp := analyze.ImportDecl{Path: u.ImportPath}
	moduleQN := analyze.ResolveModule(repo, "script", imp)

	moduleNode, err := v.store.FindNodeByQN(repo, moduleQN)
	if err != nil {
		return Verdict{}, err
	}
	if moduleNode == nil {
		return Verdict{
			Usage:       u,
			Status:      StatusUncertain,
			Explanation: fmt.Sprintf("module %s is not in the graph (possibly external)", moduleQN),
		}, nil
	}

	node, err := v.store.FindNodeByQN(repo, moduleQN+"."+member)
	if err != nil {
		return Verdict{}, err
	}
	if node == nil {
		return Verdict{
			Usage:       u,
			Status:      StatusInvalid,
			Explanation: fmt.Sprintf("module %s has no member %s", moduleQN, member),
		}, nil
	}
	if u.Kind == usage.KindCall && node.Label == store.LabelFunction {
		return v.checkArity(u, node, node.QualifiedName), nil
	}
	return verdictValid(u, node, fmt.Sprintf("%s exists in %s", member, moduleQN)), nil
}

// judgeFunction checks a plain call against functions and classes reachable
// through the script's imports.
func (v *Validator) judgeFunction(repo string, u usage.SymbolUse) (Verdict, error) {
	if u.ImportPath == "" {
		return Verdict{
			Usage:       u,
			Status:      StatusUncertain,
			Explanation: fmt.Sprintf("%s is not bound by any import", u.Name),
		}, nil
	}

	imp := analyze.ImportDecl{Path: u.ImportPath, Symbol: u.ImportSymbol}
	moduleQN := analyze.ResolveModule(repo, "script", imp)
	moduleNode, err := v.store.FindNodeByQN(repo, moduleQN)
	if err != nil {
		return Verdict{}, err
	}
	if moduleNode == nil {
		return Verdict{
			Usage:       u,
			Status:      StatusUncertain,
			Explanation: fmt.Sprintf("module %s is not in the graph (possibly external)", moduleQN),
		}, nil
	}

	name := u.ImportSymbol
	if name == "" {
		name = u.Name
	}
	node, err := v.store.FindNodeByQN(repo, moduleQN+"."+name)
	if err != nil {
		return Verdict{}, err
	}
	if node == nil {
		return Verdict{
			Usage:       u,
			Status:      StatusInvalid,
			Explanation: fmt.Sprintf("module %s has no member %s", moduleQN, name),
		}, nil
	}
	if node.Label == store.LabelFunction || node.Label == store.LabelMethod {
		return v.checkArity(u, node, node.QualifiedName), nil
	}
	return verdictValid(u, node, fmt.Sprintf("%s exists in %s", name, moduleQN)), nil
}

// resolveClasses finds the Class nodes a receiver class name may refer to,
// preferring an exact qualified-name match through the import context over a
// repo-wide name match.
func (v *Validator) resolveClasses(repo string, u usage.SymbolUse, className string) ([]*store.Node, string, error) {
	simple := className[strings.LastIndex(className, ".")+1:]

	if u.ImportPath != "" {
		imp := analyze.ImportDecl{Path: u.ImportPath, Symbol: u.ImportSymbol}
		target := imp.Target(repo, "script")
		node, err := v.store.FindNodeByQN(repo, target)
		if err != nil {
			return nil, "", err
		}
		if node != nil && node.Label == store.LabelClass {
			return []*store.Node{node}, "", nil
		}
	}

	nodes, err := v.store.FindNodesByNameAndLabel(repo, simple, store.LabelClass)
	if err != nil {
		return nil, "", err
	}
	if len(nodes) == 0 {
		return nil, fmt.Sprintf("class %s is not in the graph (possibly external)", simple), nil
	}
	return nodes, "", nil
}

// lookupMember finds a named member on a class or any of its ancestors,
// walking INHERITS_FROM breadth-first.
func (v *Validator) lookupMember(repo string, cls *store.Node, member, label string) (*store.Node, error) {
	ancestors, err := v.store.Ancestors(cls.ID, v.cfg.EffectiveMaxInheritanceDepth())
	if err != nil {
		return nil, err
	}
	for _, ancestor := range ancestors {
		node, err := v.store.FindNodeByQN(repo, ancestor.QualifiedName+"."+member)
		if err != nil {
			return nil, err
		}
		if node != nil && node.Label == label {
			return node, nil
		}
	}
	return nil, nil
}

// checkArity judges a call against a matched signature: the positional count
// must fall within [required, total]. Keyword names are not checked; a wrong
// keyword is indistinguishable from **kwargs absorption without deeper
// modeling. Variadic signatures accept anything, so they stay UNCERTAIN.
func (v *Validator) checkArity(u usage.SymbolUse, fn *store.Node, what string) Verdict {
	variadic, _ := fn.Properties["variadic"].(bool)
	if variadic {
		return Verdict{
			Usage:       u,
			Status:      StatusUncertain,
			MatchedQN:   fn.QualifiedName,
			MatchedID:   fn.ID,
			Explanation: fmt.Sprintf("%s is variadic; argument count cannot be checked", what),
		}
	}

	required, okReq := propInt(fn.Properties, "required_params")
	total, okTot := propInt(fn.Properties, "total_params")
	if !okReq || !okTot {
		return verdictValid(u, fn, fmt.Sprintf("%s exists (signature not recorded)", what))
	}

	supplied := u.Positional + len(u.Keywords)
	if u.Positional > total || supplied < required {
		return Verdict{
			Usage:       u,
			Status:      StatusInvalid,
			MatchedQN:   fn.QualifiedName,
			MatchedID:   fn.ID,
			Explanation: fmt.Sprintf("%s takes %d to %d arguments, got %d positional and %d keyword",
				what, required, total, u.Positional, len(u.Keywords)),
		}
	}
	return verdictValid(u, fn, fmt.Sprintf("%s matches with %d arguments", what, supplied))
}

func verdictValid(u usage.SymbolUse, node *store.Node, explanation string) Verdict {
	return Verdict{
		Usage:       u,
		Status:      StatusValid,
		MatchedQN:   node.QualifiedName,
		MatchedID:   node.ID,
		Explanation: explanation,
	}
}

// propInt reads a numeric property that round-tripped through JSON.
func propInt(props map[string]any, key string) (int, bool) {
	switch n := props[key].(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
