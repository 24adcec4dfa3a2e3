package cypher

import (
	"fmt"
	"strconv"
)

// Query is a parsed MATCH ... WHERE ... RETURN statement.
type Query struct {
	Match  *MatchClause
	Where  *WhereClause
	Return *ReturnClause
}

type MatchClause struct {
	Pattern Pattern
}

// Pattern is an alternating node/relationship chain, starting and ending on
// a node.
type Pattern struct {
	Elements []PatternElement
}

// PatternElement is either a *NodePattern or a *RelPattern.
type PatternElement interface {
	patternElement()
}

type NodePattern struct {
	Variable string
	Label    string
	Props    map[string]any
}

type RelPattern struct {
	Variable  string
	Types     []string
	Direction string // "outbound" or "inbound"
	MinHops   int
	MaxHops   int
	VarLength bool
}

func (*NodePattern) patternElement() {}
func (*RelPattern) patternElement()  {}

type WhereClause struct {
	Conditions []Condition
}

// Condition is one "var.prop OP literal" comparison; conditions are ANDed.
type Condition struct {
	Var      string
	Prop     string
	Operator string
	Value    any
}

type ReturnClause struct {
	Distinct bool
	Items    []ReturnItem
	OrderBy  string // projection column key, "" when absent
	Desc     bool
	Limit    int // 0 means no explicit limit
}

// ReturnItem projects one column: a property, a bare variable, or a COUNT.
type ReturnItem struct {
	Var   string
	Prop  string
	Func  string // "COUNT" or ""
	Alias string
}

// Key is the column name the item projects under when it has no alias.
func (it ReturnItem) Key() string {
	name := it.Var
	if it.Prop != "" {
		name += "." + it.Prop
	}
	if it.Func != "" {
		return it.Func + "(" + name + ")"
	}
	return name
}

// defaultVarHops caps unbounded variable-length patterns ([*]).
const defaultVarHops = 5

type queryParser struct {
	toks []Token
	pos  int
}

// Parse lexes and parses a query.
func Parse(query string) (*Query, error) {
	toks, err := Lex(query)
	if err != nil {
		return nil, err
	}
	p := &queryParser{toks: toks}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if p.cur().Type != TokEOF {
		return nil, p.errf("trailing input %q", p.cur().Value)
	}
	return q, nil
}

func (p *queryParser) cur() Token { return p.toks[p.pos] }

func (p *queryParser) advance() Token {
	t := p.toks[p.pos]
	if t.Type != TokEOF {
		p.pos++
	}
	return t
}

func (p *queryParser) accept(t TokenType) bool {
	if p.cur().Type == t {
		p.advance()
		return true
	}
	return false
}

func (p *queryParser) expect(t TokenType, what string) (Token, error) {
	if p.cur().Type != t {
		return Token{}, p.errf("expected %s, found %q", what, p.cur().Value)
	}
	return p.advance(), nil
}

func (p *queryParser) errf(format string, args ...any) error {
	return fmt.Errorf("cypher: offset %d: %s", p.cur().Pos, fmt.Sprintf(format, args...))
}

func (p *queryParser) parseQuery() (*Query, error) {
	if _, err := p.expect(TokMatch, "MATCH"); err != nil {
		return nil, err
	}
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	q := &Query{Match: &MatchClause{Pattern: pattern}}

	if p.accept(TokWhere) {
		where, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		q.Where = where
	}

	if _, err := p.expect(TokReturn, "RETURN"); err != nil {
		return nil, err
	}
	ret, err := p.parseReturn()
	if err != nil {
		return nil, err
	}
	q.Return = ret
	return q, nil
}

func (p *queryParser) parsePattern() (Pattern, error) {
	var pattern Pattern
	node, err := p.parseNode()
	if err != nil {
		return pattern, err
	}
	pattern.Elements = append(pattern.Elements, node)

	for p.cur().Type == TokDash || p.cur().Type == TokBackArrow {
		rel, err := p.parseRel()
		if err != nil {
			return pattern, err
		}
		next, err := p.parseNode()
		if err != nil {
			return pattern, err
		}
		pattern.Elements = append(pattern.Elements, rel, next)
	}
	return pattern, nil
}

func (p *queryParser) parseNode() (*NodePattern, error) {
	if _, err := p.expect(TokLParen, "node pattern"); err != nil {
		return nil, err
	}
	node := &NodePattern{}
	if p.cur().Type == TokIdent {
		node.Variable = p.advance().Value
	}
	if p.accept(TokColon) {
		label, err := p.expect(TokIdent, "node label")
		if err != nil {
			return nil, err
		}
		node.Label = label.Value
	}
	if p.cur().Type == TokLBrace {
		props, err := p.parseProps()
		if err != nil {
			return nil, err
		}
		node.Props = props
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *queryParser) parseProps() (map[string]any, error) {
	p.advance() // {
	props := make(map[string]any)
	for {
		key, err := p.expect(TokIdent, "property name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokColon, ":"); err != nil {
			return nil, err
		}
		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		props[key.Value] = val
		if !p.accept(TokComma) {
			break
		}
	}
	if _, err := p.expect(TokRBrace, "}"); err != nil {
		return nil, err
	}
	return props, nil
}

func (p *queryParser) parseRel() (*RelPattern, error) {
	rel := &RelPattern{MinHops: 1, MaxHops: 1}

	inbound := p.cur().Type == TokBackArrow
	p.advance() // - or <-
	if _, err := p.expect(TokLBracket, "["); err != nil {
		return nil, err
	}

	if p.cur().Type == TokIdent {
		rel.Variable = p.advance().Value
	}
	if p.accept(TokColon) {
		for {
			typ, err := p.expect(TokIdent, "relationship type")
			if err != nil {
				return nil, err
			}
			rel.Types = append(rel.Types, typ.Value)
			if !p.accept(TokPipe) {
				break
			}
		}
	}
	if p.accept(TokStar) {
		rel.VarLength = true
		rel.MinHops, rel.MaxHops = 1, defaultVarHops
		if p.cur().Type == TokNumber {
			min, _ := strconv.Atoi(p.advance().Value)
			rel.MinHops, rel.MaxHops = min, min
			if p.accept(TokDotDot) {
				max, err := p.expect(TokNumber, "hop bound")
				if err != nil {
					return nil, err
				}
				rel.MaxHops, _ = strconv.Atoi(max.Value)
			}
		}
	}
	if _, err := p.expect(TokRBracket, "]"); err != nil {
		return nil, err
	}

	if inbound {
		rel.Direction = "inbound"
		if _, err := p.expect(TokDash, "-"); err != nil {
			return nil, err
		}
	} else {
		rel.Direction = "outbound"
		if _, err := p.expect(TokArrow, "->"); err != nil {
			return nil, err
		}
	}
	return rel, nil
}

func (p *queryParser) parseWhere() (*WhereClause, error) {
	where := &WhereClause{}
	for {
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		where.Conditions = append(where.Conditions, cond)
		if !p.accept(TokAnd) {
			break
		}
	}
	return where, nil
}

func (p *queryParser) parseCondition() (Condition, error) {
	var cond Condition
	v, err := p.expect(TokIdent, "variable")
	if err != nil {
		return cond, err
	}
	cond.Var = v.Value
	if _, err := p.expect(TokDot, "."); err != nil {
		return cond, err
	}
	prop, err := p.expect(TokIdent, "property")
	if err != nil {
		return cond, err
	}
	cond.Prop = prop.Value

	switch p.cur().Type {
	case TokEQ:
		cond.Operator = "="
	case TokNEQ:
		cond.Operator = "<>"
	case TokRegex:
		cond.Operator = "=~"
	case TokLT:
		cond.Operator = "<"
	case TokGT:
		cond.Operator = ">"
	case TokLE:
		cond.Operator = "<="
	case TokGE:
		cond.Operator = ">="
	case TokContains:
		cond.Operator = "CONTAINS"
	case TokStarts:
		p.advance()
		if _, err := p.expect(TokWith, "WITH"); err != nil {
			return cond, err
		}
		cond.Operator = "STARTS WITH"
	case TokEnds:
		p.advance()
		if _, err := p.expect(TokWith, "WITH"); err != nil {
			return cond, err
		}
		cond.Operator = "ENDS WITH"
	default:
		return cond, p.errf("expected comparison operator, found %q", p.cur().Value)
	}
	if cond.Operator != "STARTS WITH" && cond.Operator != "ENDS WITH" {
		p.advance()
	}

	val, err := p.parseLiteral()
	if err != nil {
		return cond, err
	}
	cond.Value = val
	return cond, nil
}

func (p *queryParser) parseLiteral() (any, error) {
	switch p.cur().Type {
	case TokString:
		return p.advance().Value, nil
	case TokNumber:
		n, err := strconv.Atoi(p.advance().Value)
		return n, err
	case TokIdent:
		switch p.cur().Value {
		case "true":
			p.advance()
			return true, nil
		case "false":
			p.advance()
			return false, nil
		}
	}
	return nil, p.errf("expected literal, found %q", p.cur().Value)
}

func (p *queryParser) parseReturn() (*ReturnClause, error) {
	ret := &ReturnClause{}
	ret.Distinct = p.accept(TokDistinct)

	for {
		item, err := p.parseReturnItem()
		if err != nil {
			return nil, err
		}
		ret.Items = append(ret.Items, item)
		if !p.accept(TokComma) {
			break
		}
	}

	if p.accept(TokOrder) {
		if _, err := p.expect(TokBy, "BY"); err != nil {
			return nil, err
		}
		v, err := p.expect(TokIdent, "variable")
		if err != nil {
			return nil, err
		}
		key := v.Value
		if p.accept(TokDot) {
			prop, err := p.expect(TokIdent, "property")
			if err != nil {
				return nil, err
			}
			key += "." + prop.Value
		}
		ret.OrderBy = key
		if p.accept(TokDesc) {
			ret.Desc = true
		} else {
			p.accept(TokAsc)
		}
	}

	if p.accept(TokLimit) {
		n, err := p.expect(TokNumber, "limit")
		if err != nil {
			return nil, err
		}
		ret.Limit, _ = strconv.Atoi(n.Value)
	}
	return ret, nil
}

func (p *queryParser) parseReturnItem() (ReturnItem, error) {
	var item ReturnItem
	if p.accept(TokCount) {
		item.Func = "COUNT"
		if _, err := p.expect(TokLParen, "("); err != nil {
			return item, err
		}
	}
	v, err := p.expect(TokIdent, "variable")
	if err != nil {
		return item, err
	}
	item.Var = v.Value
	if p.accept(TokDot) {
		prop, err := p.expect(TokIdent, "property")
		if err != nil {
			return item, err
		}
		item.Prop = prop.Value
	}
	if item.Func != "" {
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return item, err
		}
	}
	if p.accept(TokAs) {
		alias, err := p.expect(TokIdent, "alias")
		if err != nil {
			return item, err
		}
		item.Alias = alias.Value
	}
	return item, nil
}
