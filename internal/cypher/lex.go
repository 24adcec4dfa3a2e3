// Package cypher is the read-only query surface over the knowledge graph.
// It implements a small Cypher dialect sized to the repo/node/edge schema:
// node and relationship patterns, variable-length inheritance walks, WHERE
// comparisons, and tabular RETURN projections with COUNT, DISTINCT,
// ORDER BY, and LIMIT.
package cypher

import (
	"fmt"
	"strings"
)

// TokenType identifies a lexical token.
type TokenType int

const (
	TokEOF TokenType = iota
	TokIdent
	TokString
	TokNumber

	// Keywords, matched case-insensitively.
	TokMatch
	TokWhere
	TokReturn
	TokDistinct
	TokCount
	TokAs
	TokAnd
	TokOrder
	TokBy
	TokLimit
	TokAsc
	TokDesc
	TokContains
	TokStarts
	TokEnds
	TokWith

	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	TokColon
	TokComma
	TokDot
	TokDotDot
	TokPipe
	TokStar
	TokDash
	TokArrow     // ->
	TokBackArrow // <-

	TokEQ
	TokNEQ
	TokLT
	TokGT
	TokLE
	TokGE
	TokRegex // =~
)

// Token is one lexical unit of a query.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

var keywords = map[string]TokenType{
	"MATCH":    TokMatch,
	"WHERE":    TokWhere,
	"RETURN":   TokReturn,
	"DISTINCT": TokDistinct,
	"COUNT":    TokCount,
	"AS":       TokAs,
	"AND":      TokAnd,
	"ORDER":    TokOrder,
	"BY":       TokBy,
	"LIMIT":    TokLimit,
	"ASC":      TokAsc,
	"DESC":     TokDesc,
	"CONTAINS": TokContains,
	"STARTS":   TokStarts,
	"ENDS":     TokEnds,
	"WITH":     TokWith,
}

// Lex splits a query string into tokens, ending with TokEOF.
func Lex(input string) ([]Token, error) {
	var toks []Token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks, i = emit(toks, TokLParen, "(", i)
		case c == ')':
			toks, i = emit(toks, TokRParen, ")", i)
		case c == '[':
			toks, i = emit(toks, TokLBracket, "[", i)
		case c == ']':
			toks, i = emit(toks, TokRBracket, "]", i)
		case c == '{':
			toks, i = emit(toks, TokLBrace, "{", i)
		case c == '}':
			toks, i = emit(toks, TokRBrace, "}", i)
		case c == ':':
			toks, i = emit(toks, TokColon, ":", i)
		case c == ',':
			toks, i = emit(toks, TokComma, ",", i)
		case c == '|':
			toks, i = emit(toks, TokPipe, "|", i)
		case c == '*':
			toks, i = emit(toks, TokStar, "*", i)
		case c == '.':
			if peek(input, i+1) == '.' {
				toks = append(toks, Token{TokDotDot, "..", i})
				i += 2
			} else {
				toks, i = emit(toks, TokDot, ".", i)
			}
		case c == '-':
			if peek(input, i+1) == '>' {
				toks = append(toks, Token{TokArrow, "->", i})
				i += 2
			} else {
				toks, i = emit(toks, TokDash, "-", i)
			}
		case c == '<':
			switch peek(input, i+1) {
			case '-':
				toks = append(toks, Token{TokBackArrow, "<-", i})
				i += 2
			case '=':
				toks = append(toks, Token{TokLE, "<=", i})
				i += 2
			case '>':
				toks = append(toks, Token{TokNEQ, "<>", i})
				i += 2
			default:
				toks, i = emit(toks, TokLT, "<", i)
			}
		case c == '>':
			if peek(input, i+1) == '=' {
				toks = append(toks, Token{TokGE, ">=", i})
				i += 2
			} else {
				toks, i = emit(toks, TokGT, ">", i)
			}
		case c == '=':
			if peek(input, i+1) == '~' {
				toks = append(toks, Token{TokRegex, "=~", i})
				i += 2
			} else {
				toks, i = emit(toks, TokEQ, "=", i)
			}
		case c == '!':
			if peek(input, i+1) != '=' {
				return nil, fmt.Errorf("cypher: unexpected %q at offset %d", c, i)
			}
			toks = append(toks, Token{TokNEQ, "<>", i})
			i += 2
		case c == '"' || c == '\'':
			val, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, Token{TokString, val, i})
			i = next
		case c >= '0' && c <= '9':
			start := i
			for i < len(input) && input[i] >= '0' && input[i] <= '9' {
				i++
			}
			toks = append(toks, Token{TokNumber, input[start:i], start})
		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			word := input[start:i]
			if kw, ok := keywords[strings.ToUpper(word)]; ok {
				toks = append(toks, Token{kw, word, start})
			} else {
				toks = append(toks, Token{TokIdent, word, start})
			}
		default:
			return nil, fmt.Errorf("cypher: unexpected %q at offset %d", c, i)
		}
	}
	toks = append(toks, Token{TokEOF, "", len(input)})
	return toks, nil
}

func emit(toks []Token, t TokenType, v string, pos int) ([]Token, int) {
	return append(toks, Token{t, v, pos}), pos + 1
}

func peek(input string, i int) byte {
	if i >= len(input) {
		return 0
	}
	return input[i]
}

func lexString(input string, start int) (string, int, error) {
	quote := input[start]
	var sb strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		if c == '\\' && i+1 < len(input) {
			sb.WriteByte(input[i+1])
			i += 2
			continue
		}
		if c == quote {
			return sb.String(), i + 1, nil
		}
		sb.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("cypher: unterminated string at offset %d", start)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
