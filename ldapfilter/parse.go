package ldapfilter

import (
	"fmt"
	"strings"

	"github.com/corectk/pluginfw/fwerr"
)

// Diagnostic message prefixes required by spec §4.B, matching
// ctkLDAPExpr's NULLQ/GARBAGE/EOS/MALFORMED/OPERATOR constants.
const (
	diagNullQuery  = "Null query"
	diagGarbage    = "Trailing garbage"
	diagEOS        = "Unexpected end of query"
	diagMalformed  = "Malformed query"
	diagOperator   = "Undefined operator"
)

// Parse parses a filter string into an Expr tree.
func Parse(filter string) (Expr, error) {
	ps, err := newParseState(filter)
	if err != nil {
		return nil, err
	}

	expr, err := parseExpr(ps)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(ps.rest()) != "" {
		return nil, ps.errorf("%s '%s'", diagGarbage, ps.rest())
	}
	return expr, nil
}

type parseState struct {
	runes []rune
	pos   int
}

func newParseState(s string) (*parseState, error) {
	if s == "" {
		return nil, fwerr.InvalidArgumentf("ldapfilter", "Parse", "%s", diagNullQuery)
	}
	return &parseState{runes: []rune(s)}, nil
}

func (ps *parseState) prefix(pre string) bool {
	p := []rune(pre)
	if ps.pos+len(p) > len(ps.runes) {
		return false
	}
	for i, r := range p {
		if ps.runes[ps.pos+i] != r {
			return false
		}
	}
	ps.pos += len(p)
	return true
}

func (ps *parseState) peek() (rune, error) {
	if ps.pos >= len(ps.runes) {
		return 0, ps.errorf("%s", diagEOS)
	}
	return ps.runes[ps.pos], nil
}

func (ps *parseState) skip(n int) { ps.pos += n }

func (ps *parseState) rest() string { return string(ps.runes[ps.pos:]) }

func (ps *parseState) skipWhite() error {
	for {
		c, err := ps.peek()
		if err != nil {
			return err
		}
		if !isSpace(c) {
			return nil
		}
		ps.pos++
	}
}

// getAttributeName consumes a run of characters excluding the grammar's
// reserved set and trailing whitespace, matching
// ctkLDAPExpr::ParseState::getAttributeName.
func (ps *parseState) getAttributeName() (string, error) {
	start := ps.pos
	lastNonSpace := -1
	for {
		c, err := ps.peek()
		if err != nil {
			return "", err
		}
		if c == '(' || c == ')' || c == '<' || c == '>' || c == '=' || c == '~' {
			break
		}
		if !isSpace(c) {
			lastNonSpace = ps.pos - start + 1
		}
		ps.pos++
	}
	if lastNonSpace == -1 {
		return "", ps.errorf("%s", diagMalformed)
	}
	return string(ps.runes[start : start+lastNonSpace]), nil
}

// getAttributeValue consumes a filter value, substituting the wildcard
// sentinel for each unescaped '*' and honoring '\' escapes, matching
// ctkLDAPExpr::ParseState::getAttributeValue.
func (ps *parseState) getAttributeValue() (string, error) {
	var sb strings.Builder
	for {
		c, err := ps.peek()
		if err != nil {
			return "", err
		}
		switch c {
		case '(', ')':
			return sb.String(), nil
		case '*':
			sb.WriteRune(wildcard)
		case '\\':
			ps.pos++
			escaped, err := ps.peek()
			if err != nil {
				return "", err
			}
			sb.WriteRune(escaped)
		default:
			sb.WriteRune(c)
		}
		ps.pos++
	}
}

func (ps *parseState) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	rest := ""
	if ps.pos <= len(ps.runes) {
		rest = string(ps.runes[ps.pos:])
	}
	return fwerr.InvalidArgumentf("ldapfilter", "Parse", "%s: %s", msg, rest)
}

func parseExpr(ps *parseState) (Expr, error) {
	if err := ps.skipWhite(); err != nil {
		return nil, err
	}
	if !ps.prefix("(") {
		return nil, ps.errorf("%s", diagMalformed)
	}

	if err := ps.skipWhite(); err != nil {
		return nil, err
	}
	c, err := ps.peek()
	if err != nil {
		return nil, err
	}

	switch c {
	case '&', '|', '!':
		ps.skip(1)
		var children []Expr
		for {
			child, err := parseExpr(ps)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
			if err := ps.skipWhite(); err != nil {
				return nil, err
			}
			next, err := ps.peek()
			if err != nil {
				return nil, err
			}
			if next != '(' {
				break
			}
		}
		if !ps.prefix(")") || len(children) == 0 || (c == '!' && len(children) > 1) {
			return nil, ps.errorf("%s", diagMalformed)
		}
		switch c {
		case '&':
			return And{Children: children}, nil
		case '|':
			return Or{Children: children}, nil
		default:
			return Not{Child: children[0]}, nil
		}
	default:
		return parseSimple(ps)
	}
}

func parseSimple(ps *parseState) (Expr, error) {
	attr, err := ps.getAttributeName()
	if err != nil {
		return nil, err
	}

	var op SimpleOp
	switch {
	case ps.prefix("<="):
		op = OpLessOrEqual
	case ps.prefix(">="):
		op = OpGreaterOrEqual
	case ps.prefix("~="):
		op = OpApprox
	case ps.prefix("="):
		op = OpEqual
	default:
		return nil, ps.errorf("%s", diagOperator)
	}

	value, err := ps.getAttributeValue()
	if err != nil {
		return nil, err
	}
	if !ps.prefix(")") {
		return nil, ps.errorf("%s", diagMalformed)
	}
	return Simple{Attr: attr, Op: op, Value: value}, nil
}
