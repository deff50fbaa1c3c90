// Package ldapfilter implements the RFC 1960-flavoured filter grammar used
// throughout the framework for service and configuration queries
// (spec §4.B), grounded on the source framework's ctkLDAPExpr.
package ldapfilter

import (
	"strings"

	"github.com/corectk/pluginfw/props"
)

// SimpleOp is the relational operator of a simple (attr op value) node.
type SimpleOp int

const (
	// OpEqual is '='.
	OpEqual SimpleOp = iota
	// OpLessOrEqual is '<='.
	OpLessOrEqual
	// OpGreaterOrEqual is '>='.
	OpGreaterOrEqual
	// OpApprox is '~='.
	OpApprox
)

func (op SimpleOp) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpLessOrEqual:
		return "<="
	case OpGreaterOrEqual:
		return ">="
	case OpApprox:
		return "~="
	default:
		return "?"
	}
}

// wildcard is the internal sentinel substituted for an unescaped '*' in a
// filter value, following the source framework's choice of a private-use
// rune outside any valid input.
const wildcard = '￿'

// Expr is a parsed filter node. It is a closed sum type: the only
// implementations are And, Or, Not, and Simple (spec §9 — "replace
// inheritance with sum types... one enumeration for... filter-node").
type Expr interface {
	// Evaluate reports whether the node matches p. matchCase selects
	// whether attribute-name lookup falls back to a case-insensitive scan
	// when no case-sensitive match exists.
	Evaluate(p *props.Map, matchCase bool) bool
	// String renders the node back into filter syntax.
	String() string

	isExpr()
}

// And is the conjunction of its Children; it short-circuits on the first
// child that evaluates false.
type And struct{ Children []Expr }

// Or is the disjunction of its Children; it short-circuits on the first
// child that evaluates true.
type Or struct{ Children []Expr }

// Not negates its single Child.
type Not struct{ Child Expr }

// Simple is a leaf (attr op value) assertion.
type Simple struct {
	Attr  string
	Op    SimpleOp
	Value string // may contain the wildcard sentinel rune
}

func (And) isExpr()    {}
func (Or) isExpr()     {}
func (Not) isExpr()    {}
func (Simple) isExpr() {}

// Evaluate implements Expr.
func (n And) Evaluate(p *props.Map, matchCase bool) bool {
	for _, c := range n.Children {
		if !c.Evaluate(p, matchCase) {
			return false
		}
	}
	return true
}

// Evaluate implements Expr.
func (n Or) Evaluate(p *props.Map, matchCase bool) bool {
	for _, c := range n.Children {
		if c.Evaluate(p, matchCase) {
			return true
		}
	}
	return false
}

// Evaluate implements Expr.
func (n Not) Evaluate(p *props.Map, matchCase bool) bool {
	return !n.Child.Evaluate(p, matchCase)
}

// Evaluate implements Expr.
func (n Simple) Evaluate(p *props.Map, matchCase bool) bool {
	index := p.FindCaseSensitive(n.Attr)
	if index < 0 && !matchCase {
		index = p.Find(n.Attr)
	}
	if index < 0 {
		return false
	}
	entries := p.Entries()
	return compareValue(entries[index].Value, n.Op, n.Value)
}

// String implements Expr.
func (n And) String() string { return "(&" + joinChildren(n.Children) + ")" }

// String implements Expr.
func (n Or) String() string { return "(|" + joinChildren(n.Children) + ")" }

// String implements Expr.
func (n Not) String() string { return "(!" + n.Child.String() + ")" }

// String implements Expr.
func (n Simple) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(n.Attr)
	sb.WriteString(n.Op.String())
	for _, c := range n.Value {
		switch c {
		case '(', ')', '*', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(c)
		case wildcard:
			sb.WriteByte('*')
		default:
			sb.WriteRune(c)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

func joinChildren(children []Expr) string {
	var sb strings.Builder
	for _, c := range children {
		sb.WriteString(c.String())
	}
	return sb.String()
}
