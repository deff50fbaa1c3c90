package ldapfilter

import (
	"strconv"
	"strings"

	"github.com/corectk/pluginfw/props"
)

// compareValue implements the matching predicate for a single simple
// node's attribute value against the filter's textual assertion value s
// (which may contain the wildcard sentinel rune for EQ).
//
// Grounded on ctkLDAPExpr::compare/compareString: a bare "*" assertion for
// EQ always matches a present value; strings and chars use wildcard
// pattern matching for EQ and fold-case/strip-space equality for APPROX;
// numeric kinds compare in their natural type with LE/GE/EQ/APPROX all
// meaning numeric equality except the relational two; booleans have no
// ordering (LE/GE/APPROX all false) and EQ compares against the literal
// "true"/"false" text; list-valued properties match if any element
// matches.
func compareValue(v props.Value, op SimpleOp, s string) bool {
	if op == OpEqual && s == string(wildcard) {
		return true
	}

	switch v.Kind() {
	case props.KindString, props.KindChar:
		return compareString(v.AsString(), op, s)
	case props.KindBool:
		b, _ := v.BoolValue()
		switch op {
		case OpLessOrEqual, OpGreaterOrEqual, OpApprox:
			return false
		default: // OpEqual
			want := "false"
			if b {
				want = "true"
			}
			return strings.EqualFold(stripWildcard(s), want)
		}
	case props.KindInt, props.KindLong, props.KindDouble:
		n, _ := v.NumericValue()
		parsed, err := strconv.ParseFloat(stripWildcard(s), 64)
		if err != nil {
			return false
		}
		switch op {
		case OpLessOrEqual:
			return n <= parsed
		case OpGreaterOrEqual:
			return n >= parsed
		default: // EQ, APPROX
			return n == parsed
		}
	case props.KindStringList:
		for _, elem := range v.StringListValue() {
			if compareString(elem, op, s) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func compareString(s1 string, op SimpleOp, s2 string) bool {
	switch op {
	case OpLessOrEqual:
		return s1 <= s2
	case OpGreaterOrEqual:
		return s1 >= s2
	case OpEqual:
		return patSubstr(s1, s2)
	case OpApprox:
		return fixup(s2) == fixup(s1)
	default:
		return false
	}
}

// fixup strips whitespace and lower-cases, for APPROX comparisons.
func fixup(s string) string {
	var sb strings.Builder
	for _, c := range s {
		if !isSpace(c) {
			sb.WriteRune(toLower(c))
		}
	}
	return sb.String()
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func toLower(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// patSubstr matches s against pat, where pat may contain the wildcard
// sentinel rune standing for "any run of characters" (possibly empty).
func patSubstr(s, pat string) bool {
	return patSubstrAt([]rune(s), 0, []rune(pat), 0)
}

func patSubstrAt(s []rune, si int, pat []rune, pi int) bool {
	if len(pat)-pi == 0 {
		return len(s)-si == 0
	}
	if pat[pi] == wildcard {
		pi++
		for {
			if patSubstrAt(s, si, pat, pi) {
				return true
			}
			if len(s)-si == 0 {
				return false
			}
			si++
		}
	}
	if len(s)-si == 0 {
		return false
	}
	if s[si] != pat[pi] {
		return false
	}
	return patSubstrAt(s, si+1, pat, pi+1)
}

func stripWildcard(s string) string {
	return strings.ReplaceAll(s, string(wildcard), "*")
}
