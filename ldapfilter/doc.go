// Package ldapfilter is documented in expr.go and parse.go; see Parse for
// the entry point and Expr for the parsed-node sum type.
//
// Grammar (spec §4.B):
//
//	filter   := '(' ( '&' filter+ | '|' filter+ | '!' filter | simple ) ')'
//	simple   := attr op value
//	op       := '=' | '<=' | '>=' | '~='
//	value    := <chars with '*' as wildcard, '\' as escape>
//	attr     := <non-empty run of chars excluding '()<>=~' and whitespace>
package ldapfilter
