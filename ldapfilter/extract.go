package ldapfilter

import "strings"

// CacheableMatch is one (key, value) pair extracted from a simple-cacheable
// filter by Cacheable.
type CacheableMatch struct {
	Key   string
	Value string
}

// Cacheable classifies a filter as simple-cacheable against the given set
// of hashed keys (conventionally "objectclass", "service.id",
// "service.pid") and, if cacheable, returns the extracted (key, value)
// pairs. ok is false for any filter outside the two cacheable shapes
// described in spec §4.B:
//
//  1. (key = literal) with key in keys and a wildcard-free literal.
//  2. (| s+) where every child is independently cacheable.
func Cacheable(e Expr, keys []string) (matches []CacheableMatch, ok bool) {
	switch n := e.(type) {
	case Simple:
		if n.Op != OpEqual || strings.ContainsRune(n.Value, wildcard) {
			return nil, false
		}
		if !containsFold(keys, n.Attr) {
			return nil, false
		}
		return []CacheableMatch{{Key: n.Attr, Value: n.Value}}, true
	case Or:
		var all []CacheableMatch
		for _, c := range n.Children {
			m, ok := Cacheable(c, keys)
			if !ok {
				return nil, false
			}
			all = append(all, m...)
		}
		return all, true
	default:
		return nil, false
	}
}

func containsFold(keys []string, key string) bool {
	for _, k := range keys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// objectClassKey is the reserved property key carrying a service's
// published interface/class names.
const objectClassKey = "objectclass"

// MatchedObjectClasses reports whether e can be reduced to a finite set of
// values required for the "objectclass" key, per spec §4.B's object-class
// match extraction: a bare equality yields a singleton set, AND yields the
// intersection of its children's sets, and OR yields the union provided
// every child yields a set.
func MatchedObjectClasses(e Expr) (classes map[string]struct{}, ok bool) {
	switch n := e.(type) {
	case Simple:
		if !strings.EqualFold(n.Attr, objectClassKey) || strings.ContainsRune(n.Value, wildcard) || n.Op != OpEqual {
			return nil, false
		}
		return map[string]struct{}{n.Value: {}}, true
	case And:
		result := map[string]struct{}{}
		found := false
		for _, c := range n.Children {
			r, ok := MatchedObjectClasses(c)
			if !ok {
				continue
			}
			if !found {
				found = true
				result = r
				continue
			}
			result = intersect(result, r)
		}
		return result, found
	case Or:
		result := map[string]struct{}{}
		for _, c := range n.Children {
			r, ok := MatchedObjectClasses(c)
			if !ok {
				return nil, false
			}
			for k := range r {
				result[k] = struct{}{}
			}
		}
		return result, true
	default:
		return nil, false
	}
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}
