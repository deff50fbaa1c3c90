package props

import "fmt"

// Kind identifies which concrete value a Value holds. This is the
// framework's tagged union standing in for the source framework's dynamic
// variant property type (spec §9: "replace dynamic typed properties with a
// tagged union").
type Kind int

const (
	// KindString holds a string.
	KindString Kind = iota
	// KindInt holds a 32-bit signed integer.
	KindInt
	// KindLong holds a 64-bit signed integer.
	KindLong
	// KindDouble holds a float64.
	KindDouble
	// KindBool holds a bool.
	KindBool
	// KindChar holds a single rune.
	KindChar
	// KindStringList holds an ordered []string.
	KindStringList
)

// Value is an immutable, closed-kind property value.
type Value struct {
	kind       Kind
	str        string
	intVal     int32
	longVal    int64
	doubleVal  float64
	boolVal    bool
	charVal    rune
	stringList []string
}

// String constructs a Value of KindString.
func String(v string) Value { return Value{kind: KindString, str: v} }

// Int constructs a Value of KindInt.
func Int(v int32) Value { return Value{kind: KindInt, intVal: v} }

// Long constructs a Value of KindLong.
func Long(v int64) Value { return Value{kind: KindLong, longVal: v} }

// Double constructs a Value of KindDouble.
func Double(v float64) Value { return Value{kind: KindDouble, doubleVal: v} }

// Bool constructs a Value of KindBool.
func Bool(v bool) Value { return Value{kind: KindBool, boolVal: v} }

// Char constructs a Value of KindChar.
func Char(v rune) Value { return Value{kind: KindChar, charVal: v} }

// StringList constructs a Value of KindStringList. The slice is copied.
func StringList(v []string) Value {
	cp := make([]string, len(v))
	copy(cp, v)
	return Value{kind: KindStringList, stringList: cp}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the value's string form, converting non-string kinds
// the way the LDAP filter engine needs to (ldapfilter relies on this for
// matching against a filter's string assertion value).
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return fmt.Sprintf("%d", v.intVal)
	case KindLong:
		return fmt.Sprintf("%d", v.longVal)
	case KindDouble:
		return fmt.Sprintf("%v", v.doubleVal)
	case KindBool:
		return fmt.Sprintf("%v", v.boolVal)
	case KindChar:
		return string(v.charVal)
	case KindStringList:
		return fmt.Sprintf("%v", v.stringList)
	default:
		return ""
	}
}

// StringListValue returns the underlying slice for a KindStringList value,
// or nil for any other kind.
func (v Value) StringListValue() []string {
	if v.kind != KindStringList {
		return nil
	}
	return v.stringList
}

// BoolValue returns the underlying bool for a KindBool value, and false
// for any other kind.
func (v Value) BoolValue() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.boolVal, true
}

// NumericValue returns the value as a float64 for any numeric kind
// (int, long, double), and ok=false otherwise.
func (v Value) NumericValue() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.intVal), true
	case KindLong:
		return float64(v.longVal), true
	case KindDouble:
		return v.doubleVal, true
	default:
		return 0, false
	}
}
