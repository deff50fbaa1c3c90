// Package metatype implements the Metatype component (spec §4.F
// "Metatype"): XML-described attribute schemas (ObjectClassDefinition /
// AttributeDefinition) that describe what a PID's configuration looks
// like, used by tooling to render a form for a plugin's configuration
// and to validate a value before it reaches configadmin.
//
// Grounded on ctkAttributeDefinitionImpl.cpp, ctkObjectClassDefinitionImpl.cpp,
// and ctkMTDataParser.cpp (original_source): attribute types, cardinality
// and range validation, and the backslash-escaped comma tokenization of a
// multi-valued attribute's default/option values all follow those
// sources; only the XML vocabulary's binding to Go types (parse.go) is
// new.
package metatype

import (
	"fmt"
	"strconv"
	"strings"
)

// AttributeType enumerates the value types an AttributeDefinition can
// describe, matching ctkAttributeDefinition's TYPE constants.
type AttributeType int

const (
	TypeString AttributeType = iota
	TypeLong
	TypeInteger
	TypeChar
	TypeBoolean
	TypeDouble
	TypePassword
)

func (t AttributeType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeLong:
		return "Long"
	case TypeInteger:
		return "Integer"
	case TypeChar:
		return "Char"
	case TypeBoolean:
		return "Boolean"
	case TypeDouble:
		return "Double"
	case TypePassword:
		return "Password"
	default:
		return "Unknown"
	}
}

func parseAttributeType(s string) (AttributeType, error) {
	switch strings.ToUpper(s) {
	case "STRING":
		return TypeString, nil
	case "LONG":
		return TypeLong, nil
	case "INTEGER":
		return TypeInteger, nil
	case "CHAR":
		return TypeChar, nil
	case "BOOLEAN":
		return TypeBoolean, nil
	case "DOUBLE":
		return TypeDouble, nil
	case "PASSWORD":
		return TypePassword, nil
	default:
		return TypeString, fmt.Errorf("metatype: unknown attribute type %q", s)
	}
}

// Option is a single labeled choice an AttributeDefinition may restrict
// its value to, grounded on ctkAttributeDefinitionImpl::setOption.
type Option struct {
	Label string
	Value string
}

// AttributeDefinition describes one configuration attribute: its type,
// cardinality, optional value range, and optional fixed option set.
// Grounded on ctkAttributeDefinitionImpl.
type AttributeDefinition struct {
	ID          string
	Name        string
	Description string
	Type        AttributeType

	// Cardinality is 0 for a single value, positive N for "at most N
	// values", negative N for "at least 1, at most |N| values" — the
	// same signed-magnitude convention ctkAttributeDefinitionImpl uses.
	Cardinality int

	Min, Max string // optional range bounds, compared per Type
	Required bool

	DefaultValue []string
	Options      []Option
}

const (
	tokenSeparator = ','
	tokenEscape    = '\\'
)

// tokenizeValues splits a comma-separated, backslash-escaped string into
// its component values, matching ctkAttributeDefinitionImpl::
// tokenizeValues.
func tokenizeValues(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	var buf strings.Builder
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case tokenEscape:
			if i+1 < len(runes) {
				i++
				buf.WriteRune(runes[i])
			}
		case tokenSeparator:
			out = append(out, strings.TrimSpace(buf.String()))
			buf.Reset()
		default:
			buf.WriteRune(runes[i])
		}
	}
	out = append(out, strings.TrimSpace(buf.String()))
	return out
}

// escapeToken backslash-escapes any separator or escape rune in s so it
// survives a tokenizeValues round trip as a single token, letting
// already-split values (e.g. one per <Option> element) be rejoined into a
// single comma-delimited string for SetOptions.
func escapeToken(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == tokenSeparator || r == tokenEscape {
			b.WriteRune(tokenEscape)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SetDefaultValue parses raw as a tokenized default value list.
func (ad *AttributeDefinition) SetDefaultValue(raw string) {
	ad.DefaultValue = tokenizeValues(raw)
}

// SetOptions parses parallel labels/values strings into ad.Options,
// dropping a label whose value fails Validate when validate is true
// (ctkAttributeDefinitionImpl::setOption). Mismatched label/value counts
// leave Options untouched.
func (ad *AttributeDefinition) SetOptions(labelsRaw, valuesRaw string, validate bool) error {
	labels := tokenizeValues(labelsRaw)
	values := tokenizeValues(valuesRaw)
	if len(labels) != len(values) {
		return fmt.Errorf("metatype: option labels (%d) and values (%d) count mismatch for attribute %s", len(labels), len(values), ad.ID)
	}
	opts := make([]Option, 0, len(values))
	for i, v := range values {
		if validate {
			if err := ad.validateRange(v); err != nil {
				continue
			}
		}
		opts = append(opts, Option{Label: labels[i], Value: v})
	}
	ad.Options = opts
	return nil
}

// Validate reports whether value is an acceptable assignment for ad,
// following ctkAttributeDefinitionImpl::validate: an option-restricted
// String/Password must be one of the configured option values; any other
// type with neither Min nor Max set accepts value unchecked; otherwise
// a cardinality != 0 attribute tokenizes value and range-checks each
// token (and the token count against |Cardinality|), while a cardinality
// == 0 attribute range-checks the single value.
func (ad *AttributeDefinition) Validate(value string) error {
	if len(ad.Options) > 0 && (ad.Type == TypeString || ad.Type == TypePassword) {
		for _, opt := range ad.Options {
			if opt.Value == value {
				return nil
			}
		}
		return fmt.Errorf("metatype: value %q is not one of the declared options for attribute %s", value, ad.ID)
	}

	if ad.Min == "" && ad.Max == "" && ad.Type != TypeString && ad.Type != TypePassword {
		return nil
	}

	if ad.Cardinality != 0 {
		tokens := tokenizeValues(value)
		limit := ad.Cardinality
		if limit < 0 {
			limit = -limit
		}
		if len(tokens) > limit {
			return fmt.Errorf("metatype: attribute %s accepts at most %d values, got %d", ad.ID, limit, len(tokens))
		}
		for _, tok := range tokens {
			if err := ad.validateRange(tok); err != nil {
				return err
			}
		}
		return nil
	}

	return ad.validateRange(value)
}

// validateRange checks value against ad.Min/Max according to ad.Type,
// matching ctkAttributeDefinitionImpl::validateRange. Boolean has no
// range and is always valid.
func (ad *AttributeDefinition) validateRange(value string) error {
	switch ad.Type {
	case TypeString, TypePassword:
		if ad.Min != "" {
			min, err := strconv.Atoi(ad.Min)
			if err == nil && len(value) < min {
				return fmt.Errorf("metatype: attribute %s value too short (min %d)", ad.ID, min)
			}
		}
		if ad.Max != "" {
			max, err := strconv.Atoi(ad.Max)
			if err == nil && len(value) > max {
				return fmt.Errorf("metatype: attribute %s value too long (max %d)", ad.ID, max)
			}
		}
		return nil
	case TypeLong, TypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("metatype: attribute %s value %q is not an integer: %w", ad.ID, value, err)
		}
		return ad.checkNumericRange(float64(n))
	case TypeDouble:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("metatype: attribute %s value %q is not a number: %w", ad.ID, value, err)
		}
		return ad.checkNumericRange(f)
	case TypeChar:
		if len([]rune(value)) != 1 {
			return fmt.Errorf("metatype: attribute %s expects a single character", ad.ID)
		}
		return ad.checkNumericRange(float64([]rune(value)[0]))
	case TypeBoolean:
		return nil
	default:
		return fmt.Errorf("metatype: attribute %s has unknown type", ad.ID)
	}
}

func (ad *AttributeDefinition) checkNumericRange(v float64) error {
	if ad.Min != "" {
		min, err := strconv.ParseFloat(ad.Min, 64)
		if err == nil && v < min {
			return fmt.Errorf("metatype: attribute %s value %v below minimum %v", ad.ID, v, min)
		}
	}
	if ad.Max != "" {
		max, err := strconv.ParseFloat(ad.Max, 64)
		if err == nil && v > max {
			return fmt.Errorf("metatype: attribute %s value %v above maximum %v", ad.ID, v, max)
		}
	}
	return nil
}

// AttributeFilter selects which attributes ObjectClassDefinition.
// Attributes returns.
type AttributeFilter int

const (
	FilterAll AttributeFilter = iota
	FilterRequired
	FilterOptional
)

// ObjectClassDefinition describes a PID's full configuration schema: its
// required and optional attributes, grounded on
// ctkObjectClassDefinitionImpl.
type ObjectClassDefinition struct {
	ID          string
	Name        string
	Description string

	required []*AttributeDefinition
	optional []*AttributeDefinition
}

// AddAttributeDefinition appends ad to the required or optional list.
func (ocd *ObjectClassDefinition) AddAttributeDefinition(ad *AttributeDefinition, required bool) {
	if required {
		ocd.required = append(ocd.required, ad)
	} else {
		ocd.optional = append(ocd.optional, ad)
	}
}

// Attributes returns the attribute definitions matching filter.
func (ocd *ObjectClassDefinition) Attributes(filter AttributeFilter) []*AttributeDefinition {
	switch filter {
	case FilterRequired:
		out := make([]*AttributeDefinition, len(ocd.required))
		copy(out, ocd.required)
		return out
	case FilterOptional:
		out := make([]*AttributeDefinition, len(ocd.optional))
		copy(out, ocd.optional)
		return out
	default:
		out := make([]*AttributeDefinition, 0, len(ocd.required)+len(ocd.optional))
		out = append(out, ocd.required...)
		out = append(out, ocd.optional...)
		return out
	}
}
