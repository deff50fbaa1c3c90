package metatype

import (
	"github.com/corectk/pluginfw/schema"
)

// JSONSchema renders ocd as a schema.JSON object schema, for tooling that
// wants to validate or render a configuration form without depending on
// metatype's own AttributeDefinition.Validate.
func (ocd *ObjectClassDefinition) JSONSchema() schema.JSON {
	properties := make(map[string]schema.JSON, len(ocd.required)+len(ocd.optional))
	var required []string
	for _, ad := range ocd.required {
		properties[ad.ID] = ad.jsonSchema()
		required = append(required, ad.ID)
	}
	for _, ad := range ocd.optional {
		properties[ad.ID] = ad.jsonSchema()
	}
	return schema.Object(properties, required...)
}

// jsonSchema renders a single attribute as a schema.JSON primitive,
// carrying over its description and, for a cardinality != 0 attribute, an
// array wrapper.
func (ad *AttributeDefinition) jsonSchema() schema.JSON {
	var base schema.JSON
	switch ad.Type {
	case TypeInteger, TypeLong:
		base = schema.Int()
	case TypeDouble:
		base = schema.Number()
	case TypeBoolean:
		base = schema.Bool()
	default:
		base = schema.String()
	}
	base.Description = ad.Description

	if ad.Cardinality != 0 {
		return schema.Array(base)
	}
	return base
}
