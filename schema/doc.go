// Package schema provides a small JSON Schema (Draft 7 subset) representation
// and validator, used by the metatype package to render an
// ObjectClassDefinition's attribute definitions as a schema tooling can
// consume. FromType can also generate one by reflection over a managed
// service's configuration struct; nothing in this module calls it.
//
// # Basic Usage
//
// Creating simple schemas:
//
//	stringSchema := schema.String()
//	intSchema := schema.Int()
//	boolSchema := schema.Bool()
//
// # Complex Schemas
//
// Creating object schemas with properties and required fields:
//
//	cfgSchema := schema.Object(map[string]schema.JSON{
//		"host": schema.StringWithDesc("listener hostname"),
//		"port": schema.Int(),
//	}, "host", "port")
//
// # Validation
//
// Validating values against schemas:
//
//	err := stringSchema.Validate("hello") // nil (valid)
//	err = stringSchema.Validate(123)      // error: expected string, got int
//
// # Generating from Go types
//
// FromType derives a schema from a Go struct by reflection, for configadmin
// callers that describe a managed service's configuration with a plain Go
// struct instead of a metatype XML OCD:
//
//	type Config struct {
//		Host string `json:"host"`
//		Port int    `json:"port"`
//	}
//	cfgSchema := schema.FromType(Config{})
package schema
