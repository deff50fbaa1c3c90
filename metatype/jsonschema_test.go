package metatype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectClassDefinitionJSONSchema(t *testing.T) {
	ocd := &ObjectClassDefinition{ID: "com.example.thing"}
	ocd.AddAttributeDefinition(&AttributeDefinition{ID: "timeout", Type: TypeInteger}, true)
	ocd.AddAttributeDefinition(&AttributeDefinition{ID: "tags", Type: TypeString, Cardinality: 3}, false)

	js := ocd.JSONSchema()
	assert.Equal(t, "object", js.Type)
	assert.Contains(t, js.Required, "timeout")
	assert.Equal(t, "integer", js.Properties["timeout"].Type)
	assert.Equal(t, "array", js.Properties["tags"].Type)
}
