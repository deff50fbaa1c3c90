package metatype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeValuesHandlesEscapes(t *testing.T) {
	assert.Equal(t, []string{"a", "b,c", "d"}, tokenizeValues(`a,b\,c,d`))
	assert.Nil(t, tokenizeValues(""))
}

func TestValidateRangeString(t *testing.T) {
	ad := &AttributeDefinition{ID: "name", Type: TypeString, Min: "2", Max: "4"}
	assert.NoError(t, ad.Validate("abc"))
	assert.Error(t, ad.Validate("a"))
	assert.Error(t, ad.Validate("abcdef"))
}

func TestValidateRangeInteger(t *testing.T) {
	ad := &AttributeDefinition{ID: "port", Type: TypeInteger, Min: "1", Max: "65535"}
	assert.NoError(t, ad.Validate("8080"))
	assert.Error(t, ad.Validate("0"))
	assert.Error(t, ad.Validate("not-a-number"))
}

func TestValidateCardinalityLimitsTokenCount(t *testing.T) {
	ad := &AttributeDefinition{ID: "tags", Type: TypeString, Cardinality: 2}
	assert.NoError(t, ad.Validate("a,b"))
	assert.Error(t, ad.Validate("a,b,c"))
}

func TestValidateBooleanHasNoRange(t *testing.T) {
	ad := &AttributeDefinition{ID: "enabled", Type: TypeBoolean}
	assert.NoError(t, ad.Validate("true"))
	assert.NoError(t, ad.Validate("anything"))
}

func TestValidateOptionRestrictedString(t *testing.T) {
	ad := &AttributeDefinition{ID: "mode", Type: TypeString, Options: []Option{{Label: "Fast", Value: "fast"}, {Label: "Slow", Value: "slow"}}}
	assert.NoError(t, ad.Validate("fast"))
	assert.Error(t, ad.Validate("medium"))
}

func TestSetOptionsDropsInvalidValuesWhenValidating(t *testing.T) {
	ad := &AttributeDefinition{ID: "port", Type: TypeInteger, Min: "1", Max: "100"}
	require.NoError(t, ad.SetOptions("Low,Too High", "10,500", true))
	require.Len(t, ad.Options, 1)
	assert.Equal(t, "10", ad.Options[0].Value)
}

func TestSetOptionsMismatchedCountsErrors(t *testing.T) {
	ad := &AttributeDefinition{ID: "x", Type: TypeString}
	assert.Error(t, ad.SetOptions("a,b", "1", false))
}

func TestAttributesFilter(t *testing.T) {
	ocd := &ObjectClassDefinition{ID: "x"}
	req := &AttributeDefinition{ID: "req"}
	opt := &AttributeDefinition{ID: "opt"}
	ocd.AddAttributeDefinition(req, true)
	ocd.AddAttributeDefinition(opt, false)

	assert.Len(t, ocd.Attributes(FilterRequired), 1)
	assert.Len(t, ocd.Attributes(FilterOptional), 1)
	assert.Len(t, ocd.Attributes(FilterAll), 2)
}
