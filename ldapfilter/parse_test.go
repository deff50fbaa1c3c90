package ldapfilter

import (
	"testing"

	"github.com/corectk/pluginfw/fwerr"
	"github.com/corectk/pluginfw/props"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidFilters(t *testing.T) {
	cases := []string{
		"(cn=Babs Jensen)",
		"(!(cn=Tim Howes))",
		"(&(objectclass=Person)(|(sn=Jensen)(cn=Babs J*)))",
		"(o=univ*of*mich*)",
	}
	for _, f := range cases {
		_, err := Parse(f)
		assert.NoErrorf(t, err, "expected %q to parse", f)
	}
}

func TestParseUnbalancedParenFails(t *testing.T) {
	_, err := Parse("cn=Babs Jensen)")
	require.Error(t, err)
	assert.True(t, fwerr.IsClass(err, fwerr.InvalidArgument))
}

func TestParseEmptyFails(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), diagNullQuery)
}

func TestParseTrailingGarbageFails(t *testing.T) {
	_, err := Parse("(cn=x)garbage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), diagGarbage)
}

func TestParseUndefinedOperatorFails(t *testing.T) {
	_, err := Parse("(cn!x)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), diagOperator)
}

func TestEvaluateSimpleWildcard(t *testing.T) {
	expr, err := Parse("(cn=Babs *)")
	require.NoError(t, err)

	m1, _ := props.New(props.E("cn", props.String("Babs Jensen")), props.E("unused", props.String("Jansen")))
	assert.True(t, expr.Evaluate(m1, false))

	m2, _ := props.New(props.E("unused", props.String("New")))
	assert.False(t, expr.Evaluate(m2, false))
}

func TestEvaluateListValue(t *testing.T) {
	expr, err := Parse("(|(cn=Babs *)(sn=1))")
	require.NoError(t, err)

	m, _ := props.New(props.E("sn", props.StringList([]string{"Babs Jensen", "1"})))
	assert.True(t, expr.Evaluate(m, false))
}

func TestToStringRoundTrip(t *testing.T) {
	for _, f := range []string{
		"(cn=Babs Jensen)",
		"(&(objectclass=Person)(|(sn=Jensen)(cn=Babs J*)))",
	} {
		expr, err := Parse(f)
		require.NoError(t, err)

		reparsed, err := Parse(expr.String())
		require.NoError(t, err)
		assert.Equal(t, expr.String(), reparsed.String())
	}
}

func TestApproxOnBooleanIsFalse(t *testing.T) {
	expr, err := Parse("(flag~=true)")
	require.NoError(t, err)

	m, _ := props.New(props.E("flag", props.Bool(true)))
	assert.False(t, expr.Evaluate(m, false))
}

func TestRelationalOnBooleanIsFalse(t *testing.T) {
	expr, err := Parse("(flag<=true)")
	require.NoError(t, err)

	m, _ := props.New(props.E("flag", props.Bool(true)))
	assert.False(t, expr.Evaluate(m, false))
}

func TestCacheableEquality(t *testing.T) {
	expr, err := Parse("(objectclass=Foo)")
	require.NoError(t, err)

	matches, ok := Cacheable(expr, []string{"objectclass", "service.id"})
	require.True(t, ok)
	require.Len(t, matches, 1)
	assert.Equal(t, "Foo", matches[0].Value)
}

func TestCacheableOrOfEqualities(t *testing.T) {
	expr, err := Parse("(|(objectclass=Foo)(objectclass=Bar))")
	require.NoError(t, err)

	matches, ok := Cacheable(expr, []string{"objectclass"})
	require.True(t, ok)
	assert.Len(t, matches, 2)
}

func TestCacheableRejectsWildcard(t *testing.T) {
	expr, err := Parse("(objectclass=Fo*)")
	require.NoError(t, err)

	_, ok := Cacheable(expr, []string{"objectclass"})
	assert.False(t, ok)
}

func TestMatchedObjectClassesAnd(t *testing.T) {
	expr, err := Parse("(&(objectclass=Foo)(cn=x))")
	require.NoError(t, err)

	classes, ok := MatchedObjectClasses(expr)
	require.True(t, ok)
	_, has := classes["Foo"]
	assert.True(t, has)
}

func TestMatchedObjectClassesOrRequiresAllChildren(t *testing.T) {
	expr, err := Parse("(|(objectclass=Foo)(cn=x))")
	require.NoError(t, err)

	_, ok := MatchedObjectClasses(expr)
	assert.False(t, ok)
}
