package version

import (
	"testing"

	"github.com/corectk/pluginfw/fwerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{"1.2.3", "0.0.0", "1.2.3.beta", "5", "2.1"}
	for _, raw := range cases {
		v, err := Parse(raw)
		require.NoError(t, err)

		v2, err := Parse(v.String())
		require.NoError(t, err)

		eq, err := v.Equal(v2)
		require.NoError(t, err)
		assert.Truef(t, eq, "round-trip mismatch for %q: got %q", raw, v.String())
	}
}

func TestParseEmptyIsEmptyVersion(t *testing.T) {
	v, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", v.String())

	v2, err := Parse("   ")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", v2.String())
}

func TestParseRejectsTooManySegments(t *testing.T) {
	_, err := Parse("1.2.3.qual.extra")
	require.Error(t, err)
	assert.True(t, fwerr.IsClass(err, fwerr.InvalidArgument))
}

func TestParseRejectsNonNumericComponent(t *testing.T) {
	_, err := Parse("1.x.3")
	require.Error(t, err)
	assert.True(t, fwerr.IsClass(err, fwerr.InvalidArgument))
}

func TestParseRejectsInvalidQualifier(t *testing.T) {
	_, err := Parse("1.2.3.has space")
	require.Error(t, err)
	assert.True(t, fwerr.IsClass(err, fwerr.InvalidArgument))
}

func TestCompareOrdering(t *testing.T) {
	a, _ := Parse("1.0.0")
	b, _ := Parse("1.0.1")
	c, _ := Parse("1.0.1")

	res, err := Compare(a, b)
	require.NoError(t, err)
	assert.Negative(t, res)

	res, err = Compare(b, c)
	require.NoError(t, err)
	assert.Zero(t, res)

	assert.True(t, Less(a, b))
	assert.False(t, Less(b, a))
}

func TestEmptySortsBelowEveryDefinedVersion(t *testing.T) {
	defined, _ := Parse("0.0.1")
	assert.True(t, Less(Empty(), defined))
}

func TestUndefinedAccessorsReturnIllegalState(t *testing.T) {
	u := Undefined()

	assert.Equal(t, "undefined", u.String())

	_, err := u.Major()
	require.Error(t, err)
	if !fwerr.IsClass(err, fwerr.IllegalState) {
		t.Fatalf("expected IllegalState, got %v", err)
	}

	_, err = Compare(u, Empty())
	require.Error(t, err)
}

func TestUndefinedEqualsUndefined(t *testing.T) {
	eq, err := Undefined().Equal(Undefined())
	require.NoError(t, err)
	assert.True(t, eq)
}
