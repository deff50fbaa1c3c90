package props

import (
	"testing"

	"github.com/corectk/pluginfw/fwerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsCaseVariantDuplicates(t *testing.T) {
	_, err := New(E("cn", String("a")), E("CN", String("b")))
	require.Error(t, err)
	assert.True(t, fwerr.IsClass(err, fwerr.InvalidArgument))
}

func TestFindIsCaseInsensitive(t *testing.T) {
	m, err := New(E("ObjectClass", String("Person")))
	require.NoError(t, err)

	assert.Equal(t, 0, m.Find("objectclass"))
	assert.Equal(t, 0, m.Find("OBJECTCLASS"))
	assert.Equal(t, -1, m.FindCaseSensitive("objectclass"))
	assert.Equal(t, 0, m.FindCaseSensitive("ObjectClass"))
}

func TestGetAndWith(t *testing.T) {
	m, err := New(E("k", Int(1)))
	require.NoError(t, err)

	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, KindInt, v.Kind())

	m2 := m.With("k", Int(2))
	assert.Equal(t, 1, m.Len())
	v2, _ := m2.Get("k")
	assert.Equal(t, int32(2), func() int32 { n, _ := v2.NumericValue(); return int32(n) }())

	m3 := m.With("other", String("x"))
	assert.Equal(t, 2, m3.Len())
}

func TestAsStringMap(t *testing.T) {
	m, err := New(E("sn", StringList([]string{"Jensen", "1"})))
	require.NoError(t, err)

	sm := m.AsStringMap()
	assert.Contains(t, sm["sn"], "Jensen")
}
