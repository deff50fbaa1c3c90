package fwerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageFormat(t *testing.T) {
	err := InvalidArgumentf("registry", "Register", "class list is empty")
	assert.Equal(t, "registry[Register/invalid_argument]: class list is empty", err.Error())
}

func TestErrorWithCause(t *testing.T) {
	cause := errors.New("boom")
	err := IllegalStatef("tracker", "GetService", "tracker not open").WithCause(cause)

	assert.Contains(t, err.Error(), "boom")
	assert.True(t, errors.Is(err, cause))
}

func TestIsClass(t *testing.T) {
	err := NoSuchServicef("tracker", "GetServiceReference", "no matching service")

	assert.True(t, IsClass(err, NoSuchService))
	assert.False(t, IsClass(err, ConfigurationError))
}

func TestErrorIsComparesClassNotIdentity(t *testing.T) {
	a := ConfigurationErrorf("configadmin", "Update", "rejected")
	b := ConfigurationErrorf("configadmin", "Update", "a different message")

	require.True(t, errors.Is(a, b))

	c := UserCallbackErrorf("configadmin", "Update", "panic in listener")
	if errors.Is(a, c) {
		t.Fatalf("expected different classes to not match")
	}
}
