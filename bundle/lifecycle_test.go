package bundle

import (
	"context"
	"errors"
	"testing"

	"github.com/corectk/pluginfw/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActivator struct {
	startErr   error
	stopErr    error
	startCalls int
	stopCalls  int
}

func (f *fakeActivator) Start(context.Context) error {
	f.startCalls++
	return f.startErr
}

func (f *fakeActivator) Stop(context.Context) error {
	f.stopCalls++
	return f.stopErr
}

func testManifest(t *testing.T) *Manifest {
	t.Helper()
	v, err := version.Parse("1.0.0")
	require.NoError(t, err)
	return &Manifest{Name: "com.example.greeter", Version: v}
}

func TestLifecycleHappyPath(t *testing.T) {
	act := &fakeActivator{}
	p := New(testManifest(t), act)
	assert.Equal(t, Installed, p.State())

	require.NoError(t, p.Resolve())
	assert.Equal(t, Resolved, p.State())

	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, Active, p.State())
	assert.Equal(t, 1, act.startCalls)

	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, Resolved, p.State())
	assert.Equal(t, 1, act.stopCalls)

	require.NoError(t, p.Uninstall())
	assert.Equal(t, Uninstalled, p.State())
}

func TestStartBeforeResolveIsIllegalState(t *testing.T) {
	p := New(testManifest(t), &fakeActivator{})
	err := p.Start(context.Background())
	assert.Error(t, err)
}

func TestStopWithoutStartIsIllegalState(t *testing.T) {
	p := New(testManifest(t), &fakeActivator{})
	require.NoError(t, p.Resolve())
	err := p.Stop(context.Background())
	assert.Error(t, err)
}

func TestFailedStartReturnsToResolved(t *testing.T) {
	act := &fakeActivator{startErr: errors.New("boom")}
	p := New(testManifest(t), act)
	require.NoError(t, p.Resolve())

	err := p.Start(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Resolved, p.State())
}

func TestUninstallRejectedWhileActive(t *testing.T) {
	p := New(testManifest(t), &fakeActivator{})
	require.NoError(t, p.Resolve())
	require.NoError(t, p.Start(context.Background()))

	err := p.Uninstall()
	assert.Error(t, err)
}

func TestHealthReflectsLifecycleStateWithoutHealthChecker(t *testing.T) {
	p := New(testManifest(t), &fakeActivator{})
	assert.True(t, p.Health().IsDegraded())

	require.NoError(t, p.Resolve())
	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.Health().IsHealthy())

	require.NoError(t, p.Stop(context.Background()))
	require.NoError(t, p.Uninstall())
	assert.True(t, p.Health().IsUnhealthy())
}

type checkingActivator struct {
	fakeActivator
	status HealthStatus
}

func (c *checkingActivator) Health() HealthStatus {
	return c.status
}

func TestHealthCombinesActivatorHealthChecker(t *testing.T) {
	act := &checkingActivator{status: newUnhealthyStatus("dependency missing", nil)}
	p := New(testManifest(t), act)
	require.NoError(t, p.Resolve())
	require.NoError(t, p.Start(context.Background()))

	assert.True(t, p.Health().IsUnhealthy())
}
