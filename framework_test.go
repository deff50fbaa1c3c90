package pluginfw

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/corectk/pluginfw/bundle"
	"github.com/corectk/pluginfw/metatype"
	"github.com/corectk/pluginfw/registry"
	"github.com/corectk/pluginfw/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetatypeDoc = `<?xml version="1.0" encoding="UTF-8"?>
<MetaData>
  <OCD id="com.example.thing" name="Thing" description="A thing">
    <AD id="timeout" name="Timeout" type="Integer" min="1" max="300" default="30"/>
  </OCD>
  <Designate pid="com.example.plugin">
    <Object ocdref="com.example.thing"/>
  </Designate>
</MetaData>`

type recordingActivator struct {
	reg       *registry.Registry
	started   bool
	stopped   bool
	ref       registry.Reference
}

func (a *recordingActivator) Start(context.Context) error {
	a.started = true
	ref, err := a.reg.Register("com.example.plugin", []string{"com.example.Greeter"}, "hello", nil)
	if err != nil {
		return err
	}
	a.ref = ref
	return nil
}

func (a *recordingActivator) Stop(context.Context) error {
	a.stopped = true
	return nil
}

func testManifest(location string) *bundle.Manifest {
	return &bundle.Manifest{Name: "example", Version: version.Empty(), Location: location}
}

func TestFrameworkStartRegistersPluginServices(t *testing.T) {
	reg := registry.New(registry.Config{})
	fw := New(reg, nil, nil)

	activator := &recordingActivator{reg: reg}
	plug := bundle.New(testManifest("com.example.plugin"), activator)
	require.NoError(t, fw.Install(plug))
	require.NoError(t, fw.Start(context.Background(), "com.example.plugin"))

	assert.True(t, activator.started)
	_, ok := reg.GetReference("com.example.Greeter")
	assert.True(t, ok)
}

func TestFrameworkStopUnregistersLeftoverServices(t *testing.T) {
	reg := registry.New(registry.Config{})
	fw := New(reg, nil, nil)

	activator := &recordingActivator{reg: reg}
	plug := bundle.New(testManifest("com.example.plugin"), activator)
	require.NoError(t, fw.Install(plug))
	require.NoError(t, fw.Start(context.Background(), "com.example.plugin"))
	require.NoError(t, fw.Stop(context.Background(), "com.example.plugin"))

	assert.True(t, activator.stopped)
	_, ok := reg.GetReference("com.example.Greeter")
	assert.False(t, ok)
}

func TestFrameworkInstallRejectsDuplicateLocation(t *testing.T) {
	reg := registry.New(registry.Config{})
	fw := New(reg, nil, nil)

	plugA := bundle.New(testManifest("com.example.plugin"), &recordingActivator{reg: reg})
	plugB := bundle.New(testManifest("com.example.plugin"), &recordingActivator{reg: reg})
	require.NoError(t, fw.Install(plugA))
	assert.Error(t, fw.Install(plugB))
}

func TestFrameworkUninstallRemovesPlugin(t *testing.T) {
	reg := registry.New(registry.Config{})
	fw := New(reg, nil, nil)

	activator := &recordingActivator{reg: reg}
	plug := bundle.New(testManifest("com.example.plugin"), activator)
	require.NoError(t, fw.Install(plug))
	require.NoError(t, fw.Start(context.Background(), "com.example.plugin"))
	require.NoError(t, fw.Uninstall(context.Background(), "com.example.plugin"))

	_, ok := fw.Plugin("com.example.plugin")
	assert.False(t, ok)
}

func TestFrameworkStartUnknownLocationErrors(t *testing.T) {
	fw := New(registry.New(registry.Config{}), nil, nil)
	assert.Error(t, fw.Start(context.Background(), "missing"))
}

func TestFrameworkInstallLoadsMetatypeDescriptors(t *testing.T) {
	dir := t.TempDir()
	metaDir := filepath.Join(dir, "OSGI-INF", "metatype")
	require.NoError(t, os.MkdirAll(metaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, "thing.xml"), []byte(sampleMetatypeDoc), 0o644))

	reg := registry.New(registry.Config{})
	mt := metatype.NewRegistry()
	fw := New(reg, nil, mt)

	manifest := testManifest("com.example.plugin")
	manifest.Dir = dir
	manifest.MetatypeDir = "OSGI-INF/metatype"
	plug := bundle.New(manifest, &recordingActivator{reg: reg})
	require.NoError(t, fw.Install(plug))

	ocd, ok := mt.ObjectClassDefinitionFor("com.example.plugin")
	require.True(t, ok)
	assert.Equal(t, "Thing", ocd.Name)
}

func TestFrameworkUninstallUnloadsMetatypeDescriptors(t *testing.T) {
	dir := t.TempDir()
	metaDir := filepath.Join(dir, "OSGI-INF", "metatype")
	require.NoError(t, os.MkdirAll(metaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, "thing.xml"), []byte(sampleMetatypeDoc), 0o644))

	reg := registry.New(registry.Config{})
	mt := metatype.NewRegistry()
	fw := New(reg, nil, mt)

	manifest := testManifest("com.example.plugin")
	manifest.Dir = dir
	manifest.MetatypeDir = "OSGI-INF/metatype"
	activator := &recordingActivator{reg: reg}
	plug := bundle.New(manifest, activator)
	require.NoError(t, fw.Install(plug))
	require.NoError(t, fw.Uninstall(context.Background(), "com.example.plugin"))

	_, ok := mt.ObjectClassDefinitionFor("com.example.plugin")
	assert.False(t, ok)
}
