package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.yaml"), []byte(content), 0o644))
}

func TestLoadManifestParsesFields(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
name: com.example.greeter
version: "1.2.3"
description: says hello
location: file:///plugins/greeter
exports:
  - com.example.Greeter
dependencies:
  - name: com.example.logging
    versionRange: "[1.0,2.0)"
`)

	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "com.example.greeter", m.Name)
	assert.Equal(t, "1.2.3", m.Version.String())
	assert.Equal(t, "says hello", m.Description)
	assert.Equal(t, []string{"com.example.Greeter"}, m.Exports)
	assert.Equal(t, defaultMetatypeDir, m.MetatypeDir)
	require.Len(t, m.Dependencies, 1)
	assert.Equal(t, "com.example.logging", m.Dependencies[0].Name)
}

func TestLoadManifestRejectsMissingName(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "version: \"1.0.0\"\n")

	_, err := LoadManifest(dir)
	assert.Error(t, err)
}

func TestLoadManifestRejectsBadVersion(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "name: x\nversion: \"1.2.3.4.5\"\n")

	_, err := LoadManifest(dir)
	assert.Error(t, err)
}

func TestMetatypeFilesListsXMLUnderMetatypeDir(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "name: com.example.greeter\nversion: \"1.0.0\"\n")

	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, m.Dir)

	metaDir := filepath.Join(dir, defaultMetatypeDir)
	require.NoError(t, os.MkdirAll(metaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, "thing.xml"), []byte("<MetaData/>"), 0o644))

	files, err := m.MetatypeFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(metaDir, "thing.xml"), files[0])
}

func TestMetatypeFilesWithNoDirIsNotAnError(t *testing.T) {
	m := &Manifest{Name: "com.example.greeter"}
	files, err := m.MetatypeFiles()
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestLoadManifestFromDirWalksUpToParent(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "name: x\nversion: \"1.0.0\"\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	m, err := LoadManifestFromDir(nested)
	require.NoError(t, err)
	assert.Equal(t, "x", m.Name)
}
