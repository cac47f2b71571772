// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfkl/vlclr/internal/plugin"
)

func mkdirAll(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o750))
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

func writeModule(t *testing.T, root, dir, descriptor string) string {
	t.Helper()
	moduleDir := filepath.Join(root, dir)
	mkdirAll(t, moduleDir)
	writeFile(t, filepath.Join(moduleDir, plugin.DescriptorFile), []byte(descriptor))
	return moduleDir
}

func TestCatalog_Discover(t *testing.T) {
	root := t.TempDir()
	bridgeDir := writeModule(t, root, "bridge", `
name: bridge
capability: interface
score: 1
library: libmanaged.so
`)
	writeModule(t, root, "invert", `
name: invert
capability: video filter
score: 5
library: invert.lua
`)

	cat := plugin.NewCatalog(root)
	found, err := cat.Discover(context.Background())
	require.NoError(t, err)

	require.Len(t, found, 2)
	assert.Equal(t, "invert", found[0].Descriptor.Name, "higher score first")
	assert.Equal(t, "bridge", found[1].Descriptor.Name)
	assert.Equal(t, bridgeDir, found[1].Dir)
	assert.Equal(t, []string{"bridge", "invert"}, cat.Names())
}

func TestCatalog_DiscoverSkipsInvalid(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "good", `
name: good
capability: interface
library: lib.so
`)
	writeModule(t, root, "bad-schema", `
name: bad
capability: interface
library: lib.so
unexpected: true
`)
	writeModule(t, root, "bad-name", `
name: Bad_Name
capability: interface
library: lib.so
`)
	mkdirAll(t, filepath.Join(root, "no-descriptor"))
	writeFile(t, filepath.Join(root, "stray.yaml"), []byte("name: stray"))

	found, err := plugin.NewCatalog(root).Discover(context.Background())
	require.NoError(t, err)

	require.Len(t, found, 1)
	assert.Equal(t, "good", found[0].Descriptor.Name)
}

func TestCatalog_DiscoverMissingDir(t *testing.T) {
	found, err := plugin.NewCatalog(filepath.Join(t.TempDir(), "absent")).Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCatalog_Lookup(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "low", `
name: low
capability: interface
score: 1
shortcuts: [dotnet]
library: low.so
`)
	writeModule(t, root, "high", `
name: high
capability: interface
score: 9
shortcuts: [dotnet]
library: high.so
`)
	writeModule(t, root, "filter", `
name: filter
capability: video filter
score: 100
shortcuts: [dotnet]
library: filter.so
`)

	cat := plugin.NewCatalog(root)
	_, err := cat.Discover(context.Background())
	require.NoError(t, err)

	d, ok := cat.Lookup(plugin.CapabilityInterface, "dotnet")
	require.True(t, ok)
	assert.Equal(t, "high", d.Descriptor.Name)

	d, ok = cat.Lookup(plugin.CapabilityInterface, "low")
	require.True(t, ok)
	assert.Equal(t, "low", d.Descriptor.Name)

	d, ok = cat.Lookup(plugin.CapabilityVideoFilter, "")
	require.True(t, ok)
	assert.Equal(t, "filter", d.Descriptor.Name)

	_, ok = cat.Lookup(plugin.CapabilityInterface, "mono")
	assert.False(t, ok)
}

func TestDiscovered_LoaderConfigSearchesModuleDirFirst(t *testing.T) {
	d := &plugin.Discovered{
		Descriptor: &plugin.Descriptor{
			Name:       "bridge",
			Capability: plugin.CapabilityInterface,
			Library:    "libmanaged.so",
			SearchDirs: []string{"/usr/lib/vlclr"},
		},
		Dir: "/opt/modules/bridge",
	}

	cfg := d.LoaderConfig()
	assert.Equal(t, []string{"/opt/modules/bridge", "/usr/lib/vlclr"}, cfg.SearchDirs)
	assert.Equal(t, []string{"/usr/lib/vlclr"}, d.Descriptor.SearchDirs)
}
