// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfkl/vlclr/internal/plugin"
)

func TestGenerateSchema(t *testing.T) {
	data, err := plugin.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, plugin.SchemaID, schema["$id"])
	assert.Equal(t, "vlclr Module Descriptor", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"name", "capability", "library", "shortcuts", "exports"} {
		assert.Contains(t, props, key)
	}
	assert.ElementsMatch(t, []any{"name", "capability", "library"}, schema["required"])
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid interface",
			yaml: `
name: bridge
capability: interface
score: 5
library: libmanaged.so
`,
		},
		{
			name: "valid filter with exports",
			yaml: `
name: invert
capability: video filter
library: invert.lua
exports:
  filter_open: open_invert
`,
		},
		{
			name: "unknown capability",
			yaml: `
name: bridge
capability: access
library: lib.so
`,
			wantErr: true,
		},
		{
			name: "missing library",
			yaml: `
name: bridge
capability: interface
`,
			wantErr: true,
		},
		{
			name: "unknown field",
			yaml: `
name: bridge
capability: interface
library: lib.so
version: 1.0.0
`,
			wantErr: true,
		},
		{
			name: "unknown export",
			yaml: `
name: bridge
capability: interface
library: lib.so
exports:
  start: begin
`,
			wantErr: true,
		},
		{
			name:    "empty",
			yaml:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := plugin.ValidateSchema([]byte(tt.yaml))
			if tt.wantErr {
				require.Error(t, err)
				assert.NotEmpty(t, plugin.SchemaErrorDetail(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSchemaErrorDetail(t *testing.T) {
	assert.Empty(t, plugin.SchemaErrorDetail(nil))

	err := plugin.ValidateSchema([]byte("name: bridge\ncapability: access\nlibrary: lib.so\n"))
	require.Error(t, err)
	assert.Contains(t, plugin.SchemaErrorDetail(err), "capability")

	err = plugin.ValidateSchema([]byte("name: ["))
	require.Error(t, err)
	assert.Contains(t, plugin.SchemaErrorDetail(err), "invalid YAML")
}
