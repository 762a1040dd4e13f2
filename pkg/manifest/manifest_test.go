package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnistor/omnistor/pkg/plan"
)

const validYAML = `
version: "1.0"
backend: archive
operations:
  - type: copy
    source: reports/2025/
    destination: archive/reports/2025/
    recursive: true
  - type: delete
    source: tmp/staging/
    recursive: true
  - type: create
    destination: inbox/
`

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1.0", m.Version)
	assert.Equal(t, "archive", m.Backend)
	require.Len(t, m.Operations, 3)
	assert.Equal(t, "copy", m.Operations[0].Type)
	assert.True(t, m.Operations[0].Recursive)
}

func TestLoadJSON(t *testing.T) {
	content := `{
  "version": "1.0",
  "operations": [
    {"type": "move", "source": "a.txt", "destination": "b.txt"}
  ]
}`
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	require.Len(t, m.Operations, 1)
	assert.Equal(t, "move", m.Operations[0].Type)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadFromBytesUnknownExtension(t *testing.T) {
	m, err := LoadFromBytes([]byte(validYAML), "batch.conf")
	require.NoError(t, err)
	assert.Len(t, m.Operations, 3)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Manifest)
		wantErr string
	}{
		{
			name:    "wrong version",
			mutate:  func(m *Manifest) { m.Version = "2.0" },
			wantErr: "unsupported version",
		},
		{
			name:    "no operations",
			mutate:  func(m *Manifest) { m.Operations = nil },
			wantErr: "at least one operation",
		},
		{
			name:    "unknown type",
			mutate:  func(m *Manifest) { m.Operations[0].Type = "defragment" },
			wantErr: "unknown type",
		},
		{
			name:    "copy without destination",
			mutate:  func(m *Manifest) { m.Operations[0].Destination = "" },
			wantErr: "requires source and destination",
		},
		{
			name:    "delete without source",
			mutate:  func(m *Manifest) { m.Operations[1].Source = "" },
			wantErr: "delete requires source",
		},
		{
			name:    "create without destination",
			mutate:  func(m *Manifest) { m.Operations[2].Destination = "" },
			wantErr: "create requires destination",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := LoadFromBytes([]byte(validYAML), "batch.yaml")
			require.NoError(t, err)

			tt.mutate(m)
			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPending(t *testing.T) {
	m, err := LoadFromBytes([]byte(validYAML), "batch.yaml")
	require.NoError(t, err)

	ops := m.Pending()
	require.Len(t, ops, 3)

	assert.Equal(t, plan.OpCopy, ops[0].Type)
	assert.Equal(t, "reports/2025/", ops[0].Source)
	assert.Equal(t, "archive/reports/2025/", ops[0].Destination)
	assert.True(t, ops[0].Recursive)
	assert.NotEmpty(t, ops[0].ID)

	assert.Equal(t, plan.OpDelete, ops[1].Type)
	assert.Equal(t, plan.OpCreate, ops[2].Type)

	// IDs are unique per operation.
	assert.NotEqual(t, ops[0].ID, ops[1].ID)
}
