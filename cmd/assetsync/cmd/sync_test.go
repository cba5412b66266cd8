package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCandidates(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "candidates.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
source: sccm
candidates:
  - serial: 5CD1234XYZ
    name: lab-ws-01.corp.example.com
    mac_addresses:
      - "00:1B:44:11:22:33"
    domain: ROCHESTER
  - serial: 5CD5678ABC
    source: manual
`), 0o644))

	candidates, err := loadCandidates(file)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "5CD1234XYZ", candidates[0].Serial)
	assert.Equal(t, []string{"00:1B:44:11:22:33"}, candidates[0].MACAddresses)
	assert.Equal(t, "sccm", candidates[0].Source, "batch source applied as fallback")
	assert.Equal(t, "manual", candidates[1].Source, "per-candidate source wins")
}

func TestLoadCandidatesMissingFile(t *testing.T) {
	_, err := loadCandidates(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
