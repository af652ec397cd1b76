package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWriteManifest_RoundTripsThroughYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.manifest.yaml")
	m := Manifest{ScenarioPath: "scenarios/s1.txt", RNGSeed: 42, CILevel: 0.95, CIRelPrecision: 0.04, MaxNumRep: 10, MaxRepLen: 100, OptimRelTol: 1e-4, OptimTimeLimit: 1.0}

	require.NoError(t, WriteManifest(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Manifest
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, m, got)
}
