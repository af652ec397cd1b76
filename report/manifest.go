package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML sidecar written next to the stats CSV, capturing
// the run's resolved settings alongside the CSV data, mirroring a
// YAML-header-plus-CSV-body split.
type Manifest struct {
	ScenarioPath   string  `yaml:"scenario_path"`
	RNGSeed        int64   `yaml:"rng_seed"`
	CILevel        float64 `yaml:"ci_level"`
	CIRelPrecision float64 `yaml:"ci_rel_precision"`
	MaxNumRep      int     `yaml:"max_num_replications"`
	MaxRepLen      int     `yaml:"max_replication_length"`
	OptimRelTol    float64 `yaml:"optim_reltol"`
	OptimTimeLimit float64 `yaml:"optim_tilim_seconds"`
}

// WriteManifest marshals m to path as YAML.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("report: marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: writing manifest %s: %w", path, err)
	}
	return nil
}
