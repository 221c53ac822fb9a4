// Package config loads the YAML build/query configuration used by the
// indexer and query engine CLIs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in the spec, plus the staging and
// persistence backend selection.
type Config struct {
	// BatchSize is the number of accepted documents per indexer flush.
	BatchSize int `yaml:"batch_size"`

	// SimHashHammingThreshold is the near-duplicate detector's maximum
	// Hamming distance; the fingerprint width itself is fixed at 64 bits
	// (simhash.BitLength) and isn't a runtime knob.
	SimHashHammingThreshold int `yaml:"simhash_hamming_threshold"`

	// Stage selects the internal batch-staging backend: "sqlite" (default)
	// or "memory".
	Stage string `yaml:"stage"`

	// Persist selects the backend for offsets/docID map: "jsonl" (default,
	// and the only backend build_index is required to produce) or
	// "clickhouse" (optional, populated by a separate export step).
	Persist        string `yaml:"persist"`
	ClickHouseAddr string `yaml:"clickhouse_addr"`

	// DefaultK is the number of results the query REPL asks for. The HTTP
	// API does not read it; its own default when k is omitted is 5.
	DefaultK int `yaml:"default_k"`
}

// Default returns the configuration the spec's constants describe.
func Default() Config {
	return Config{
		BatchSize:               10000,
		SimHashHammingThreshold: 2,
		Stage:                   "sqlite",
		Persist:                 "jsonl",
		ClickHouseAddr:          "localhost:9000",
		DefaultK:                5,
	}
}

// Load reads a YAML configuration file, overlaying it onto Default() so an
// omitted field keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}
