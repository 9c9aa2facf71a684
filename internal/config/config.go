// Package config loads the per-deployment metadata file and optional flag
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// MetadataFile is the default config file name inside the ledger directory.
const MetadataFile = "metadata.toml"

// Config represents the forager configuration file.
type Config struct {
	// Metadata is attached to every upload. The required keys are
	// validated at startup; extra string keys pass through untouched.
	Metadata map[string]string `toml:"metadata"`
	Defaults DefaultsConfig    `toml:"defaults"`
}

// DefaultsConfig holds persistent flag defaults, applied only when the
// corresponding flag was not set on the command line.
type DefaultsConfig struct {
	Glob         *string  `toml:"glob"`
	Recursive    *bool    `toml:"recursive"`
	SortKey      *string  `toml:"sort_key"`
	BatchSize    *int     `toml:"batch_size"`
	SkipLastN    *int     `toml:"skip_last_n"`
	MaxFileSize  *string  `toml:"max_file_size"`
	DelaySeconds *float64 `toml:"delay_seconds"`
}

// requiredMetadata are the fields every upload bundle must carry. A missing
// or empty field is a fatal startup error, not a per-file one.
var requiredMetadata = []string{"site", "sensor", "project", "creator", "upload_name"}

// DefaultPath returns the config path inside a ledger directory.
func DefaultPath(ledgerDir string) string {
	return filepath.Join(ledgerDir, MetadataFile)
}

// Load reads and validates the config file. The file is mandatory: without
// validated metadata the run must not start.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config file %s not found (create it with a [metadata] table)", path)
		}
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validateMetadata(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validateMetadata() error {
	if len(c.Metadata) == 0 {
		return fmt.Errorf("missing [metadata] table")
	}
	for _, key := range requiredMetadata {
		if c.Metadata[key] == "" {
			return fmt.Errorf("required metadata field %q is missing or empty", key)
		}
	}
	return nil
}
