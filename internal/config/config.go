// Package config loads the engine's startup configuration: buckets,
// fanout, root path, and the out-of-scope services/s3 sections, which
// are parsed and kept as typed values even though nothing in this
// module drives them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceConfig names a bucket's backend type and its backend-specific
// parameters, plus an optional symmetric encryption key.
type SourceConfig struct {
	Type       string            `yaml:"type"`
	Params     map[string]string `yaml:"params"`
	Encryption *EncryptionConfig `yaml:"encryption,omitempty"`
}

// EncryptionConfig configures a bucket's Encryption filter. Key is a
// hex-encoded 32-byte ChaCha20-Poly1305 key.
type EncryptionConfig struct {
	KeyHex string `yaml:"key"`
}

// ServiceConfig is an out-of-scope background runner description,
// carried through only so config files that define one still parse.
type ServiceConfig struct {
	Name   string            `yaml:"name"`
	Type   string            `yaml:"type"`
	Params map[string]string `yaml:"params"`
}

// S3RootConfig is the out-of-scope remote root-persistence section.
type S3RootConfig struct {
	Bucket   string `yaml:"bucket"`
	Key      string `yaml:"key"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Config is the top-level shape of the engine's YAML configuration
// file.
type Config struct {
	Buckets          map[string]SourceConfig `yaml:"buckets"`
	DirectBlockCount int                     `yaml:"direct_block_count"`
	RootPath         string                  `yaml:"root_path"`
	Services         []ServiceConfig         `yaml:"services"`
	S3               *S3RootConfig           `yaml:"s3,omitempty"`
}

const (
	DefaultDirectBlockCount = 10
	DefaultRootPath         = "./root.dat"
)

// Load reads and parses the YAML configuration file at path, applying
// defaults for any field left unset.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DirectBlockCount == 0 {
		c.DirectBlockCount = DefaultDirectBlockCount
	}
	if c.RootPath == "" {
		c.RootPath = DefaultRootPath
	}
}

func (c *Config) validate() error {
	if len(c.Buckets) == 0 {
		return fmt.Errorf("at least one bucket must be configured")
	}
	for name, b := range c.Buckets {
		if b.Type == "" {
			return fmt.Errorf("bucket %q: missing source type", name)
		}
	}
	return nil
}
