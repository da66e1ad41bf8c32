package config

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the production accounting service
const DefaultEndpoint = "https://api.ccwatt.dev"

// Credentials are the tokens obtained by the external browser-based
// authorization flow. Expiry fields are unix seconds.
type Credentials struct {
	AccessToken      string `yaml:"access_token"`
	RefreshToken     string `yaml:"refresh_token"`
	ExpiresAt        int64  `yaml:"expires_at"`
	RefreshExpiresAt int64  `yaml:"refresh_expires_at"`
}

// Config holds everything read from the config file plus environment
// overrides, resolved once at load. Components receive this value
// explicitly instead of reading ambient state.
type Config struct {
	Endpoint    string      `yaml:"endpoint,omitempty"`
	ClientID    string      `yaml:"client_id,omitempty"`
	Credentials Credentials `yaml:"credentials,omitempty"`

	// Resolved paths, not persisted
	Home        string `yaml:"-"`
	ClaudeRoot  string `yaml:"-"` // where session logs live
	StoragePath string `yaml:"-"` // sqlite file for this endpoint
}

// envOverrides are applied on top of the file, CCWATT_ prefixed
type envOverrides struct {
	Endpoint string `envconfig:"ENDPOINT"`
	Home     string `envconfig:"HOME"`
}

func configPath(home string) string {
	return filepath.Join(home, ".ccwatt.yaml")
}

// Load reads the config file and applies environment overrides. A
// missing file yields a usable default config.
func Load() (*Config, error) {
	var env envOverrides
	if err := envconfig.Process("ccwatt", &env); err != nil {
		return nil, err
	}

	home := env.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	data, err := os.ReadFile(configPath(home))
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if env.Endpoint != "" {
		cfg.Endpoint = env.Endpoint
	}

	cfg.Home = home
	cfg.ClaudeRoot = filepath.Join(home, ".claude", "projects")
	cfg.StoragePath = storagePath(home, cfg.Endpoint)
	return cfg, nil
}

// Save writes the persistent part of the config back to disk
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(c.Home), data, 0600)
}

// ResolvedEndpoint returns the effective service URL
func (c *Config) ResolvedEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return DefaultEndpoint
}

// storagePath places the sqlite file under the home dir. Non-default
// endpoints get a suffixed filename so test or staging data never mixes
// with production data.
func storagePath(home, endpoint string) string {
	name := "ccwatt.db"
	if endpoint != "" && endpoint != DefaultEndpoint {
		sum := sha256.Sum256([]byte(endpoint))
		name = "ccwatt." + hex.EncodeToString(sum[:4]) + ".db"
	}
	return filepath.Join(home, ".ccwatt", name)
}
