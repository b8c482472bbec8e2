package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the txgather tools.
type Config struct {
	Storage   Storage      `yaml:"storage"`
	Shioaji   Shioaji      `yaml:"shioaji"`
	Firestore Firestore    `yaml:"firestore"`
	Logging   Logging      `yaml:"logging"`
	Gather    GatherConfig `yaml:"gather"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Shioaji holds credentials and the endpoint of the Shioaji bridge process.
type Shioaji struct {
	BridgeURL  string `yaml:"bridge_url"`
	APIKey     string `yaml:"api_key"`
	SecretKey  string `yaml:"secret_key"`
	CAPath     string `yaml:"ca_path"`
	CAPassword string `yaml:"ca_password"`
}

// Firestore configures the optional cloud bar sink.
type Firestore struct {
	Enabled         bool   `yaml:"enabled"`
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	Collection      string `yaml:"collection"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig holds parameters for the acquisition loop.
type GatherConfig struct {
	Symbol          string `yaml:"symbol"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	WeeklyNaming    string `yaml:"weekly_naming"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Gather.Symbol == "" {
		cfg.Gather.Symbol = "TXF"
	}
	if cfg.Gather.WeeklyNaming == "" {
		cfg.Gather.WeeklyNaming = "span"
	}
	if cfg.Firestore.Collection == "" {
		cfg.Firestore.Collection = "TXF_1min"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("SHIOAJI_BRIDGE_URL"); v != "" {
		cfg.Shioaji.BridgeURL = v
	}

	if v := os.Getenv("SHIOAJI_API_KEY"); v != "" {
		cfg.Shioaji.APIKey = v
	}

	if v := os.Getenv("SHIOAJI_SECRET_KEY"); v != "" {
		cfg.Shioaji.SecretKey = v
	}

	if v := os.Getenv("SHIOAJI_CERT_PATH"); v != "" {
		cfg.Shioaji.CAPath = v
	}

	if v := os.Getenv("SHIOAJI_CERT_PASS"); v != "" {
		cfg.Shioaji.CAPassword = v
	}

	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		cfg.Firestore.CredentialsFile = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
