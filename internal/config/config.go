package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"monthload/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the monthly loader.
type Config struct {
	Storage   Storage         `yaml:"storage"`
	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Extract   ExtractConfig   `yaml:"extract"`
	Artifact  ArtifactConfig  `yaml:"artifact"`
	Load      LoadConfig      `yaml:"load"`
	Logging   Logging         `yaml:"logging"`
}

// Storage holds paths for artifact and run-state persistence.
type Storage struct {
	// DataDir is the root directory for monthly artifact files.
	DataDir string `yaml:"data_dir"`
	// StateBackend selects the run-state store: "file" or "sqlite".
	StateBackend string `yaml:"state_backend"`
	// StatePath is the run-state file path. Defaults to
	// <data_dir>/last_run.json for the file backend.
	StatePath string `yaml:"state_path"`
	// SQLitePath is the database path for the sqlite backend. Defaults to
	// <data_dir>/monthload.db.
	SQLitePath string `yaml:"sqlite_path"`
}

// SnowflakeConfig holds warehouse connection parameters. The credential
// fields are normally supplied through environment variables rather than the
// config file.
type SnowflakeConfig struct {
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Account   string `yaml:"account"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Role      string `yaml:"role"`
	Table     string `yaml:"table"`
}

// ExtractConfig selects and parameterises the data source.
type ExtractConfig struct {
	// Source is "simulated" or "alpaca".
	Source string `yaml:"source"`
	// RecordCount is the number of rows the simulated source emits.
	RecordCount int `yaml:"record_count"`
	// Symbols is the symbol universe for the alpaca source.
	Symbols []string `yaml:"symbols"`
	// Alpaca credentials; usually set via APCA_API_KEY_ID/APCA_API_SECRET_KEY.
	AlpacaAPIKey    string `yaml:"alpaca_api_key"`
	AlpacaAPISecret string `yaml:"alpaca_api_secret"`
	// RateLimitPerMin caps alpaca API calls per minute.
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// ArtifactConfig controls the artifact file format: "csv" or "parquet".
type ArtifactConfig struct {
	Format string `yaml:"format"`
}

// LoadConfig controls the warehouse load step.
type LoadConfig struct {
	// MaxAttempts bounds in-process retries of transient load failures.
	MaxAttempts int `yaml:"max_attempts"`
	// RetryBaseDelay is the initial backoff between attempts, as a
	// time.ParseDuration string (e.g. "2s", "500ms").
	RetryBaseDelay string `yaml:"retry_base_delay"`
}

// RetryDelay parses and returns the configured retry base delay.
func (l LoadConfig) RetryDelay() time.Duration {
	d, err := time.ParseDuration(l.RetryBaseDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// ErrMissingCredentials indicates that one of the required Snowflake
// credential fields (user, password, account) is unset.
var ErrMissingCredentials = errors.New("snowflake credentials are not fully set")

// Load reads the YAML configuration file at the given path (if it exists),
// applies defaults and environment variable overrides, and returns the
// resulting Config. A missing file is not an error: the loader is fully
// configurable from the environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Environment-only configuration.
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// Validate checks invariants that must hold before the pipeline performs any
// I/O. It returns ErrMissingCredentials (wrapped) when the required
// Snowflake credential fields are absent.
func (c *Config) Validate() error {
	if !c.Credentials().Complete() {
		return fmt.Errorf("%w: SNOWFLAKE_USER, SNOWFLAKE_PASSWORD and SNOWFLAKE_ACCOUNT are required", ErrMissingCredentials)
	}
	if c.Load.MaxAttempts < 1 {
		return fmt.Errorf("load.max_attempts must be >= 1, got %d", c.Load.MaxAttempts)
	}
	switch c.Artifact.Format {
	case "csv", "parquet":
	default:
		return fmt.Errorf("unknown artifact format %q", c.Artifact.Format)
	}
	switch c.Storage.StateBackend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown state backend %q", c.Storage.StateBackend)
	}
	if _, err := time.ParseDuration(c.Load.RetryBaseDelay); err != nil {
		return fmt.Errorf("invalid load.retry_base_delay %q: %w", c.Load.RetryBaseDelay, err)
	}
	return nil
}

// Credentials returns the Snowflake credentials collected at load time.
func (c *Config) Credentials() domain.Credentials {
	return domain.Credentials{
		User:      c.Snowflake.User,
		Password:  c.Snowflake.Password,
		Account:   c.Snowflake.Account,
		Warehouse: c.Snowflake.Warehouse,
		Database:  c.Snowflake.Database,
		Schema:    c.Snowflake.Schema,
		Role:      c.Snowflake.Role,
	}
}

// applyDefaults fills unset fields with their default values.
func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./monthly_data"
	}
	if cfg.Storage.StateBackend == "" {
		cfg.Storage.StateBackend = "file"
	}
	if cfg.Snowflake.Warehouse == "" {
		cfg.Snowflake.Warehouse = "COMPUTE_WH"
	}
	if cfg.Snowflake.Database == "" {
		cfg.Snowflake.Database = "JOSADMIN"
	}
	if cfg.Snowflake.Schema == "" {
		cfg.Snowflake.Schema = "PUBLIC"
	}
	if cfg.Snowflake.Role == "" {
		cfg.Snowflake.Role = "ACCOUNTADMIN"
	}
	if cfg.Snowflake.Table == "" {
		cfg.Snowflake.Table = "MONTHLY_PUBLIC_DATA"
	}
	if cfg.Extract.Source == "" {
		cfg.Extract.Source = "simulated"
	}
	if cfg.Extract.RecordCount == 0 {
		cfg.Extract.RecordCount = 10
	}
	if cfg.Extract.RateLimitPerMin == 0 {
		cfg.Extract.RateLimitPerMin = 200
	}
	if cfg.Artifact.Format == "" {
		cfg.Artifact.Format = "csv"
	}
	if cfg.Load.MaxAttempts == 0 {
		cfg.Load.MaxAttempts = 3
	}
	if cfg.Load.RetryBaseDelay == "" {
		cfg.Load.RetryBaseDelay = "2s"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_SAVE_PATH"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("RUN_STATE_PATH"); v != "" {
		cfg.Storage.StatePath = v
	}

	if v := os.Getenv("SNOWFLAKE_USER"); v != "" {
		cfg.Snowflake.User = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}
	if v := os.Getenv("SNOWFLAKE_ACCOUNT"); v != "" {
		cfg.Snowflake.Account = v
	}
	if v := os.Getenv("SNOWFLAKE_WAREHOUSE"); v != "" {
		cfg.Snowflake.Warehouse = v
	}
	if v := os.Getenv("SNOWFLAKE_DATABASE"); v != "" {
		cfg.Snowflake.Database = v
	}
	if v := os.Getenv("SNOWFLAKE_SCHEMA"); v != "" {
		cfg.Snowflake.Schema = v
	}
	if v := os.Getenv("SNOWFLAKE_ROLE"); v != "" {
		cfg.Snowflake.Role = v
	}
	if v := os.Getenv("SNOWFLAKE_TABLE"); v != "" {
		cfg.Snowflake.Table = v
	}

	if v := os.Getenv("EXTRACT_SOURCE"); v != "" {
		cfg.Extract.Source = v
	}
	if v := os.Getenv("EXTRACT_RECORD_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Extract.RecordCount = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Extract.AlpacaAPIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Extract.AlpacaAPISecret = v
	}
}
