// Package daemon holds the process configuration: a TOML file at a
// well-known path under the circulo home directory.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the full process configuration, loaded from
// ~/.circulo/config.toml (or $CIRCULO_HOME/config.toml).
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Policy  PolicyConfig  `toml:"policy"`
	Notify  NotifyConfig  `toml:"notify"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// Addr returns the host:port listen address.
func (c APIConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// StorageConfig configures the SQLite database.
type StorageConfig struct {
	Path string `toml:"path"`
}

// PolicyConfig carries the circulation policy constants.
type PolicyConfig struct {
	LoanPeriodDays   int     `toml:"loan_period_days"`
	OverdueDailyRate float64 `toml:"overdue_daily_rate"`
	DamagedFactor    float64 `toml:"damaged_factor"`
	LostFactor       float64 `toml:"lost_factor"`
	LoanCodePrefix   string  `toml:"loan_code_prefix"`
	FineCodePrefix   string  `toml:"fine_code_prefix"`
}

// NotifyConfig configures the SMTP relay. An empty SMTPAddr means
// notifications are logged instead of delivered.
type NotifyConfig struct {
	SMTPAddr string `toml:"smtp_addr"`
	From     string `toml:"from"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Home returns the circulo home directory: $CIRCULO_HOME when set,
// otherwise ~/.circulo.
func Home() string {
	if home := os.Getenv("CIRCULO_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".circulo"
	}
	return filepath.Join(userHome, ".circulo")
}

// DefaultConfigPath returns the path of the config file under Home.
func DefaultConfigPath() string { return filepath.Join(Home(), "config.toml") }

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8780,
			Metrics: true,
		},
		Storage: StorageConfig{
			Path: filepath.Join(Home(), "circulo.db"),
		},
		Policy: PolicyConfig{
			LoanPeriodDays:   2,
			OverdueDailyRate: 1.0,
			DamagedFactor:    0.5,
			LostFactor:       2.0,
			LoanCodePrefix:   "BLB",
			FineCodePrefix:   "MLT",
		},
		Notify: NotifyConfig{
			From: "library@localhost",
		},
	}
}

// LoadConfig reads the TOML config at path over the defaults. An empty
// path means DefaultConfigPath; a missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the circulation core cannot run with.
func (c Config) Validate() error {
	if c.Policy.LoanPeriodDays < 1 {
		return fmt.Errorf("policy.loan_period_days = %d, must be at least 1", c.Policy.LoanPeriodDays)
	}
	if c.Policy.OverdueDailyRate < 0 {
		return fmt.Errorf("policy.overdue_daily_rate = %g, must not be negative", c.Policy.OverdueDailyRate)
	}
	if c.Policy.DamagedFactor < 0 || c.Policy.LostFactor < 0 {
		return errors.New("policy damage factors must not be negative")
	}
	if c.Policy.LoanCodePrefix == "" || c.Policy.FineCodePrefix == "" {
		return errors.New("policy code prefixes must not be empty")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port = %d, out of range", c.API.Port)
	}
	return nil
}
