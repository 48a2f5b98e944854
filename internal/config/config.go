package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; defaults apply when a variable is unset.
type Config struct {
	Env            string `env:"APP_ENV" envDefault:"dev"`                       // application environment (e.g. "dev", "prod")
	Port           string `env:"APP_PORT" envDefault:"8080"`                     // HTTP port to listen on
	CatalogPath    string `env:"CATALOG_PATH" envDefault:"lockers.xlsx"`         // locker catalog spreadsheet
	CatalogSheet   string `env:"CATALOG_SHEET"`                                  // worksheet to read; empty means the first
	StorePath      string `env:"STORE_PATH" envDefault:"locker_records.csv"`     // registry store file
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`                    // debug, info, warn or error
	LogFormat      string `env:"LOG_FORMAT" envDefault:"json"`                   // json or console
	ExportFilename string `env:"EXPORT_FILENAME" envDefault:"lockers.xlsx"`      // download name of spreadsheet exports
}

// Load reads configuration from the environment.  Variables found in the
// given dotenv files (".env" when none are named) are applied first without
// overriding variables already set; missing files are skipped.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid APP_PORT %q", c.Port)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	if c.CatalogPath == "" {
		return errors.New("CATALOG_PATH must not be empty")
	}
	if c.StorePath == "" {
		return errors.New("STORE_PATH must not be empty")
	}
	return nil
}
