// Package config loads server configuration from an optional YAML file with
// CHITFUND_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/warp/chitfund/logging"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendMemory = "memory"
)

// DefaultBackupCron runs the daily backup at 02:00.
const DefaultBackupCron = "0 0 2 * * *"

// CronParser accepts the six-field (seconds first) expressions and
// descriptors such as "@daily".
var CronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Config struct {
	Port int `yaml:"port"`

	Store struct {
		Backend    string `yaml:"backend"`
		SQLitePath string `yaml:"sqlite_path"`
		JSONPath   string `yaml:"json_path"`
	} `yaml:"store"`

	Auth struct {
		AdminPassword string `yaml:"admin_password"`
	} `yaml:"auth"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	HTTP struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`

	Sheets struct {
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SheetName       string `yaml:"sheet_name"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"sheets"`

	// Backup.Dir empty disables scheduled backups. Cron has a seconds field.
	Backup struct {
		Dir  string `yaml:"dir"`
		Cron string `yaml:"cron"`
	} `yaml:"backup"`
}

// Load reads path (a missing file is fine), applies environment overrides and
// fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.Port = getEnvInt("CHITFUND_PORT", cfg.Port)
	cfg.Store.Backend = getEnv("CHITFUND_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.SQLitePath = getEnv("CHITFUND_SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.JSONPath = getEnv("CHITFUND_JSON_PATH", cfg.Store.JSONPath)
	cfg.Auth.AdminPassword = getEnv("CHITFUND_ADMIN_PASSWORD", cfg.Auth.AdminPassword)
	cfg.Log.Level = getEnv("CHITFUND_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("CHITFUND_LOG_FORMAT", cfg.Log.Format)
	if v := os.Getenv("CHITFUND_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	cfg.Sheets.SpreadsheetID = getEnv("CHITFUND_SHEETS_SPREADSHEET_ID", cfg.Sheets.SpreadsheetID)
	cfg.Sheets.SheetName = getEnv("CHITFUND_SHEETS_SHEET_NAME", cfg.Sheets.SheetName)
	cfg.Sheets.CredentialsFile = getEnv("CHITFUND_SHEETS_CREDENTIALS_FILE", cfg.Sheets.CredentialsFile)
	cfg.Backup.Dir = getEnv("CHITFUND_BACKUP_DIR", cfg.Backup.Dir)
	cfg.Backup.Cron = getEnv("CHITFUND_BACKUP_CRON", cfg.Backup.Cron)

	// Defaults
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendSQLite
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "chitfund.db"
	}
	if cfg.Store.JSONPath == "" {
		cfg.Store.JSONPath = "data/chitfunds.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Backup.Cron == "" {
		cfg.Backup.Cron = DefaultBackupCron
	}

	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite backend")
		}
	case BackendJSON:
		if c.Store.JSONPath == "" {
			problems = append(problems, "store.json_path is required for the json backend")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid store.backend %q: must be sqlite, json or memory", c.Store.Backend))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		problems = append(problems, fmt.Sprintf("invalid log.format %q: must be text or json", c.Log.Format))
	}
	if c.Sheets.CredentialsFile != "" {
		if _, err := os.Stat(c.Sheets.CredentialsFile); err != nil {
			problems = append(problems, fmt.Sprintf("sheets.credentials_file not readable: %s", c.Sheets.CredentialsFile))
		}
	}
	if _, err := CronParser.Parse(c.Backup.Cron); err != nil {
		problems = append(problems, fmt.Sprintf("invalid backup.cron %q: %v", c.Backup.Cron, err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// SheetsEnabled reports whether a spreadsheet is configured for export.
func (c *Config) SheetsEnabled() bool {
	return strings.TrimSpace(c.Sheets.SpreadsheetID) != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
