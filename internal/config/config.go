// Package config loads ganttform settings from defaults, the project config
// file, a .env file and GANTTFORM_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ldi/ganttform/internal/scheduler"
	"github.com/spf13/viper"
)

const (
	// Dir is the per-project directory holding config, history and logs.
	Dir = ".ganttform"

	EnvPrefix = "GANTTFORM"

	DefaultBaseURL = scheduler.DefaultBaseURL
	DefaultTimeout = scheduler.DefaultTimeout
	DefaultWebPort = "8080"
)

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	History HistoryConfig `mapstructure:"history"`
	Web     WebConfig     `mapstructure:"web"`
	Form    FormConfig    `mapstructure:"form"`
}

// APIConfig points at the scheduling service.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds each request; zero disables it.
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Path of the log file used by the terminal form. Other commands log to stderr.
	Path string `mapstructure:"path"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type HistoryConfig struct {
	// SnapshotPath, when set, receives a JSONL export after every history write.
	SnapshotPath string `mapstructure:"snapshot_path"`
}

type WebConfig struct {
	Port string `mapstructure:"port"`
}

type FormConfig struct {
	// ClearAfterSubmit empties the task list after a successful round trip.
	ClearAfterSubmit bool `mapstructure:"clear_after_submit"`
}

func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(Dir, "ganttform.log"),
		},
		DB: DBConfig{
			Path: filepath.Join(Dir, "history.db"),
		},
		History: HistoryConfig{},
		Web: WebConfig{
			Port: DefaultWebPort,
		},
	}
}

// SetDefaults registers the default values with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("history.snapshot_path", d.History.SnapshotPath)
	v.SetDefault("web.port", d.Web.Port)
	v.SetDefault("form.clear_after_submit", d.Form.ClearAfterSubmit)
}

// Load reads the configuration. configFile overrides the default lookup of
// config.json in the project directory; a missing default file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(Dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("invalid config: api.base_url must not be empty")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("invalid config: api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("invalid config: api.timeout must not be negative")
	}
	if c.Web.Port == "" {
		return fmt.Errorf("invalid config: web.port must not be empty")
	}
	return nil
}
