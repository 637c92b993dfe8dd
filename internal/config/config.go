package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/habitloop/internal/constants"
	"github.com/julianstephens/habitloop/internal/cycle"
	"github.com/julianstephens/habitloop/internal/utils"
)

const redacted = "********"

type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Cycle    CycleConfig    `mapstructure:"cycle" yaml:"cycle"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Extract  ExtractConfig  `mapstructure:"extract" yaml:"extract"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type DatabaseConfig struct {
	// DSN is a SQLite file path or a postgres:// URL.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

type CycleConfig struct {
	ResetHour int    `mapstructure:"reset_hour" yaml:"reset_hour"`
	Timezone  string `mapstructure:"timezone" yaml:"timezone"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

type ExtractConfig struct {
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	Model   string        `mapstructure:"model" yaml:"model"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LogConfig struct {
	Debug  bool   `mapstructure:"debug" yaml:"debug"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultPath is the config file read when none is given.
func DefaultPath() string {
	return filepath.Join(constants.DefaultConfigDir, constants.DefaultConfigFile)
}

// DefaultDSN is the SQLite file used when database.dsn is unset.
func DefaultDSN() string {
	return filepath.Join(constants.DefaultConfigDir, constants.DefaultDBFile)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", constants.DefaultServerAddr)
	v.SetDefault("database.dsn", DefaultDSN())
	v.SetDefault("cycle.reset_hour", constants.DefaultResetHour)
	v.SetDefault("cycle.timezone", constants.DefaultTimezone)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", constants.DefaultTokenIssuer)
	v.SetDefault("auth.token_ttl", constants.DefaultTokenTTL)
	v.SetDefault("extract.api_key", "")
	v.SetDefault("extract.model", constants.DefaultExtractModel)
	v.SetDefault("extract.base_url", constants.DefaultExtractBaseURL)
	v.SetDefault("extract.timeout", constants.DefaultExtractTimeout)
	v.SetDefault("log.debug", false)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.format", "text")
}

// Load merges defaults, the YAML file at path and HABITLOOP_* environment
// variables, in increasing precedence. An empty path reads DefaultPath and
// tolerates it being absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	expanded, err := utils.ExpandPath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(expanded); err == nil {
		v.SetConfigFile(expanded)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", expanded, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config %s: %w", expanded, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn cannot be empty")
	}
	if c.Cycle.ResetHour < 0 || c.Cycle.ResetHour > 23 {
		return fmt.Errorf("cycle.reset_hour must be between 0 and 23, got %d", c.Cycle.ResetHour)
	}
	if err := utils.ValidateTimezone(c.Cycle.Timezone); err != nil {
		return fmt.Errorf("cycle.timezone: %w", err)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Extract.Timeout <= 0 {
		return fmt.Errorf("extract.timeout must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("log.format must be text, json or logfmt, got %q", c.Log.Format)
	}
	return nil
}

// Engine builds the cycle engine for the configured reset hour and zone.
func (c *Config) Engine() (cycle.Engine, error) {
	loc, err := utils.LoadLocation(c.Cycle.Timezone)
	if err != nil {
		return cycle.Engine{}, err
	}
	return cycle.New(c.Cycle.ResetHour, loc)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Auth.Secret != "" {
		c.Auth.Secret = redacted
	}
	if c.Extract.APIKey != "" {
		c.Extract.APIKey = redacted
	}
	if strings.HasPrefix(c.Database.DSN, "postgres://") || strings.HasPrefix(c.Database.DSN, "postgresql://") {
		c.Database.DSN = redactURLPassword(c.Database.DSN)
	}
	return c
}

func redactURLPassword(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return dsn
	}
	return dsn[:scheme+3] + userinfo[:colon+1] + redacted + dsn[at:]
}

// YAML renders the redacted config.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}
