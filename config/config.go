package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. ROUTEDB_LOG_LEVEL.
const EnvPrefix = "ROUTEDB"

// Engine kinds understood by the factories in the root package.
const (
	KindMemory   = "memory"
	KindShared   = "shared"
	KindGit      = "git"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindDuckDB   = "duckdb"
)

type Config struct {
	// Default names the engine used for statements no table routes.
	Default string         `mapstructure:"default" yaml:"default"`
	Engines []EngineConfig `mapstructure:"engines" yaml:"engines" validate:"unique=Name,dive"`
	Log     LogConfig      `mapstructure:"log" yaml:"log"`
	Server  ServerConfig   `mapstructure:"server" yaml:"server"`
}

type EngineConfig struct {
	Name string `mapstructure:"name" yaml:"name" validate:"required"`
	Kind string `mapstructure:"kind" yaml:"kind" validate:"required,oneof=memory shared git sqlite postgres duckdb"`
	// Path is the git repository directory. Empty keeps the repository
	// in memory.
	Path string `mapstructure:"path" yaml:"path,omitempty"`
	// DSN is the data source for sqlite, postgres and duckdb.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty" validate:"required_if=Kind sqlite,required_if=Kind postgres"`
	// Share is the process-wide name of a shared store; defaults to Name.
	Share string `mapstructure:"share" yaml:"share,omitempty"`
	// Adopt binds the engine's existing tables to it at startup.
	Adopt bool `mapstructure:"adopt" yaml:"adopt,omitempty"`
	// AuthorName and AuthorEmail sign the commits of a git engine.
	AuthorName  string `mapstructure:"author_name" yaml:"author_name,omitempty" validate:"required_with=AuthorEmail"`
	AuthorEmail string `mapstructure:"author_email" yaml:"author_email,omitempty" validate:"omitempty,email,required_with=AuthorName"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=console json"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	HTTPAddr  string `mapstructure:"http_addr" yaml:"http_addr"`
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`
	JWTIssuer string `mapstructure:"jwt_issuer" yaml:"jwt_issuer,omitempty"`
	// MaxConns bounds concurrently served protocol connections.
	MaxConns int `mapstructure:"max_conns" yaml:"max_conns" validate:"gte=0"`
	// RateLimit is the HTTP API's sustained request rate per second;
	// zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst" validate:"gte=0"`
}

// Default mirrors the browser build: an in-memory default engine plus a
// shared "sessionStorage" and a git-backed in-memory "localStorage".
func Default() *Config {
	return &Config{
		Default: "memory",
		Engines: []EngineConfig{
			{Name: "memory", Kind: KindMemory},
			{Name: "sessionStorage", Kind: KindShared},
			{Name: "localStorage", Kind: KindGit},
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Server: ServerConfig{
			Addr:     "127.0.0.1:3306",
			HTTPAddr: "127.0.0.1:8080",
			MaxConns: 64,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("default", "")
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.http_addr", d.Server.HTTPAddr)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.jwt_issuer", "")
	v.SetDefault("server.max_conns", d.Server.MaxConns)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 0)
}

// Load reads the YAML file at path, if any, and applies ROUTEDB_*
// environment overrides. A configuration without engines gets the
// default engine set.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Engines) == 0 {
		d := Default()
		cfg.Engines = d.Engines
		if cfg.Default == "" {
			cfg.Default = d.Default
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field rules and that Default names a configured engine.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			messages := make([]string, 0, len(fieldErrs))
			for _, fieldErr := range fieldErrs {
				messages = append(messages, fmt.Sprintf("%s failed %q", fieldErr.Namespace(), fieldErr.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(messages, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Default != "" {
		if _, ok := c.Engine(c.Default); !ok {
			return fmt.Errorf("invalid config: default engine %q is not configured", c.Default)
		}
	}
	return nil
}

// Engine returns the configuration of the named engine.
func (c *Config) Engine(name string) (EngineConfig, bool) {
	for _, engine := range c.Engines {
		if engine.Name == name {
			return engine, true
		}
	}
	return EngineConfig{}, false
}

// Write encodes cfg as YAML.
func Write(w io.Writer, cfg *Config) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return encoder.Close()
}
