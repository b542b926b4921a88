package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// MigrationConfig holds the full TOML-driven configuration.
type MigrationConfig struct {
	Source        SourceConfig      `toml:"source"`
	Target        TargetConfig      `toml:"target"`
	Server        ServerConfig      `toml:"server"`
	Log           LogConfig         `toml:"log"`
	Schema        string            `toml:"schema"`
	SyncSequences bool              `toml:"sync_sequences"`
	Hooks         HooksConfig       `toml:"hooks"`
	TypeMapping   TypeMappingConfig `toml:"type_mapping"`

	// configDir is the directory containing the TOML file, used to resolve relative SQL paths.
	configDir string
}

// SourceConfig identifies the source database engine and connection string.
type SourceConfig struct {
	Type  string `toml:"type"` // "oracle", "mysql" or "sqlite"
	DSN   string `toml:"dsn"`
	Owner string `toml:"owner"` // Oracle schema owning the tables; default is the session's schema
}

type TargetConfig struct {
	DSN      string `toml:"dsn"`
	MaxConns int32  `toml:"max_conns"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json|console
}

type HooksConfig struct {
	BeforeData []string `toml:"before_data"`
	AfterData  []string `toml:"after_data"`
	BeforeFk   []string `toml:"before_fk"`
	AfterAll   []string `toml:"after_all"`
}

// TypeMappingConfig extends or replaces entries of the source dialect's type table.
type TypeMappingConfig struct {
	Overrides map[string]string `toml:"overrides"`
}

// overrideKeys are the viper keys that can replace config file values, from
// command-line flags or TABLEFERRY_* environment variables.
var overrideKeys = []string{"source-dsn", "target-dsn", "listen", "log-level"}

// loadConfig reads a TOML config file, applies overrides from v (which may
// be nil) and returns a validated MigrationConfig with defaults applied.
func loadConfig(path string, v *viper.Viper) (*MigrationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := MigrationConfig{
		Schema:        "public",
		SyncSequences: true,
		Target:        TargetConfig{MaxConns: 4},
		Server:        ServerConfig{Listen: ":8080"},
		Log:           LogConfig{Level: "info", Format: "json"},
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	cfg.applyOverrides(v)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *MigrationConfig) applyOverrides(v *viper.Viper) {
	if v == nil {
		return
	}
	if s := v.GetString("source-dsn"); s != "" {
		c.Source.DSN = s
	}
	if s := v.GetString("target-dsn"); s != "" {
		c.Target.DSN = s
	}
	if s := v.GetString("listen"); s != "" {
		c.Server.Listen = s
	}
	if s := v.GetString("log-level"); s != "" {
		c.Log.Level = s
	}
}

func (c *MigrationConfig) validate() error {
	c.Schema = strings.TrimSpace(c.Schema)
	if c.Schema == "" {
		return fmt.Errorf("schema is required")
	}

	if c.Source.Type == "" {
		return fmt.Errorf("source.type is required (must be oracle, mysql or sqlite)")
	}
	if _, err := newSourceDB(c.Source); err != nil {
		return err
	}
	if c.Source.DSN == "" {
		return fmt.Errorf("source.dsn is required")
	}
	if c.Source.Owner != "" && c.Source.Type != "oracle" {
		return fmt.Errorf("source.owner is an Oracle-only option")
	}

	if c.Target.DSN == "" {
		return fmt.Errorf("target.dsn is required")
	}
	if c.Target.MaxConns <= 0 {
		return fmt.Errorf("target.max_conns must be positive")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be one of: json, console")
	}

	for k, v := range c.TypeMapping.Overrides {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			return fmt.Errorf("type_mapping.overrides entries must have a source and a target type")
		}
	}
	return nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *MigrationConfig) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}
