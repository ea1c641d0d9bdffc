package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/entities/internal/core/observability/log"
)

// EnvConfig names the environment variable consulted when no path is given.
const EnvConfig = "ENTITIES_CONFIG"

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the root of the sandbox configuration file.
type Config struct {
	Log       LogConfig       `yaml:"log" toml:"log"`
	Scene     SceneConfig     `yaml:"scene" toml:"scene"`
	Prefabs   PrefabConfig    `yaml:"prefabs" toml:"prefabs"`
	Inspector InspectorConfig `yaml:"inspector" toml:"inspector"`
}

type LogConfig struct {
	Level    string `yaml:"level" toml:"level"`
	Encoding string `yaml:"encoding" toml:"encoding"`
}

type SceneConfig struct {
	Name          string        `yaml:"name" toml:"name"`
	FrameInterval time.Duration `yaml:"frame_interval" toml:"frame_interval"`
}

type PrefabConfig struct {
	// Dir holds *.yaml prefab files. Empty disables loading.
	Dir string `yaml:"dir" toml:"dir"`
	// Spawn lists prefabs instantiated into the scene at start-up.
	Spawn []string `yaml:"spawn" toml:"spawn"`
}

type InspectorConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
}

func Default() *Config {
	return &Config{
		Log:       LogConfig{Level: "info", Encoding: "console"},
		Scene:     SceneConfig{Name: "sandbox", FrameInterval: 50 * time.Millisecond},
		Inspector: InspectorConfig{Addr: ":8089"},
	}
}

// Load reads path over the defaults. Files ending in .toml are parsed as
// TOML, anything else as YAML. An empty path falls back to $ENTITIES_CONFIG;
// if that is empty too the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		unmarshal = toml.Unmarshal
	}
	if err = unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	if c.Log.Encoding != "console" && c.Log.Encoding != "json" {
		return fmt.Errorf("%w: log.encoding %q", ErrInvalidConfig, c.Log.Encoding)
	}
	if c.Scene.FrameInterval <= 0 {
		return fmt.Errorf("%w: scene.frame_interval must be positive", ErrInvalidConfig)
	}
	if c.Inspector.Enabled && c.Inspector.Addr == "" {
		return fmt.Errorf("%w: inspector.addr is required when enabled", ErrInvalidConfig)
	}
	return nil
}

// Logger converts the log section to the logger's own config.
func (c *Config) Logger() (log.Config, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.Config{}, err
	}
	lc := log.DefaultConfig()
	lc.Level = level
	lc.Encoding = c.Log.Encoding
	return lc, nil
}
