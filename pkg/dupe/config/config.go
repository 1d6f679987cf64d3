package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

// AppName names the config, state and log directories.
const AppName = "dupe"

// EnvPrefix prefixes environment overrides, e.g. DUPE_MIN_SIZE.
const EnvPrefix = "DUPE"

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// HashConfig configures the hashing stage.
type HashConfig struct {
	Algorithm string `mapstructure:"algorithm"`
	ChunkSize string `mapstructure:"chunk_size"`
}

// Config represents the application configuration.
type Config struct {
	DefaultPath    string   `mapstructure:"default_path"`
	Recursive      bool     `mapstructure:"recursive"`
	FollowSymlinks bool     `mapstructure:"follow_symlinks"`
	MinSize        string   `mapstructure:"min_size"`
	Exclude        []string `mapstructure:"exclude"`
	Workers        struct {
		Dir  int `mapstructure:"dir"`
		Hash int `mapstructure:"hash"`
	} `mapstructure:"workers"`
	MaxInFlight int           `mapstructure:"max_in_flight"`
	Hash        HashConfig    `mapstructure:"hash"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Output      string        `mapstructure:"output"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// MinSizeBytes parses MinSize.
func (c *Config) MinSizeBytes() (int64, error) {
	n, err := types.ParseSize(c.MinSize)
	if err != nil {
		return 0, fmt.Errorf("min_size: %w", err)
	}
	return n, nil
}

// ChunkSizeBytes parses Hash.ChunkSize.
func (c *Config) ChunkSizeBytes() (int64, error) {
	n, err := types.ParseSize(c.Hash.ChunkSize)
	if err != nil {
		return 0, fmt.Errorf("hash.chunk_size: %w", err)
	}
	return n, nil
}

// New returns a viper instance with defaults, search paths and environment
// binding configured. Commands bind their flags to it before calling Decode.
func New() *viper.Viper {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("default_path", DefaultPath)
	v.SetDefault("recursive", DefaultRecursive)
	v.SetDefault("follow_symlinks", DefaultFollowSymlinks)
	v.SetDefault("min_size", DefaultMinSize)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("workers.dir", AutoTune)
	v.SetDefault("workers.hash", AutoTune)
	v.SetDefault("max_in_flight", AutoTune)
	v.SetDefault("hash.algorithm", DefaultAlgorithm)
	v.SetDefault("hash.chunk_size", DefaultChunkSize)
	v.SetDefault("idle_timeout", DefaultIdleTimeout)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.components", map[string]string{
		"scanner": "info",
		"hasher":  "info",
		"engine":  "info",
		"cli":     "info",
	})
}

// Read loads the config file into v. A missing file is not an error.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// Decode unmarshals v into a Config.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Logging.Path != "" {
		path, err := ExpandPath(cfg.Logging.Path)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Path = path
	}
	return &cfg, nil
}

// ConfigDir returns $XDG_CONFIG_HOME/dupe.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ConfigPath returns the path of the main config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns $XDG_STATE_HOME/dupe/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), AppName+".log")
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	if err := os.MkdirAll(ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// ErrConfigExists is returned by WriteDefault when a config file is present.
var ErrConfigExists = errors.New("config file already exists")

// WriteDefault writes a commented default config file and returns its path.
// It returns ErrConfigExists if a file is already there.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	path := ConfigPath()
	if _, err := os.Stat(path); err == nil {
		return path, ErrConfigExists
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.WriteFile(path, []byte(DefaultFile()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return path, nil
}

// DefaultFile renders the default config file contents.
func DefaultFile() string {
	return fmt.Sprintf(`# dupe duplicate finder configuration

# Path to scan when none is given on the command line
default_path: %s

# Descend into subdirectories
recursive: %t

# Resolve symbolic links instead of skipping them
follow_symlinks: %t

# Ignore files smaller than this (e.g. 4K, 1MiB). 0 keeps everything.
min_size: %q

# Glob patterns or path prefixes to skip
exclude:
  - /proc
  - /sys
  - /dev

# Worker pool configuration (0 picks a value from CPU count, max 64)
workers:
  dir: %d
  hash: %d

# Upper bound on outstanding tasks per stage (0 sizes it from free memory)
max_in_flight: %d

hash:
  # sha1, sha256 or xxhash
  algorithm: %s
  chunk_size: %s

# Abort a run when no progress was seen for this long (0s disables)
idle_timeout: %s

# Result format: pretty, plain, json, jsonl, yaml, paths
output: %s

logging:
  # Log level: debug, info, warn, error
  level: %s
  # Log file path (empty means use default: $XDG_STATE_HOME/dupe/dupe.log)
  path: ""
  rotation:
    max_size: 10MB
    max_backups: 3
  # Per-component log levels
  components:
    scanner: info
    hasher: info
    engine: info
    cli: info
`, DefaultPath, DefaultRecursive, DefaultFollowSymlinks, DefaultMinSize,
		AutoTune, AutoTune, AutoTune,
		DefaultAlgorithm, DefaultChunkSize, DefaultIdleTimeout, DefaultOutput, DefaultLogLevel)
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
