package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration of playcore
type Config struct {
	Player   PlayerConfig   `mapstructure:"player"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Progress ProgressConfig `mapstructure:"progress"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Advanced AdvancedConfig `mapstructure:"advanced"`
}

// PlayerConfig tunes the adapters and the dub synchronizer
type PlayerConfig struct {
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryStep         time.Duration `mapstructure:"retry_step"`
	StallGrace        time.Duration `mapstructure:"stall_grace"`
	StallCap          int           `mapstructure:"stall_cap"`
	StallWindow       time.Duration `mapstructure:"stall_window"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	EmbedPollInterval time.Duration `mapstructure:"embed_poll_interval"`
	DriftTolerance    float64       `mapstructure:"drift_tolerance"`
	DuckVolume        int           `mapstructure:"duck_volume"`
	ResumeThreshold   float64       `mapstructure:"resume_threshold"`
	Volume            int           `mapstructure:"volume"`
	MPVPath           string        `mapstructure:"mpv_path"`
	LoadUserConfig    bool          `mapstructure:"load_user_config"`
	Mobile            bool          `mapstructure:"mobile"`
}

// SourcesConfig extends the source classifier. Empty lists keep the built-in
// defaults.
type SourcesConfig struct {
	StorageHosts    []string `mapstructure:"storage_hosts"`
	MediaExtensions []string `mapstructure:"media_extensions"`
}

// APIConfig points at the asset and dubbed-track resolver service
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig configures the local sqlite store
type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
	WALMode        bool   `mapstructure:"wal_mode"`
	AutoVacuum     bool   `mapstructure:"auto_vacuum"`
}

// LoggingConfig configures slog output and rotation
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text or json
	File       string `mapstructure:"file"`
	Color      bool   `mapstructure:"color"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// ProgressConfig controls how often watch progress is persisted
type ProgressConfig struct {
	ReportInterval     time.Duration `mapstructure:"report_interval"`
	CompletedThreshold float64       `mapstructure:"completed_threshold"`
}

// MetricsConfig enables the prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// CatalogConfig locates the movie catalog file
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// AdvancedConfig holds debugging switches
type AdvancedConfig struct {
	Debug bool `mapstructure:"debug"`
	// ClipboardCommand receives copied text on stdin when the system
	// clipboard is unavailable, e.g. "wl-copy" or "clip.exe".
	ClipboardCommand string `mapstructure:"clipboard_command"`
}

// defaults is the single source for viper defaults and the generated config
// file. Durations are strings so the written file stays readable.
func defaults() map[string]any {
	return map[string]any{
		"player.max_retries":         3,
		"player.retry_step":          "1s",
		"player.stall_grace":         "3s",
		"player.stall_cap":           3,
		"player.stall_window":        "1m",
		"player.poll_interval":       "250ms",
		"player.embed_poll_interval": "500ms",
		"player.drift_tolerance":     0.3,
		"player.duck_volume":         10,
		"player.resume_threshold":    0.85,
		"player.volume":              100,
		"player.mpv_path":            "mpv",
		"player.load_user_config":    false,
		"player.mobile":              false,

		"sources.storage_hosts":    []string{},
		"sources.media_extensions": []string{},

		"api.base_url": "http://localhost:8080",
		"api.timeout":  "15s",

		"database.path":            filepath.Join(GetDataDir(), "playcore.db"),
		"database.max_connections": 4,
		"database.wal_mode":        true,
		"database.auto_vacuum":     true,

		"logging.level":       "info",
		"logging.format":      "text",
		"logging.file":        "",
		"logging.color":       true,
		"logging.max_size":    10,
		"logging.max_backups": 3,
		"logging.max_age":     28,
		"logging.compress":    true,

		"progress.report_interval":     "5s",
		"progress.completed_threshold": 0.9,

		"metrics.addr": "",

		"catalog.path": filepath.Join(GetConfigDir(), "movies.yaml"),

		"advanced.debug":             false,
		"advanced.clipboard_command": "",
	}
}

// SetDefaults registers every default value on v
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
}

// Load reads configuration from path, or from the default config directory
// when path is empty. A missing file is not an error.
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(GetConfigDir())
	}

	v.SetEnvPrefix("PLAYCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Decode unmarshals and validates the current state of v. It is used again
// on hot reload.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.Player.MaxRetries < 0 {
		errs = append(errs, errors.New("player.max_retries must not be negative"))
	}
	if c.Player.RetryStep <= 0 {
		errs = append(errs, errors.New("player.retry_step must be positive"))
	}
	if c.Player.DriftTolerance <= 0 {
		errs = append(errs, errors.New("player.drift_tolerance must be positive"))
	}
	if c.Player.DuckVolume < 0 || c.Player.DuckVolume > 100 {
		errs = append(errs, errors.New("player.duck_volume must be within 0-100"))
	}
	if c.Player.Volume < 0 || c.Player.Volume > 100 {
		errs = append(errs, errors.New("player.volume must be within 0-100"))
	}
	if c.Player.ResumeThreshold <= 0 || c.Player.ResumeThreshold > 1 {
		errs = append(errs, errors.New("player.resume_threshold must be within (0, 1]"))
	}
	if c.Progress.CompletedThreshold <= 0 || c.Progress.CompletedThreshold > 1 {
		errs = append(errs, errors.New("progress.completed_threshold must be within (0, 1]"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json", "":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not text or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// GetConfigDir returns the playcore configuration directory
func GetConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "playcore")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "playcore")
	}
	return filepath.Join(".", ".playcore")
}

// GetDataDir returns the directory holding the database
func GetDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "playcore")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "playcore")
	}
	return filepath.Join(".", ".playcore")
}

func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state")
	}
	return "."
}

// InitializeDirs creates the config, data and state directories
func InitializeDirs() error {
	dirs := []string{
		GetConfigDir(),
		GetDataDir(),
		filepath.Join(getStateDir(), "playcore"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SaveDefaultConfig writes the default configuration as YAML to path. An
// existing file is left untouched.
func SaveDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(nestDefaults())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// nestDefaults turns dotted keys into a sectioned document with sorted keys.
func nestDefaults() *yaml.Node {
	sections := map[string]map[string]any{}
	for key, value := range defaults() {
		section, name, _ := strings.Cut(key, ".")
		if sections[section] == nil {
			sections[section] = map[string]any{}
		}
		sections[section][name] = value
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, section := range sortedKeys(sections) {
		body := &yaml.Node{Kind: yaml.MappingNode}
		for _, name := range sortedKeys(sections[section]) {
			var value yaml.Node
			_ = value.Encode(sections[section][name])
			body.Content = append(body.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: name},
				&value,
			)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: section},
			body,
		)
	}
	return root
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
