// Package config loads SpeedSplit settings with viper. Settings come from
// defaults, then settings.yaml, then SPEEDSPLIT_* environment variables,
// then command line flags bound by the cmd package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Logging      LoggingConfig      `mapstructure:"logging"`
	Timer        TimerConfig        `mapstructure:"timer"`
	AutoSplitter AutoSplitterConfig `mapstructure:"auto_splitter"`
	Control      ControlConfig      `mapstructure:"control"`
	Keybinds     KeybindConfig      `mapstructure:"keybinds"`
	History      HistoryConfig      `mapstructure:"history"`
	Sound        SoundConfig        `mapstructure:"sound"`
	Save         SaveConfig         `mapstructure:"save"`
	Headless     bool               `mapstructure:"headless"`

	mu sync.Mutex
	v  *viper.Viper
	// file holds only what settings.yaml itself says, so remembering a
	// value never writes flags, environment or defaults back to disk.
	file *viper.Viper
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// TimerConfig holds the control loop periods
type TimerConfig struct {
	LogicInterval  time.Duration `mapstructure:"logic_interval"`
	RenderInterval time.Duration `mapstructure:"render_interval"`
	Decimals       int           `mapstructure:"decimals"`
}

// AutoSplitterConfig holds auto splitter configuration
type AutoSplitterConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Script       string        `mapstructure:"script"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	SwapTimeout  time.Duration `mapstructure:"swap_timeout"`
}

// ControlConfig holds the command socket configuration
type ControlConfig struct {
	Socket        string `mapstructure:"socket"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

// KeybindConfig maps actions to key names as reported by the window
type KeybindConfig struct {
	StartSplit string `mapstructure:"start_split"`
	StopReset  string `mapstructure:"stop_reset"`
	Cancel     string `mapstructure:"cancel"`
	Unsplit    string `mapstructure:"unsplit"`
	Skip       string `mapstructure:"skip"`
}

// HistoryConfig remembers what was last opened
type HistoryConfig struct {
	SplitFile string `mapstructure:"split_file"`
}

// SoundConfig holds audio cue configuration
type SoundConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	SplitFile string `mapstructure:"split_file"`
	BestFile  string `mapstructure:"best_file"`
}

// SaveConfig holds run saving behaviour
type SaveConfig struct {
	// AutoConfirm answers confirmation prompts when no window is shown.
	AutoConfirm bool `mapstructure:"auto_confirm"`
}

// DefaultPath returns $XDG_CONFIG_HOME/speedsplit/settings.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "speedsplit", "settings.yaml")
}

// DefaultSocket returns the command socket path under the runtime dir.
func DefaultSocket() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "speedsplit.sock")
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("timer.logic_interval", "1ms")
	v.SetDefault("timer.render_interval", "33ms")
	v.SetDefault("timer.decimals", 2)

	v.SetDefault("auto_splitter.enabled", false)
	v.SetDefault("auto_splitter.script", "")
	v.SetDefault("auto_splitter.poll_interval", "50ms")
	v.SetDefault("auto_splitter.swap_timeout", "1s")

	v.SetDefault("control.socket", DefaultSocket())
	v.SetDefault("control.rate_per_second", 50)

	v.SetDefault("keybinds.start_split", "Space")
	v.SetDefault("keybinds.stop_reset", "BackSpace")
	v.SetDefault("keybinds.cancel", "Delete")
	v.SetDefault("keybinds.unsplit", "Prior")
	v.SetDefault("keybinds.skip", "Next")

	v.SetDefault("history.split_file", "")

	v.SetDefault("sound.enabled", true)
	v.SetDefault("sound.split_file", "")
	v.SetDefault("sound.best_file", "")

	v.SetDefault("save.auto_confirm", false)
	v.SetDefault("headless", false)
}

// Load reads the configuration from cfgFile (DefaultPath if empty) using v,
// which may already have flags bound. A missing file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	if cfgFile == "" {
		cfgFile = DefaultPath()
	}
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SPEEDSPLIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}

	file, err := readFile(cfgFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{v: v, file: file}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile loads settings.yaml on its own, without defaults or overrides.
func readFile(path string) (*viper.Viper, error) {
	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	return file, nil
}

func (c *Config) validate() error {
	if c.Timer.LogicInterval <= 0 {
		return fmt.Errorf("timer.logic_interval must be positive, got %s", c.Timer.LogicInterval)
	}
	if c.Timer.RenderInterval <= 0 {
		return fmt.Errorf("timer.render_interval must be positive, got %s", c.Timer.RenderInterval)
	}
	if c.AutoSplitter.PollInterval <= 0 {
		return fmt.Errorf("auto_splitter.poll_interval must be positive, got %s", c.AutoSplitter.PollInterval)
	}
	if c.AutoSplitter.SwapTimeout <= 0 {
		return fmt.Errorf("auto_splitter.swap_timeout must be positive, got %s", c.AutoSplitter.SwapTimeout)
	}
	return nil
}

// Set stores a value in memory and marks it to be written by the next
// Write. Flags bound for this run are not affected.
func (c *Config) Set(key string, value any) error {
	if c.v == nil || c.file == nil {
		return errors.New("config not loaded")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v.Set(key, value)
	c.file.Set(key, value)
	return nil
}

// Write saves the remembered values to the config file, creating its
// directory when needed. Only keys read from the file or stored with Set
// are written.
func (c *Config) Write() error {
	if c.file == nil {
		return errors.New("config not loaded")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.v.ConfigFileUsed()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := c.file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Remember stores a value and writes the config file. It is used for
// history entries and toggles that should survive a restart.
func (c *Config) Remember(key string, value any) error {
	if err := c.Set(key, value); err != nil {
		return err
	}
	return c.Write()
}
