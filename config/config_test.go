package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, time.Millisecond, cfg.Timer.LogicInterval)
	assert.Equal(t, 33*time.Millisecond, cfg.Timer.RenderInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.AutoSplitter.PollInterval)
	assert.Equal(t, time.Second, cfg.AutoSplitter.SwapTimeout)
	assert.False(t, cfg.AutoSplitter.Enabled)
	assert.Equal(t, "Space", cfg.Keybinds.StartSplit)
	assert.Equal(t, 50, cfg.Control.RatePerSecond)
	assert.True(t, cfg.Sound.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timer:
  render_interval: 16ms
auto_splitter:
  enabled: true
  script: /tmp/game.js
keybinds:
  skip: F5
`), 0o644))
	t.Setenv("SPEEDSPLIT_CONTROL_RATE_PER_SECOND", "7")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 16*time.Millisecond, cfg.Timer.RenderInterval)
	assert.True(t, cfg.AutoSplitter.Enabled)
	assert.Equal(t, "/tmp/game.js", cfg.AutoSplitter.Script)
	assert.Equal(t, "F5", cfg.Keybinds.Skip)
	assert.Equal(t, 7, cfg.Control.RatePerSecond)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timer:\n  logic_interval: 0s\n"), 0o644))
	_, err := Load(viper.New(), path)
	assert.ErrorContains(t, err, "logic_interval")

	require.NoError(t, os.WriteFile(path, []byte("timer: [unclosed\n"), 0o644))
	_, err = Load(viper.New(), path)
	assert.Error(t, err)
}

func TestRemember(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	require.NoError(t, cfg.Remember("history.split_file", "/runs/any.json"))

	reloaded, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/runs/any.json", reloaded.History.SplitFile)
}

func TestRememberWritesOnlyFileSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keybinds:\n  skip: F5\n"), 0o644))
	t.Setenv("SPEEDSPLIT_CONTROL_RATE_PER_SECOND", "7")

	flags := pflag.NewFlagSet("speedsplit", pflag.ContinueOnError)
	flags.Bool("headless", false, "")
	flags.String("log-level", "info", "")
	v := viper.New()
	require.NoError(t, v.BindPFlag("headless", flags.Lookup("headless")))
	require.NoError(t, v.BindPFlag("logging.level", flags.Lookup("log-level")))
	require.NoError(t, flags.Parse([]string{"--headless", "--log-level", "debug"}))

	cfg, err := Load(v, path)
	require.NoError(t, err)
	require.True(t, cfg.Headless)
	require.Equal(t, "debug", cfg.Logging.Level)

	require.NoError(t, cfg.Remember("history.split_file", "/runs/any.json"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "headless")
	assert.NotContains(t, string(raw), "debug")
	assert.NotContains(t, string(raw), "rate_per_second")

	reloaded, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.False(t, reloaded.Headless, "a flag of one launch must not stick")
	assert.Equal(t, "info", reloaded.Logging.Level)
	assert.Equal(t, "F5", reloaded.Keybinds.Skip, "settings from the file are kept")
	assert.Equal(t, "/runs/any.json", reloaded.History.SplitFile)
}

func TestSetIsWrittenByWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	require.NoError(t, cfg.Set("history.split_file", "/runs/first.json"))
	require.NoError(t, cfg.Set("history.split_file", "/runs/second.json"))
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist, "Set alone does not touch the disk")

	require.NoError(t, cfg.Write())
	reloaded, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/runs/second.json", reloaded.History.SplitFile)
}
