package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SpeedSplit/control"
)

// TestRootCommandFlags tests that all expected CLI flags are present
func TestRootCommandFlags(t *testing.T) {
	for name, typ := range map[string]string{
		"config":    "string",
		"log-level": "string",
		"socket":    "string",
	} {
		f := rootCmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, typ, f.Value.Type(), name)
	}
	for name, typ := range map[string]string{
		"headless":      "bool",
		"auto-splitter": "string",
	} {
		f := rootCmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, typ, f.Value.Type(), name)
	}
}

func TestCommandNames(t *testing.T) {
	assert.Equal(t, []string{"start_split", "stop_reset", "cancel", "unsplit", "skip", "exit"}, commandNames())
}

func TestSetupLogging(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	setupLogging("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogging("nonsense")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestCtlSendsCommand(t *testing.T) {
	dir, err := os.MkdirTemp("", "ctl")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "ctl.sock")

	commands := control.NewChannel(8)
	srv := control.NewServer(socket, commands, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ListenAndServe(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	select {
	case <-srv.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	received := make(chan control.CommandType, 1)
	go func() {
		for ctx.Err() == nil {
			commands.Drain(func(cmd control.Command) bool {
				received <- cmd.Type
				cmd.Done(nil)
				return true
			})
			time.Sleep(time.Millisecond)
		}
	}()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"ctl", "skip", "--socket", socket, "--config", filepath.Join(dir, "settings.yaml")})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "ok\n", out.String())
	assert.Equal(t, control.CmdSkip, <-received)
}

func TestCtlRejectsUnknownCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"ctl", "jump", "--config", filepath.Join(t.TempDir(), "settings.yaml")})
	err := rootCmd.Execute()
	assert.ErrorIs(t, err, control.ErrUnknownCommand)
}
