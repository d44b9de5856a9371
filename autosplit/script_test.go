package autosplit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterScript = `
var frame = 0;
function update() { frame++; }
function start() { return frame === 1; }
function split() { return frame % 3 === 0; }
function isLoading() { return frame === 2; }
function reset() { return false; }
function gameTime() { return frame * 1000; }
`

func TestScriptHooks(t *testing.T) {
	s, err := NewScript("counter.js", counterScript)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()

	ev, err := s.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, ev.Start)
	assert.False(t, ev.Split)
	require.NotNil(t, ev.Loading)
	assert.False(t, *ev.Loading)
	require.NotNil(t, ev.GameTime)
	assert.Equal(t, time.Second, *ev.GameTime)

	ev, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, ev.Start)
	assert.True(t, *ev.Loading)

	ev, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, ev.Split)
	assert.Equal(t, 3*time.Second, *ev.GameTime)
}

func TestScriptOptionalHooks(t *testing.T) {
	s, err := NewScript("empty.js", `function gameTime() { return undefined; }`)
	require.NoError(t, err)

	ev, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Events{}, ev)
}

func TestScriptErrors(t *testing.T) {
	_, err := NewScript("syntax.js", `function (`)
	assert.Error(t, err)

	_, err = NewScript("notfn.js", `var split = 5;`)
	assert.ErrorContains(t, err, "split is not a function")

	s, err := NewScript("throws.js", `function split() { throw new Error("boom"); }`)
	require.NoError(t, err)
	_, err = s.Poll(context.Background())
	assert.ErrorContains(t, err, "boom")

	s, err = NewScript("negative.js", `function gameTime() { return -1; }`)
	require.NoError(t, err)
	_, err = s.Poll(context.Background())
	assert.Error(t, err)
}

func TestScriptInterruptedByContext(t *testing.T) {
	s, err := NewScript("spin.js", `function update() { for (;;) {} }`)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := s.Poll(ctx)
		done <- err
	}()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("script was not interrupted")
	}
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.js")
	require.NoError(t, os.WriteFile(path, []byte(`function start() { print("go"); return true; }`), 0o644))

	s, err := LoadScript(path)
	require.NoError(t, err)
	ev, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, ev.Start)

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.js"))
	assert.Error(t, err)
}
