package timer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRun = `{
    "title": "Any%",
    "theme": "standard",
    "theme_variant": "dark",
    "width": 300,
    "height": 500,
    "splits": [
        {"title": "Forest", "time": "1:02.500000", "best_segment": "1:00"},
        {"title": "Castle", "time": "2:30", "best_segment": ""},
        {"title": "Boss", "time": ""}
    ]
}`

func TestLoadGame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleRun), 0o644))

	g, err := LoadGame(path)
	require.NoError(t, err)

	assert.Equal(t, path, g.Path)
	assert.Equal(t, "Any%", g.Title)
	assert.Equal(t, "dark", g.ThemeVariant)
	assert.Equal(t, 3, g.SplitCount())
	assert.Equal(t, []time.Duration{62500 * time.Millisecond, 150 * time.Second, 0}, g.SplitTimes())
	assert.Equal(t, Duration(time.Minute), g.Splits[0].BestSegment)
}

func TestLoadGameErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadGame(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"title":"x","splits":[]}`), 0o644))
	_, err = LoadGame(empty)
	assert.ErrorIs(t, err, ErrNoSplits)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"splits":[{"title":"a","time":"1:99"}]}`), 0o644))
	_, err = LoadGame(bad)
	assert.Error(t, err)
}

func TestSaveGameWithRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleRun), 0o644))
	g, err := LoadGame(path)
	require.NoError(t, err)

	run := []time.Duration{55 * time.Second, 0, 140 * time.Second}
	updated := g.WithRun(run).WithSize(320, 480)

	assert.Equal(t, 150*time.Second, g.SplitTimes()[1], "original game is untouched")
	require.NoError(t, updated.Save())

	reloaded, err := LoadGame(path)
	require.NoError(t, err)
	assert.Equal(t, run, reloaded.SplitTimes())
	assert.Equal(t, 320, reloaded.Width)
	assert.Equal(t, g.Attempts+1, reloaded.Attempts)
	assert.Equal(t, Duration(55*time.Second), reloaded.Splits[0].BestSegment)
	assert.Zero(t, reloaded.Splits[2].BestSegment, "segment after a skipped split is not a best segment")
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		d        time.Duration
		decimals int
		want     string
	}{
		{0, 2, "0.00"},
		{1500 * time.Millisecond, 2, "1.50"},
		{62*time.Second + 345*time.Millisecond, 3, "1:02.345"},
		{time.Hour + 2*time.Minute + 3*time.Second, 0, "1:02:03"},
		{-3 * time.Second, 1, "-3.0"},
		{1234567 * time.Microsecond, 6, "1.234567"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTime(tt.d, tt.decimals))
	}

	assert.Equal(t, "+1.00", FormatDelta(time.Second, 2))
	assert.Equal(t, "-1.00", FormatDelta(-time.Second, 2))
}

func TestParseTime(t *testing.T) {
	valid := map[string]time.Duration{
		"":           0,
		"42":         42 * time.Second,
		"1:02":       62 * time.Second,
		"1:02:03.5":  time.Hour + 2*time.Minute + 3500*time.Millisecond,
		"0.000001":   time.Microsecond,
		"10:00.250":  10*time.Minute + 250*time.Millisecond,
	}
	for in, want := range valid {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"abc", "1:60", "1:2:3:4", "1:60:00", "1.", "-5"} {
		_, err := ParseTime(in)
		assert.Error(t, err, in)
	}
}
