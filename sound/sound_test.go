package sound

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SpeedSplit/config"
)

func TestGeneratedCues(t *testing.T) {
	split, err := generate(CueSplit)
	require.NoError(t, err)
	assert.Equal(t, sampleRate.N(60*time.Millisecond), split.Len())

	best, err := generate(CueBest)
	require.NoError(t, err)
	assert.Equal(t, 3*sampleRate.N(120*time.Millisecond), best.Len())

	_, err = generate(Cue(9))
	assert.Error(t, err)
}

func TestTonesRejectsAliasedFrequency(t *testing.T) {
	_, err := tones(time.Millisecond, float64(sampleRate))
	assert.Error(t, err)
}

func TestDecodeErrors(t *testing.T) {
	_, err := decode(filepath.Join(t.TempDir(), "missing.ogg"))
	assert.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.ogg")
	require.NoError(t, os.WriteFile(bogus, []byte("not vorbis"), 0o644))
	_, err = decode(bogus)
	assert.Error(t, err)
}

func TestDisabledPlayerIsSilent(t *testing.T) {
	p := New(config.SoundConfig{Enabled: false})
	assert.Empty(t, p.buffers)
	assert.NotPanics(t, func() { p.Play(CueSplit) })

	var nilPlayer *Player
	assert.NotPanics(t, func() { nilPlayer.Play(CueBest) })
}
