// Package sound plays the short audio cues of a run: a tick on every split
// and a chime when a run is saved as the new personal best. Cues come from
// ogg files when configured and are generated tones otherwise.
package sound

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/vorbis"
	"github.com/rs/zerolog/log"

	"SpeedSplit/config"
)

// Cue identifies an audio cue.
type Cue int

const (
	CueSplit Cue = iota
	CueBest
)

func (c Cue) String() string {
	switch c {
	case CueSplit:
		return "split"
	case CueBest:
		return "best"
	default:
		return fmt.Sprintf("cue(%d)", int(c))
	}
}

const sampleRate beep.SampleRate = 44100

var format = beep.Format{SampleRate: sampleRate, NumChannels: 2, Precision: 2}

// Player holds decoded cues. A nil or disabled Player is silent.
type Player struct {
	speakerLock sync.Mutex
	buffers     map[Cue]*beep.Buffer
}

// New initialises the speaker and prepares the cues. Audio problems are
// logged and leave the player silent or without the failing cue.
func New(cfg config.SoundConfig) *Player {
	p := &Player{buffers: make(map[Cue]*beep.Buffer)}
	if !cfg.Enabled {
		return p
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		log.Warn().Err(err).Msg("audio disabled: failed to initialize speaker")
		return p
	}
	p.load(cfg)
	return p
}

func (p *Player) load(cfg config.SoundConfig) {
	files := map[Cue]string{CueSplit: cfg.SplitFile, CueBest: cfg.BestFile}
	for cue, path := range files {
		var (
			buf *beep.Buffer
			err error
		)
		if path != "" {
			buf, err = decode(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Stringer("cue", cue).Msg("falling back to generated tone")
			}
		}
		if buf == nil {
			buf, err = generate(cue)
			if err != nil {
				log.Warn().Err(err).Stringer("cue", cue).Msg("failed to generate cue")
				continue
			}
		}
		p.buffers[cue] = buf
	}
}

// Play starts the cue without waiting for it to finish.
func (p *Player) Play(c Cue) {
	if p == nil {
		return
	}
	b, ok := p.buffers[c]
	if !ok {
		return
	}

	p.speakerLock.Lock()
	defer p.speakerLock.Unlock()

	speaker.Play(b.Streamer(0, b.Len()))
}

func generate(c Cue) (*beep.Buffer, error) {
	switch c {
	case CueSplit:
		return tones(60*time.Millisecond, 880)
	case CueBest:
		return tones(120*time.Millisecond, 660, 880, 1320)
	default:
		return nil, fmt.Errorf("no tone for %s", c)
	}
}

// tones renders one sine note of length d per frequency, back to back.
func tones(d time.Duration, freqs ...float64) (*beep.Buffer, error) {
	buf := beep.NewBuffer(format)
	for _, f := range freqs {
		sine, err := generators.SineTone(sampleRate, f)
		if err != nil {
			return nil, fmt.Errorf("tone %.0fHz: %w", f, err)
		}
		buf.Append(&effects.Volume{
			Streamer: beep.Take(sampleRate.N(d), sine),
			Base:     2,
			Volume:   -2,
		})
	}
	return buf, nil
}

func decode(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cue: %w", err)
	}

	streamer, fileFormat, err := vorbis.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if fileFormat.SampleRate != sampleRate {
		s = beep.Resample(4, fileFormat.SampleRate, sampleRate, streamer)
	}
	buf := beep.NewBuffer(format)
	buf.Append(s)
	return buf, nil
}
