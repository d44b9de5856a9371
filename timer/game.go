package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoSplits is returned when a run file defines no splits.
var ErrNoSplits = errors.New("run has no splits")

// Duration is a time.Duration stored as a human readable string in run
// files. Unset times are stored as an empty string.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	if d == 0 {
		return json.Marshal("")
	}
	return json.Marshal(FormatTime(time.Duration(d), 6))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time must be a string: %w", err)
	}
	v, err := ParseTime(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Split is one named checkpoint of a run file.
type Split struct {
	Title       string   `json:"title"`
	Time        Duration `json:"time"`
	BestSegment Duration `json:"best_segment"`
}

// Game is the definition of a run loaded from a split file. A loaded Game
// is never mutated; saving a run produces a new value via WithRun.
type Game struct {
	Path         string  `json:"-"`
	Title        string  `json:"title"`
	Theme        string  `json:"theme,omitempty"`
	ThemeVariant string  `json:"theme_variant,omitempty"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	Attempts     int     `json:"attempts"`
	Splits       []Split `json:"splits"`
}

// LoadGame reads and validates a split file.
func LoadGame(path string) (*Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read split file: %w", err)
	}

	var g Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse split file %s: %w", path, err)
	}
	if len(g.Splits) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSplits)
	}
	g.Path = path
	return &g, nil
}

// Save writes the game back to its path, replacing the file atomically.
func (g *Game) Save() error {
	if g.Path == "" {
		return errors.New("game has no path")
	}
	data, err := json.MarshalIndent(g, "", "    ")
	if err != nil {
		return fmt.Errorf("encode split file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(g.Path), ".split-*.json")
	if err != nil {
		return fmt.Errorf("save split file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("save split file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save split file: %w", err)
	}
	if err := os.Rename(tmp.Name(), g.Path); err != nil {
		return fmt.Errorf("save split file: %w", err)
	}
	return nil
}

// SplitCount returns the number of splits in the run.
func (g *Game) SplitCount() int {
	return len(g.Splits)
}

// SplitTimes returns the stored split times of the saved run.
func (g *Game) SplitTimes() []time.Duration {
	out := make([]time.Duration, len(g.Splits))
	for i, s := range g.Splits {
		out[i] = time.Duration(s.Time)
	}
	return out
}

// WithRun returns a copy of the game carrying times as its stored run and
// one more attempt. Best segments are lowered wherever the new run beat
// them.
func (g *Game) WithRun(times []time.Duration) *Game {
	out := *g
	out.Attempts++
	out.Splits = make([]Split, len(g.Splits))
	copy(out.Splits, g.Splits)

	var prev time.Duration
	contiguous := true
	for i := range out.Splits {
		if i >= len(times) {
			break
		}
		out.Splits[i].Time = Duration(times[i])
		if times[i] == 0 {
			// a skipped split breaks the next segment
			contiguous = false
			continue
		}
		seg := times[i] - prev
		prev = times[i]
		if !contiguous {
			contiguous = true
			continue
		}
		if best := out.Splits[i].BestSegment; best == 0 || seg < time.Duration(best) {
			out.Splits[i].BestSegment = Duration(seg)
		}
	}
	return &out
}

// WithSize returns a copy of the game with the given window geometry.
func (g *Game) WithSize(width, height int) *Game {
	out := *g
	out.Width = width
	out.Height = height
	return &out
}
