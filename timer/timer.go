// Package timer contains the run domain: the Game definition loaded from a
// split file, the Timer state machine for one attempt, and the comparison
// that decides whether an attempt beats the stored run.
//
// Maintenance notes:
//   - Timer has no lock. It is owned by the control goroutine in package app
//     and every mutation (Start, Split, Stop, Reset, Unsplit, Skip, Cancel,
//     ToggleLoading, SetLoading, SetGameTime, Step) must happen there. Other goroutines
//     only ever see a Snapshot.
//   - Transitions that do not apply in the current state are no-ops and
//     return false. Commands race with state changes, so rejecting them
//     quietly is the expected outcome rather than an error.
package timer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TimerState is the coarse state of an attempt, derived from the flags.
type TimerState int

const (
	StateNotStarted TimerState = iota
	StateRunning
	StateLoading
	StatePaused
	StateFinished
)

func (s TimerState) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateLoading:
		return "loading"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Timer is the state of one attempt at a Game.
type Timer struct {
	game *Game

	attempt    uuid.UUID
	running    bool
	started    bool
	loading    bool
	elapsed    time.Duration
	splitTimes []time.Duration
	current    int
	lastStep   time.Time
}

// NewTimer creates a timer for g in the not-started state.
func NewTimer(g *Game) (*Timer, error) {
	if g == nil {
		return nil, errors.New("nil game")
	}
	if g.SplitCount() == 0 {
		return nil, ErrNoSplits
	}
	return &Timer{
		game:       g,
		splitTimes: make([]time.Duration, g.SplitCount()),
	}, nil
}

// Game returns the run definition the timer was created for.
func (t *Timer) Game() *Game {
	return t.game
}

// SetGame swaps the run definition for one with the same number of splits,
// which is what saving produces.
func (t *Timer) SetGame(g *Game) bool {
	if g == nil || g.SplitCount() != len(t.splitTimes) {
		return false
	}
	t.game = g
	return true
}

// State derives the coarse state from the timer flags.
func (t *Timer) State() TimerState {
	switch {
	case !t.started:
		return StateNotStarted
	case t.running:
		return StateRunning
	case t.loading:
		return StateLoading
	case t.current >= len(t.splitTimes):
		return StateFinished
	default:
		return StatePaused
	}
}

// Running reports whether time is accruing.
func (t *Timer) Running() bool { return t.running }

// Started reports whether an attempt is in progress or finished but not
// reset yet.
func (t *Timer) Started() bool { return t.started }

// Loading reports whether accrual is suspended for a loading screen.
func (t *Timer) Loading() bool { return t.loading }

// Elapsed returns the current attempt time.
func (t *Timer) Elapsed() time.Duration { return t.elapsed }

// CurrentSplit returns the index of the split being run.
func (t *Timer) CurrentSplit() int { return t.current }

// Attempt returns the id of the current attempt.
func (t *Timer) Attempt() uuid.UUID { return t.attempt }

// SplitTimes returns a copy of the recorded split times.
func (t *Timer) SplitTimes() []time.Duration {
	out := make([]time.Duration, len(t.splitTimes))
	copy(out, t.splitTimes)
	return out
}

// Step advances elapsed time to now while the timer is running.
func (t *Timer) Step(now time.Time) {
	if t.running && !t.loading && !t.lastStep.IsZero() {
		if d := now.Sub(t.lastStep); d > 0 {
			t.elapsed += d
		}
	}
	t.lastStep = now
}

// Start begins a new attempt or resumes a paused one. Once every split has
// been recorded the attempt must be reset before it can start again.
func (t *Timer) Start() bool {
	if t.running || t.current >= len(t.splitTimes) {
		return false
	}
	if !t.started {
		t.started = true
		t.attempt = uuid.New()
		t.elapsed = 0
		t.current = 0
		clear(t.splitTimes)
	}
	t.running = true
	// accrual counts from the next Step, not from whenever the last one ran
	t.lastStep = time.Time{}
	return true
}

// Split records the elapsed time for the current split. Recording the last
// split finishes the attempt.
func (t *Timer) Split() bool {
	if !t.running {
		return false
	}
	t.splitTimes[t.current] = t.elapsed
	t.current++
	if t.current == len(t.splitTimes) {
		t.running = false
	}
	return true
}

// Stop pauses a running attempt.
func (t *Timer) Stop() bool {
	if !t.running {
		return false
	}
	t.running = false
	return true
}

// Reset clears a stopped attempt back to not-started.
func (t *Timer) Reset() bool {
	if t.running || !t.started {
		return false
	}
	t.clear()
	return true
}

// StopOrReset stops a running attempt, or resets one that is already
// stopped.
func (t *Timer) StopOrReset() bool {
	if t.running {
		return t.Stop()
	}
	return t.Reset()
}

// Unsplit reopens the previous split and clears its time. Unsplitting the
// final split of a finished attempt resumes it.
func (t *Timer) Unsplit() bool {
	if t.current == 0 {
		return false
	}
	finished := t.started && t.current == len(t.splitTimes)
	if !t.running && !finished {
		return false
	}
	t.current--
	t.splitTimes[t.current] = 0
	if finished {
		t.running = true
	}
	return true
}

// Skip moves past the current split without recording a time. The final
// split cannot be skipped.
func (t *Timer) Skip() bool {
	if !t.running || t.current >= len(t.splitTimes)-1 {
		return false
	}
	t.splitTimes[t.current] = 0
	t.current++
	return true
}

// Cancel discards the attempt from any state.
func (t *Timer) Cancel() bool {
	if !t.started {
		return false
	}
	t.clear()
	return true
}

// ToggleLoading flips the loading flag. Entering a loading screen stops a
// running attempt; leaving one resumes a started attempt.
func (t *Timer) ToggleLoading() {
	t.loading = !t.loading
	if t.running && t.loading {
		t.running = false
	} else if t.started && !t.running && !t.loading {
		t.Start()
	}
}

// SetLoading applies the loading state reported by the game. Only a change
// has an effect, with the same transitions as ToggleLoading.
func (t *Timer) SetLoading(loading bool) bool {
	if t.loading == loading {
		return false
	}
	t.ToggleLoading()
	return true
}

// SetGameTime replaces elapsed time with a value reported by the game.
func (t *Timer) SetGameTime(d time.Duration) bool {
	if !t.started || t.current >= len(t.splitTimes) || d < 0 {
		return false
	}
	t.elapsed = d
	return true
}

func (t *Timer) clear() {
	t.running = false
	t.started = false
	t.loading = false
	t.elapsed = 0
	t.current = 0
	t.attempt = uuid.Nil
	clear(t.splitTimes)
}

// Snapshot is a copy of the timer that is safe to hand to other
// goroutines.
type Snapshot struct {
	Game         *Game
	Attempt      uuid.UUID
	State        TimerState
	Running      bool
	Started      bool
	Loading      bool
	Elapsed      time.Duration
	SplitTimes   []time.Duration
	CurrentSplit int
}

// Snapshot returns a consistent copy for rendering and saving.
func (t *Timer) Snapshot() Snapshot {
	return Snapshot{
		Game:         t.game,
		Attempt:      t.attempt,
		State:        t.State(),
		Running:      t.running,
		Started:      t.started,
		Loading:      t.loading,
		Elapsed:      t.elapsed,
		SplitTimes:   t.SplitTimes(),
		CurrentSplit: t.current,
	}
}
