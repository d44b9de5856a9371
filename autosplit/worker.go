// Package autosplit runs auto-splitter scripts on a worker goroutine and
// turns what they report into Signals for the control goroutine.
//
// The worker never touches timer state. Each polling pass raises slots in
// Signals; the control goroutine drains them once per tick. The script path
// is shared with the control goroutine, so it lives behind the worker mutex
// together with the running marker, and replacing it goes through Swap.
package autosplit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"SpeedSplit/slot"
)

// ErrSwapTimeout is returned by Swap when the current pass did not finish in
// time. The previous script stays installed.
var ErrSwapTimeout = errors.New("auto splitter did not stop in time")

const (
	DefaultPollInterval = 50 * time.Millisecond
	DefaultSwapTimeout  = time.Second
)

// Signals are the slots raised by the worker and drained by the control
// goroutine, in this order: Start, Split, Loading, Reset, GameTime.
//
// Loading carries the state the game reported on the latest pass rather
// than an edge. The timer clears its own loading flag on reset and drained
// slots can be discarded, so only the absolute value stays in step.
type Signals struct {
	Start    slot.Flag
	Split    slot.Flag
	Loading  slot.Slot[bool]
	Reset    slot.Flag
	GameTime slot.Slot[time.Duration]
}

// Discard clears every pending signal.
func (s *Signals) Discard() {
	s.Start.Drain()
	s.Split.Drain()
	s.Loading.Drain()
	s.Reset.Drain()
	s.GameTime.Drain()
}

// Events is what a script reported during one pass.
type Events struct {
	Start    bool
	Split    bool
	Reset    bool
	Loading  *bool
	GameTime *time.Duration
}

// Script is a loaded auto-splitter. Poll runs one evaluation pass.
type Script interface {
	Poll(ctx context.Context) (Events, error)
	Close() error
}

// Loader loads the script at path.
type Loader func(path string) (Script, error)

// Config configures a Worker.
type Config struct {
	Loader       Loader
	PollInterval time.Duration
	SwapTimeout  time.Duration
	// OnError is called from the worker goroutine when a pass fails. The
	// worker has already disabled itself.
	OnError func(path string, err error)
}

// Worker is the auto-splitter loop.
type Worker struct {
	signals *Signals
	cfg     Config

	enabled atomic.Bool

	// swapMu serialises Swap so each call sees the enabled state the
	// previous one restored.
	swapMu sync.Mutex

	mu      sync.Mutex
	path    string
	running bool
	passEnd chan struct{}

	// owned by the worker goroutine
	script     Script
	scriptPath string
}

// NewWorker creates a disabled worker raising into signals.
func NewWorker(signals *Signals, cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SwapTimeout <= 0 {
		cfg.SwapTimeout = DefaultSwapTimeout
	}
	if cfg.Loader == nil {
		cfg.Loader = LoadScript
	}
	return &Worker{signals: signals, cfg: cfg}
}

// Signals returns the slots the worker raises.
func (w *Worker) Signals() *Signals {
	return w.signals
}

// Enabled reports whether the worker polls.
func (w *Worker) Enabled() bool {
	return w.enabled.Load()
}

// SetEnabled turns polling on or off. Disabling takes effect after the
// current pass.
func (w *Worker) SetEnabled(enabled bool) {
	w.mu.Lock()
	w.enabled.Store(enabled)
	w.mu.Unlock()
}

// Running reports whether a pass is executing right now.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Path returns the installed script path.
func (w *Worker) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Swap installs a new script path. A pass in flight is allowed to finish
// first, bounded by the swap timeout; the caller must not hold any lock
// the worker needs. On timeout the previous path stays and polling is
// restored to its previous state.
func (w *Worker) Swap(ctx context.Context, path string) error {
	w.swapMu.Lock()
	defer w.swapMu.Unlock()

	w.mu.Lock()
	wasEnabled := w.enabled.Load()
	w.enabled.Store(false)
	pending := w.passEnd
	w.mu.Unlock()

	if pending != nil {
		t := time.NewTimer(w.cfg.SwapTimeout)
		defer t.Stop()
		select {
		case <-pending:
		case <-t.C:
			w.SetEnabled(wasEnabled)
			return fmt.Errorf("swap to %s: %w", path, ErrSwapTimeout)
		case <-ctx.Done():
			w.SetEnabled(wasEnabled)
			return ctx.Err()
		}
	}

	w.mu.Lock()
	w.path = path
	w.enabled.Store(wasEnabled)
	w.mu.Unlock()
	log.Info().Str("script", path).Bool("enabled", wasEnabled).Msg("auto splitter script installed")
	return nil
}

// Run loops until ctx is cancelled, finishing the pass in flight first.
func (w *Worker) Run(ctx context.Context) error {
	defer w.closeScript()

	t := time.NewTicker(w.cfg.PollInterval)
	defer t.Stop()
	for {
		w.pass(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// pass runs one polling pass if enabled.
func (w *Worker) pass(ctx context.Context) {
	w.mu.Lock()
	if !w.enabled.Load() || w.path == "" {
		w.mu.Unlock()
		return
	}
	path := w.path
	done := make(chan struct{})
	w.running = true
	w.passEnd = done
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.passEnd = nil
		w.mu.Unlock()
		close(done)
	}()

	if err := w.poll(ctx, path); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.fail(path, err)
	}
}

func (w *Worker) poll(ctx context.Context, path string) error {
	if w.script == nil || w.scriptPath != path {
		w.closeScript()
		s, err := w.cfg.Loader(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		w.script = s
		w.scriptPath = path
		log.Debug().Str("script", path).Msg("auto splitter script loaded")
	}

	ev, err := w.script.Poll(ctx)
	if err != nil {
		return fmt.Errorf("poll %s: %w", path, err)
	}
	w.raise(ev)
	return nil
}

func (w *Worker) raise(ev Events) {
	if ev.Start {
		w.signals.Start.Raise()
	}
	if ev.Split {
		w.signals.Split.Raise()
	}
	if ev.Loading != nil {
		w.signals.Loading.Raise(*ev.Loading)
	}
	if ev.Reset {
		w.signals.Reset.Raise()
	}
	if ev.GameTime != nil {
		w.signals.GameTime.Raise(*ev.GameTime)
	}
}

func (w *Worker) fail(path string, err error) {
	w.mu.Lock()
	w.enabled.Store(false)
	w.mu.Unlock()
	w.closeScript()
	log.Error().Err(err).Str("script", path).Msg("auto splitter disabled")
	if w.cfg.OnError != nil {
		w.cfg.OnError(path, err)
	}
}

func (w *Worker) closeScript() {
	if w.script == nil {
		return
	}
	if err := w.script.Close(); err != nil {
		log.Warn().Err(err).Str("script", w.scriptPath).Msg("auto splitter close failed")
	}
	w.script = nil
	w.scriptPath = ""
}
