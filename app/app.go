// Package app contains the AppManager, which owns the timer and runs the
// control goroutine that every state change goes through.
//
// Maintenance notes / tips:
//   - Concurrency model: a single control goroutine (see `loop`) owns the
//     timer and the loaded game. It runs a fast logic tick and a slower
//     render tick. Anything that wants to change timer state either enqueues
//     a control.Command, raises a slot (auto splitter signals, the deferred
//     stop/reset flag) or posts a function on `ops`. Never touch `timer` or
//     `pending` from another goroutine.
//   - Logic tick order is fixed: deferred handlers and pending confirmation,
//     then queued commands in arrival order, then Step, then auto splitter
//     signals as start, split, loading, reset, game-time. Loading arrives as
//     the game's current state and only a change toggles the timer.
//   - Exit is applied the moment it is drained. Commands queued behind it
//     are left unanswered.
//   - Confirmations never block the control goroutine. The Confirmer hands
//     back a channel that later ticks poll.
//   - Saving writes files on short-lived goroutines tracked by `saves`, so
//     the control goroutine never waits on disk. The same goes for settings
//     remembered from the control goroutine (see `remember`).
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"SpeedSplit/autosplit"
	"SpeedSplit/config"
	"SpeedSplit/control"
	"SpeedSplit/i18n"
	"SpeedSplit/slot"
	"SpeedSplit/sound"
	"SpeedSplit/timer"
)

var (
	// ErrRunInProgress is returned when opening a split file would discard
	// a started attempt.
	ErrRunInProgress = errors.New("a run is in progress")
	// ErrNoGame is returned by operations that need a loaded split file.
	ErrNoGame = errors.New("no split file is open")
	// ErrConfirmationPending is returned while a previous question is
	// still waiting for an answer.
	ErrConfirmationPending = errors.New("waiting for confirmation")
	// ErrStopped is returned once the control goroutine has exited.
	ErrStopped = errors.New("timer has shut down")
)

// Frame is what the view draws. It is a copy and may be kept.
type Frame struct {
	Loaded       bool
	Snapshot     timer.Snapshot
	AutoSplitter bool
}

// View is the presentation side of the timer.
type View interface {
	// Render draws a frame. It is called from the control goroutine and
	// must not block.
	Render(Frame)
	// Show is called when a game is opened, or with nil when it is closed.
	Show(g *timer.Game)
	// Notify tells the user about something that went wrong in the
	// background. It may be called from any goroutine.
	Notify(title, message string)
	// Size returns the current window geometry, zero when unknown.
	Size() (width, height int)
}

// Confirmer asks the user a yes/no question without blocking. The answer
// is delivered once on the returned channel.
type Confirmer interface {
	Confirm(title, question string) <-chan bool
}

// Sounder plays audio cues.
type Sounder interface {
	Play(sound.Cue)
}

// Deps are the collaborators of an AppManager. Save defaults to writing the
// split file and Loader to the JavaScript runner.
type Deps struct {
	View      View
	Confirmer Confirmer
	Sounds    Sounder
	Save      func(*timer.Game) error
	Loader    autosplit.Loader
}

type confirmation struct {
	attempt uuid.UUID
	answer  <-chan bool
	// stopped drops the confirmation if the attempt was resumed meanwhile.
	stopped bool
	accept  func()
	decline func()
}

// AppManager is the main application struct, holding all state.
type AppManager struct {
	cfg    *config.Config
	view   View
	ask    Confirmer
	sounds Sounder
	saveFn func(*timer.Game) error

	commands *control.Channel
	signals  *autosplit.Signals
	worker   *autosplit.Worker
	server   *control.Server

	stopReset slot.Flag
	ops       chan func()
	done      chan struct{}
	saves     sync.WaitGroup

	// owned by the control goroutine
	timer   *timer.Timer
	pending *confirmation
}

// NewAppManager creates a new application manager. Nothing runs until Run.
func NewAppManager(cfg *config.Config, deps Deps) *AppManager {
	a := &AppManager{
		cfg:      cfg,
		view:     deps.View,
		ask:      deps.Confirmer,
		sounds:   deps.Sounds,
		saveFn:   deps.Save,
		commands: control.NewChannel(control.DefaultCapacity),
		signals:  &autosplit.Signals{},
		ops:      make(chan func()),
		done:     make(chan struct{}),
	}
	if a.saveFn == nil {
		a.saveFn = (*timer.Game).Save
	}
	if a.sounds == nil {
		a.sounds = (*sound.Player)(nil)
	}

	a.worker = autosplit.NewWorker(a.signals, autosplit.Config{
		Loader:       deps.Loader,
		PollInterval: cfg.AutoSplitter.PollInterval,
		SwapTimeout:  cfg.AutoSplitter.SwapTimeout,
		OnError: func(path string, err error) {
			a.view.Notify(i18n.T("Auto splitter disabled"), err.Error())
		},
	})
	if cfg.AutoSplitter.Script != "" {
		// the worker is not running yet, so there is no pass to wait for
		if err := a.worker.Swap(context.Background(), cfg.AutoSplitter.Script); err != nil {
			log.Warn().Err(err).Str("script", cfg.AutoSplitter.Script).Msg("failed to install auto splitter")
		}
	}
	a.worker.SetEnabled(cfg.AutoSplitter.Enabled)

	if cfg.Control.Socket != "" {
		a.server = control.NewServer(cfg.Control.Socket, a.commands, cfg.Control.RatePerSecond)
	}
	return a
}

// Commands returns the queue external sources post commands to.
func (a *AppManager) Commands() *control.Channel {
	return a.commands
}

// Worker returns the auto splitter worker.
func (a *AppManager) Worker() *autosplit.Worker {
	return a.worker
}

// Done is closed when the control goroutine has exited, either because the
// Run context was cancelled or because an exit command arrived.
func (a *AppManager) Done() <-chan struct{} {
	return a.done
}

// Run starts the auto splitter, the command server and the control loop
// and blocks until they have all stopped and pending saves are written.
func (a *AppManager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.worker.Run(gctx)
	})
	if a.server != nil {
		g.Go(func() error {
			if err := a.server.ListenAndServe(gctx); err != nil {
				// manual input keeps working without the socket
				log.Error().Err(err).Msg("command server stopped")
				a.view.Notify(i18n.T("Error"), err.Error())
			}
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		return a.loop(gctx)
	})

	err := g.Wait()
	a.saves.Wait()
	return err
}

func (a *AppManager) loop(ctx context.Context) error {
	defer close(a.done)
	defer a.release()

	logic := time.NewTicker(a.cfg.Timer.LogicInterval)
	defer logic.Stop()
	render := time.NewTicker(a.cfg.Timer.RenderInterval)
	defer render.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-logic.C:
			if !a.tick(now) {
				log.Info().Msg("exit requested")
				return nil
			}
		case <-render.C:
			a.view.Render(a.frame())
		case op := <-a.ops:
			op()
		}
	}
}

// tick runs one logic tick and reports whether the loop should continue.
func (a *AppManager) tick(now time.Time) bool {
	a.processDeferred()

	exit := false
	a.commands.Drain(func(cmd control.Command) bool {
		if cmd.Type == control.CmdExit {
			exit = true
			cmd.Done(nil)
			return false
		}
		cmd.Done(a.apply(cmd.Type))
		return true
	})
	if exit {
		return false
	}

	if a.timer == nil {
		a.signals.Discard()
		return true
	}
	a.timer.Step(now)
	a.applySignals()
	return true
}

func (a *AppManager) processDeferred() {
	if a.stopReset.Drain() && a.timer != nil {
		a.stopOrReset()
	}

	p := a.pending
	if p == nil {
		return
	}
	select {
	case ok := <-p.answer:
		a.pending = nil
		if a.timer == nil || a.timer.Attempt() != p.attempt || (p.stopped && a.timer.Running()) {
			log.Debug().Str("attempt", p.attempt.String()).Msg("confirmation no longer applies")
			return
		}
		if ok {
			p.accept()
		} else if p.decline != nil {
			p.decline()
		}
		a.present()
	default:
	}
}

func (a *AppManager) apply(typ control.CommandType) error {
	if a.timer == nil {
		return ErrNoGame
	}
	log.Debug().Stringer("command", typ).Msg("applying command")

	switch typ {
	case control.CmdStartSplit:
		a.startSplit()
	case control.CmdStopReset:
		a.stopOrReset()
	case control.CmdCancel:
		if a.timer.Cancel() {
			log.Info().Msg("run cancelled")
		}
	case control.CmdUnsplit:
		a.timer.Unsplit()
	case control.CmdSkip:
		a.timer.Skip()
	default:
		return fmt.Errorf("%w: %s", control.ErrUnknownCommand, typ)
	}
	a.present()
	return nil
}

func (a *AppManager) applySignals() {
	if !a.worker.Enabled() {
		a.signals.Discard()
		return
	}
	s := a.signals
	changed := false

	// a start raised during a loading screen waits for it to end
	if !a.timer.Loading() && s.Start.Drain() {
		changed = a.start() || changed
	}
	if s.Split.Drain() {
		changed = a.split() || changed
	}
	if loading, ok := s.Loading.Drain(); ok && a.timer.SetLoading(loading) {
		changed = true
	}
	// a reset cannot be asked about while another question is open
	if s.Reset.Drain() && a.pending == nil {
		a.timer.Stop()
		a.requestReset()
		changed = true
	}
	if d, ok := s.GameTime.Drain(); ok {
		a.timer.SetGameTime(d)
	}
	if changed {
		a.present()
	}
}

func (a *AppManager) startSplit() {
	if a.timer.Running() {
		a.split()
		return
	}
	a.start()
}

func (a *AppManager) start() bool {
	if !a.timer.Start() {
		return false
	}
	log.Info().Str("attempt", a.timer.Attempt().String()).Msg("run started")
	return true
}

func (a *AppManager) split() bool {
	idx := a.timer.CurrentSplit()
	if !a.timer.Split() {
		return false
	}
	log.Debug().
		Str("attempt", a.timer.Attempt().String()).
		Int("split", idx).
		Dur("time", a.timer.Elapsed()).
		Msg("split")

	if a.timer.State() == timer.StateFinished {
		log.Info().Str("attempt", a.timer.Attempt().String()).Dur("time", a.timer.Elapsed()).Msg("run finished")
		if timer.IsBetter(a.timer.SplitTimes(), a.timer.Game().SplitTimes()) {
			a.sounds.Play(sound.CueBest)
			return true
		}
	}
	a.sounds.Play(sound.CueSplit)
	return true
}

// stopOrReset is the resolved form of the stop/reset command: a running
// attempt is stopped, a stopped one is reset.
func (a *AppManager) stopOrReset() {
	if a.timer.Running() {
		a.timer.Stop()
		return
	}
	a.requestReset()
}

// requestReset resets a stopped attempt, first asking whether to keep it
// when it beats the stored run.
func (a *AppManager) requestReset() {
	if !a.timer.Started() || a.timer.Running() || a.pending != nil {
		return
	}
	if a.timer.Elapsed() == 0 {
		a.timer.Cancel()
		return
	}

	times := a.timer.SplitTimes()
	if a.timer.CurrentSplit() == 0 || !timer.IsBetter(times, a.timer.Game().SplitTimes()) {
		a.reset()
		return
	}
	a.pending = &confirmation{
		attempt: a.timer.Attempt(),
		answer:  a.ask.Confirm(i18n.T("Save splits"), i18n.T("New personal best! Save before resetting?")),
		stopped: true,
		accept: func() {
			a.commitSave(times)
			a.reset()
		},
		decline: a.reset,
	}
}

func (a *AppManager) reset() {
	attempt := a.timer.Attempt()
	if a.timer.Reset() {
		log.Info().Str("attempt", attempt.String()).Msg("run reset")
	}
}

// commitSave stores times as the game's run and writes it in the
// background.
func (a *AppManager) commitSave(times []time.Duration) {
	updated := a.timer.Game().WithRun(times)
	if w, h := a.view.Size(); w > 0 && h > 0 {
		updated = updated.WithSize(w, h)
	}
	a.timer.SetGame(updated)

	a.saves.Add(1)
	go func() {
		defer a.saves.Done()
		if err := a.saveFn(updated); err != nil {
			log.Error().Err(err).Str("path", updated.Path).Msg("failed to save splits")
			a.view.Notify(i18n.T("Error"), err.Error())
			return
		}
		log.Info().Str("path", updated.Path).Int("attempts", updated.Attempts).Msg("splits saved")
	}()
}

func (a *AppManager) frame() Frame {
	f := Frame{AutoSplitter: a.worker.Enabled()}
	if a.timer != nil {
		f.Loaded = true
		f.Snapshot = a.timer.Snapshot()
	}
	return f
}

func (a *AppManager) present() {
	a.view.Render(a.frame())
}

func (a *AppManager) release() {
	a.commands.Close()
	a.worker.SetEnabled(false)
	a.pending = nil
	if a.timer != nil {
		log.Debug().Str("path", a.timer.Game().Path).Msg("releasing run")
		a.timer = nil
	}
}

// do runs fn on the control goroutine and returns its error.
func (a *AppManager) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	select {
	case a.ops <- func() { errc <- fn() }:
	case <-a.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Open loads a split file. It is refused while an attempt is in progress.
func (a *AppManager) Open(ctx context.Context, path string) error {
	return a.do(ctx, func() error {
		return a.open(path)
	})
}

func (a *AppManager) open(path string) error {
	if a.timer != nil && a.timer.Started() {
		return ErrRunInProgress
	}
	g, err := timer.LoadGame(path)
	if err != nil {
		return err
	}
	t, err := timer.NewTimer(g)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	a.pending = nil
	a.timer = t
	a.view.Show(g)
	a.present()
	log.Info().Str("path", path).Str("title", g.Title).Int("splits", g.SplitCount()).Msg("split file opened")

	a.remember("history.split_file", path)
	return nil
}

// remember sets a config value right away and writes the file in the
// background. Each write stores the latest values, so writes finishing out
// of order still leave the newest state on disk.
func (a *AppManager) remember(key string, value any) {
	if err := a.cfg.Set(key, value); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to remember setting")
		return
	}
	a.saves.Add(1)
	go func() {
		defer a.saves.Done()
		if err := a.cfg.Write(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to remember setting")
		}
	}()
}

// Reload reads the open split file again.
func (a *AppManager) Reload(ctx context.Context) error {
	return a.do(ctx, func() error {
		if a.timer == nil {
			return ErrNoGame
		}
		return a.open(a.timer.Game().Path)
	})
}

// Close unloads the split file, discarding any attempt.
func (a *AppManager) Close(ctx context.Context) error {
	return a.do(ctx, func() error {
		if a.timer == nil {
			return ErrNoGame
		}
		log.Info().Str("path", a.timer.Game().Path).Msg("split file closed")
		a.timer = nil
		a.pending = nil
		a.view.Show(nil)
		a.present()
		return nil
	})
}

// Save stores the current attempt as the run of the split file. Saving a
// run that seems worse than the stored one asks first; the write happens
// once the user agrees.
func (a *AppManager) Save(ctx context.Context) error {
	return a.do(ctx, func() error {
		if a.timer == nil {
			return ErrNoGame
		}
		if !a.timer.Started() {
			return nil
		}
		times := a.timer.SplitTimes()
		if timer.IsBetter(times, a.timer.Game().SplitTimes()) {
			a.commitSave(times)
			return nil
		}
		if a.pending != nil {
			return ErrConfirmationPending
		}
		a.pending = &confirmation{
			attempt: a.timer.Attempt(),
			answer:  a.ask.Confirm(i18n.T("Save splits"), i18n.T("This run seems to be worse than the saved one. Continue?")),
			accept: func() {
				a.commitSave(times)
			},
		}
		return nil
	})
}

// Snapshot returns a copy of the timer state and whether a game is loaded.
func (a *AppManager) Snapshot(ctx context.Context) (Frame, error) {
	var f Frame
	err := a.do(ctx, func() error {
		f = a.frame()
		return nil
	})
	return f, err
}

// SetAutoSplitterEnabled turns the auto splitter on or off and remembers
// the choice. Signals raised while it is off are discarded.
func (a *AppManager) SetAutoSplitterEnabled(enabled bool) {
	a.worker.SetEnabled(enabled)
	log.Info().Bool("enabled", enabled).Msg("auto splitter toggled")
	if err := a.cfg.Remember("auto_splitter.enabled", enabled); err != nil {
		log.Warn().Err(err).Msg("failed to remember auto splitter state")
	}
}

// SwapScript installs a new auto splitter script. It waits for the pass in
// flight, so call it off the UI goroutine.
func (a *AppManager) SwapScript(ctx context.Context, path string) error {
	if err := a.worker.Swap(ctx, path); err != nil {
		if errors.Is(err, autosplit.ErrSwapTimeout) {
			log.Warn().Err(err).Str("script", path).Msg("auto splitter kept previous script")
		}
		return err
	}
	if err := a.cfg.Remember("auto_splitter.script", path); err != nil {
		log.Warn().Err(err).Msg("failed to remember auto splitter script")
	}
	return nil
}

// Send posts a command without blocking, for UI buttons.
func (a *AppManager) Send(typ control.CommandType) bool {
	if !a.commands.TryEnqueue(control.Command{Type: typ}) {
		log.Warn().Stringer("command", typ).Msg("command not queued")
		return false
	}
	return true
}

// HandleKey maps a key name to its keybind. Stop/reset is only flagged
// here and resolved by the next tick. It reports whether the key was bound.
func (a *AppManager) HandleKey(name string) bool {
	kb := a.cfg.Keybinds
	switch {
	case keyMatches(kb.StartSplit, name):
		return a.Send(control.CmdStartSplit)
	case keyMatches(kb.StopReset, name):
		a.stopReset.Raise()
		return true
	case keyMatches(kb.Cancel, name):
		return a.Send(control.CmdCancel)
	case keyMatches(kb.Unsplit, name):
		return a.Send(control.CmdUnsplit)
	case keyMatches(kb.Skip, name):
		return a.Send(control.CmdSkip)
	}
	return false
}

func keyMatches(bind, name string) bool {
	return bind != "" && strings.EqualFold(bind, name)
}
