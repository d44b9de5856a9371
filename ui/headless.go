package ui

import (
	"github.com/rs/zerolog/log"

	"SpeedSplit/app"
	"SpeedSplit/timer"
)

// LogView is the view used without a window. It logs state changes instead
// of drawing them.
type LogView struct {
	decimals int
	last     timer.TimerState
	split    int
	loaded   bool
}

// NewLogView returns a view that logs with the given time precision.
func NewLogView(decimals int) *LogView {
	return &LogView{decimals: decimals}
}

// Render logs a line whenever the state or current split changes.
func (v *LogView) Render(f app.Frame) {
	s := f.Snapshot
	if f.Loaded == v.loaded && s.State == v.last && s.CurrentSplit == v.split {
		return
	}
	v.loaded, v.last, v.split = f.Loaded, s.State, s.CurrentSplit
	if !f.Loaded {
		return
	}
	log.Info().
		Stringer("state", s.State).
		Int("split", s.CurrentSplit).
		Str("time", timerText(f, v.decimals)).
		Msg("timer")
}

func (v *LogView) Show(g *timer.Game) {
	if g == nil {
		log.Info().Msg("no split file open")
		return
	}
	log.Info().Str("title", g.Title).Int("splits", g.SplitCount()).Int("attempts", g.Attempts).Msg("showing run")
}

func (v *LogView) Notify(title, message string) {
	log.Warn().Str("title", title).Msg(message)
}

func (v *LogView) Size() (int, int) {
	return 0, 0
}

// AutoConfirmer answers every question with a fixed answer.
type AutoConfirmer struct {
	Answer bool
}

func (c AutoConfirmer) Confirm(title, question string) <-chan bool {
	log.Info().Str("title", title).Bool("answer", c.Answer).Msg(question)
	answer := make(chan bool, 1)
	answer <- c.Answer
	return answer
}
