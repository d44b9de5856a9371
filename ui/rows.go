package ui

import (
	"time"

	"SpeedSplit/app"
	"SpeedSplit/timer"
)

type rowKind int

const (
	rowPending rowKind = iota
	rowCurrent
	rowDone
	rowSkipped
)

// rowView is the text of one split row, computed off the UI goroutine.
type rowView struct {
	Title string
	Time  string
	Delta string
	Kind  rowKind
	Ahead bool
	Gold  bool
}

func splitRows(f app.Frame, decimals int) []rowView {
	if !f.Loaded || f.Snapshot.Game == nil {
		return nil
	}
	s := f.Snapshot
	g := s.Game
	rows := make([]rowView, len(g.Splits))
	for i, sp := range g.Splits {
		stored := time.Duration(sp.Time)
		r := rowView{Title: sp.Title, Time: storedText(stored, decimals)}

		var recorded time.Duration
		if i < len(s.SplitTimes) {
			recorded = s.SplitTimes[i]
		}

		switch {
		case s.Started && i < s.CurrentSplit && recorded == 0:
			r.Kind = rowSkipped
			r.Time = "-"
		case s.Started && i < s.CurrentSplit:
			r.Kind = rowDone
			r.Time = timer.FormatTime(recorded, decimals)
			if stored != 0 {
				r.Delta = timer.FormatDelta(recorded-stored, decimals)
				r.Ahead = recorded <= stored
			}
			if best := time.Duration(sp.BestSegment); best != 0 {
				if seg, ok := segment(s.SplitTimes, i); ok && seg < best {
					r.Gold = true
				}
			}
		case s.Started && i == s.CurrentSplit:
			r.Kind = rowCurrent
			// show a live delta only once the stored split has been passed
			if stored != 0 && s.Elapsed > stored {
				r.Delta = timer.FormatDelta(s.Elapsed-stored, decimals)
			}
		}
		rows[i] = r
	}
	return rows
}

// segment returns the time spent on split i, which is only known when the
// previous split was not skipped.
func segment(times []time.Duration, i int) (time.Duration, bool) {
	if i == 0 {
		return times[0], true
	}
	if times[i-1] == 0 {
		return 0, false
	}
	return times[i] - times[i-1], true
}

func storedText(d time.Duration, decimals int) string {
	if d == 0 {
		return "-"
	}
	return timer.FormatTime(d, decimals)
}

func timerText(f app.Frame, decimals int) string {
	if !f.Loaded {
		return ""
	}
	return timer.FormatTime(f.Snapshot.Elapsed, decimals)
}
