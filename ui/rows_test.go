package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SpeedSplit/app"
	"SpeedSplit/timer"
)

func testGame() *timer.Game {
	return &timer.Game{
		Title: "Test",
		Splits: []timer.Split{
			{Title: "One", Time: timer.Duration(10 * time.Second), BestSegment: timer.Duration(9 * time.Second)},
			{Title: "Two", Time: timer.Duration(20 * time.Second), BestSegment: timer.Duration(9 * time.Second)},
			{Title: "Three", Time: timer.Duration(30 * time.Second)},
			{Title: "Four"},
		},
	}
}

func TestSplitRowsNotLoaded(t *testing.T) {
	assert.Nil(t, splitRows(app.Frame{}, 2))
	assert.Empty(t, timerText(app.Frame{}, 2))
}

func TestSplitRowsBeforeStart(t *testing.T) {
	f := app.Frame{Loaded: true, Snapshot: timer.Snapshot{
		Game:       testGame(),
		SplitTimes: make([]time.Duration, 4),
	}}
	rows := splitRows(f, 2)
	require.Len(t, rows, 4)
	assert.Equal(t, rowView{Title: "One", Time: "10.00"}, rows[0])
	assert.Equal(t, "-", rows[3].Time)
	assert.Equal(t, "0.00", timerText(f, 2))
}

func TestSplitRowsDuringRun(t *testing.T) {
	f := app.Frame{Loaded: true, Snapshot: timer.Snapshot{
		Game:         testGame(),
		Started:      true,
		Running:      true,
		State:        timer.StateRunning,
		Elapsed:      31 * time.Second,
		SplitTimes:   []time.Duration{8 * time.Second, 0, 0, 0},
		CurrentSplit: 2,
	}}
	rows := splitRows(f, 1)
	require.Len(t, rows, 4)

	assert.Equal(t, rowDone, rows[0].Kind)
	assert.Equal(t, "8.0", rows[0].Time)
	assert.Equal(t, "-2.0", rows[0].Delta)
	assert.True(t, rows[0].Ahead)
	assert.True(t, rows[0].Gold)

	assert.Equal(t, rowSkipped, rows[1].Kind)
	assert.Equal(t, "-", rows[1].Time)
	assert.Empty(t, rows[1].Delta)

	assert.Equal(t, rowCurrent, rows[2].Kind)
	assert.Equal(t, "30.0", rows[2].Time)
	assert.Equal(t, "+1.0", rows[2].Delta, "live delta once the stored split is passed")

	assert.Equal(t, rowPending, rows[3].Kind)
	assert.Equal(t, "31.0", timerText(f, 1))
}

func TestSegmentAfterSkip(t *testing.T) {
	times := []time.Duration{0, 5 * time.Second, 9 * time.Second}
	_, ok := segment(times, 1)
	assert.False(t, ok)

	seg, ok := segment(times, 2)
	assert.True(t, ok)
	assert.Equal(t, 4*time.Second, seg)
}

func TestAutoConfirmer(t *testing.T) {
	assert.True(t, <-AutoConfirmer{Answer: true}.Confirm("t", "q"))
	assert.False(t, <-AutoConfirmer{}.Confirm("t", "q"))
}

func TestLogViewLogsChangesOnly(t *testing.T) {
	v := NewLogView(2)
	f := app.Frame{Loaded: true, Snapshot: timer.Snapshot{Game: testGame(), State: timer.StateRunning}}

	v.Render(f)
	assert.Equal(t, timer.StateRunning, v.last)
	assert.True(t, v.loaded)

	f.Snapshot.CurrentSplit = 1
	v.Render(f)
	assert.Equal(t, 1, v.split)

	v.Render(app.Frame{})
	assert.False(t, v.loaded)
	w, h := v.Size()
	assert.Zero(t, w+h)
}
