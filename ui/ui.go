package ui

import (
	"context"
	"fmt"
	"image/color"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog/log"

	"SpeedSplit/app"
	"SpeedSplit/control"
	"SpeedSplit/i18n"
	"SpeedSplit/timer"
)

const (
	opTimeout    = 5 * time.Second
	rowHeight    = 28
	timeTextSize = 42
	rowTextSize  = 15
)

var (
	colorAhead   = color.NRGBA{R: 0x4c, G: 0xc0, B: 0x5c, A: 0xff}
	colorBehind  = color.NRGBA{R: 0xe0, G: 0x4f, B: 0x4f, A: 0xff}
	colorGold    = color.NRGBA{R: 0xf0, G: 0xc0, B: 0x30, A: 0xff}
	colorCurrent = color.NRGBA{R: 0x3a, G: 0x6e, B: 0xd8, A: 0xff}
	colorPaused  = color.NRGBA{R: 0x9a, G: 0x9a, B: 0x9a, A: 0xff}
)

// Controller is what the window drives. *app.AppManager implements it.
type Controller interface {
	HandleKey(name string) bool
	Send(typ control.CommandType) bool
	Open(ctx context.Context, path string) error
	Reload(ctx context.Context) error
	Close(ctx context.Context) error
	Save(ctx context.Context) error
	SwapScript(ctx context.Context, path string) error
	SetAutoSplitterEnabled(enabled bool)
}

type splitRow struct {
	title *canvas.Text
	delta *canvas.Text
	time  *canvas.Text
	bg    *canvas.Rectangle
}

// Window is the fyne front end. It implements app.View and app.Confirmer.
type Window struct {
	fyneApp  fyne.App
	win      fyne.Window
	ctrl     Controller
	decimals int

	title     *canvas.Text
	attempts  *canvas.Text
	timeText  *canvas.Text
	welcome   fyne.CanvasObject
	rowsBox   *fyne.Container
	rows      []*splitRow
	autoCheck *widget.Check

	width  atomic.Int32
	height atomic.Int32
}

// NewWindow builds the main window. SetController must be called before it
// is shown.
func NewWindow(fyneApp fyne.App, decimals int, autoSplitter bool) *Window {
	title := fyneApp.Metadata().Name
	if title == "" {
		title = "SpeedSplit"
	}
	w := &Window{
		fyneApp:  fyneApp,
		win:      fyneApp.NewWindow(title),
		decimals: decimals,
	}

	w.title = canvas.NewText("", theme.Color(theme.ColorNameForeground))
	w.title.TextStyle.Bold = true
	w.title.Alignment = fyne.TextAlignCenter
	w.attempts = canvas.NewText("", colorPaused)
	w.attempts.Alignment = fyne.TextAlignTrailing

	w.timeText = canvas.NewText("", theme.Color(theme.ColorNameForeground))
	w.timeText.TextStyle.Monospace = true
	w.timeText.TextSize = timeTextSize
	w.timeText.Alignment = fyne.TextAlignTrailing
	tappableTime := NewTappableContainer(w.timeText,
		func() { w.send(control.CmdStartSplit) },
		func(*fyne.PointEvent) { w.send(control.CmdStopReset) },
	)

	welcomeText := widget.NewLabel(i18n.T("Open splits to start timing"))
	welcomeText.Alignment = fyne.TextAlignCenter
	w.welcome = container.NewCenter(welcomeText)
	w.rowsBox = container.NewVBox()

	w.autoCheck = widget.NewCheck(i18n.T("Auto splitter"), nil)
	w.autoCheck.SetChecked(autoSplitter)
	w.autoCheck.OnChanged = w.autoSplitterChanged

	footer := container.NewHBox(
		w.autoCheck,
		layout.NewSpacer(),
		widget.NewButton(i18n.T("Start"), func() { w.send(control.CmdStartSplit) }),
		widget.NewButton(i18n.T("Reset"), func() { w.send(control.CmdStopReset) }),
	)
	header := container.NewBorder(nil, nil, nil, w.attempts, w.title)
	body := container.NewStack(w.welcome, container.NewVScroll(w.rowsBox))

	w.win.SetContent(container.NewBorder(header, container.NewVBox(tappableTime, footer), nil, nil, body))
	w.win.SetMainMenu(w.buildMenu())
	w.win.Resize(fyne.NewSize(320, 480))
	w.win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if w.ctrl != nil {
			w.ctrl.HandleKey(string(ev.Name))
		}
	})
	return w
}

// SetController connects the window to the timer.
func (w *Window) SetController(c Controller) {
	w.ctrl = c
}

// ShowAndRun shows the window and runs the fyne event loop.
func (w *Window) ShowAndRun() {
	w.win.ShowAndRun()
}

// SetOnClosed registers a callback for when the user closes the window.
func (w *Window) SetOnClosed(f func()) {
	w.win.SetOnClosed(f)
}

// Quit stops the fyne event loop from any goroutine.
func (w *Window) Quit() {
	fyne.Do(w.fyneApp.Quit)
}

func (w *Window) buildMenu() *fyne.MainMenu {
	file := fyne.NewMenu(i18n.T("File"),
		fyne.NewMenuItem(i18n.T("Open"), w.openSplits),
		fyne.NewMenuItem(i18n.T("Save"), func() {
			w.run(func(ctx context.Context) error { return w.ctrl.Save(ctx) })
		}),
		fyne.NewMenuItem(i18n.T("Reload"), func() {
			w.run(func(ctx context.Context) error { return w.ctrl.Reload(ctx) })
		}),
		fyne.NewMenuItem(i18n.T("Close"), func() {
			w.run(func(ctx context.Context) error { return w.ctrl.Close(ctx) })
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem(i18n.T("Open auto splitter"), w.openScript),
	)
	return fyne.NewMainMenu(file)
}

func (w *Window) send(typ control.CommandType) {
	if w.ctrl != nil {
		w.ctrl.Send(typ)
	}
	w.win.Canvas().Focus(nil)
}

// run executes a control operation off the UI goroutine.
func (w *Window) run(op func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := op(ctx); err != nil {
			log.Warn().Err(err).Msg("operation failed")
			w.Notify(i18n.T("Error"), err.Error())
		}
	}()
}

func (w *Window) openSplits() {
	w.pickFile(".json", func(path string) {
		w.run(func(ctx context.Context) error { return w.ctrl.Open(ctx, path) })
	})
}

func (w *Window) openScript() {
	w.pickFile(".js", func(path string) {
		w.run(func(ctx context.Context) error { return w.ctrl.SwapScript(ctx, path) })
	})
}

func (w *Window) pickFile(ext string, picked func(path string)) {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w.win)
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		r.Close()
		picked(path)
	}, w.win)
	d.SetFilter(storage.NewExtensionFileFilter([]string{ext}))
	d.Show()
}

func (w *Window) autoSplitterChanged(on bool) {
	if w.ctrl != nil {
		w.ctrl.SetAutoSplitterEnabled(on)
	}
	w.win.Canvas().Focus(nil)
}

// Render implements app.View.
func (w *Window) Render(f app.Frame) {
	rows := splitRows(f, w.decimals)
	text := timerText(f, w.decimals)
	state := f.Snapshot.State

	fyne.Do(func() {
		size := w.win.Canvas().Size()
		w.width.Store(int32(size.Width))
		w.height.Store(int32(size.Height))

		w.timeText.Text = text
		w.timeText.Color = stateColor(state)
		w.timeText.Refresh()

		if w.autoCheck.Checked != f.AutoSplitter {
			handler := w.autoCheck.OnChanged
			w.autoCheck.OnChanged = nil
			w.autoCheck.SetChecked(f.AutoSplitter)
			w.autoCheck.OnChanged = handler
		}

		if len(rows) != len(w.rows) {
			return
		}
		for i, r := range rows {
			w.rows[i].update(r)
		}
	})
}

// Show implements app.View.
func (w *Window) Show(g *timer.Game) {
	fyne.Do(func() {
		w.rowsBox.RemoveAll()
		w.rows = nil

		if g == nil {
			w.title.Text = ""
			w.attempts.Text = ""
			w.welcome.Show()
			w.fyneApp.Settings().SetTheme(theme.DefaultTheme())
		} else {
			w.title.Text = g.Title
			w.attempts.Text = fmt.Sprintf("#%d", g.Attempts)
			w.welcome.Hide()
			for _, sp := range g.Splits {
				row := newSplitRow(sp.Title)
				w.rows = append(w.rows, row)
				w.rowsBox.Add(row.object())
			}
			if g.Width > 0 && g.Height > 0 {
				w.win.Resize(fyne.NewSize(float32(g.Width), float32(g.Height)))
			}
			w.fyneApp.Settings().SetTheme(NewVariantTheme(g.ThemeVariant))
		}
		w.title.Refresh()
		w.attempts.Refresh()
		w.rowsBox.Refresh()
	})
}

// Notify implements app.View.
func (w *Window) Notify(title, message string) {
	fyne.Do(func() {
		dialog.ShowInformation(title, message, w.win)
	})
}

// Size implements app.View with the size seen by the last render.
func (w *Window) Size() (int, int) {
	return int(w.width.Load()), int(w.height.Load())
}

// Confirm implements app.Confirmer with a modal yes/no dialog.
func (w *Window) Confirm(title, question string) <-chan bool {
	answer := make(chan bool, 1)
	fyne.Do(func() {
		dialog.NewConfirm(title, question, func(ok bool) {
			answer <- ok
		}, w.win).Show()
	})
	return answer
}

func newSplitRow(title string) *splitRow {
	fg := theme.Color(theme.ColorNameForeground)
	r := &splitRow{
		title: canvas.NewText(title, fg),
		delta: canvas.NewText("", fg),
		time:  canvas.NewText("-", fg),
		bg:    canvas.NewRectangle(color.Transparent),
	}
	r.title.TextSize = rowTextSize
	r.delta.TextSize = rowTextSize
	r.delta.Alignment = fyne.TextAlignTrailing
	r.time.TextSize = rowTextSize
	r.time.Alignment = fyne.TextAlignTrailing
	r.time.TextStyle.Monospace = true
	r.bg.SetMinSize(fyne.NewSize(0, rowHeight))
	return r
}

func (r *splitRow) object() fyne.CanvasObject {
	right := container.NewHBox(r.delta, r.time)
	return container.NewStack(r.bg, container.NewBorder(nil, nil, nil, right, r.title))
}

func (r *splitRow) update(v rowView) {
	r.time.Text = v.Time
	r.delta.Text = v.Delta

	switch {
	case v.Gold:
		r.delta.Color = colorGold
	case v.Ahead:
		r.delta.Color = colorAhead
	default:
		r.delta.Color = colorBehind
	}

	r.bg.FillColor = color.Transparent
	if v.Kind == rowCurrent {
		r.bg.FillColor = withAlpha(colorCurrent, 0x40)
	}
	r.time.Refresh()
	r.delta.Refresh()
	r.bg.Refresh()
}

func stateColor(s timer.TimerState) color.Color {
	switch s {
	case timer.StateRunning:
		return colorAhead
	case timer.StateLoading, timer.StatePaused:
		return colorPaused
	case timer.StateFinished:
		return colorCurrent
	default:
		return theme.Color(theme.ColorNameForeground)
	}
}

// TappableContainer forwards primary and secondary taps on its content.
type TappableContainer struct {
	widget.BaseWidget
	Content           fyne.CanvasObject
	OnTappedPrimary   func()
	OnTappedSecondary func(e *fyne.PointEvent)
}

func NewTappableContainer(c fyne.CanvasObject, onP func(), onS func(e *fyne.PointEvent)) *TappableContainer {
	t := &TappableContainer{
		Content:           c,
		OnTappedPrimary:   onP,
		OnTappedSecondary: onS,
	}
	t.ExtendBaseWidget(t)
	return t
}

func (t *TappableContainer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.Content)
}

func (t *TappableContainer) Tapped(_ *fyne.PointEvent) {
	if t.OnTappedPrimary != nil {
		t.OnTappedPrimary()
	}
}

func (t *TappableContainer) TappedSecondary(e *fyne.PointEvent) {
	if t.OnTappedSecondary != nil {
		t.OnTappedSecondary(e)
	}
}

func withAlpha(c color.Color, alpha uint8) color.NRGBA {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: alpha}
}
