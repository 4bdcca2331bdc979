package view

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/logrusorgru/aurora"

	"gameoflife/src/universe"
)

const (
	headerView   = "header"
	universeView = "universe"
	hintsView    = "hints"
)

//binding is the key handler; the hint is shown only in the listed modes, nil means always
type binding struct {
	key     interface{}
	hint    string
	modes   []universe.RunningState
	handler func() error
}

//ConsoleUI is the interactive terminal view
//the field is a window over the torus which can be panned with the arrow keys
type ConsoleUI struct {
	r        *universe.Runner
	g        *gocui.Gui
	bindings []binding
	//viewport origin, touched by the gocui goroutine only
	ox, oy int
}

var (
	stateNames = map[universe.RunningState]aurora.Value{
		universe.RunningStateManual:   aurora.Blue(universe.RunningStateManual),
		universe.RunningStateRun:      aurora.Cyan(universe.RunningStateRun),
		universe.RunningStateFinished: aurora.Red(universe.RunningStateFinished),
	}
	idleModes = []universe.RunningState{universe.RunningStateManual, universe.RunningStateFinished}
)

//NewViewTerminal creates the interactive terminal view
func NewViewTerminal() *ConsoleUI {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		log.Panicln(err)
	}
	t := &ConsoleUI{g: g}
	t.bindings = t.keyBindings()
	g.SetManagerFunc(t.layout)
	for _, b := range t.bindings {
		h := b.handler
		if err := g.SetKeybinding("", b.key, gocui.ModNone, func(*gocui.Gui, *gocui.View) error { return h() }); err != nil {
			log.Panicln(err)
		}
	}
	return t
}

func (t *ConsoleUI) keyBindings() []binding {
	return []binding{
		{gocui.KeyCtrlC, "^C exit", nil, func() error { return gocui.ErrQuit }},
		{'n', "N tick", idleModes, t.runner((*universe.Runner).Step)},
		{'r', "R run", idleModes, t.runner((*universe.Runner).Run)},
		{'s', "S stop", []universe.RunningState{universe.RunningStateRun}, t.runner((*universe.Runner).Stop)},
		{'w', "W reseed", idleModes, t.runner((*universe.Runner).SettleWithRandomData)},
		{'c', "C clear", nil, t.runner((*universe.Runner).Clear)},
		{gocui.KeyArrowLeft, "←↑→↓ pan", nil, t.pan(-1, 0)},
		{gocui.KeyArrowRight, "", nil, t.pan(1, 0)},
		{gocui.KeyArrowUp, "", nil, t.pan(0, -1)},
		{gocui.KeyArrowDown, "", nil, t.pan(0, 1)},
	}
}

func (t *ConsoleUI) Register(r *universe.Runner) {
	t.r = r
}

func (t *ConsoleUI) Start() {
	if err := t.g.MainLoop(); err != nil && err != gocui.ErrQuit {
		log.Panicln(err)
	}
	t.g.Close()
}

//Refresh is called by the runner goroutine, the drawing is passed to the gocui loop
func (t *ConsoleUI) Refresh() {
	s := t.r.Snapshot()
	st := t.r.Status()
	t.g.Update(func(g *gocui.Gui) error {
		t.draw(g, s, st)
		return nil
	})
}

func (t *ConsoleUI) runner(cmd func(*universe.Runner)) func() error {
	return func() error {
		cmd(t.r)
		return nil
	}
}

//pan moves the viewport, the origin wraps the same way the universe does
func (t *ConsoleUI) pan(dx int, dy int) func() error {
	return func() error {
		o := t.r.Options()
		t.ox = ((t.ox+dx)%o.Width + o.Width) % o.Width
		t.oy = ((t.oy+dy)%o.Height + o.Height) % o.Height
		//the layout redraws the views after the key handler
		return nil
	}
}

func (t *ConsoleUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	if v, err := g.SetView(headerView, -1, -1, maxX, 1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		v.BgColor = gocui.ColorCyan
		v.FgColor = gocui.ColorBlack
	}
	if v, err := g.SetView(universeView, 0, 1, maxX-1, maxY-2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = true
	}
	if v, err := g.SetView(hintsView, -1, maxY-2, maxX, maxY); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
	}
	if t.r != nil {
		t.draw(g, t.r.Snapshot(), t.r.Status())
	}
	return nil
}

//draw renders all views, must be called from the gocui goroutine
func (t *ConsoleUI) draw(g *gocui.Gui, s universe.Snapshot, st universe.Status) {
	if v, err := g.View(headerView); err == nil {
		v.Clear()
		_, _ = fmt.Fprintf(v, " generation %d | live cells %d | tick %v | %v",
			st.Generation, st.LiveCells, st.IterationTime.Round(time.Microsecond), stateName(st.RunningMode))
	}
	if v, err := g.View(universeView); err == nil {
		v.Clear()
		w, h := v.Size()
		v.Title = fmt.Sprintf("%d x %d torus, origin %d,%d", s.Width, s.Height, t.ox, t.oy)
		_, _ = fmt.Fprint(v, viewport(s, t.ox, t.oy, w, h, paintCell))
	}
	if v, err := g.View(hintsView); err == nil {
		v.Clear()
		_, _ = fmt.Fprint(v, " "+hints(t.bindings, st.RunningMode))
	}
}

func stateName(m universe.RunningState) string {
	if n, ok := stateNames[m]; ok {
		return n.String()
	}
	return m.String()
}

func paintCell(c universe.Cell) string {
	if c == universe.Alive {
		return aurora.Green(string(c.Rune())).String()
	}
	return string(c.Rune())
}

//viewport cuts the w x h window starting at the ox, oy origin out of the torus
//the window never shows a cell twice: it is clipped to the universe size
func viewport(s universe.Snapshot, ox int, oy int, w int, h int, paint func(universe.Cell) string) string {
	w = min(w, s.Width)
	h = min(h, s.Height)
	var b strings.Builder
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			b.WriteString(paint(s.Cell(oy+row, ox+col)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

//hints lists the keys available in the mode
func hints(bindings []binding, mode universe.RunningState) string {
	var hs []string
	for _, b := range bindings {
		if b.hint == "" {
			continue
		}
		if b.modes != nil && !slices.Contains(b.modes, mode) {
			continue
		}
		hs = append(hs, b.hint)
	}
	return strings.Join(hs, "  ")
}
