package universe

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var blinker = Template{"blinker", "period 2 oscillator", [][]int{{1, 2}, {2, 2}, {3, 2}}}

func newTestRunner(t *testing.T, w int, h int, maxSteps int) *Runner {
	t.Helper()
	o := DefaultUniverseOptions
	o.Width = w
	o.Height = h
	o.Interval = 0
	o.MaxSteps = maxSteps
	o.Seed = 11
	r, err := NewRunner(&o, make(chan Status, 10))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Close)
	return r
}

//waitFor reads the status updates until one of the modes is reached
func waitFor(t *testing.T, r *Runner, modes ...RunningState) Status {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case st := <-r.StateCh():
			for _, m := range modes {
				if st.RunningMode == m {
					return st
				}
			}
		case <-timeout:
			t.Fatalf("timeout waiting for %v", modes)
		}
	}
}

func TestNewRunnerInvalidOptions(t *testing.T) {
	tests := []Options{
		{Width: 0, Height: 10},
		{Width: 10, Height: -1},
		{Width: 10, Height: 10, Interval: -time.Second},
		{Width: 10, Height: 10, MaxSteps: -1},
	}
	for _, o := range tests {
		if _, err := NewRunner(&o, nil); err == nil {
			t.Errorf("NewRunner(%+v) succeeded", o)
		}
	}
	o := Options{Width: 0, Height: 1}
	if _, err := NewRunner(&o, nil); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("error = %v, expected ErrInvalidDimensions", err)
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	r, err := NewRunner(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	s := r.Snapshot()
	if s.Width != DefWidth || s.Height != DefHeight || s.Generation != 0 {
		t.Errorf("unexpected snapshot %dx%d gen %d", s.Width, s.Height, s.Generation)
	}
	for _, c := range s.Cells {
		if c != Dead {
			t.Fatal("new runner universe is not empty")
		}
	}
}

func TestRunnerUnknownTemplate(t *testing.T) {
	r := newTestRunner(t, 5, 5, 0)
	if err := r.SettleTemplate("nope"); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("error = %v, expected ErrUnknownTemplate", err)
	}
}

func TestRunnerStep(t *testing.T) {
	r := newTestRunner(t, 5, 5, 0)
	r.AddTemplate(blinker)
	if err := r.SettleTemplate("blinker"); err != nil {
		t.Fatal(err)
	}
	st := waitFor(t, r, RunningStateManual)
	if st.LiveCells != 3 || st.Generation != 0 {
		t.Fatalf("unexpected status after settle %+v", st)
	}

	r.Step()
	st = waitFor(t, r, RunningStateManual)
	if st.Generation != 1 || st.LiveCells != 3 {
		t.Fatalf("unexpected status after step %+v", st)
	}
	s := r.Snapshot()
	if s.Generation != 1 {
		t.Errorf("snapshot generation = %d, expected 1", s.Generation)
	}
	expected := "◻◻◻◻◻\n◻◻◼◻◻\n◻◻◼◻◻\n◻◻◼◻◻\n◻◻◻◻◻\n"
	if s.Text != expected {
		t.Errorf("snapshot text\n%s\nexpected\n%s", s.Text, expected)
	}
}

func TestRunnerRunUntilMaxSteps(t *testing.T) {
	r := newTestRunner(t, 5, 5, 3)
	r.AddTemplate(blinker)
	_ = r.SettleTemplate("blinker")
	waitFor(t, r, RunningStateManual)

	r.Run()
	st := waitFor(t, r, RunningStateFinished)
	if st.Generation != 3 {
		t.Errorf("finished on generation %d, expected 3", st.Generation)
	}
	if r.Snapshot().Generation != 3 {
		t.Errorf("snapshot generation = %d, expected 3", r.Snapshot().Generation)
	}
}

func TestRunnerRunFinishesOnStillLife(t *testing.T) {
	r := newTestRunner(t, 4, 4, 0)
	r.AddTemplate(Template{"block", "", [][]int{{1, 1}, {2, 1}, {1, 2}, {2, 2}}})
	_ = r.SettleTemplate("block")
	waitFor(t, r, RunningStateManual)

	r.Run()
	st := waitFor(t, r, RunningStateFinished)
	if st.Generation != 1 || st.LiveCells != 4 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestRunnerClear(t *testing.T) {
	r := newTestRunner(t, 8, 8, 0)
	r.SettleWithRandomData()
	st := waitFor(t, r, RunningStateManual)
	if st.LiveCells == 0 {
		t.Fatal("random universe has no live cells")
	}
	r.Step()
	waitFor(t, r, RunningStateManual, RunningStateFinished)

	r.Clear()
	st = waitFor(t, r, RunningStateManual)
	if st.Generation != 0 || st.LiveCells != 0 {
		t.Fatalf("unexpected status after clear %+v", st)
	}
	r.Run()
	st = waitFor(t, r, RunningStateFinished)
	if st.Generation != 1 {
		t.Errorf("dead universe finished on generation %d, expected 1", st.Generation)
	}
}

func TestRunnerStop(t *testing.T) {
	o := DefaultUniverseOptions
	o.Width, o.Height = 5, 5
	o.Interval = time.Millisecond
	o.MaxSteps = 0
	r, err := NewRunner(&o, make(chan Status, 10))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	r.AddTemplate(blinker)
	_ = r.SettleTemplate("blinker")
	waitFor(t, r, RunningStateManual)

	r.Run()
	waitFor(t, r, RunningStateRun)
	r.Stop()
	waitFor(t, r, RunningStateManual)
	//drain the status of the step which may be in flight
	time.Sleep(10 * time.Millisecond)
	for len(r.StateCh()) > 0 {
		<-r.StateCh()
	}
	gen := r.Snapshot().Generation
	time.Sleep(20 * time.Millisecond)
	if r.Snapshot().Generation != gen {
		t.Error("the runner keeps stepping after Stop")
	}
}

func TestRunnerCloseIgnoresCommands(t *testing.T) {
	r := newTestRunner(t, 5, 5, 0)
	r.Close()
	done := make(chan struct{})
	go func() {
		r.Step()
		r.Run()
		r.Clear()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("commands block after Close")
	}
}

type countingViewer struct {
	sync.Mutex
	r         *Runner
	refreshed int
}

func (v *countingViewer) Refresh() {
	v.Lock()
	v.refreshed++
	v.Unlock()
}

func (v *countingViewer) Register(r *Runner) { v.r = r }

func (v *countingViewer) Start() {}

func TestRunnerRefreshesViewers(t *testing.T) {
	r := newTestRunner(t, 5, 5, 0)
	v := &countingViewer{}
	r.RegisterViewer(v)
	if v.r != r {
		t.Fatal("viewer is not registered")
	}
	r.AddTemplate(blinker)
	_ = r.SettleTemplate("blinker")
	waitFor(t, r, RunningStateManual)
	r.Step()
	waitFor(t, r, RunningStateManual)

	v.Lock()
	defer v.Unlock()
	if v.refreshed != 2 {
		t.Errorf("refreshed %d times, expected 2", v.refreshed)
	}
}

func newIntervalRunner(t *testing.T, interval time.Duration, maxSkipped int, stateCh chan Status) *Runner {
	t.Helper()
	o := DefaultUniverseOptions
	o.Width, o.Height = 5, 5
	o.Interval = interval
	o.MaxSteps = 0
	o.MaxSkippedTicks = maxSkipped
	o.Seed = 3
	r, err := NewRunner(&o, stateCh)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Close)
	r.AddTemplate(blinker)
	if err := r.SettleTemplate("blinker"); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRunnerRestartKeepsTickRate(t *testing.T) {
	const (
		interval = 20 * time.Millisecond
		window   = 400 * time.Millisecond
	)
	r := newIntervalRunner(t, interval, DefMaxSkippedTicks, nil)

	r.Run()
	time.Sleep(window)
	r.Stop()
	plain := r.Snapshot().Generation
	if plain == 0 {
		t.Fatal("the runner did not tick")
	}

	r.Run()
	r.Stop()
	r.Run()
	time.Sleep(window)
	r.Stop()
	restarted := r.Snapshot().Generation - plain

	if restarted > plain*3/2+3 {
		t.Errorf("generations in %v: plain run=%d, after Stop+Run=%d", window, plain, restarted)
	}
}

//slowViewer keeps the main loop busy on every refresh once enabled
type slowViewer struct {
	mu    sync.Mutex
	delay time.Duration
}

func (v *slowViewer) Refresh() {
	v.mu.Lock()
	d := v.delay
	v.mu.Unlock()
	time.Sleep(d)
}

func (v *slowViewer) Register(r *Runner) {}

func (v *slowViewer) Start() {}

func TestRunnerRunRules(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"second Run is ignored", func(t *testing.T) {
			r := newIntervalRunner(t, time.Hour, DefMaxSkippedTicks, nil)
			r.Run()
			r.Run()
			time.Sleep(50 * time.Millisecond)
			r.Stop()
			if g := r.Snapshot().Generation; g != 1 {
				t.Errorf("generation = %d, expected 1 from the single driver", g)
			}
		}},
		{"random settle is ignored while running", func(t *testing.T) {
			r := newIntervalRunner(t, time.Hour, DefMaxSkippedTicks, nil)
			r.Run()
			time.Sleep(50 * time.Millisecond)
			r.SettleWithRandomData()
			r.Stop()
			s := r.Snapshot()
			expected := "◻◻◻◻◻\n◻◻◼◻◻\n◻◻◼◻◻\n◻◻◼◻◻\n◻◻◻◻◻\n"
			if s.Generation != 1 || s.Text != expected {
				t.Errorf("universe was replaced: generation %d\n%s", s.Generation, s.Text)
			}
		}},
		{"random settle works after Stop", func(t *testing.T) {
			r := newIntervalRunner(t, time.Hour, DefMaxSkippedTicks, nil)
			r.Run()
			time.Sleep(50 * time.Millisecond)
			r.Stop()
			r.SettleWithRandomData()
			r.Stop() //syncs with the settle
			if g := r.Snapshot().Generation; g != 0 {
				t.Errorf("generation = %d, expected 0 after reseeding", g)
			}
		}},
		{"too many skipped ticks finish the run", func(t *testing.T) {
			r := newIntervalRunner(t, 5*time.Millisecond, 2, make(chan Status, 10))
			waitFor(t, r, RunningStateManual)
			v := &slowViewer{}
			r.RegisterViewer(v)
			v.mu.Lock()
			v.delay = 50 * time.Millisecond
			v.mu.Unlock()
			r.Run()
			st := waitFor(t, r, RunningStateFinished)
			if st.Generation < 1 {
				t.Errorf("finished before the first step: %+v", st)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}
