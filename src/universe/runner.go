package universe

import (
	"fmt"
	"log"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

//Runner drives the Universe: it owns one instance and serializes all access to it
//every command is executed by the main loop goroutine, the views and the control software talk to the Runner only
type Runner struct {
	options Options
	state   struct {
		Status
		sync.Mutex
	}
	universe struct {
		*Universe
		sync.Mutex
	}
	templates struct {
		m map[string]Template
		sync.RWMutex
	}
	rng       *rand.Rand
	stateCh   chan Status
	views     []Viewer
	stopRun   chan struct{} //token of the active run, owned by the main loop
	controlCh chan func()
	closed    chan struct{}
	closeOnce sync.Once
}

//NewRunner creates the Runner with the dead universe and starts the main loop
//stateCh can be nil if nobody waits for the status updates
func NewRunner(o *Options, stateCh chan Status) (*Runner, error) {
	if o == nil {
		def := DefaultUniverseOptions
		o = &def
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("runner options: %w", err)
	}
	u, err := FromCoordinates(o.Width, o.Height, nil)
	if err != nil {
		return nil, err
	}

	r := Runner{
		options:   *o,
		rng:       newRand(o.Seed),
		stateCh:   stateCh,
		controlCh: make(chan func()),
		closed:    make(chan struct{}),
	}
	r.templates.m = map[string]Template{}
	r.universe.Universe = u
	go r.mainLoop()
	return &r, nil
}

//AddTemplate adds the seeding template to the internal storage
//the universe can be populated with this template by call SettleTemplate
func (r *Runner) AddTemplate(tmpl Template) {
	r.templates.Lock()
	r.templates.m[tmpl.Name] = tmpl
	r.templates.Unlock()
}

//SettleTemplate rebuilds the universe from the seeding template, returns immediately
func (r *Runner) SettleTemplate(name string) error {
	r.templates.RLock()
	tmpl, ok := r.templates.m[name]
	r.templates.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	r.exec(func() {
		u, err := FromCoordinates(r.options.Width, r.options.Height, tmpl.Coordinates)
		if err != nil {
			//the options are validated by NewRunner
			log.Panicln(err)
		}
		r.reset(u)
	})
	return nil
}

//SettleWithRandomData rebuilds the universe with random data, returns immediately
//ignored while the simulation is running
func (r *Runner) SettleWithRandomData() {
	r.exec(func() {
		if r.stopRun != nil {
			return
		}
		u, err := NewWithRand(r.options.Width, r.options.Height, r.rng)
		if err != nil {
			log.Panicln(err)
		}
		r.reset(u)
	})
}

//RegisterViewer registers the viewer - the runner will call the viewer when the state is changed
func (r *Runner) RegisterViewer(v Viewer) {
	r.exec(func() {
		r.views = append(r.views, v)
	})
	v.Register(r)
}

//StateCh returns the channel with the runner's status updates
func (r *Runner) StateCh() chan Status {
	return r.stateCh
}

//Status returns current runner status represented by Status struct
func (r *Runner) Status() Status {
	r.state.Lock()
	defer r.state.Unlock()
	return r.state.Status
}

//Options returns current runner configuration represented by Options struct
func (r *Runner) Options() Options {
	return r.options
}

//Snapshot returns the copy of the current universe
func (r *Runner) Snapshot() Snapshot {
	r.universe.Lock()
	defer r.universe.Unlock()
	return Snapshot{
		Width:      r.universe.Width(),
		Height:     r.universe.Height(),
		Generation: r.universe.Generation(),
		Cells:      r.universe.Cells(),
		Text:       r.universe.Render(),
	}
}

//Run starts the simulation, returns immediately
func (r *Runner) Run() {
	r.exec(r.run)
}

//Stop stops the simulation, returns immediately
//the Status struct will be written the stateCh on finish
func (r *Runner) Stop() {
	r.exec(r.stop)
}

//Step do one simulation step, returns immediately
//the Status struct will be written to the stateCh on start and on finish
func (r *Runner) Step() {
	r.exec(r.step)
}

//Clear replaces the universe with the dead one and resets all counters, returns immediately
//the Status struct will be written to the stateCh on finish
func (r *Runner) Clear() {
	r.exec(func() {
		u, err := FromCoordinates(r.options.Width, r.options.Height, nil)
		if err != nil {
			log.Panicln(err)
		}
		r.reset(u)
	})
}

//Close stops the main loop, the commands sent after Close are ignored
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
	})
}

//exec passes the command to the main loop
//returns false if the runner is closed
func (r *Runner) exec(cmd func()) bool {
	select {
	case r.controlCh <- cmd:
		return true
	case <-r.closed:
		return false
	}
}

//mainLoop - the main cycle, should start as a goroutine
//waits for command and executes
func (r *Runner) mainLoop() {
	for {
		select {
		case cmd := <-r.controlCh:
			cmd()
		case <-r.closed:
			return
		}
	}
}

func (r *Runner) mode() RunningState {
	r.state.Lock()
	defer r.state.Unlock()
	return r.state.RunningMode
}

//switchRunningState switch the state of the runner to RunningState
//also writes the new state to the stateCh to signal upper control software
func (r *Runner) switchRunningState(to RunningState) {
	r.state.Lock()
	r.state.RunningMode = to
	st := r.state.Status
	r.state.Unlock()
	if r.stateCh != nil {
		r.stateCh <- st
	}
}

//run starts the simulation
//simulation will stop on Stop() calling or when the boundary conditions are reached
//every run owns the stop token, the driver of a stopped run never ticks again
func (r *Runner) run() {
	if r.stopRun != nil {
		return
	}
	token := make(chan struct{})
	r.stopRun = token
	r.switchRunningState(RunningStateRun)
	go r.drive(token)
}

//drive issues one step on every Interval until the token is closed
//a tick is skipped if the previous step is still in progress, too many skipped ticks finish the run
func (r *Runner) drive(token chan struct{}) {
	var tick <-chan time.Time
	if r.options.Interval > 0 {
		ticker := time.NewTicker(r.options.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	done := make(chan struct{}, 1)
	cmd := func() {
		if r.stopRun == token {
			r.step()
		}
		done <- struct{}{}
	}
	issue := func() {
		go r.exec(cmd)
	}

	skipped := 0
	pending := true
	issue()
	for {
		select {
		case <-token:
			return
		case <-r.closed:
			return
		case <-done:
			pending = false
			if tick == nil {
				pending = true
				issue()
			}
		case <-tick:
			if !pending {
				skipped = 0
				pending = true
				issue()
				continue
			}
			skipped++
			if skipped > r.options.MaxSkippedTicks {
				go r.exec(func() {
					if r.stopRun == token {
						r.haltRun()
						r.switchRunningState(RunningStateFinished)
					}
				})
				return
			}
		}
	}
}

//haltRun closes the token of the current run
func (r *Runner) haltRun() {
	if r.stopRun != nil {
		close(r.stopRun)
		r.stopRun = nil
	}
}

//stop stops the running cycle
func (r *Runner) stop() {
	if r.stopRun != nil {
		r.haltRun()
		r.switchRunningState(RunningStateManual)
	}
}

//step advances the universe by one generation
//the runner is finished when all cells are dead, nothing changed or MaxSteps is reached
func (r *Runner) step() {
	finished := false
	rm := r.mode()
	maxSteps := r.options.MaxSteps
	defer func() {
		r.refreshView()
		if finished {
			r.haltRun()
			r.switchRunningState(RunningStateFinished)
		} else {
			r.switchRunningState(rm)
		}
	}()

	if maxSteps != 0 && r.Status().Generation >= maxSteps {
		finished = true
		return
	}
	r.switchRunningState(RunningStateStep)
	isAlive, changed := r.nextIteration()
	if !isAlive || !changed || (maxSteps != 0 && r.Status().Generation >= maxSteps) {
		finished = true
	}
}

//nextIteration ticks the universe and updates the status counters
func (r *Runner) nextIteration() (hasLiveCells bool, changed bool) {
	r.universe.Lock()
	start := time.Now()
	prev := r.universe.cells
	gen := r.universe.Tick()
	changed = !slices.Equal(prev, r.universe.cells)
	liveCells := r.universe.LiveCells()
	r.universe.Unlock()

	r.state.Lock()
	r.state.Generation = gen
	r.state.LiveCells = liveCells
	r.state.IterationTime = time.Since(start)
	r.state.Unlock()
	return liveCells > 0, changed
}

//reset replaces the universe and resets all counters
func (r *Runner) reset(u *Universe) {
	r.universe.Lock()
	r.universe.Universe = u
	r.universe.Unlock()

	r.state.Lock()
	r.state.Generation = u.Generation()
	r.state.LiveCells = u.LiveCells()
	r.state.IterationTime = 0
	r.state.Unlock()
	r.haltRun()
	r.refreshView()
	r.switchRunningState(RunningStateManual)
}

//refreshView calls Refresh event for all registered views
//it is called before the status is published, so the status update means the views are refreshed
func (r *Runner) refreshView() {
	for _, v := range r.views {
		v.Refresh()
	}
}
