package universe

import (
	"errors"
	"fmt"
	"time"
)

//Options represents the Runner's configurable options
type Options struct {
	Width           int
	Height          int
	Interval        time.Duration
	MaxSteps        int
	MaxSkippedTicks int
	Seed            uint64 //random seed, 0 - seeded from the clock
}

//Status represents the status of the Runner at concrete moment
type Status struct {
	Generation    int
	RunningMode   RunningState
	LiveCells     int
	IterationTime time.Duration
}

//Snapshot is the read-only copy of the universe state
type Snapshot struct {
	Width      int
	Height     int
	Generation int
	Cells      []Cell
	Text       string
}

//Viewer is the interface to any Viewer - the object who can display simulation data or control the runner
type Viewer interface {
	Refresh()
	Register(r *Runner)
	Start()
}

//Template represent the seeding template which can used to settle the universe with predefined data
type Template struct {
	Name        string  //template name
	Descr       string  //template descr
	Coordinates [][]int //array of [x,y] coordinates
}

//The runner status at the concrete moment
type RunningState int

//default options
const (
	DefSimulationInterval = time.Millisecond * 100
	DefMaxSteps           = 1000
	DefWidth              = 40
	DefHeight             = 15
	DefMaxSkippedTicks    = 5
)

const (
	RunningStateManual   RunningState = 0x0
	RunningStateStep     RunningState = 0x1
	RunningStateRun      RunningState = 0x2
	RunningStateFinished RunningState = 0x3
)

var ErrUnknownTemplate = errors.New("unknown template")

var DefaultUniverseOptions = Options{
	Width:           DefWidth,
	Height:          DefHeight,
	Interval:        DefSimulationInterval,
	MaxSteps:        DefMaxSteps,
	MaxSkippedTicks: DefMaxSkippedTicks,
}

//Validate checks the options before the runner is created
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: %d x %d", ErrInvalidDimensions, o.Width, o.Height)
	}
	if o.Interval < 0 {
		return fmt.Errorf("negative interval %v", o.Interval)
	}
	if o.MaxSteps < 0 {
		return fmt.Errorf("negative max steps %d", o.MaxSteps)
	}
	return nil
}

func (s RunningState) String() string {
	switch s {
	case RunningStateManual:
		return "waiting"
	case RunningStateStep:
		return "do the step"
	case RunningStateRun:
		return "running"
	case RunningStateFinished:
		return "finished"
	}
	return fmt.Sprintf("RunningState(%d)", int(s))
}

//Cell returns the cell at row, col of the snapshot; coordinates wrap around the torus
func (s Snapshot) Cell(row int, col int) Cell {
	row = (row%s.Height + s.Height) % s.Height
	col = (col%s.Width + s.Width) % s.Width
	return s.Cells[row*s.Width+col]
}
