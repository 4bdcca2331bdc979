package main

import (
	"log"
	"sort"
	"strings"

	"github.com/integrii/flaggy"

	"gameoflife/src/universe"
	"gameoflife/src/view"
)

var (
	templates = []universe.Template{
		{
			Name:  "stable",
			Descr: "the test sample with 3 stable patterns",
			Coordinates: [][]int{
				{1, 1}, {1, 2},
				{2, 1}, {2, 2},
				{3, 3},
				{4, 2},
				{4, 3},
				{5, 3},
			},
		},
		{Name: "blinker", Descr: "period 2 oscillator", Coordinates: [][]int{{1, 2}, {2, 2}, {3, 2}}},
		{Name: "glider", Descr: "travels across the torus", Coordinates: [][]int{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}},
	}
)

type EnvOptions struct {
	interactive bool
	randomData  bool
	printField  bool
	template    string
}

func main() {
	eo, uo := initOptions()

	var stateCh chan universe.Status

	if !eo.interactive {
		stateCh = make(chan universe.Status, 10) //the buffered channel to getting the runner status
	}

	r, err := universe.NewRunner(uo, stateCh)
	if err != nil {
		log.Fatalf("can't create the universe: %v", err)
	}

	for _, t := range templates {
		r.AddTemplate(t)
	}

	if eo.interactive {
		v := view.NewViewTerminal()
		r.RegisterViewer(v)
		settle(r, eo)
		v.Start()
		r.Close()
		return
	}

	v := view.NewConsoleOut(eo.printField)
	r.RegisterViewer(v)
	settle(r, eo)
	<-stateCh //settled
	v.Start()
	r.Run()
	for {
		st := <-stateCh
		if st.RunningMode == universe.RunningStateFinished {
			v.Summary(st)
			break
		}
	}
	r.Close()
}

func settle(r *universe.Runner, eo *EnvOptions) {
	if eo.randomData {
		r.SettleWithRandomData()
		return
	}
	if err := r.SettleTemplate(eo.template); err != nil {
		log.Fatalf("can't settle the universe: %v", err)
	}
}

func initOptions() (eo *EnvOptions, uo *universe.Options) {

	o := universe.DefaultUniverseOptions
	uo = &o
	templateNames := make([]string, 0, len(templates))
	for _, t := range templates {
		templateNames = append(templateNames, t.Name)
	}
	sort.Strings(templateNames)
	eo = &EnvOptions{template: "stable"}
	var seed int
	flaggy.SetName("gameoflife")
	flaggy.SetDescription("Conway's Game of Life on the toroidal grid")
	flaggy.DefaultParser.ShowHelpOnUnexpected = true
	flaggy.Int(&uo.Width, "x", "width", "Width of a simulation field")
	flaggy.Int(&uo.Height, "y", "height", "Height of a simulation field")
	flaggy.Duration(&uo.Interval, "i", "interval", "Simulation speed (interval between the steps) in format the number with 'ms' suffix, for example 150ms")
	flaggy.Int(&uo.MaxSteps, "s", "maxSteps", "Limit the simulation to maxSteps, 0 - unlimited")
	flaggy.Int(&seed, "", "seed", "Random seed, 0 - seeded from the clock")
	flaggy.Bool(&eo.interactive, "n", "interactive", "Start interactive mode")
	flaggy.Bool(&eo.randomData, "r", "random", "Settle with random data")
	flaggy.Bool(&eo.printField, "p", "print", "Print the field on every generation")
	flaggy.String(&eo.template, "t", "template", "Template to settle ["+strings.Join(templateNames, "|")+"]")

	flaggy.Parse()

	if err := uo.Validate(); err != nil {
		flaggy.ShowHelpAndExit(err.Error())
	}
	if seed < 0 {
		flaggy.ShowHelpAndExit("negative seed")
	}
	uo.Seed = uint64(seed)

	known := false
	for _, n := range templateNames {
		known = known || n == eo.template
	}
	if !known && !eo.randomData {
		flaggy.ShowHelpAndExit("unknown template")
	}

	return
}
