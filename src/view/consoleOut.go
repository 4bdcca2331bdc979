package view

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/logrusorgru/aurora"

	"gameoflife/src/universe"
)

//ConsoleOut prints the simulation progress to the plain output
//with printField set it prints every generation the way the browser page did: the field, then the generation number
type ConsoleOut struct {
	r          *universe.Runner
	w          io.Writer
	startTime  time.Time
	printField bool
}

func NewConsoleOut(printField bool) *ConsoleOut {
	return &ConsoleOut{w: os.Stdout, printField: printField}
}

//Refresh is called by the runner after each generation and reconstruction
func (c *ConsoleOut) Refresh() {
	st := c.r.Status()
	if c.printField {
		_, _ = fmt.Fprint(c.w, c.r.Snapshot().Text)
		_, _ = fmt.Fprintf(c.w, "generation %d\n\n", st.Generation)
	} else if st.Generation != 0 && st.Generation%10 == 0 {
		_, _ = fmt.Fprintf(c.w, "  Generations done: %v\n", st.Generation)
	}
}

func (c *ConsoleOut) Register(r *universe.Runner) {
	c.r = r
	o := c.r.Options()
	_, _ = fmt.Fprintln(c.w, aurora.Bold("Running configuration:"))
	c.printHashData(map[string]interface{}{
		"Dimension":      fmt.Sprintf("%v x %v", o.Width, o.Height),
		"Interval":       o.Interval,
		"Max iterations": fmt.Sprintf("%v steps", o.MaxSteps),
	})
}

func (c *ConsoleOut) Start() {
	c.startTime = time.Now()
	_, _ = fmt.Fprintln(c.w, aurora.Cyan("\nSimulation started..."))
}

//Summary prints the final status received from the runner
func (c *ConsoleOut) Summary(st universe.Status) {
	totalTime := time.Since(c.startTime).Round(time.Millisecond)
	resultData := map[string]interface{}{
		"Last generation": st.Generation,
		"Total time":      totalTime,
		"Live cells":      st.LiveCells,
	}
	_, _ = fmt.Fprintln(c.w, aurora.Red("\nFinished:"))
	c.printHashData(resultData)
}

func (c *ConsoleOut) printHashData(d map[string]interface{}) {
	propNames := make([]string, 0, len(d))
	for k := range d {
		propNames = append(propNames, k)
	}
	sort.Strings(propNames)
	for _, propName := range propNames {
		_, _ = fmt.Fprintf(c.w, "  %s: %v\n", aurora.Green(propName), d[propName])
	}
}
