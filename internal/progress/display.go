package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Display reports the steps of a command. On a TTY the running step is a
// spinner; otherwise each step is printed once when it starts.
type Display struct {
	out     io.Writer
	caps    TerminalCapabilities
	symbols ProgressSymbols
	spin    *spinner.Spinner
	step    string
}

// NewDisplay creates a display writing to out.
func NewDisplay(out io.Writer, caps TerminalCapabilities) *Display {
	return &Display{
		out:     out,
		caps:    caps,
		symbols: SelectSymbols(caps),
	}
}

// Start begins a step, stopping any step still running.
func (d *Display) Start(step string) {
	d.StopSpinner()
	d.step = step

	if !d.caps.IsTTY {
		fmt.Fprintf(d.out, "%s...\n", step)
		return
	}

	d.spin = spinner.New(spinner.CharSets[d.symbols.SpinnerSet], 100*time.Millisecond,
		spinner.WithWriter(d.out))
	d.spin.Suffix = " " + step + "..."
	d.spin.Start()
}

// Complete finishes the running step successfully.
func (d *Display) Complete() {
	d.finish(d.symbols.Checkmark, color.FgGreen)
}

// Fail finishes the running step as failed.
func (d *Display) Fail() {
	d.finish(d.symbols.Failure, color.FgRed)
}

// StopSpinner stops the spinner without reporting a result.
// No-op when no spinner is running.
func (d *Display) StopSpinner() {
	if d.spin != nil {
		d.spin.Stop()
		d.spin = nil
	}
}

func (d *Display) finish(symbol string, attr color.Attribute) {
	if d.step == "" {
		return
	}
	d.StopSpinner()
	if d.caps.SupportsColor {
		symbol = color.New(attr, color.Bold).Sprint(symbol)
	}
	fmt.Fprintf(d.out, "%s %s\n", symbol, d.step)
	d.step = ""
}
