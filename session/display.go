package session

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/mastercactapus/xytable/machine"
)

// A Display renders telemetry to the operator.
type Display interface {
	// Show renders a fresh sample at the start of a cycle.
	Show(machine.State)

	// Update re-renders while a move is in flight.
	Update(machine.State)

	Message(string)
	Prompt()
}

// Displays fans out to several displays.
type Displays []Display

func (d Displays) Show(st machine.State) {
	for _, v := range d {
		v.Show(st)
	}
}
func (d Displays) Update(st machine.State) {
	for _, v := range d {
		v.Update(st)
	}
}
func (d Displays) Message(msg string) {
	for _, v := range d {
		v.Message(msg)
	}
}
func (d Displays) Prompt() {
	for _, v := range d {
		v.Prompt()
	}
}

// Console writes a one-line readout.
//
// With Redraw set, Show clears the screen and Update overwrites the current
// line; otherwise every render is its own line.
type Console struct {
	W      io.Writer
	Redraw bool
}

// NewConsole enables Redraw only when f is a terminal.
func NewConsole(f *os.File) *Console {
	return &Console{W: f, Redraw: term.IsTerminal(int(f.Fd()))}
}

func (c *Console) Show(st machine.State) {
	if c.Redraw {
		io.WriteString(c.W, "\x1b[H\x1b[2J")
	}
	io.WriteString(c.W, Readout(st)+"\n")
}

func (c *Console) Update(st machine.State) {
	if c.Redraw {
		io.WriteString(c.W, "\r"+Readout(st))
		return
	}
	io.WriteString(c.W, Readout(st)+"\n")
}

func (c *Console) Message(msg string) { io.WriteString(c.W, msg+"\n") }
func (c *Console) Prompt()            { io.WriteString(c.W, ">>") }

func axis(v float64) string {
	return fmt.Sprintf("%-8s", strconv.FormatFloat(v, 'f', -1, 64))[:6]
}

// Readout formats a sample as `X: … | Y: … | Z: …        Latency: … ms`.
func Readout(st machine.State) string {
	lat := strconv.FormatFloat(st.Latency, 'f', -1, 64)
	if len(lat) > 5 {
		lat = lat[:5]
	}
	return fmt.Sprintf("X: %s | Y: %s | Z: %s        Latency: %s ms",
		axis(st.Pos.X), axis(st.Pos.Y), axis(st.Pos.Z), lat)
}
