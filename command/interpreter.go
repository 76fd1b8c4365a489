package command

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mastercactapus/xytable/coord"
	"github.com/mastercactapus/xytable/dxf"
	"github.com/mastercactapus/xytable/fault"
	"github.com/mastercactapus/xytable/gcode"
)

// Action is the outcome of one line of input.
type Action struct {
	// Line is sent to the controller unless Local is set.
	Line  string
	Local bool

	// Message, if set, is shown to the operator.
	Message string
}

// A Plotter displays a series of points for inspection.
type Plotter interface {
	Plot(name string, pts []coord.Point) error
}

// PlotFunc adapts a function to a Plotter.
type PlotFunc func(name string, pts []coord.Point) error

func (f PlotFunc) Plot(name string, pts []coord.Point) error { return f(name, pts) }

// Interpreter recognizes the built-in directives; anything else is sent
// to the controller as typed. Keywords are matched case-insensitively on
// the first word.
type Interpreter struct {
	Compiler dxf.Compiler
	Plotter  Plotter

	// PulseStep and NoOp fall back to their defaults when zero.
	PulseStep float64
	NoOp      string
}

func (in *Interpreter) noop() string {
	if in.NoOp == "" {
		return DefaultNoOp
	}
	return in.NoOp
}

func (in *Interpreter) pulseStep() float64 {
	if in.PulseStep == 0 {
		return DefaultPulseStep
	}
	return in.PulseStep
}

var (
	homeBlock     = gcode.Block{{W: 'G', Arg: 90}, {W: 'G', Arg: 0}, {W: 'X', Arg: 0}, {W: 'Y', Arg: 0}}
	absoluteBlock = gcode.Block{{W: 'G', Arg: 90}}
)

func local(msg string) Action { return Action{Local: true, Message: msg} }

func usage(op, format string) error {
	return fault.Errorf(fault.Command, op, "usage: "+format)
}

// Interpret handles one line of operator input.
//
// A non-nil error is always accompanied by a usable Action: failed
// scandxf/viewpath directives return the no-op command, malformed
// directives return a local Action.
func (in *Interpreter) Interpret(input string, st *State) (Action, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		if st.Repeat == "" {
			return local(""), nil
		}
		return Action{Line: st.Repeat}, nil
	}

	kw, rest := split(raw)
	switch kw {
	case "home":
		if rest != "" {
			return local(""), usage("home", "home")
		}
		return Action{Line: homeBlock.String()}, nil

	case "absolute":
		if rest != "" {
			return local(""), usage("absolute", "absolute")
		}
		return Action{Line: absoluteBlock.String()}, nil

	case "pulse":
		return in.pulse(rest)

	case "delta":
		return delta(rest, st)

	case "scandxf":
		return in.scanDXF(rest, st)

	case "viewpath":
		return in.viewPath(rest)

	case "save":
		if rest == "" {
			return local(""), usage("save", "save <path>")
		}
		path, err := st.Log.Save(rest)
		if err != nil {
			return local(""), err
		}
		return local(fmt.Sprintf("saved %d samples to %s", st.Log.Len(), path)), nil

	case "clear":
		if rest != "" {
			return local(""), usage("clear", "clear")
		}
		st.Log.Clear()
		return local("log cleared"), nil

	case "feedrate":
		v, err := strconv.ParseFloat(rest, 64)
		if err != nil || v <= 0 {
			return local(""), usage("feedrate", "feedrate <positive number>")
		}
		st.FeedRate = v
		return local("feed rate " + st.Feed()), nil
	}

	return Action{Line: input}, nil
}

// split returns the lower-cased first word and the trimmed remainder.
func split(s string) (string, string) {
	i := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return strings.ToLower(s), ""
	}
	return strings.ToLower(s[:i]), strings.TrimSpace(s[i:])
}

func (in *Interpreter) pulse(rest string) (Action, error) {
	f := strings.Fields(rest)
	if len(f) != 2 {
		return local(""), usage("pulse", "pulse x|y <rate>")
	}
	var axis byte
	switch strings.ToLower(f[0]) {
	case "x":
		axis = 'X'
	case "y":
		axis = 'Y'
	default:
		return local(""), usage("pulse", "pulse x|y <rate>")
	}
	rate, err := strconv.ParseFloat(f[1], 64)
	if err != nil || rate <= 0 {
		return local(""), usage("pulse", "pulse x|y <rate>")
	}

	b := gcode.Block{
		{W: 'G', Arg: 91},
		{W: 'G', Arg: 1},
		{W: axis, Arg: in.pulseStep()},
		{W: 'F', Arg: rate},
	}
	return Action{Line: b.String()}, nil
}

func delta(rest string, st *State) (Action, error) {
	words, err := gcode.ParseBlock(rest)
	if err != nil {
		return local(""), usage("delta", "delta <axis increments, e.g. X10 Y-5>")
	}
	b := gcode.Block{{W: 'G', Arg: 91}, {W: 'G', Arg: 0}}
	for _, w := range words {
		if !w.IsAxis() {
			return local(""), usage("delta", "delta <axis increments, e.g. X10 Y-5>")
		}
		b = append(b, w)
	}
	if err := b.Validate(); err != nil {
		return local(""), fault.New(fault.Command, "delta", err)
	}

	st.Repeat = b.String()
	return local("repeat: " + st.Repeat), nil
}

func (in *Interpreter) scanDXF(path string, st *State) (Action, error) {
	if path == "" {
		return Action{Line: in.noop()}, usage("scandxf", "scandxf <path>")
	}
	res, err := in.Compiler.CompileFile(path, st.Feed())
	if err != nil {
		return Action{Line: in.noop()}, err
	}

	b := res.Drawing.Bounds
	msg := fmt.Sprintf("%s: %d segments, %d moves", res.Output, len(res.Drawing.Segments), len(res.Program.Moves))
	if !b.Empty() {
		msg += fmt.Sprintf(", X[%g, %g] Y[%g, %g], %g x %g", b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Width(), b.Height())
	}
	return Action{Line: res.Output, Message: msg}, nil
}

func (in *Interpreter) viewPath(path string) (Action, error) {
	if path == "" {
		return Action{Line: in.noop()}, usage("viewpath", "viewpath <path>")
	}
	if filepath.Ext(path) == "" {
		path += ".txt"
	}
	if in.Plotter == nil {
		return Action{Line: in.noop()}, fault.Errorf(fault.File, "viewpath", "no plotter available")
	}

	pts, err := LoadPath(path)
	if err != nil {
		return Action{Line: in.noop()}, err
	}
	err = in.Plotter.Plot(path, pts)
	if err != nil {
		return Action{Line: in.noop()}, fault.New(fault.File, "plot "+path, err)
	}
	return local(fmt.Sprintf("%s: %d points", path, len(pts))), nil
}
