package session

import (
	"time"

	"github.com/mastercactapus/xytable/command"
	"github.com/mastercactapus/xytable/dxf"
	"github.com/mastercactapus/xytable/machine/mach4"
	"github.com/mastercactapus/xytable/telemetry"
)

// Config holds every tunable of a session.
type Config struct {
	// Listen is the TCP address the controller script connects to.
	// Ignored when SerialPort is set.
	Listen     string
	SerialPort string
	Baud       int

	// Delimiter terminates telemetry records on the wire.
	Delimiter byte

	// TelemetryTimeout bounds each telemetry read; zero waits forever.
	TelemetryTimeout time.Duration

	// StrictTelemetry ends the session on a malformed record instead of
	// discarding it.
	StrictTelemetry bool

	SampleResolution time.Duration

	FeedRate  float64
	PulseStep float64
	NoOp      string

	Capacity   int
	Overflow   dxf.Overflow
	ProgramExt string

	ErrorLog string

	// Monitor is the HTTP address of the live monitor; empty disables it.
	Monitor string
	DataDir string

	// Launch lists the commands started when the operator asks to launch
	// the controller GUI.
	Launch []string
}

// DefaultConfig returns the settings the Lua script expects out of the box.
func DefaultConfig() Config {
	return Config{
		Listen:           mach4.DefaultAddr,
		Baud:             115200,
		Delimiter:        '\n',
		SampleResolution: telemetry.DefaultResolution,
		FeedRate:         command.DefaultFeedRate,
		PulseStep:        command.DefaultPulseStep,
		NoOp:             command.DefaultNoOp,
		Capacity:         dxf.DefaultCapacity,
		Overflow:         dxf.Truncate,
		ProgramExt:       dxf.DefaultExt,
		ErrorLog:         "error_log.txt",
		DataDir:          ".",
	}
}

// ConnOptions returns the framing options for the controller link.
func (c Config) ConnOptions() mach4.Options {
	return mach4.Options{
		Delimiter:   c.Delimiter,
		ReadTimeout: c.TelemetryTimeout,
	}
}

// NewState returns the initial session state for c.
func (c Config) NewState() *command.State {
	st := command.NewState()
	st.FeedRate = c.FeedRate
	st.Log.Resolution = c.SampleResolution
	return st
}

// NewInterpreter returns an interpreter configured from c.
func (c Config) NewInterpreter(p command.Plotter) *command.Interpreter {
	return &command.Interpreter{
		Compiler: dxf.Compiler{
			Capacity: c.Capacity,
			Overflow: c.Overflow,
			Ext:      c.ProgramExt,
		},
		Plotter:   p,
		PulseStep: c.PulseStep,
		NoOp:      c.NoOp,
	}
}
