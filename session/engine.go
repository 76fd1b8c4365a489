// Package session runs the interactive loop between the operator and the
// motion controller.
//
// The loop is single-threaded: it owns the controller link, the session
// state and the telemetry log, and alternates between blocking on the
// controller and blocking on the operator.
package session

import (
	"bufio"
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/mastercactapus/xytable/command"
	"github.com/mastercactapus/xytable/fault"
	"github.com/mastercactapus/xytable/machine"
	"github.com/mastercactapus/xytable/machine/mach4"
)

// Engine ties a controller link to an operator console.
type Engine struct {
	Adapter     machine.Adapter
	Interpreter *command.Interpreter
	State       *command.State
	Display     Display

	// Input supplies one directive per line.
	Input io.Reader

	// Errors is the persistent error record.
	Errors zerolog.Logger

	// Strict ends the session on a malformed telemetry record.
	Strict bool
}

// Run loops until the operator's input ends, the context is canceled, or
// the controller link fails.
//
// Each cycle reads a telemetry record, renders it, reads a directive and
// acts on it. Directives that send a command then drain telemetry until the
// controller reports that motion has stopped. Local directives send nothing,
// so the next cycle re-renders the last sample instead of waiting for one.
func (e *Engine) Run(ctx context.Context) error {
	in := bufio.NewScanner(e.Input)
	fresh := true
	var msg string

	for {
		if fresh {
			st, err := e.next(ctx)
			if err != nil {
				return err
			}
			e.State.Log.Record(st)
		}
		if st, ok := e.State.Log.Latest(); ok {
			e.Display.Show(st)
		}
		if msg != "" {
			e.Display.Message(msg)
			msg = ""
		}

		e.Display.Prompt()
		if !in.Scan() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return in.Err()
		}
		line := in.Text()

		act, err := e.Interpreter.Interpret(line, e.State)
		if err != nil {
			e.logError(err, line)
		}
		msg = act.Message
		if act.Local {
			fresh = false
			continue
		}

		err = e.Adapter.WriteLine(act.Line)
		if err != nil {
			e.logError(err, act.Line)
			fresh = false
			continue
		}

		err = e.drain(ctx)
		if err != nil {
			return err
		}
		fresh = true
	}
}

// drain records telemetry until a record carries the stop marker.
func (e *Engine) drain(ctx context.Context) error {
	for {
		st, err := e.next(ctx)
		if err != nil {
			return err
		}
		e.State.Log.Observe(st)
		e.Display.Update(st)
		if st.Stopped {
			return nil
		}
	}
}

// next returns the next well-formed record. Malformed records are logged
// and skipped unless the engine is strict.
func (e *Engine) next(ctx context.Context) (machine.State, error) {
	for {
		st, err := e.Adapter.Next(ctx)
		if err == nil {
			return st, nil
		}
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		if mach4.IsTimeout(err) {
			e.Errors.Error().
				Str("kind", fault.KindOf(err).String()).
				Bool("timeout", true).
				Err(err).
				Msg("no telemetry within the read timeout")
			return st, err
		}
		e.logError(err, "telemetry")
		if fault.Is(err, fault.Protocol) && !e.Strict {
			continue
		}
		return st, err
	}
}

func (e *Engine) logError(err error, input string) {
	e.Errors.Error().
		Str("kind", fault.KindOf(err).String()).
		Str("input", input).
		Err(err).
		Send()
}
