package session

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/xytable/coord"
	"github.com/mastercactapus/xytable/fault"
	"github.com/mastercactapus/xytable/machine"
	"github.com/mastercactapus/xytable/machine/mach4"
)

type result struct {
	st  machine.State
	err error
}

type fakeAdapter struct {
	results  []result
	lines    []string
	writeErr error
}

func (f *fakeAdapter) Next(ctx context.Context) (machine.State, error) {
	if len(f.results) == 0 {
		return machine.State{}, fault.New(fault.Connection, "read telemetry", io.EOF)
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.st, r.err
}

func (f *fakeAdapter) WriteLine(line string) error {
	if f.writeErr != nil {
		return fault.New(fault.Connection, "send "+line, f.writeErr)
	}
	f.lines = append(f.lines, line)
	return nil
}

func (f *fakeAdapter) Close() error { return nil }

var t0 = time.Unix(1593000000, 0)

func sample(x, y float64, ms int, stopped bool) result {
	return result{st: machine.State{
		Pos:      coord.Point{X: x, Y: y},
		Received: t0.Add(time.Duration(ms) * time.Millisecond),
		Stopped:  stopped,
	}}
}

type harness struct {
	engine  *Engine
	adapter *fakeAdapter
	out     bytes.Buffer
	errs    bytes.Buffer
}

func newHarness(input string, results ...result) *harness {
	h := &harness{adapter: &fakeAdapter{results: results}}
	cfg := DefaultConfig()
	h.engine = &Engine{
		Adapter:     h.adapter,
		Interpreter: cfg.NewInterpreter(nil),
		State:       cfg.NewState(),
		Display:     &Console{W: &h.out},
		Input:       strings.NewReader(input),
		Errors:      zerolog.New(&h.errs),
	}
	return h
}

func TestEngine_Cycle(t *testing.T) {
	h := newHarness("home\n",
		sample(3, 4, 0, false),
		sample(2, 2, 5, false),
		sample(1, 1, 5, false),
		sample(0, 0, 9, true),
		sample(0, 0, 20, false),
	)

	err := h.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"G90 G0 X0 Y0"}, h.adapter.lines)
	assert.Empty(t, h.adapter.results)

	// the duplicate receipt time at 5ms is dropped
	var xs []float64
	for _, s := range h.engine.State.Log.Samples() {
		xs = append(xs, s.Pos.X)
	}
	assert.Equal(t, []float64{3, 2, 0, 0}, xs)

	assert.Equal(t, 2, strings.Count(h.out.String(), ">>"))
	assert.Contains(t, h.out.String(), "X: 3      | Y: 4      | Z: 0     ")
	assert.Empty(t, h.errs.String())
}

func TestEngine_LocalEffects(t *testing.T) {
	h := newHarness("feedrate 900\ndelta X1\nsave\nclear\n", sample(1, 1, 0, false))

	err := h.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.adapter.lines)
	assert.Equal(t, 900.0, h.engine.State.FeedRate)
	assert.Equal(t, "G91 G0 X1", h.engine.State.Repeat)
	assert.Equal(t, 0, h.engine.State.Log.Len())
	assert.Equal(t, 5, strings.Count(h.out.String(), ">>"))
	assert.Contains(t, h.out.String(), "repeat: G91 G0 X1\n")

	// the malformed save is recorded
	assert.Contains(t, h.errs.String(), `"kind":"command"`)
}

func TestEngine_Replay(t *testing.T) {
	h := newHarness("delta X5\n\n\n",
		sample(0, 0, 0, false),
		sample(5, 0, 10, true),
		sample(5, 0, 20, false),
		sample(10, 0, 30, true),
		sample(10, 0, 40, false),
	)

	require.NoError(t, h.engine.Run(context.Background()))
	assert.Equal(t, []string{"G91 G0 X5", "G91 G0 X5"}, h.adapter.lines)
}

func TestEngine_MalformedDiscarded(t *testing.T) {
	bad := result{err: fault.Errorf(fault.Protocol, "parse telemetry", "expected 4 fields")}
	h := newHarness("", bad, sample(1, 2, 0, false))

	require.NoError(t, h.engine.Run(context.Background()))
	latest, ok := h.engine.State.Log.Latest()
	require.True(t, ok)
	assert.Equal(t, coord.Point{X: 1, Y: 2}, latest.Pos)
	assert.Contains(t, h.errs.String(), `"kind":"protocol"`)
}

func TestEngine_MalformedStrict(t *testing.T) {
	bad := result{err: fault.Errorf(fault.Protocol, "parse telemetry", "expected 4 fields")}
	h := newHarness("home\n", bad, sample(1, 2, 0, false))
	h.engine.Strict = true

	err := h.engine.Run(context.Background())
	assert.True(t, fault.Is(err, fault.Protocol))
	assert.Empty(t, h.adapter.lines)
}

func TestEngine_SendFailureContinues(t *testing.T) {
	h := newHarness("home\nabsolute\n", sample(0, 0, 0, false))
	h.adapter.writeErr = errors.New("broken pipe")

	require.NoError(t, h.engine.Run(context.Background()))
	assert.Equal(t, 2, strings.Count(h.errs.String(), `"kind":"connection"`))
	assert.Equal(t, 3, strings.Count(h.out.String(), ">>"))
}

func TestEngine_ScanDXFMissingSendsNoOp(t *testing.T) {
	h := newHarness("scandxf /does/not/exist.dxf\n",
		sample(0, 0, 0, false),
		sample(0, 0, 1, true),
		sample(0, 0, 2, false),
	)

	require.NoError(t, h.engine.Run(context.Background()))
	assert.Equal(t, []string{"G0"}, h.adapter.lines)
	assert.Contains(t, h.errs.String(), `"kind":"file"`)
}

func TestEngine_ConnectionLost(t *testing.T) {
	h := newHarness("home\n", sample(0, 0, 0, false), sample(1, 1, 5, false))

	err := h.engine.Run(context.Background())
	assert.True(t, fault.Is(err, fault.Connection))
}

func TestEngine_TelemetryTimeout(t *testing.T) {
	timeout := result{err: fault.New(fault.Connection, "read telemetry", os.ErrDeadlineExceeded)}
	h := newHarness("home\n", sample(0, 0, 0, false), timeout)

	err := h.engine.Run(context.Background())
	assert.True(t, fault.Is(err, fault.Connection))
	assert.True(t, mach4.IsTimeout(err))
	assert.Equal(t, []string{"G90 G0 X0 Y0"}, h.adapter.lines)
	assert.Contains(t, h.errs.String(), `"timeout":true`)
	assert.Equal(t, 1, strings.Count(h.errs.String(), "\n"))
}

func TestEngine_Pipe(t *testing.T) {
	local, peer := net.Pipe()
	defer peer.Close()

	ms := int64(1593000000000)
	now := func() time.Time {
		ms++
		return time.UnixMilli(ms)
	}
	conn := mach4.NewConn(local, mach4.Options{Now: now})
	defer conn.Close()

	done := make(chan error, 1)
	go func() {
		r := bufio.NewReader(peer)
		write := func(s string) error {
			// split every record across two writes
			half := len(s) / 2
			if _, err := peer.Write([]byte(s[:half])); err != nil {
				return err
			}
			_, err := peer.Write([]byte(s[half:]))
			return err
		}
		if err := write("0,0,0,1593000000000,\n"); err != nil {
			done <- err
			return
		}
		cmd, err := r.ReadString('\n')
		if err != nil {
			done <- err
			return
		}
		if cmd != "G91 G1 X50 F300\n" {
			done <- errors.New("unexpected command " + cmd)
			return
		}
		for _, s := range []string{
			"10,0,0,1593000000001,\n",
			"30,0,0,1593000000002,\n",
			"50,0,0,1593000000003, \n",
			"50,0,0,1593000000004,\n",
		} {
			if err := write(s); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	cfg := DefaultConfig()
	var out, errs bytes.Buffer
	e := &Engine{
		Adapter:     conn,
		Interpreter: cfg.NewInterpreter(nil),
		State:       cfg.NewState(),
		Display:     &Console{W: &out, Redraw: true},
		Input:       strings.NewReader("pulse x 300\n"),
		Errors:      zerolog.New(&errs),
	}

	require.NoError(t, e.Run(context.Background()))
	require.NoError(t, <-done)

	assert.Equal(t, 5, e.State.Log.Len())
	latest, _ := e.State.Log.Latest()
	assert.Equal(t, coord.Point{X: 50}, latest.Pos)
	assert.Contains(t, out.String(), "\rX: 30     |")
	assert.Empty(t, errs.String())
}

func TestEngine_Cancel(t *testing.T) {
	local, peer := net.Pipe()
	defer peer.Close()
	conn := mach4.NewConn(local, mach4.Options{})
	defer conn.Close()

	cfg := DefaultConfig()
	var errs bytes.Buffer
	e := &Engine{
		Adapter:     conn,
		Interpreter: cfg.NewInterpreter(nil),
		State:       cfg.NewState(),
		Display:     &Console{W: io.Discard},
		Input:       strings.NewReader(""),
		Errors:      zerolog.New(&errs),
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	assert.ErrorIs(t, e.Run(ctx), context.Canceled)
	assert.Empty(t, errs.String())
}
