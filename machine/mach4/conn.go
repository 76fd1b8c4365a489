package mach4

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/mastercactapus/xytable/fault"
	"github.com/mastercactapus/xytable/machine"
)

const maxRecordSize = 64 * 1024

// Conn frames telemetry from, and writes commands to, the Mach4 Lua script.
//
// A record may arrive split across any number of reads; Next only returns
// once the delimiter has been seen.
type Conn struct {
	rw   io.ReadWriter
	scan *bufio.Scanner

	readTimeout time.Duration
	now         func() time.Time
}

var _ machine.Adapter = &Conn{}

// Options configure framing and timing on a Conn.
type Options struct {
	// Delimiter terminates each telemetry record. Defaults to '\n'.
	Delimiter byte

	// ReadTimeout bounds each call to Next when the underlying stream
	// supports deadlines. Zero waits forever.
	ReadTimeout time.Duration

	// Now is the clock used to stamp received records. Read deadlines
	// always use the wall clock.
	Now func() time.Time
}

type deadliner interface {
	SetReadDeadline(time.Time) error
}

// NewConn creates a new Conn using the provided ReadWriter for data.
func NewConn(rw io.ReadWriter, opt Options) *Conn {
	if opt.Delimiter == 0 {
		opt.Delimiter = '\n'
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	scan := bufio.NewScanner(rw)
	scan.Buffer(make([]byte, 0, 1024), maxRecordSize)
	scan.Split(splitRecords(opt.Delimiter))

	return &Conn{
		rw:          rw,
		scan:        scan,
		readTimeout: opt.ReadTimeout,
		now:         opt.Now,
	}
}

// splitRecords returns a SplitFunc yielding delim-terminated records with
// the delimiter and any trailing CR removed.
func splitRecords(delim byte) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.IndexByte(data, delim); i >= 0 {
			return i + 1, bytes.TrimSuffix(data[:i], []byte("\r")), nil
		}
		if atEOF {
			return len(data), data, io.ErrUnexpectedEOF
		}
		return 0, nil, nil
	}
}

// Close will close the underlying ReadWriter, if it implements io.Closer.
func (c *Conn) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Next blocks until the next complete telemetry record arrives.
//
// Empty records are skipped. A record that cannot be parsed is returned as a
// fault.Protocol error; the stream stays usable and the caller may call Next
// again. Any read failure is a fault.Connection error and is final.
func (c *Conn) Next(ctx context.Context) (machine.State, error) {
	if d, ok := c.rw.(deadliner); ok {
		if c.readTimeout > 0 {
			d.SetReadDeadline(time.Now().Add(c.readTimeout))
		} else {
			d.SetReadDeadline(time.Time{})
		}
		stop := context.AfterFunc(ctx, func() { d.SetReadDeadline(time.Now()) })
		defer stop()
	}

	for {
		if !c.scan.Scan() {
			if ctx.Err() != nil {
				return machine.State{}, ctx.Err()
			}
			err := c.scan.Err()
			if err == nil {
				err = io.EOF
			}
			return machine.State{}, fault.New(fault.Connection, "read telemetry", err)
		}
		rec := c.scan.Text()
		if len(bytes.TrimSpace(c.scan.Bytes())) == 0 {
			continue
		}

		return parseTelemetry(rec, c.now())
	}
}

// WriteLine sends a single newline-terminated command.
func (c *Conn) WriteLine(line string) error {
	_, err := io.WriteString(c.rw, line+"\n")
	if err != nil {
		return fault.New(fault.Connection, "send "+line, err)
	}
	return nil
}

// IsTimeout reports whether err came from an expired read deadline.
func IsTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
