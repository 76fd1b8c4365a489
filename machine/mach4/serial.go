package mach4

import (
	"io"

	"github.com/tarm/serial"

	"github.com/mastercactapus/xytable/fault"
)

// OpenSerial connects to a controller that speaks the same telemetry
// protocol over a serial line instead of TCP.
//
// Serial ports have no read deadline; opt.ReadTimeout is applied by the
// driver as a per-read timeout instead, and a read that times out fails
// Next with an error IsTimeout recognizes.
func OpenSerial(name string, baud int, opt Options) (*Conn, error) {
	if baud == 0 {
		baud = 115200
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: opt.ReadTimeout,
	})
	if err != nil {
		return nil, fault.New(fault.Connection, "open "+name, err)
	}
	return NewConn(timeoutPort{p}, opt), nil
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "serial read timed out" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// timeoutPort turns the empty read a serial driver returns when its read
// timeout expires into a timeout error.
type timeoutPort struct {
	io.ReadWriteCloser
}

func (p timeoutPort) Read(b []byte) (int, error) {
	n, err := p.ReadWriteCloser.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, timeoutError{}
	}
	return n, err
}
