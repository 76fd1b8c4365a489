package mach4

import (
	"context"
	"net"

	"github.com/mastercactapus/xytable/fault"
)

// DefaultAddr is where the Lua script expects to find us.
const DefaultAddr = "127.0.0.1:2504"

// Listener is bound before the controller is started so the script can
// connect as soon as it runs.
type Listener struct {
	l   net.Listener
	opt Options
}

// Listen binds addr.
func Listen(addr string, opt Options) (*Listener, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fault.New(fault.Connection, "listen "+addr, err)
	}
	return &Listener{l: l, opt: opt}, nil
}

func (l *Listener) Addr() net.Addr { return l.l.Addr() }

// Accept waits for exactly one peer, then stops listening. There is no
// reconnection; the returned Conn lives for the whole session.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	stop := context.AfterFunc(ctx, func() { l.l.Close() })
	defer stop()
	defer l.l.Close()

	c, err := l.l.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fault.New(fault.Connection, "accept", err)
	}
	return NewConn(c, l.opt), nil
}

// Close stops listening without accepting.
func (l *Listener) Close() error { return l.l.Close() }
