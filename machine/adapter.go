package machine

import "context"

// An Adapter is the link to the motion controller: a stream of telemetry
// in, one line of G-code per command out.
type Adapter interface {
	// Next blocks until a complete telemetry record arrives.
	Next(ctx context.Context) (State, error)

	// WriteLine sends a single command; the newline is added by the adapter.
	WriteLine(line string) error

	Close() error
}
