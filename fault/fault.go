// Package fault classifies the failures a session can run into.
//
// Callers decide per kind whether to log and continue or to stop.
package fault

import "errors"

// Kind identifies a class of failure.
type Kind int

const (
	Unknown Kind = iota

	// Protocol is a malformed or incomplete telemetry record.
	Protocol

	// Connection is a send or receive failure on the controller link.
	Connection

	// File is a drawing, program or log file that cannot be read or written.
	File

	// Compile is a path compilation that exceeded its segment capacity.
	Compile

	// Command is a recognized directive with malformed arguments.
	Command
)

func (k Kind) String() string {
	switch k {
	case Protocol:
		return "protocol"
	case Connection:
		return "connection"
	case File:
		return "file"
	case Compile:
		return "compile"
	case Command:
		return "command"
	}
	return "unknown"
}

// Error wraps an underlying error with its Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns an *Error; it returns nil if err is nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is shorthand for New with a plain message.
func Errorf(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
