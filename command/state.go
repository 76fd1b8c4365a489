// Package command maps operator input to controller commands.
package command

import (
	"strconv"

	"github.com/mastercactapus/xytable/telemetry"
)

const (
	// DefaultFeedRate is used for compiled programs until changed.
	DefaultFeedRate = 600.0

	// DefaultPulseStep is the relative distance of a pulse.
	DefaultPulseStep = 50.0

	// DefaultNoOp is sent in place of a directive that failed, so the
	// controller still answers with telemetry.
	DefaultNoOp = "G0"
)

// State is the mutable part of a session that directives act on.
type State struct {
	FeedRate float64

	// Repeat is replayed when the operator enters an empty line.
	// Empty means unset.
	Repeat string

	Log *telemetry.Recorder
}

// NewState returns a State with the default feed rate and an empty log.
func NewState() *State {
	return &State{
		FeedRate: DefaultFeedRate,
		Log:      &telemetry.Recorder{},
	}
}

// Feed formats the feed rate for an F word.
func (s *State) Feed() string {
	return strconv.FormatFloat(s.FeedRate, 'f', -1, 64)
}
