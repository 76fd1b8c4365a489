package machine

import (
	"math"
	"time"

	"github.com/mastercactapus/xytable/coord"
)

// State is one telemetry sample reported by the controller.
type State struct {
	Pos coord.Point

	// SentMS is the controller's clock, in epoch milliseconds, when the
	// sample was sent.
	SentMS float64

	// Received is the local time the record was framed.
	Received time.Time

	// Latency is |Received - SentMS| in milliseconds. Advisory only.
	Latency float64

	// Stopped is set on the final record of a move.
	Stopped bool
}

// EpochMS returns t as fractional milliseconds since the Unix epoch.
func EpochMS(t time.Time) float64 {
	return float64(t.Unix())*1e3 + float64(t.Nanosecond())/1e6
}

// Latency returns the absolute difference between now and the sender's
// timestamp, in milliseconds.
func Latency(now time.Time, sentMS float64) float64 {
	return math.Abs(EpochMS(now) - sentMS)
}
