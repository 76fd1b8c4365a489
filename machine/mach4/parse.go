package mach4

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mastercactapus/xytable/coord"
	"github.com/mastercactapus/xytable/fault"
	"github.com/mastercactapus/xytable/machine"
)

// ErrMalformed is wrapped by every telemetry parse failure.
var ErrMalformed = errors.New("malformed telemetry record")

// isStopMarker reports whether a field is the marker the Lua script
// appends once the motors have stopped: a lone space.
func isStopMarker(field string) bool {
	return field != "" && strings.TrimSpace(field) == ""
}

func parseField(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fault.New(fault.Protocol, "parse "+name, errors.Join(ErrMalformed, err))
	}
	return v, nil
}

// parseTelemetry decodes `X,Y,Z,epoch_ms[,...]`. Only the first four
// fields are interpreted; any later field may carry the stop marker.
func parseTelemetry(rec string, now time.Time) (machine.State, error) {
	var st machine.State
	parts := strings.Split(rec, ",")
	if len(parts) < 4 {
		return st, fault.New(fault.Protocol, "parse telemetry",
			errors.Join(ErrMalformed, errors.New("expected 4 fields, got "+strconv.Itoa(len(parts))+": "+strconv.Quote(rec))))
	}

	var err error
	var p coord.Point
	p.X, err = parseField("x", parts[0])
	if err != nil {
		return st, err
	}
	p.Y, err = parseField("y", parts[1])
	if err != nil {
		return st, err
	}
	p.Z, err = parseField("z", parts[2])
	if err != nil {
		return st, err
	}
	st.SentMS, err = parseField("timestamp", parts[3])
	if err != nil {
		return st, err
	}

	st.Pos = p
	st.Received = now
	st.Latency = machine.Latency(now, st.SentMS)
	for _, f := range parts[4:] {
		if isStopMarker(f) {
			st.Stopped = true
			break
		}
	}

	return st, nil
}
