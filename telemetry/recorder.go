// Package telemetry accumulates the position history of a session.
package telemetry

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mastercactapus/xytable/coord"
	"github.com/mastercactapus/xytable/fault"
	"github.com/mastercactapus/xytable/machine"
)

// DefaultResolution matches the coarsest clock the recorder dedupes against.
const DefaultResolution = time.Millisecond

// Sample is one entry of the log.
type Sample struct {
	Pos coord.Point
	At  time.Time
}

// String formats the sample as `X Y Z epoch_seconds`.
func (s Sample) String() string {
	return formatFloat(s.Pos.X) + " " +
		formatFloat(s.Pos.Y) + " " +
		formatFloat(s.Pos.Z) + " " +
		formatFloat(float64(s.At.UnixMicro())/1e6)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Recorder holds the latest sample and an append-only log. It is owned by a
// single session loop and is not safe for concurrent use.
type Recorder struct {
	// Resolution is the granularity receipt times are compared at when
	// deduplicating drain samples. Zero means DefaultResolution.
	Resolution time.Duration

	latest   machine.State
	hasState bool
	lastSeen time.Time
	samples  []Sample
}

func (r *Recorder) truncate(t time.Time) time.Time {
	res := r.Resolution
	if res <= 0 {
		res = DefaultResolution
	}
	return t.Truncate(res)
}

// Record appends the sample unconditionally. Used once per command cycle.
func (r *Recorder) Record(st machine.State) {
	r.latest, r.hasState = st, true
	r.lastSeen = r.truncate(st.Received)
	r.samples = append(r.samples, Sample{Pos: st.Pos, At: st.Received})
}

// Observe appends the sample only if its receipt time, at the recorder's
// resolution, differs from the previous one seen. It reports whether the
// sample was logged. The latest state is always updated.
func (r *Recorder) Observe(st machine.State) bool {
	r.latest, r.hasState = st, true
	at := r.truncate(st.Received)
	if at.Equal(r.lastSeen) {
		return false
	}
	r.lastSeen = at
	r.samples = append(r.samples, Sample{Pos: st.Pos, At: st.Received})
	return true
}

// Latest returns the most recent state and whether there is one.
func (r *Recorder) Latest() (machine.State, bool) { return r.latest, r.hasState }

func (r *Recorder) Len() int { return len(r.samples) }

// Samples returns a copy of the log.
func (r *Recorder) Samples() []Sample {
	s := make([]Sample, len(r.samples))
	copy(s, r.samples)
	return s
}

// Clear empties the log. The latest state is kept for display.
func (r *Recorder) Clear() {
	r.samples = nil
}

// WriteTo writes the log, one sample per line.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, s := range r.samples {
		c, err := bw.WriteString(s.String() + "\n")
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// SavePath appends `.txt` to name unless it already ends with it.
func SavePath(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".txt") {
		return name
	}
	return name + ".txt"
}

// Save writes the log to SavePath(name), replacing any existing file, and
// returns the path written.
func (r *Recorder) Save(name string) (string, error) {
	path := SavePath(name)
	f, err := os.Create(path)
	if err != nil {
		return path, fault.New(fault.File, "save log", err)
	}
	_, err = r.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return path, fault.New(fault.File, "save log", err)
}
