package telemetry

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mastercactapus/xytable/coord"
)

// ErrNotLog is returned by ReadSamples when the input is not a saved log.
var ErrNotLog = errors.New("not a telemetry log")

// ReadSamples parses a file written by Recorder.Save. Blank lines are
// skipped; the Z and time columns are optional.
func ReadSamples(r io.Reader) ([]Sample, error) {
	var res []Sample
	scan := bufio.NewScanner(r)
	for n := 1; scan.Scan(); n++ {
		fields := strings.Fields(scan.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, errors.Join(ErrNotLog, errors.New("line "+strconv.Itoa(n)+": need at least X and Y"))
		}

		var vals [4]float64
		for i := 0; i < len(fields) && i < 4; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, errors.Join(ErrNotLog, errors.New("line "+strconv.Itoa(n)+": "+err.Error()))
			}
			vals[i] = v
		}

		s := Sample{Pos: coord.Point{X: vals[0], Y: vals[1], Z: vals[2]}}
		if len(fields) >= 4 {
			s.At = time.UnixMicro(int64(vals[3]*1e6 + 0.5))
		}
		res = append(res, s)
	}
	return res, scan.Err()
}
