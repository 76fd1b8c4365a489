package command

import (
	"bytes"
	"errors"
	"os"

	"github.com/mastercactapus/xytable/coord"
	"github.com/mastercactapus/xytable/fault"
	"github.com/mastercactapus/xytable/gcode"
	"github.com/mastercactapus/xytable/telemetry"
)

// LoadPath reads either a saved telemetry log or a motion program and
// returns the points it visits.
func LoadPath(path string) ([]coord.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.New(fault.File, "viewpath", err)
	}

	samples, err := telemetry.ReadSamples(bytes.NewReader(data))
	if err == nil {
		pts := make([]coord.Point, len(samples))
		for i, s := range samples {
			pts[i] = s.Pos
		}
		return pts, nil
	}
	if !errors.Is(err, telemetry.ErrNotLog) {
		return nil, fault.New(fault.File, "viewpath", err)
	}

	pts, err := gcode.Trace(gcode.NewParser(bytes.NewReader(data)))
	if err != nil {
		return nil, fault.New(fault.File, "viewpath "+path, err)
	}
	return pts, nil
}
