// Package dxf compiles the LINE entities of a DXF drawing into a G-code
// program for the table.
//
// Only the AcDbLine subclass is understood. Within it the group codes
// 10/20 (start X/Y) and 11/21 (end X/Y) are read from the following line,
// 0 ends the entity, and every other tag is skipped. A top-level EOF
// stops parsing.
package dxf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mastercactapus/xytable/coord"
	"github.com/mastercactapus/xytable/fault"
)

// DefaultCapacity is the segment limit used when none is configured.
const DefaultCapacity = 1000

// ErrCapacity is wrapped by the error returned when a drawing has more
// segments than the configured capacity.
var ErrCapacity = errors.New("segment capacity exceeded")

// Segment is a single straight line, in drawing order.
type Segment struct {
	Start, End coord.Point
}

// Drawing is the parsed content of a file.
type Drawing struct {
	Segments []Segment

	// Bounds covers the start and end point of every segment.
	Bounds coord.Bounds
}

func (d *Drawing) add(s Segment) {
	d.Bounds.Extend(s.Start)
	d.Bounds.Extend(s.End)
	d.Segments = append(d.Segments, s)
}

type lineReader struct {
	scan *bufio.Scanner
	n    int
}

func (r *lineReader) next() (string, bool) {
	if !r.scan.Scan() {
		return "", false
	}
	r.n++
	return strings.TrimSpace(r.scan.Text()), true
}

// Parse reads every line entity from r.
//
// If capacity is positive and the drawing holds more segments than that,
// parsing stops and the segments read so far are returned alongside a
// fault.Compile error wrapping ErrCapacity.
func Parse(r io.Reader, capacity int) (*Drawing, error) {
	lr := &lineReader{scan: bufio.NewScanner(r)}
	d := &Drawing{}

	for {
		text, ok := lr.next()
		if !ok {
			break
		}
		if text == "EOF" {
			break
		}
		if !strings.EqualFold(text, "AcDbLine") {
			continue
		}

		start := lr.n
		seg, err := lr.entity()
		if err != nil {
			return d, fault.New(fault.File, "parse", fmt.Errorf("entity at line %d: %w", start, err))
		}
		if capacity > 0 && len(d.Segments) >= capacity {
			return d, fault.New(fault.Compile, "parse",
				fmt.Errorf("%w: more than %d segments (entity at line %d)", ErrCapacity, capacity, start))
		}
		d.add(seg)
	}
	if err := lr.scan.Err(); err != nil {
		return d, fault.New(fault.File, "parse", err)
	}

	return d, nil
}

// entity reads group codes until the closing 0 tag.
func (r *lineReader) entity() (s Segment, err error) {
	value := func(name string) (float64, error) {
		text, ok := r.next()
		if !ok {
			return 0, errors.New("missing value for " + name)
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: invalid %s %q", r.n, name, text)
		}
		return v, nil
	}

	for {
		tag, ok := r.next()
		if !ok {
			return s, io.ErrUnexpectedEOF
		}
		switch tag {
		case "10":
			s.Start.X, err = value("start X")
		case "20":
			s.Start.Y, err = value("start Y")
		case "11":
			s.End.X, err = value("end X")
		case "21":
			s.End.Y, err = value("end Y")
		case "0":
			return s, nil
		}
		if err != nil {
			return s, err
		}
	}
}
