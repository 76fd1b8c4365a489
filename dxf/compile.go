package dxf

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/mastercactapus/xytable/coord"
	"github.com/mastercactapus/xytable/gcode"
)

// Header puts the controller in absolute, XY-plane, metric mode.
var Header = gcode.Block{
	{W: 'G', Arg: 90},
	{W: 'G', Arg: 17},
	{W: 'G', Arg: 21},
}

// Move is one emitted G1 line.
type Move struct {
	X, Y float64

	// Bridge is set on moves that travel to the start of a
	// segment that does not continue the previous one.
	Bridge bool

	// Feed is the feed rate annotation, empty if none.
	Feed string
}

// String formats the move with coordinates rounded to 2 decimal places.
func (m Move) String() string {
	s := "G1 X" + formatCoord(m.X) + " Y" + formatCoord(m.Y)
	if m.Feed != "" {
		s += " F" + m.Feed
	}
	return s
}

// formatCoord rounds to 2 places and prints the shortest form that keeps
// at least one fractional digit (10 -> "10.0", 2.345 -> "2.35").
func formatCoord(v float64) string {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		r = v
	}
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.ContainsAny(s, ".IN") {
		s += ".0"
	}
	return s
}

// Program is a compiled motion program.
type Program struct {
	Moves []Move
}

// Compile merges contiguous segments into a program.
//
// Each segment is compared to the end of the one before it; the first is
// compared to the origin. A mismatch emits a bridge move to the segment's
// start. Every segment then emits a draw move to its end. The feed rate is
// annotated on the first draw move of each contiguous chain.
func Compile(segs []Segment, feed string) Program {
	p := Program{Moves: make([]Move, 0, len(segs)+1)}

	var prev coord.Point
	var fed bool
	for _, s := range segs {
		if !s.Start.EqualXY(prev) {
			p.Moves = append(p.Moves, Move{X: s.Start.X, Y: s.Start.Y, Bridge: true})
			fed = false
		}

		m := Move{X: s.End.X, Y: s.End.Y}
		if !fed {
			m.Feed = feed
			fed = true
		}
		p.Moves = append(p.Moves, m)
		prev = s.End
	}

	return p
}

// WriteTo writes the header followed by one line per move.
func (p Program) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	c, err := bw.WriteString(Header.String() + "\n")
	n += int64(c)
	if err != nil {
		return n, err
	}
	for _, m := range p.Moves {
		c, err = bw.WriteString(m.String() + "\n")
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// String returns the full program text.
func (p Program) String() string {
	var sb strings.Builder
	p.WriteTo(&sb)
	return sb.String()
}
