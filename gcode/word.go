package gcode

import "strconv"

// Word is a single letter/number pair, e.g. `X10.5`.
type Word struct {
	W   byte
	Arg float64
}

// IsAxis reports whether the word addresses a linear axis.
func (w Word) IsAxis() bool {
	switch w.W {
	case 'X', 'Y', 'Z':
		return true
	}
	return false
}

func (w Word) IsValid() bool {
	return w.W >= 'A' && w.W <= 'Z'
}

// formatArg renders f in the shortest form that parses back to f.
func formatArg(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if s == "-0" {
		return "0"
	}
	return s
}

func (w Word) String() string {
	return string(w.W) + formatArg(w.Arg)
}
