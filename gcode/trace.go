package gcode

import (
	"io"

	"github.com/mastercactapus/xytable/coord"
)

// Trace runs every block from r through a fresh VM and returns the
// tool position after each block that moved it.
func Trace(r Reader) ([]coord.Point, error) {
	vm := NewVM()
	var pts []coord.Point
	for {
		b, err := r.Read()
		if err == io.EOF {
			return pts, nil
		}
		if err != nil {
			return pts, err
		}

		old := vm.Pos()
		err = vm.Run(b)
		if err != nil {
			return pts, err
		}
		if !old.Equal(vm.Pos()) {
			pts = append(pts, vm.Pos())
		}
	}
}
