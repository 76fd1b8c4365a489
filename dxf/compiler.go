package dxf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mastercactapus/xytable/fault"
)

// Overflow selects what happens to the output when a drawing exceeds the
// segment capacity. Both policies report a fault.Compile error.
type Overflow int

const (
	// Truncate writes the program for the segments parsed before the limit.
	Truncate Overflow = iota

	// Abort writes nothing.
	Abort
)

func (o Overflow) String() string {
	if o == Abort {
		return "abort"
	}
	return "truncate"
}

// ParseOverflow accepts "truncate" or "abort".
func ParseOverflow(s string) (Overflow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "truncate":
		return Truncate, nil
	case "abort":
		return Abort, nil
	}
	return Truncate, fmt.Errorf("unknown overflow policy %q", s)
}

// DefaultExt is the extension the controller script loads programs from.
const DefaultExt = ".txt"

// Compiler turns drawing files into program files.
type Compiler struct {
	// Capacity is the segment limit; zero means DefaultCapacity.
	Capacity int
	Overflow Overflow

	// Ext replaces the drawing's extension; empty means DefaultExt.
	Ext string
}

// Result describes a compilation.
type Result struct {
	Source  string
	Output  string
	Drawing *Drawing
	Program Program
}

// ProgramPath returns path with its extension replaced by ext.
func ProgramPath(path, ext string) string {
	if ext == "" {
		ext = DefaultExt
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// CompileFile parses the drawing at path and writes the program next to it.
//
// On a capacity overflow the returned Result is still populated; whether
// Output was written depends on the Overflow policy.
func (c Compiler) CompileFile(path, feed string) (*Result, error) {
	capacity := c.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	res := &Result{Source: path, Output: ProgramPath(path, c.Ext)}
	if filepath.Clean(res.Output) == filepath.Clean(path) {
		return nil, fault.New(fault.File, "compile "+path, errors.New("program would overwrite the drawing"))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fault.New(fault.File, "compile", err)
	}
	d, perr := Parse(f, capacity)
	f.Close()
	if perr != nil && !fault.Is(perr, fault.Compile) {
		return nil, perr
	}

	res.Drawing = d
	res.Program = Compile(d.Segments, feed)
	if perr != nil && c.Overflow == Abort {
		res.Output = ""
		return res, perr
	}

	var buf bytes.Buffer
	res.Program.WriteTo(&buf)
	err = os.WriteFile(res.Output, buf.Bytes(), 0644)
	if err != nil {
		return res, fault.New(fault.File, "write program", err)
	}

	return res, perr
}
