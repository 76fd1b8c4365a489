package dxf

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mastercactapus/xytable/coord"
	"github.com/mastercactapus/xytable/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drawing renders segments the way CAD exports LINE entities.
func drawing(segs ...Segment) string {
	var sb strings.Builder
	sb.WriteString("  0\nSECTION\n  2\nENTITIES\n")
	for _, s := range segs {
		fmt.Fprintf(&sb, "  0\nLINE\n  8\n0\n100\nAcDbEntity\n100\nAcDbLine\n 10\n%v\n 20\n%v\n 30\n0.0\n 11\n%v\n 21\n%v\n 31\n0.0\n",
			s.Start.X, s.Start.Y, s.End.X, s.End.Y)
	}
	sb.WriteString("  0\nENDSEC\n  0\nEOF\n")
	return sb.String()
}

func seg(x1, y1, x2, y2 float64) Segment {
	return Segment{Start: coord.Point{X: x1, Y: y1}, End: coord.Point{X: x2, Y: y2}}
}

func countMoves(program string) int {
	return strings.Count(program, "\n") - 1
}

func TestCompile_RoundTrip(t *testing.T) {
	d, err := Parse(strings.NewReader(drawing(
		seg(0, 0, 10, 0),
		seg(10, 0, 10, 10),
		seg(10, 10, 0, 10),
	)), 0)
	require.NoError(t, err)

	assert.Equal(t,
		"G90 G17 G21\nG1 X10.0 Y0.0 F600\nG1 X10.0 Y10.0\nG1 X0.0 Y10.0\n",
		Compile(d.Segments, "600").String(),
	)
}

func TestCompile_Disjoint(t *testing.T) {
	segs := []Segment{
		seg(1, 1, 2, 2),
		seg(3, 3, 4, 4),
		seg(5, 5, 6, 6),
		seg(-1, 0, 7, 7),
	}
	out := Compile(segs, "600").String()
	assert.Equal(t, 2*len(segs), countMoves(out))
	assert.Equal(t, len(segs), strings.Count(out, " F600"))
	assert.True(t, strings.HasPrefix(out, "G90 G17 G21\nG1 X1.0 Y1.0\nG1 X2.0 Y2.0 F600\n"))
}

func TestCompile_Chained(t *testing.T) {
	segs := []Segment{
		seg(5, 5, 6, 5),
		seg(6, 5, 6, 6),
		seg(6, 6, 5, 6),
		seg(5, 6, 5, 5),
	}
	out := Compile(segs, "1200").String()
	assert.Equal(t, len(segs)+1, countMoves(out))
	assert.Equal(t, 1, strings.Count(out, " F1200"))
	assert.Equal(t, "G90 G17 G21\nG1 X5.0 Y5.0\nG1 X6.0 Y5.0 F1200\nG1 X6.0 Y6.0\nG1 X5.0 Y6.0\nG1 X5.0 Y5.0\n", out)
}

func TestCompile_ChainBreakResetsFeed(t *testing.T) {
	p := Compile([]Segment{
		seg(0, 0, 1, 0),
		seg(1, 0, 1, 1),
		seg(5, 5, 6, 6),
		seg(6, 6, 7, 7),
	}, "600")

	var feeds []string
	for _, m := range p.Moves {
		feeds = append(feeds, m.Feed)
	}
	assert.Equal(t, []string{"600", "", "", "600", ""}, feeds)
	assert.True(t, p.Moves[2].Bridge)
}

func TestCompile_ExactEquality(t *testing.T) {
	p := Compile([]Segment{
		seg(0, 0, 1, 1),
		seg(1.0000001, 1, 2, 2),
	}, "600")
	assert.Len(t, p.Moves, 3)
}

func TestMove_Rounding(t *testing.T) {
	assert.Equal(t, "G1 X2.35 Y-0.5", Move{X: 2.346, Y: -0.499999}.String())
	assert.Equal(t, "G1 X0.0 Y123.0 F600", Move{X: 0.001, Y: 123, Feed: "600"}.String())
	assert.Equal(t, "G1 X1.23 Y100.1", Move{X: 1.225000001, Y: 100.1}.String())
}

func TestParse_Bounds(t *testing.T) {
	segs := []Segment{
		seg(3, 4, 10, -2),
		seg(-5, 7, 1, 1),
		seg(2, 2, 2, 12),
		seg(8, 0, 9, 3),
	}
	want := coord.Bounds{}
	for _, s := range segs {
		want.Extend(s.Start)
		want.Extend(s.End)
	}

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		rnd.Shuffle(len(segs), func(a, b int) { segs[a], segs[b] = segs[b], segs[a] })
		d, err := Parse(strings.NewReader(drawing(segs...)), 0)
		require.NoError(t, err)
		assert.Equal(t, coord.Point{X: -5, Y: -2}, d.Bounds.Min)
		assert.Equal(t, coord.Point{X: 10, Y: 12}, d.Bounds.Max)
		assert.Equal(t, want, d.Bounds)
	}
}

func TestParse_Minimal(t *testing.T) {
	// bare tag stream, unknown tags inside the entity are skipped
	src := "acdbline\n10\n1\n99\n20\n2\n11\n3\n21\n4\n0\nAcDbLine\n11\n5\n21\n6\n0\nEOF\nAcDbLine\n10\n9\n0\n"
	d, err := Parse(strings.NewReader(src), 0)
	require.NoError(t, err)
	assert.Equal(t, []Segment{seg(1, 2, 3, 4), seg(0, 0, 5, 6)}, d.Segments)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(strings.NewReader("AcDbLine\n10\nabc\n0\nEOF\n"), 0)
	assert.True(t, fault.Is(err, fault.File))

	d, err := Parse(strings.NewReader("AcDbLine\n10\n1\n20\n1\n0\nAcDbLine\n10\n2\n"), 0)
	assert.True(t, fault.Is(err, fault.File))
	assert.Len(t, d.Segments, 1)
}

func TestParse_Capacity(t *testing.T) {
	segs := []Segment{seg(0, 0, 1, 1), seg(1, 1, 2, 2), seg(2, 2, 3, 3), seg(3, 3, 4, 4)}

	d, err := Parse(strings.NewReader(drawing(segs...)), 3)
	assert.True(t, fault.Is(err, fault.Compile))
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, segs[:3], d.Segments)

	d, err = Parse(strings.NewReader(drawing(segs[:3]...)), 3)
	assert.NoError(t, err)
	assert.Len(t, d.Segments, 3)
}

func TestProgramPath(t *testing.T) {
	assert.Equal(t, "part.txt", ProgramPath("part.dxf", ""))
	assert.Equal(t, "dir.v2/part.txt", ProgramPath("dir.v2/part", ".txt"))
	assert.Equal(t, "part.nc", ProgramPath("part.DXF", ".nc"))
}

func writeDrawing(t *testing.T, segs ...Segment) string {
	path := filepath.Join(t.TempDir(), "square.dxf")
	require.NoError(t, os.WriteFile(path, []byte(drawing(segs...)), 0644))
	return path
}

func TestCompiler_CompileFile(t *testing.T) {
	path := writeDrawing(t, seg(0, 0, 10, 0), seg(10, 0, 10, 10), seg(10, 10, 0, 10))

	var c Compiler
	res, err := c.CompileFile(path, "600")
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(path, ".dxf")+".txt", res.Output)
	assert.Len(t, res.Drawing.Segments, 3)

	first, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	assert.Equal(t, "G90 G17 G21\nG1 X10.0 Y0.0 F600\nG1 X10.0 Y10.0\nG1 X0.0 Y10.0\n", string(first))

	_, err = c.CompileFile(path, "600")
	require.NoError(t, err)
	second, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompiler_Overflow(t *testing.T) {
	path := writeDrawing(t, seg(0, 0, 1, 0), seg(1, 0, 2, 0), seg(2, 0, 3, 0))

	res, err := Compiler{Capacity: 2}.CompileFile(path, "600")
	assert.True(t, fault.Is(err, fault.Compile))
	require.NotNil(t, res)
	data, rerr := os.ReadFile(res.Output)
	require.NoError(t, rerr)
	assert.Equal(t, "G90 G17 G21\nG1 X1.0 Y0.0 F600\nG1 X2.0 Y0.0\n", string(data))

	os.Remove(res.Output)
	res, err = Compiler{Capacity: 2, Overflow: Abort}.CompileFile(path, "600")
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Empty(t, res.Output)
	_, rerr = os.Stat(ProgramPath(path, ""))
	assert.True(t, os.IsNotExist(rerr))
}

func TestCompiler_Missing(t *testing.T) {
	_, err := Compiler{}.CompileFile(filepath.Join(t.TempDir(), "nope.dxf"), "600")
	assert.True(t, fault.Is(err, fault.File))

	_, err = Compiler{}.CompileFile("already.txt", "600")
	assert.True(t, fault.Is(err, fault.File))
}

func TestParseOverflow(t *testing.T) {
	o, err := ParseOverflow("ABORT")
	require.NoError(t, err)
	assert.Equal(t, Abort, o)

	o, err = ParseOverflow("")
	require.NoError(t, err)
	assert.Equal(t, Truncate, o)

	_, err = ParseOverflow("grow")
	assert.Error(t, err)
}
