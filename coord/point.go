package coord

type Point struct{ X, Y, Z float64 }

// Equal is exact; no tolerance is applied.
func (p Point) Equal(b Point) bool {
	return p.X == b.X && p.Y == b.Y && p.Z == b.Z
}

// EqualXY compares only the X and Y components.
func (p Point) EqualXY(b Point) bool {
	return p.X == b.X && p.Y == b.Y
}

// Add will add the target values to p.
func (p Point) Add(target Point) Point {
	p.X += target.X
	p.Y += target.Y
	p.Z += target.Z
	return p
}
