package mesh

// Side identifies one edge of a square grid
type Side int

const (
	Top Side = iota
	Right
	Bottom
	Left
)

var allSides = [...]Side{Top, Right, Bottom, Left}

// Sides returns the four sides in Top, Right, Bottom, Left order
func Sides() []Side {
	return allSides[:]
}

func (s Side) String() string {
	switch s {
	case Top:
		return "top"
	case Right:
		return "right"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Opposite returns the side facing s across the grid
func (s Side) Opposite() Side {
	return (s + 2) % 4
}

// Border reads one edge of the grid. Top and bottom read left to right,
// left and right read top to bottom.
func Border(g Grid, s Side) []Symbol {
	d := g.Dim()
	out := make([]Symbol, d)
	for i := 0; i < d; i++ {
		switch s {
		case Top:
			out[i] = g[0][i]
		case Right:
			out[i] = g[i][d-1]
		case Bottom:
			out[i] = g[d-1][i]
		case Left:
			out[i] = g[i][0]
		}
	}
	return out
}

func bordersEqual(a, b []Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func bordersEqualReversed(a, b []Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	n := len(a)
	for i := range a {
		if a[i] != b[n-1-i] {
			return false
		}
	}
	return true
}
