package mesh

import "fmt"

// Rotate turns the grid 90° clockwise: the cell at (r, c) moves to (c, d-1-r)
func (g Grid) Rotate() Grid {
	d := g.Dim()
	out := NewGrid(d)
	for r := 0; r < d; r++ {
		for c := 0; c < d; c++ {
			out[c][d-1-r] = g[r][c]
		}
	}
	return out
}

// Flip mirrors the grid about its horizontal midline: (r, c) moves to (d-1-r, c)
func (g Grid) Flip() Grid {
	d := g.Dim()
	out := make(Grid, d)
	for r := 0; r < d; r++ {
		out[d-1-r] = append([]Symbol(nil), g[r]...)
	}
	return out
}

// Rotate returns the tile turned 90° clockwise
func Rotate(t Tile) Tile {
	return Tile{ID: t.ID, Grid: t.Grid.Rotate()}
}

// Flip returns the tile mirrored about its horizontal midline
func Flip(t Tile) Tile {
	return Tile{ID: t.ID, Grid: t.Grid.Flip()}
}

// Orientation is one element of the square's symmetry group: an optional flip
// followed by Turns quarter rotations.
type Orientation struct {
	Turns   int  `json:"turns"`
	Flipped bool `json:"flipped"`
}

// Identity leaves a grid unchanged
var Identity = Orientation{}

// orientations is the search order shared by assembly and pattern search:
// the four rotations of the original, then the four rotations of its mirror.
var orientations = []Orientation{
	{Turns: 0}, {Turns: 1}, {Turns: 2}, {Turns: 3},
	{Turns: 0, Flipped: true}, {Turns: 1, Flipped: true}, {Turns: 2, Flipped: true}, {Turns: 3, Flipped: true},
}

// Orientations returns the 8 orientations in search order
func Orientations() []Orientation {
	out := make([]Orientation, len(orientations))
	copy(out, orientations)
	return out
}

// Apply realizes the orientation on a grid
func (o Orientation) Apply(g Grid) Grid {
	if !o.Flipped && o.normalizedTurns() == 0 {
		return g.Clone()
	}
	out := g
	if o.Flipped {
		out = out.Flip()
	}
	for i := 0; i < o.normalizedTurns(); i++ {
		out = out.Rotate()
	}
	return out
}

// ApplyTile realizes the orientation on a tile, preserving its ID
func (o Orientation) ApplyTile(t Tile) Tile {
	return Tile{ID: t.ID, Grid: o.Apply(t.Grid)}
}

// then composes two orientations: applying the result equals applying o, then next
func (o Orientation) then(next Orientation) Orientation {
	if !next.Flipped {
		return Orientation{Turns: (o.normalizedTurns() + next.normalizedTurns()) % 4, Flipped: o.Flipped}
	}
	// rot^k followed by flip equals flip followed by rot^-k
	return Orientation{Turns: (4 - o.normalizedTurns() + next.normalizedTurns()) % 4, Flipped: !o.Flipped}
}

func (o Orientation) normalizedTurns() int {
	return ((o.Turns % 4) + 4) % 4
}

// String returns a short label such as "rot90" or "flip+rot180"
func (o Orientation) String() string {
	label := fmt.Sprintf("rot%d", o.normalizedTurns()*90)
	if o.Flipped {
		return "flip+" + label
	}
	return label
}

// ParseOrientation is the inverse of Orientation.String
func ParseOrientation(s string) (Orientation, error) {
	for _, o := range orientations {
		if o.String() == s {
			return o, nil
		}
	}
	return Orientation{}, fmt.Errorf("unknown orientation %q", s)
}
