package mesh

// Interior returns the tile grid without its outer ring of cells
func Interior(g Grid) Grid {
	d := g.Dim()
	if d < 3 {
		return Grid{}
	}
	out := make(Grid, d-2)
	for r := 1; r < d-1; r++ {
		out[r-1] = append([]Symbol(nil), g[r][1:d-1]...)
	}
	return out
}

// Merge strips every tile's border and lays the interiors out in grid order.
// The result is square with edge side_count*(d-2).
func Merge(a *AssembledGrid) Grid {
	inner := a.TileDim - 2
	out := NewGrid(a.SideCount * inner)
	for tr, row := range a.Cells {
		for tc, placed := range row {
			interior := Interior(placed.Grid)
			for r := 0; r < inner; r++ {
				copy(out[tr*inner+r][tc*inner:], interior[r])
			}
		}
	}
	return out
}
