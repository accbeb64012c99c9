package mesh

import (
	"fmt"
	"strings"
)

// seaMonster is the default marker. Spaces are unconstrained cells.
var seaMonster = []string{
	"                  # ",
	"#    ##    ##    ###",
	" #  #  #  #  #  #   ",
}

// Marker is a rectangular mask. Only its filled cells are significant.
type Marker struct {
	Height int
	Width  int
	cells  [][2]int
}

// SeaMonster returns the default 3x20 marker
func SeaMonster() Marker {
	m, err := ParseMarker(strings.Join(seaMonster, "\n"), DefaultFilledGlyph)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMarker reads a marker from text. The filled glyph marks a significant
// cell; any other character is unconstrained. Lines may differ in length;
// the width is the longest line.
func ParseMarker(text string, filled rune) (Marker, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	var m Marker
	if text == "" {
		return m, fmt.Errorf("marker is empty")
	}
	lines := strings.Split(text, "\n")
	m.Height = len(lines)
	for r, line := range lines {
		runes := []rune(line)
		if len(runes) > m.Width {
			m.Width = len(runes)
		}
		for c, ch := range runes {
			if ch == filled {
				m.cells = append(m.cells, [2]int{r, c})
			}
		}
	}
	if len(m.cells) == 0 {
		return Marker{}, fmt.Errorf("marker has no filled cells")
	}
	return m, nil
}

// FilledCount returns the number of significant cells
func (m Marker) FilledCount() int {
	return len(m.cells)
}

// Cells returns the (row, col) offsets of the significant cells
func (m Marker) Cells() [][2]int {
	out := make([][2]int, len(m.cells))
	copy(out, m.cells)
	return out
}

func (m Marker) String() string {
	rows := make([][]rune, m.Height)
	for r := range rows {
		rows[r] = []rune(strings.Repeat(" ", m.Width))
	}
	for _, cell := range m.cells {
		rows[cell[0]][cell[1]] = DefaultFilledGlyph
	}
	lines := make([]string, m.Height)
	for r, row := range rows {
		lines[r] = string(row)
	}
	return strings.Join(lines, "\n")
}

func (m Marker) matchesAt(g Grid, row, col int) bool {
	for _, cell := range m.cells {
		if g[row+cell[0]][col+cell[1]] != Filled {
			return false
		}
	}
	return true
}

// Occurrence is the top-left offset of one marker hit
type Occurrence struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Search is the outcome of FindMarkers
type Search struct {
	Marker      Marker
	Orientation Orientation
	Grid        Grid // composite in the orientation that was searched last
	Occurrences []Occurrence
}

// Found reports whether any orientation contained the marker
func (s Search) Found() bool {
	return len(s.Occurrences) > 0
}

// FindMarkers tries the orientations of g in Orientations order and stops
// at the first one with at least one occurrence. Every top-left offset
// where the marker fits entirely is tested, the last row and column
// included. With no hit the search reports the identity orientation.
func FindMarkers(g Grid, m Marker) Search {
	for _, o := range orientations {
		oriented := o.Apply(g)
		if hits := scan(oriented, m); len(hits) > 0 {
			return Search{Marker: m, Orientation: o, Grid: oriented, Occurrences: hits}
		}
	}
	return Search{Marker: m, Orientation: Identity, Grid: g.Clone()}
}

func scan(g Grid, m Marker) []Occurrence {
	var hits []Occurrence
	d := g.Dim()
	for r := 0; r+m.Height <= d; r++ {
		for c := 0; c+m.Width <= d; c++ {
			if m.matchesAt(g, r, c) {
				hits = append(hits, Occurrence{Row: r, Col: c})
			}
		}
	}
	return hits
}

// Roughness is the filled count less marker_filled per occurrence.
// Overlapping occurrences are subtracted once each.
func (s Search) Roughness() int {
	return s.Grid.CountFilled() - len(s.Occurrences)*s.Marker.FilledCount()
}

// Highlight flags every cell of the searched grid covered by an occurrence
func (s Search) Highlight() [][]bool {
	d := s.Grid.Dim()
	out := make([][]bool, d)
	for r := range out {
		out[r] = make([]bool, d)
	}
	for _, hit := range s.Occurrences {
		for _, cell := range s.Marker.cells {
			out[hit.Row+cell[0]][hit.Col+cell[1]] = true
		}
	}
	return out
}

// CountUnmarkedFilled returns the filled count of g reduced by the marker
// cells of every occurrence in the first matching orientation. When no
// orientation matches, the raw filled count is returned with
// ErrNoPatternMatch.
func CountUnmarkedFilled(g Grid, m Marker) (int, error) {
	s := FindMarkers(g, m)
	if !s.Found() {
		return g.CountFilled(), ErrNoPatternMatch
	}
	return s.Roughness(), nil
}
