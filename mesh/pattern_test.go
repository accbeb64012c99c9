package mesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleComposite(t *testing.T) Grid {
	t.Helper()
	grid, err := Assemble(context.Background(), loadExample(t))
	require.NoError(t, err)
	return Merge(grid)
}

func TestSeaMonster(t *testing.T) {
	m := SeaMonster()
	assert.Equal(t, 3, m.Height)
	assert.Equal(t, 20, m.Width)
	assert.Equal(t, 15, m.FilledCount())
	assert.Contains(t, m.Cells(), [2]int{0, 18})
}

func TestParseMarker(t *testing.T) {
	m, err := ParseMarker("#.\r\n.##\n", DefaultFilledGlyph)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Height)
	assert.Equal(t, 3, m.Width)
	assert.Equal(t, [][2]int{{0, 0}, {1, 1}, {1, 2}}, m.Cells())
	assert.Equal(t, "#  \n ##", m.String())

	_, err = ParseMarker("", DefaultFilledGlyph)
	assert.Error(t, err)
	_, err = ParseMarker("...\n...", DefaultFilledGlyph)
	assert.Error(t, err)

	// '#' is unconstrained when another glyph marks filled cells
	m, err = ParseMarker("X#\n#X", 'X')
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 0}, {1, 1}}, m.Cells())
}

func TestFindMarkersExample(t *testing.T) {
	composite := exampleComposite(t)

	search := FindMarkers(composite, SeaMonster())
	require.True(t, search.Found())
	assert.Len(t, search.Occurrences, 2)
	assert.Equal(t, exampleRoughness, search.Roughness())

	for _, hit := range search.Occurrences {
		assert.True(t, search.Marker.matchesAt(search.Grid, hit.Row, hit.Col))
	}
}

func TestCountUnmarkedFilledExample(t *testing.T) {
	count, err := CountUnmarkedFilled(exampleComposite(t), SeaMonster())
	require.NoError(t, err)
	assert.Equal(t, exampleRoughness, count)
}

func TestCountUnmarkedFilledNoMatch(t *testing.T) {
	g := NewGrid(24)
	g[3][4] = Filled
	g[10][10] = Filled

	count, err := CountUnmarkedFilled(g, SeaMonster())
	assert.ErrorIs(t, err, ErrNoPatternMatch)
	assert.Equal(t, 2, count)

	search := FindMarkers(g, SeaMonster())
	assert.False(t, search.Found())
	assert.Equal(t, Identity, search.Orientation)
}

func TestFindMarkersGridSmallerThanMarker(t *testing.T) {
	g := gridOf(t, "###", "###", "###")
	search := FindMarkers(g, SeaMonster())
	assert.False(t, search.Found())
	assert.Equal(t, 9, search.Roughness())
}

func TestFindMarkersInclusiveBound(t *testing.T) {
	m, err := ParseMarker("##", DefaultFilledGlyph)
	require.NoError(t, err)

	// the only hit touches the last row and last column
	g := gridOf(t,
		"...",
		"...",
		".##",
	)
	search := FindMarkers(g, m)
	require.True(t, search.Found())
	assert.Equal(t, Identity, search.Orientation)
	assert.Equal(t, []Occurrence{{Row: 2, Col: 1}}, search.Occurrences)
}

func TestFindMarkersFirstMatchingOrientation(t *testing.T) {
	m, err := ParseMarker("###", DefaultFilledGlyph)
	require.NoError(t, err)

	// a vertical bar only reads as the horizontal marker after a quarter turn
	g := gridOf(t,
		"#..",
		"#..",
		"#..",
	)
	search := FindMarkers(g, m)
	require.True(t, search.Found())
	assert.Equal(t, Orientation{Turns: 1}, search.Orientation)
	assert.Len(t, search.Occurrences, 1)
	assert.Equal(t, 0, search.Roughness())
}

func TestRoughnessCountsOverlapsPerOccurrence(t *testing.T) {
	m, err := ParseMarker("##", DefaultFilledGlyph)
	require.NoError(t, err)

	// two overlapping hits share the middle cell, so it is subtracted twice
	g := gridOf(t,
		"###",
		"...",
		"...",
	)
	search := FindMarkers(g, m)
	require.Len(t, search.Occurrences, 2)
	assert.Equal(t, -1, search.Roughness())
}

func TestHighlight(t *testing.T) {
	search := FindMarkers(exampleComposite(t), SeaMonster())
	highlight := search.Highlight()

	marked := 0
	for r, row := range highlight {
		for c, on := range row {
			if on {
				marked++
				assert.Equal(t, Filled, search.Grid[r][c])
			}
		}
	}
	assert.Equal(t, 2*SeaMonster().FilledCount(), marked)
}
