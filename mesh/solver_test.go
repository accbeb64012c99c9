package mesh

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveExample(t *testing.T) {
	sol, err := NewSolver().Solve(context.Background(), loadExample(t))
	require.NoError(t, err)

	r := sol.Result
	assert.Equal(t, exampleChecksum, r.Checksum)
	assert.Equal(t, exampleRoughness, r.Roughness)
	assert.Equal(t, 2, r.Occurrences)
	assert.True(t, r.PatternFound)
	assert.NotEmpty(t, r.Orientation)
	assert.Equal(t, 3, r.SideCount)
	assert.Equal(t, 10, r.TileDim)
	assert.Equal(t, 24, r.CompositeDim)
	assert.Len(t, r.Layout, 3)
	assert.False(t, r.FromCache)

	_, err = uuid.Parse(r.RunID)
	assert.NoError(t, err)

	assert.Equal(t, 24, sol.Composite.Dim())
	assert.NotNil(t, sol.Assembled)
}

func TestSolveFile(t *testing.T) {
	path := filepath.Join("testdata", "example.txt")
	sol, err := NewSolver().SolveFile(context.Background(), path, DefaultGlyphs())
	require.NoError(t, err)
	assert.Equal(t, path, sol.Result.Source)
	assert.Equal(t, exampleChecksum, sol.Result.Checksum)

	_, err = NewSolver().SolveFile(context.Background(), filepath.Join(t.TempDir(), "none.txt"), DefaultGlyphs())
	assert.Error(t, err)
}

func TestSolveWithSource(t *testing.T) {
	sol, err := NewSolver(WithSource("mqtt")).Solve(context.Background(), loadExample(t))
	require.NoError(t, err)
	assert.Equal(t, "mqtt", sol.Result.Source)
}

func TestSolveCustomMarkerNoMatch(t *testing.T) {
	// a solid 5x5 block never occurs in the example image
	m, err := ParseMarker("#####\n#####\n#####\n#####\n#####", DefaultFilledGlyph)
	require.NoError(t, err)

	sol, err := NewSolver(WithMarker(m)).Solve(context.Background(), loadExample(t))
	require.NoError(t, err, "a missing marker is not a failure")
	assert.False(t, sol.Result.PatternFound)
	assert.Equal(t, exampleFilled, sol.Result.Roughness)
	assert.Equal(t, exampleChecksum, sol.Result.Checksum)
	assert.Empty(t, sol.Result.Orientation)
}

func TestSolveUsesLayoutCache(t *testing.T) {
	cache := NewLayoutCache()
	solver := NewSolver(WithLayoutCache(cache))

	first, err := solver.Solve(context.Background(), loadExample(t))
	require.NoError(t, err)
	assert.False(t, first.Result.FromCache)
	assert.Equal(t, 1, cache.Len())

	second, err := solver.Solve(context.Background(), loadExample(t))
	require.NoError(t, err)
	assert.True(t, second.Result.FromCache)
	assert.Equal(t, first.Result.Checksum, second.Result.Checksum)
	assert.Equal(t, first.Result.Roughness, second.Result.Roughness)
	assert.Equal(t, first.Result.Layout, second.Result.Layout)
	assert.True(t, first.Composite.Equal(second.Composite), "cached layout yields a different composite")
	assert.NotEqual(t, first.Result.RunID, second.Result.RunID)
}

func TestSolveMalformed(t *testing.T) {
	_, err := NewSolver().Solve(context.Background(), Corpus{{ID: 1, Grid: NewGrid(3)}, {ID: 2, Grid: NewGrid(3)}})
	assert.ErrorIs(t, err, ErrMalformedCorpus)
}
