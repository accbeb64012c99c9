package mesh

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleLayout(t *testing.T) *AssembledGrid {
	t.Helper()
	grid, err := Assemble(context.Background(), loadExample(t))
	require.NoError(t, err)
	return grid
}

func TestLayoutRenderer_Size(t *testing.T) {
	r := NewLayoutRenderer(exampleLayout(t))
	w, h := r.Size()
	// 3 tiles of 10 cells at 4mm, two 2mm gaps, 6mm padding each side
	assert.InDelta(t, 136.0, w, 1e-9)
	assert.Equal(t, w, h)
}

func TestLayoutRenderer_TileOrigin(t *testing.T) {
	r := NewLayoutRenderer(exampleLayout(t))
	_, height := r.Size()

	x, y := r.tileOrigin(0, 0, height)
	assert.InDelta(t, 6.0, x, 1e-9)
	assert.InDelta(t, height-6.0-40.0, y, 1e-9, "row 0 sits at the top")

	x, y = r.tileOrigin(2, 1, height)
	assert.InDelta(t, 6.0+42.0, x, 1e-9)
	assert.InDelta(t, 6.0, y, 1e-9, "last row sits on the bottom padding")
}

func TestLayoutRenderer_RenderToSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewLayoutRenderer(exampleLayout(t)).RenderToSVG(&buf))

	out := buf.String()
	assert.True(t, strings.Contains(out, "<svg"), "output should be an SVG document")
	assert.Contains(t, out, "</svg>")
}

func TestLayoutRenderer_RenderToPNG(t *testing.T) {
	r := NewLayoutRenderer(exampleLayout(t))

	var buf bytes.Buffer
	require.NoError(t, r.RenderToPNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
	assert.Equal(t, img.Bounds().Dx(), img.Bounds().Dy())
}

func TestLayoutRenderer_WithoutOutlines(t *testing.T) {
	r := NewLayoutRenderer(exampleLayout(t))
	var with bytes.Buffer
	require.NoError(t, r.RenderToSVG(&with))

	r.Outlines = false
	var without bytes.Buffer
	require.NoError(t, r.RenderToSVG(&without))
	assert.Less(t, without.Len(), with.Len())
}

func TestFade(t *testing.T) {
	got := fade(DefaultPalette().Filled)
	assert.Equal(t, uint8(127), got.R)
	assert.Equal(t, uint8(127), got.G)
	assert.Equal(t, uint8(197), got.B)
	assert.Equal(t, uint8(255), got.A)
}
