package mesh

import (
	"image/color"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// LayoutRenderer draws the assembled grid as vector graphics: every tile
// with its full border ring, the ring cells faded since the compositor
// drops them, tile outlines, and the four corner tiles outlined in the
// marker color.
type LayoutRenderer struct {
	Grid       *AssembledGrid
	Palette    Palette
	CellSize   float64 // millimetres per cell
	Gap        float64 // space between tiles, in millimetres
	Padding    float64
	Outlines   bool              // draw tile outlines and corner highlights
	Resolution canvas.Resolution // for PNG output
}

// NewLayoutRenderer creates a layout renderer with default settings
func NewLayoutRenderer(grid *AssembledGrid) *LayoutRenderer {
	return &LayoutRenderer{
		Grid:       grid,
		Palette:    DefaultPalette(),
		CellSize:   4.0,
		Gap:        2.0,
		Padding:    6.0,
		Outlines:   true,
		Resolution: canvas.DPI(100),
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// Size returns the drawing width and height in millimetres
func (r *LayoutRenderer) Size() (float64, float64) {
	n := float64(r.Grid.SideCount)
	tile := float64(r.Grid.TileDim) * r.CellSize
	side := n*tile + (n-1)*r.Gap + 2*r.Padding
	return side, side
}

// RenderToSVG writes the layout as an SVG to the provided writer
func (r *LayoutRenderer) RenderToSVG(w io.Writer) error {
	width, height := r.Size()
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, width, height)
	return svgRenderer.Close()
}

// RenderToPNG rasterizes the layout and writes it as a PNG
func (r *LayoutRenderer) RenderToPNG(w io.Writer) error {
	width, height := r.Size()
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, width, height)
	return png.Encode(w, rast)
}

// tileOrigin returns the canvas position of a tile's bottom-left corner.
// Canvas y grows upwards, so row 0 sits at the top of the drawing.
func (r *LayoutRenderer) tileOrigin(row, col int, height float64) (float64, float64) {
	tile := float64(r.Grid.TileDim) * r.CellSize
	x := r.Padding + float64(col)*(tile+r.Gap)
	y := height - r.Padding - float64(row+1)*tile - float64(row)*r.Gap
	return x, y
}

func (r *LayoutRenderer) renderToCanvas(renderer canvasRenderer, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	bgStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	d := r.Grid.TileDim
	tile := float64(d) * r.CellSize

	cellStyle := func(c color.RGBA) canvas.Style {
		s := canvas.DefaultStyle
		s.Fill = canvas.Paint{Color: c}
		s.Stroke = canvas.Paint{Color: canvas.Transparent}
		return s
	}
	filled := cellStyle(r.Palette.Filled)
	empty := cellStyle(r.Palette.Empty)
	ringFilled := cellStyle(fade(r.Palette.Filled))
	ringEmpty := cellStyle(fade(r.Palette.Empty))

	for row, cells := range r.Grid.Cells {
		for col, placed := range cells {
			ox, oy := r.tileOrigin(row, col, height)
			for cr := 0; cr < d; cr++ {
				for cc := 0; cc < d; cc++ {
					ring := cr == 0 || cc == 0 || cr == d-1 || cc == d-1
					var style canvas.Style
					switch {
					case placed.Grid[cr][cc] == Filled && ring:
						style = ringFilled
					case placed.Grid[cr][cc] == Filled:
						style = filled
					case ring:
						style = ringEmpty
					default:
						style = empty
					}
					x := ox + float64(cc)*r.CellSize
					y := oy + tile - float64(cr+1)*r.CellSize
					renderer.RenderPath(canvas.Rectangle(r.CellSize, r.CellSize).Translate(x, y), style, canvas.Identity)
				}
			}
		}
	}

	if !r.Outlines {
		return
	}

	outline := canvas.DefaultStyle
	outline.Fill = canvas.Paint{Color: canvas.Transparent}
	outline.Stroke = canvas.Paint{Color: r.Palette.TileEdge}
	outline.StrokeWidth = 0.4

	corner := outline
	corner.Stroke = canvas.Paint{Color: r.Palette.Marker}
	corner.StrokeWidth = 1.0

	last := r.Grid.SideCount - 1
	for row := 0; row <= last; row++ {
		for col := 0; col <= last; col++ {
			ox, oy := r.tileOrigin(row, col, height)
			style := outline
			if (row == 0 || row == last) && (col == 0 || col == last) {
				style = corner
			}
			renderer.RenderPath(canvas.Rectangle(tile, tile).Translate(ox, oy), style, canvas.Identity)
		}
	}
}

// fade blends a color halfway towards white
func fade(c color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8((uint16(c.R) + 255) / 2),
		G: uint8((uint16(c.G) + 255) / 2),
		B: uint8((uint16(c.B) + 255) / 2),
		A: 255,
	}
}
