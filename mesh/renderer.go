package mesh

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Palette holds the colors used by the raster and vector renderers
type Palette struct {
	Background color.RGBA
	Filled     color.RGBA
	Empty      color.RGBA
	Marker     color.RGBA
	TileEdge   color.RGBA
	Text       color.RGBA
}

// DefaultPalette returns the built-in colors
func DefaultPalette() Palette {
	return Palette{
		Background: color.RGBA{240, 240, 240, 255},
		Filled:     color.RGBA{0, 0, 139, 255},     // dark blue
		Empty:      color.RGBA{100, 149, 237, 255}, // cornflower blue
		Marker:     color.RGBA{0, 160, 0, 255},
		TileEdge:   color.RGBA{139, 0, 0, 255},
		Text:       color.RGBA{0, 0, 0, 255},
	}
}

// PaletteFromConfig overrides the default colors with any configured hex values
func PaletteFromConfig(cfg RenderConfig) (Palette, error) {
	p := DefaultPalette()
	for _, entry := range []struct {
		name  string
		value string
		dst   *color.RGBA
	}{
		{"render.filledColor", cfg.FilledColor, &p.Filled},
		{"render.emptyColor", cfg.EmptyColor, &p.Empty},
		{"render.markerColor", cfg.MarkerColor, &p.Marker},
	} {
		if entry.value == "" {
			continue
		}
		c, err := ParseHexColor(entry.value)
		if err != nil {
			return p, fmt.Errorf("%s: %w", entry.name, err)
		}
		*entry.dst = c
	}
	return p, nil
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA"
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}, nil
	}
	return color.RGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

// CompositeRenderer draws the searched composite grid, marker cells
// highlighted, with a short text legend underneath.
type CompositeRenderer struct {
	Search   Search
	Result   *Result
	Palette  Palette
	CellSize int // pixels per cell
	Padding  int
}

// NewCompositeRenderer creates a renderer with default settings
func NewCompositeRenderer(search Search, result *Result) *CompositeRenderer {
	return &CompositeRenderer{
		Search:   search,
		Result:   result,
		Palette:  DefaultPalette(),
		CellSize: 8,
		Padding:  10,
	}
}

// legendLines returns the text printed under the grid
func (r *CompositeRenderer) legendLines() []string {
	if r.Result == nil {
		return nil
	}
	lines := []string{
		fmt.Sprintf("checksum %d", r.Result.Checksum),
		fmt.Sprintf("roughness %d", r.Result.Roughness),
	}
	if r.Result.PatternFound {
		lines = append(lines, fmt.Sprintf("%d markers, %s", r.Result.Occurrences, r.Result.Orientation))
	} else {
		lines = append(lines, "no markers found")
	}
	return lines
}

// Render creates the composite image
func (r *CompositeRenderer) Render() *image.RGBA {
	cell := r.CellSize
	if cell <= 0 {
		cell = 1
	}
	d := r.Search.Grid.Dim()
	legend := r.legendLines()

	width := d*cell + 2*r.Padding
	height := d*cell + 2*r.Padding + len(legend)*16
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillRect(img, 0, 0, width, height, r.Palette.Background)

	highlight := r.Search.Highlight()
	for row := 0; row < d; row++ {
		for col := 0; col < d; col++ {
			c := r.Palette.Empty
			switch {
			case highlight[row][col]:
				c = r.Palette.Marker
			case r.Search.Grid[row][col] == Filled:
				c = r.Palette.Filled
			}
			fillRect(img, r.Padding+col*cell, r.Padding+row*cell, cell, cell, c)
		}
	}

	y := r.Padding + d*cell + 14
	for _, line := range legend {
		drawText(img, r.Padding, y, line, r.Palette.Text)
		y += 16
	}
	return img
}

// WritePNG encodes the rendered image to w
func (r *CompositeRenderer) WritePNG(w io.Writer) error {
	return png.Encode(w, r.Render())
}

// SavePNG saves the composite image to a file
func (r *CompositeRenderer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return r.WritePNG(f)
}

func fillRect(img *image.RGBA, x0, y0, w, h int, c color.RGBA) {
	bounds := img.Bounds()
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			if x >= 0 && x < bounds.Max.X && y >= 0 && y < bounds.Max.Y {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// drawText renders text onto an image at the specified baseline position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
