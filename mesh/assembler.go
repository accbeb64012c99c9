package mesh

import (
	"context"
	"fmt"
	"math/bits"

	"go.uber.org/zap"
)

// Pool holds the tiles not yet placed. It owns its tiles: Pop hands the
// matched tile to the caller and forgets it.
type Pool struct {
	tiles map[TileID]Tile
}

// NewPool builds a pool from the given tiles
func NewPool(tiles []Tile) *Pool {
	p := &Pool{tiles: make(map[TileID]Tile, len(tiles))}
	for _, t := range tiles {
		p.tiles[t.ID] = t
	}
	return p
}

// Len returns the number of tiles left
func (p *Pool) Len() int {
	return len(p.tiles)
}

// IDs returns the remaining tile IDs in ascending order
func (p *Pool) IDs() []TileID {
	ids := make([]TileID, 0, len(p.tiles))
	for id := range p.tiles {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Take removes a tile by ID
func (p *Pool) Take(id TileID) (Tile, bool) {
	t, ok := p.tiles[id]
	if ok {
		delete(p.tiles, id)
	}
	return t, ok
}

// Pop scans tiles in ascending ID order and removes the first one match
// accepts, returning the tile match produced for it.
func (p *Pool) Pop(match func(Tile) (Tile, bool)) (Tile, bool) {
	for _, id := range p.IDs() {
		if out, ok := match(p.tiles[id]); ok {
			delete(p.tiles, id)
			return out, true
		}
	}
	return Tile{}, false
}

// PlacedTile is a tile in its final orientation together with the
// orientation that was applied to the parsed tile to obtain it.
type PlacedTile struct {
	Tile
	Orientation Orientation
}

// AssembledGrid is the side_count x side_count arrangement of oriented tiles
type AssembledGrid struct {
	Cells     [][]PlacedTile
	SideCount int
	TileDim   int
}

// At returns the tile at (row, col)
func (a *AssembledGrid) At(row, col int) Tile {
	return a.Cells[row][col].Tile
}

// Corners returns the IDs at top-left, top-right, bottom-left, bottom-right
func (a *AssembledGrid) Corners() [4]TileID {
	n := a.SideCount - 1
	return [4]TileID{
		a.Cells[0][0].ID,
		a.Cells[0][n].ID,
		a.Cells[n][0].ID,
		a.Cells[n][n].ID,
	}
}

// Checksum is the product of the four corner IDs. A one-tile grid
// contributes its ID four times.
func (a *AssembledGrid) Checksum() (uint64, error) {
	product := uint64(1)
	for _, id := range a.Corners() {
		hi, lo := bits.Mul64(product, uint64(id))
		if hi != 0 {
			return 0, ErrChecksumOverflow
		}
		product = lo
	}
	return product, nil
}

// IDs returns the tile ID layout in row-major form
func (a *AssembledGrid) IDs() [][]TileID {
	out := make([][]TileID, len(a.Cells))
	for r, row := range a.Cells {
		out[r] = make([]TileID, len(row))
		for c, p := range row {
			out[r][c] = p.ID
		}
	}
	return out
}

// Verify re-checks that every pair of neighbours shares its facing border
func (a *AssembledGrid) Verify() error {
	for r := 0; r < a.SideCount; r++ {
		for c := 0; c < a.SideCount; c++ {
			cur := a.At(r, c)
			if c+1 < a.SideCount {
				if !bordersEqual(Border(cur.Grid, Right), Border(a.At(r, c+1).Grid, Left)) {
					return &PlacementFailureError{Row: r, Col: c + 1, AnchorID: cur.ID, AnchorSide: Right}
				}
			}
			if r+1 < a.SideCount {
				if !bordersEqual(Border(cur.Grid, Bottom), Border(a.At(r+1, c).Grid, Top)) {
					return &PlacementFailureError{Row: r + 1, Col: c, AnchorID: cur.ID, AnchorSide: Bottom}
				}
			}
		}
	}
	return nil
}

// Option configures an Assembler or Solver
type Option func(*options)

type options struct {
	logger *zap.Logger
	marker *Marker
	cache  *LayoutCache
	source string
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for debug traces and warnings
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// ValidateCorpus checks the square-grid preconditions and returns the side
// count and tile dimension.
func ValidateCorpus(corpus Corpus) (sideCount, dim int, err error) {
	if len(corpus) == 0 {
		return 0, 0, &MalformedCorpusError{Reason: "corpus is empty"}
	}
	sideCount = isqrt(len(corpus))
	if sideCount*sideCount != len(corpus) {
		return 0, 0, &MalformedCorpusError{Reason: fmt.Sprintf("tile count %d is not a perfect square", len(corpus))}
	}
	dim = corpus[0].Dim()
	seen := make(map[TileID]bool, len(corpus))
	for _, t := range corpus {
		if seen[t.ID] {
			return 0, 0, &MalformedCorpusError{Reason: "duplicate tile id", TileID: t.ID}
		}
		seen[t.ID] = true
		if t.Dim() != dim {
			return 0, 0, &MalformedCorpusError{Reason: fmt.Sprintf("dimension %d differs from %d", t.Dim(), dim), TileID: t.ID}
		}
		for _, row := range t.Grid {
			if len(row) != dim {
				return 0, 0, &MalformedCorpusError{Reason: "tile is not square", TileID: t.ID}
			}
		}
	}
	if dim < 3 {
		return 0, 0, &MalformedCorpusError{Reason: fmt.Sprintf("tile dimension %d is below 3", dim)}
	}
	return sideCount, dim, nil
}

func isqrt(n int) int {
	r := 0
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// Assembler arranges a corpus into a consistent square grid
type Assembler struct {
	logger *zap.Logger
}

// NewAssembler creates an assembler
func NewAssembler(opts ...Option) *Assembler {
	o := buildOptions(opts)
	return &Assembler{logger: o.logger}
}

// Assemble is shorthand for NewAssembler(opts...).Assemble
func Assemble(ctx context.Context, corpus Corpus, opts ...Option) (*AssembledGrid, error) {
	return NewAssembler(opts...).Assemble(ctx, corpus)
}

// Assemble places every tile of the corpus. The context is checked between
// placements; the corpus itself is never modified.
func (as *Assembler) Assemble(ctx context.Context, corpus Corpus) (*AssembledGrid, error) {
	sideCount, dim, err := ValidateCorpus(corpus)
	if err != nil {
		return nil, err
	}

	grid := &AssembledGrid{SideCount: sideCount, TileDim: dim, Cells: make([][]PlacedTile, sideCount)}
	for r := range grid.Cells {
		grid.Cells[r] = make([]PlacedTile, sideCount)
	}

	if sideCount == 1 {
		grid.Cells[0][0] = PlacedTile{Tile: Identity.ApplyTile(corpus[0]), Orientation: Identity}
		return grid, nil
	}

	start, err := as.findUpperLeft(corpus)
	if err != nil {
		return nil, err
	}
	grid.Cells[0][0] = start

	pool := NewPool(corpus)
	pool.Take(start.ID)

	for r := 0; r < sideCount; r++ {
		for c := 0; c < sideCount; c++ {
			if r == 0 && c == 0 {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			var anchor Tile
			var anchorSide, candidateSide Side
			if c == 0 {
				anchor, anchorSide, candidateSide = grid.Cells[r-1][0].Tile, Bottom, Top
			} else {
				anchor, anchorSide, candidateSide = grid.Cells[r][c-1].Tile, Right, Left
			}

			var applied Orientation
			placed, ok := pool.Pop(func(t Tile) (Tile, bool) {
				oriented, o, ok := orientToMatch(anchor, anchorSide, t, candidateSide)
				if ok {
					applied = o
					if n := CountOrientationMatches(anchor, anchorSide, t, candidateSide); n > 1 {
						as.logger.Warn("ambiguous orientation, using first match",
							zap.Uint64("tile", uint64(t.ID)),
							zap.Int("matches", n),
							zap.String("orientation", o.String()))
					}
				}
				return oriented, ok
			})
			if !ok {
				return nil, &PlacementFailureError{Row: r, Col: c, AnchorID: anchor.ID, AnchorSide: anchorSide}
			}
			grid.Cells[r][c] = PlacedTile{Tile: placed, Orientation: applied}
			as.logger.Debug("placed tile",
				zap.Int("row", r),
				zap.Int("col", c),
				zap.Uint64("tile", uint64(placed.ID)),
				zap.String("orientation", applied.String()))
		}
	}
	return grid, nil
}

// findUpperLeft picks the lowest-ID corner and orients it so its matched
// sides face right and down.
func (as *Assembler) findUpperLeft(corpus Corpus) (PlacedTile, error) {
	class := Classify(corpus)
	as.logger.Debug("classified corpus",
		zap.Int("corners", len(class.Corners)),
		zap.Int("edges", len(class.Edges)),
		zap.Int("interior", len(class.Interior)))

	if len(class.Corners) != 4 {
		return PlacedTile{}, &NoUniqueCornerError{Found: class.Corners}
	}

	var corner Tile
	for _, t := range corpus {
		if t.ID == class.Corners[0] {
			corner = t
			break
		}
	}

	for _, o := range orientations {
		oriented := o.ApplyTile(corner)
		set := matchedSideSet(oriented, corpus)
		if len(set) == 2 && set[Right] && set[Bottom] {
			as.logger.Debug("selected upper-left corner",
				zap.Uint64("tile", uint64(corner.ID)),
				zap.String("orientation", o.String()))
			return PlacedTile{Tile: oriented, Orientation: o}, nil
		}
	}
	return PlacedTile{}, &NoUniqueCornerError{Found: class.Corners, Reason: fmt.Sprintf("tile %d has no orientation with matched sides right and bottom", corner.ID)}
}
