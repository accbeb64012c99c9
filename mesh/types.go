package mesh

import "strings"

// Symbol is a single cell of a tile or composite grid
type Symbol byte

const (
	Empty Symbol = iota
	Filled
)

// Default glyphs used by the text corpus format
const (
	DefaultFilledGlyph = '#'
	DefaultEmptyGlyph  = '.'
)

// TileID names a physical tile; it survives every rotation and flip
type TileID uint64

// Grid is a square matrix of symbols indexed [row][col]
type Grid [][]Symbol

// NewGrid allocates an empty d x d grid
func NewGrid(d int) Grid {
	g := make(Grid, d)
	for r := range g {
		g[r] = make([]Symbol, d)
	}
	return g
}

// Dim returns the edge length of the grid
func (g Grid) Dim() int {
	return len(g)
}

// Clone returns a deep copy of the grid
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for r, row := range g {
		out[r] = append([]Symbol(nil), row...)
	}
	return out
}

// Equal reports whether two grids have identical content
func (g Grid) Equal(other Grid) bool {
	if len(g) != len(other) {
		return false
	}
	for r := range g {
		if len(g[r]) != len(other[r]) {
			return false
		}
		for c := range g[r] {
			if g[r][c] != other[r][c] {
				return false
			}
		}
	}
	return true
}

// CountFilled returns the number of Filled cells
func (g Grid) CountFilled() int {
	n := 0
	for _, row := range g {
		for _, s := range row {
			if s == Filled {
				n++
			}
		}
	}
	return n
}

// String renders the grid with the default glyphs, one row per line
func (g Grid) String() string {
	return g.Format(DefaultGlyphs())
}

// Format renders the grid with the given glyphs, one row per line
func (g Grid) Format(glyphs Glyphs) string {
	var b strings.Builder
	for r, row := range g {
		if r > 0 {
			b.WriteByte('\n')
		}
		for _, s := range row {
			if s == Filled {
				b.WriteRune(glyphs.Filled)
			} else {
				b.WriteRune(glyphs.Empty)
			}
		}
	}
	return b.String()
}

// Tile is an identified square grid. Tiles are never mutated; every transform
// produces a new Tile with the same ID.
type Tile struct {
	ID   TileID
	Grid Grid
}

// Dim returns the tile's edge length
func (t Tile) Dim() int {
	return t.Grid.Dim()
}

// Corpus is the unordered set of tiles handed over by the parser
type Corpus []Tile

// Glyphs maps the two symbol classes to runes for parsing and rendering
type Glyphs struct {
	Filled rune
	Empty  rune
}

// DefaultGlyphs returns the '#' / '.' glyph pair
func DefaultGlyphs() Glyphs {
	return Glyphs{Filled: DefaultFilledGlyph, Empty: DefaultEmptyGlyph}
}

// Result is the externally reported outcome of one solve
type Result struct {
	RunID        string     `json:"runId"`
	Source       string     `json:"source,omitempty"`
	Checksum     uint64     `json:"checksum"`
	Roughness    int        `json:"roughness"`
	Occurrences  int        `json:"occurrences"`
	Orientation  string     `json:"orientation,omitempty"`
	PatternFound bool       `json:"patternFound"`
	SideCount    int        `json:"sideCount"`
	TileDim      int        `json:"tileDim"`
	CompositeDim int        `json:"compositeDim"`
	Corners      [4]TileID  `json:"corners"`
	Layout       [][]TileID `json:"layout"`
	FromCache    bool       `json:"fromCache,omitempty"`
	SolvedAt     int64      `json:"solvedAt"`
}

// GlyphConfig selects the characters used in corpus files
type GlyphConfig struct {
	Filled string `yaml:"filled" json:"filled"`
	Empty  string `yaml:"empty" json:"empty"`
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	CorpusTopic   string `yaml:"corpusTopic" json:"corpusTopic"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
}

// RenderConfig controls raster and vector output
type RenderConfig struct {
	CellSize     int    `yaml:"cellSize" json:"cellSize"`
	FilledColor  string `yaml:"filledColor,omitempty" json:"filledColor,omitempty"`
	EmptyColor   string `yaml:"emptyColor,omitempty" json:"emptyColor,omitempty"`
	MarkerColor  string `yaml:"markerColor,omitempty" json:"markerColor,omitempty"`
	ShowTileGrid bool   `yaml:"showTileGrid" json:"showTileGrid"`
}

// Config represents the full configuration file
type Config struct {
	Glyphs    GlyphConfig  `yaml:"glyphs" json:"glyphs"`
	Marker    string       `yaml:"marker,omitempty" json:"marker,omitempty"` // path to a marker pattern file; empty selects the sea monster
	CacheFile string       `yaml:"cacheFile,omitempty" json:"cacheFile,omitempty"`
	HTTP      HTTPConfig   `yaml:"http" json:"http"`
	MQTT      MQTTConfig   `yaml:"mqtt" json:"mqtt"`
	Render    RenderConfig `yaml:"render" json:"render"`
}

// GetGlyphs converts the configured glyph strings to a Glyphs value
func (c *Config) GetGlyphs() Glyphs {
	g := DefaultGlyphs()
	if c == nil {
		return g
	}
	if r := []rune(c.Glyphs.Filled); len(r) == 1 {
		g.Filled = r[0]
	}
	if r := []rune(c.Glyphs.Empty); len(r) == 1 {
		g.Empty = r[0]
	}
	return g
}

// MQTTEnabled returns true if a broker is configured
func (c *Config) MQTTEnabled() bool {
	return c != nil && c.MQTT.Broker != ""
}
