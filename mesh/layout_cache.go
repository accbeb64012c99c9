package mesh

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DefaultLayoutCachePath is the default path for the solved layout cache
const DefaultLayoutCachePath = ".layout-cache.json"

// CachedCell records which tile sits in a cell and how it was oriented
type CachedCell struct {
	ID          TileID `json:"id"`
	Orientation string `json:"orientation"`
}

// CachedLayout is one solved arrangement
type CachedLayout struct {
	SideCount int            `json:"sideCount"`
	TileDim   int            `json:"tileDim"`
	Cells     [][]CachedCell `json:"cells"`
	SolvedAt  int64          `json:"solvedAt"`
}

// LayoutCache maps corpus digests to solved arrangements. It is safe for
// concurrent use.
type LayoutCache struct {
	mu          sync.RWMutex
	Layouts     map[string]CachedLayout `json:"layouts"`
	LastUpdated int64                   `json:"lastUpdated"`
}

// NewLayoutCache returns an empty cache
func NewLayoutCache() *LayoutCache {
	return &LayoutCache{Layouts: make(map[string]CachedLayout)}
}

// LoadLayoutCache loads the cache from a JSON file. A missing file yields a
// nil cache and no error.
func LoadLayoutCache(path string) (*LayoutCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading layout cache: %w", err)
	}

	cache := NewLayoutCache()
	if err := json.Unmarshal(data, cache); err != nil {
		return nil, fmt.Errorf("parsing layout cache: %w", err)
	}
	if cache.Layouts == nil {
		cache.Layouts = make(map[string]CachedLayout)
	}
	return cache, nil
}

// SaveLayoutCache writes the cache to a JSON file
func SaveLayoutCache(path string, cache *LayoutCache) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating layout cache directory: %w", err)
	}

	cache.mu.Lock()
	cache.LastUpdated = time.Now().Unix()
	data, err := json.MarshalIndent(cache, "", "  ")
	cache.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshaling layout cache: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing layout cache: %w", err)
	}
	return nil
}

// Len returns the number of cached layouts
func (c *LayoutCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Layouts)
}

// Store records the arrangement for a corpus digest
func (c *LayoutCache) Store(digest string, a *AssembledGrid) {
	if c == nil {
		return
	}
	layout := CachedLayout{
		SideCount: a.SideCount,
		TileDim:   a.TileDim,
		Cells:     make([][]CachedCell, len(a.Cells)),
		SolvedAt:  time.Now().Unix(),
	}
	for r, row := range a.Cells {
		layout.Cells[r] = make([]CachedCell, len(row))
		for col, p := range row {
			layout.Cells[r][col] = CachedCell{ID: p.ID, Orientation: p.Orientation.String()}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Layouts[digest] = layout
}

// Restore rebuilds the arrangement for a corpus from the cache. The
// rebuilt grid is verified edge by edge; a stale or corrupt entry is
// reported as a miss.
func (c *LayoutCache) Restore(digest string, corpus Corpus) (*AssembledGrid, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	layout, ok := c.Layouts[digest]
	c.mu.RUnlock()
	if !ok || len(corpus) == 0 || len(layout.Cells) != layout.SideCount {
		return nil, false
	}
	if layout.SideCount*layout.SideCount != len(corpus) || layout.TileDim != corpus[0].Dim() {
		return nil, false
	}

	byID := make(map[TileID]Tile, len(corpus))
	for _, t := range corpus {
		byID[t.ID] = t
	}
	seen := make(map[TileID]bool, len(corpus))

	grid := &AssembledGrid{SideCount: layout.SideCount, TileDim: layout.TileDim, Cells: make([][]PlacedTile, layout.SideCount)}
	for r, row := range layout.Cells {
		if len(row) != layout.SideCount {
			return nil, false
		}
		grid.Cells[r] = make([]PlacedTile, len(row))
		for col, cell := range row {
			t, ok := byID[cell.ID]
			if !ok || seen[cell.ID] {
				return nil, false
			}
			seen[cell.ID] = true
			o, err := ParseOrientation(cell.Orientation)
			if err != nil {
				return nil, false
			}
			grid.Cells[r][col] = PlacedTile{Tile: o.ApplyTile(t), Orientation: o}
		}
	}
	if len(seen) != len(corpus) || grid.Verify() != nil {
		return nil, false
	}
	return grid, true
}

// CorpusDigest returns a stable content hash of a corpus, independent of
// tile order.
func CorpusDigest(corpus Corpus) string {
	sorted := make(Corpus, len(corpus))
	copy(sorted, corpus)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := sha256.New()
	h.Write(FormatCorpus(sorted, DefaultGlyphs()))
	return hex.EncodeToString(h.Sum(nil))
}
