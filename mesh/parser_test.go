package mesh

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCorpusFileExample(t *testing.T) {
	corpus := loadExample(t)

	ids := make([]TileID, len(corpus))
	for i, tile := range corpus {
		ids[i] = tile.ID
		assert.Equal(t, 10, tile.Dim())
	}
	assert.Equal(t, []TileID{2311, 1951, 1171, 1427, 1489, 2473, 2971, 2729, 3079}, ids)
	assert.Equal(t, "..##.#..#.", Grid{corpus[0].Grid[0]}.String())
}

func TestParseCorpusCRLFAndTrailingBlank(t *testing.T) {
	text := "Tile 7:\r\n#..\r\n.#.\r\n..#\r\n\r\nTile 9:\r\n...\r\n...\r\n...\r\n\r\n"
	corpus, err := ParseCorpus([]byte(text), DefaultGlyphs())
	require.NoError(t, err)
	require.Len(t, corpus, 2)
	assert.Equal(t, TileID(7), corpus[0].ID)
	assert.Equal(t, "#..\n.#.\n..#", corpus[0].Grid.String())
	assert.Equal(t, 0, corpus[1].Grid.CountFilled())
}

func TestParseCorpusCustomGlyphs(t *testing.T) {
	glyphs := Glyphs{Filled: 'X', Empty: 'o'}
	corpus, err := ParseCorpus([]byte("Tile 1:\nXoo\noXo\nooX\n"), glyphs)
	require.NoError(t, err)
	assert.Equal(t, 3, corpus[0].Grid.CountFilled())
	assert.Equal(t, "Xoo\noXo\nooX", corpus[0].Grid.Format(glyphs))
}

func TestParseCorpusErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"missing colon", "Tile 12\n...\n", "missing ':'"},
		{"bad id", "Tile abc:\n...\n", "parsing tile id"},
		{"zero id", "Tile 0:\n...\n", "positive"},
		{"bad symbol", "Tile 1:\n.x.\n", "unexpected symbol"},
		{"row before header", "...\n", "outside of a tile block"},
		{"header without rows", "Tile 1:\n\nTile 2:\n...\n", "has no rows"},
		{"missing separator", "Tile 1:\n...\nTile 2:\n...\n", "without preceding blank line"},
		{"empty", "\n\n", "corpus is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCorpus([]byte(tt.text), DefaultGlyphs())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseCorpusFileMissing(t *testing.T) {
	_, err := ParseCorpusFile(filepath.Join(t.TempDir(), "nope.txt"), DefaultGlyphs())
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFormatCorpusRoundTrip(t *testing.T) {
	corpus := loadExample(t)
	text := FormatCorpus(corpus, DefaultGlyphs())

	original, err := os.ReadFile(filepath.Join("testdata", "example.txt"))
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(string(original)), strings.TrimSpace(string(text)))
}

func TestLoadMarkerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marker.txt")
	require.NoError(t, os.WriteFile(path, []byte(" # \n###\n"), 0644))

	m, err := LoadMarkerFile(path, DefaultFilledGlyph)
	require.NoError(t, err)
	assert.Equal(t, 4, m.FilledCount())

	_, err = LoadMarkerFile(filepath.Join(t.TempDir(), "missing.txt"), DefaultFilledGlyph)
	assert.Error(t, err)
}
