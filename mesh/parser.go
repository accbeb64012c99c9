package mesh

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseCorpusFile reads and parses a tile corpus file
func ParseCorpusFile(path string, glyphs Glyphs) (Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseCorpus(data, glyphs)
}

// ParseCorpus parses tile blocks of the form
//
//	Tile 2311:
//	..##.#..#.
//	##..#.....
//
// separated by blank lines. CRLF line endings and a missing trailing blank
// line are accepted. Structural checks beyond the block syntax are left to
// ValidateCorpus.
func ParseCorpus(data []byte, glyphs Glyphs) (Corpus, error) {
	var corpus Corpus
	var current *Tile

	flush := func() {
		if current != nil {
			corpus = append(corpus, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			if current != nil && len(current.Grid) == 0 {
				return nil, fmt.Errorf("line %d: tile %d has no rows", lineNo, current.ID)
			}
			flush()
		case strings.HasPrefix(trimmed, "Tile "):
			if current != nil {
				return nil, fmt.Errorf("line %d: tile header without preceding blank line", lineNo)
			}
			id, err := parseTileHeader(trimmed)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current = &Tile{ID: id}
		default:
			if current == nil {
				return nil, fmt.Errorf("line %d: row outside of a tile block", lineNo)
			}
			row, err := parseRow(trimmed, glyphs)
			if err != nil {
				return nil, fmt.Errorf("line %d: tile %d: %w", lineNo, current.ID, err)
			}
			current.Grid = append(current.Grid, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning corpus: %w", err)
	}
	if current != nil && len(current.Grid) == 0 {
		return nil, fmt.Errorf("tile %d has no rows", current.ID)
	}
	flush()

	if len(corpus) == 0 {
		return nil, &MalformedCorpusError{Reason: "corpus is empty"}
	}
	return corpus, nil
}

func parseTileHeader(line string) (TileID, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(line, "Tile "), ":")
	if body == strings.TrimPrefix(line, "Tile ") {
		return 0, fmt.Errorf("tile header %q is missing ':'", line)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(body), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing tile id in %q: %w", line, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("tile id must be positive")
	}
	return TileID(id), nil
}

func parseRow(line string, glyphs Glyphs) ([]Symbol, error) {
	row := make([]Symbol, 0, len(line))
	for _, ch := range line {
		switch ch {
		case glyphs.Filled:
			row = append(row, Filled)
		case glyphs.Empty:
			row = append(row, Empty)
		default:
			return nil, fmt.Errorf("unexpected symbol %q", ch)
		}
	}
	return row, nil
}

// FormatCorpus writes a corpus back in the text format ParseCorpus reads
func FormatCorpus(corpus Corpus, glyphs Glyphs) []byte {
	var b strings.Builder
	for i, t := range corpus {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Tile %d:\n%s\n", t.ID, t.Grid.Format(glyphs))
	}
	return []byte(b.String())
}

// LoadMarkerFile reads a marker pattern file drawn with the given filled glyph
func LoadMarkerFile(path string, filled rune) (Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Marker{}, fmt.Errorf("reading marker file: %w", err)
	}
	m, err := ParseMarker(string(data), filled)
	if err != nil {
		return Marker{}, fmt.Errorf("parsing marker file %s: %w", path, err)
	}
	return m, nil
}
