package mesh

import "sort"

// MatchingSides lists the sides of a whose border equals some border of b,
// read forwards or backwards. A side is listed once per hit, so a
// palindromic border that meets b twice appears twice.
func MatchingSides(a, b Tile) []Side {
	var out []Side
	for _, s1 := range allSides {
		border := Border(a.Grid, s1)
		for _, s2 := range allSides {
			other := Border(b.Grid, s2)
			if bordersEqual(border, other) {
				out = append(out, s1)
			}
			if bordersEqualReversed(border, other) {
				out = append(out, s1)
			}
		}
	}
	return out
}

// OrientToMatch returns the first orientation of candidate, in
// Orientations order, whose candidateSide border equals the anchorSide
// border of anchor.
func OrientToMatch(anchor Tile, anchorSide Side, candidate Tile, candidateSide Side) (Tile, bool) {
	oriented, _, ok := orientToMatch(anchor, anchorSide, candidate, candidateSide)
	return oriented, ok
}

func orientToMatch(anchor Tile, anchorSide Side, candidate Tile, candidateSide Side) (Tile, Orientation, bool) {
	want := Border(anchor.Grid, anchorSide)
	for _, o := range orientations {
		oriented := o.ApplyTile(candidate)
		if bordersEqual(Border(oriented.Grid, candidateSide), want) {
			return oriented, o, true
		}
	}
	return Tile{}, Orientation{}, false
}

// CountOrientationMatches counts the orientations of candidate that satisfy
// the same test as OrientToMatch. Values above one mean the fit is
// ambiguous and only the first orientation is used.
func CountOrientationMatches(anchor Tile, anchorSide Side, candidate Tile, candidateSide Side) int {
	want := Border(anchor.Grid, anchorSide)
	n := 0
	for _, o := range orientations {
		if bordersEqual(Border(o.Apply(candidate.Grid), candidateSide), want) {
			n++
		}
	}
	return n
}

// Classification groups tiles by how many matching sides they have
// against the rest of the corpus.
type Classification struct {
	Matches  map[TileID][]Side
	Corners  []TileID
	Edges    []TileID
	Interior []TileID
	Other    []TileID
}

// Classify computes MatchingSides of every tile against every other tile.
// Each ID list is sorted ascending.
func Classify(tiles []Tile) Classification {
	c := Classification{Matches: make(map[TileID][]Side, len(tiles))}
	for i, a := range tiles {
		var sides []Side
		for j, b := range tiles {
			if i == j {
				continue
			}
			sides = append(sides, MatchingSides(a, b)...)
		}
		c.Matches[a.ID] = sides
		switch len(sides) {
		case 2:
			c.Corners = append(c.Corners, a.ID)
		case 3:
			c.Edges = append(c.Edges, a.ID)
		case 4:
			c.Interior = append(c.Interior, a.ID)
		default:
			c.Other = append(c.Other, a.ID)
		}
	}
	for _, ids := range [][]TileID{c.Corners, c.Edges, c.Interior, c.Other} {
		sortIDs(ids)
	}
	return c
}

// matchedSideSet returns the distinct sides of t that match any tile in others
func matchedSideSet(t Tile, others []Tile) map[Side]bool {
	set := make(map[Side]bool, 4)
	for _, o := range others {
		if o.ID == t.ID {
			continue
		}
		for _, s := range MatchingSides(t, o) {
			set[s] = true
		}
	}
	return set
}

func sortIDs(ids []TileID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
