package mesh

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedCorpus matches any MalformedCorpusError
	ErrMalformedCorpus = errors.New("mesh: malformed corpus")
	// ErrNoUniqueCorner matches any NoUniqueCornerError
	ErrNoUniqueCorner = errors.New("mesh: no unique corner")
	// ErrPlacementFailure matches any PlacementFailureError
	ErrPlacementFailure = errors.New("mesh: placement failure")
	// ErrNoPatternMatch is returned alongside the raw filled count when no
	// orientation of the composite contains the marker. It is not fatal.
	ErrNoPatternMatch = errors.New("mesh: no marker occurrence in any orientation")
	// ErrChecksumOverflow is returned when the corner product exceeds uint64
	ErrChecksumOverflow = errors.New("mesh: checksum overflows uint64")
)

// MalformedCorpusError reports a corpus that violates the square-grid
// preconditions. TileID is zero when the problem is not tied to one tile.
type MalformedCorpusError struct {
	Reason string
	TileID TileID
}

func (e *MalformedCorpusError) Error() string {
	if e.TileID != 0 {
		return fmt.Sprintf("malformed corpus: tile %d: %s", e.TileID, e.Reason)
	}
	return "malformed corpus: " + e.Reason
}

func (e *MalformedCorpusError) Is(target error) bool {
	return target == ErrMalformedCorpus
}

// NoUniqueCornerError reports that corner discovery did not find a usable
// starting tile. Found lists the tiles that had exactly two matching sides.
type NoUniqueCornerError struct {
	Found  []TileID
	Reason string
}

func (e *NoUniqueCornerError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no unique corner: %s (candidates %v)", e.Reason, e.Found)
	}
	return fmt.Sprintf("no unique corner: found %d candidates %v, want 4", len(e.Found), e.Found)
}

func (e *NoUniqueCornerError) Is(target error) bool {
	return target == ErrNoUniqueCorner
}

// PlacementFailureError reports the first grid position no remaining tile fits
type PlacementFailureError struct {
	Row        int
	Col        int
	AnchorID   TileID
	AnchorSide Side
}

func (e *PlacementFailureError) Error() string {
	return fmt.Sprintf("placement failure at (%d,%d): no tile matches %s side of tile %d",
		e.Row, e.Col, e.AnchorSide, e.AnchorID)
}

func (e *PlacementFailureError) Is(target error) bool {
	return target == ErrPlacementFailure
}
