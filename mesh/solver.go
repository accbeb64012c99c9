package mesh

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WithMarker replaces the default sea monster marker
func WithMarker(m Marker) Option {
	return func(o *options) {
		o.marker = &m
	}
}

// WithLayoutCache reuses and records solved arrangements
func WithLayoutCache(cache *LayoutCache) Option {
	return func(o *options) {
		o.cache = cache
	}
}

// WithSource labels results with where the corpus came from
func WithSource(source string) Option {
	return func(o *options) {
		o.source = source
	}
}

// Solution carries the reported Result together with the intermediate
// products renderers need.
type Solution struct {
	Result    Result
	Assembled *AssembledGrid
	Composite Grid
	Search    Search
}

// Solver runs the full pipeline: assemble, checksum, merge, pattern search
type Solver struct {
	opts options
}

// NewSolver creates a solver
func NewSolver(opts ...Option) *Solver {
	return &Solver{opts: buildOptions(opts)}
}

func (s *Solver) marker() Marker {
	if s.opts.marker != nil {
		return *s.opts.marker
	}
	return SeaMonster()
}

// Solve assembles the corpus and computes both outputs. Failing to find the
// marker is not an error: the result carries the unreduced count and
// PatternFound is false.
func (s *Solver) Solve(ctx context.Context, corpus Corpus) (*Solution, error) {
	logger := s.opts.logger
	start := time.Now()

	if _, _, err := ValidateCorpus(corpus); err != nil {
		return nil, err
	}

	var assembled *AssembledGrid
	fromCache := false
	digest := ""
	if s.opts.cache != nil {
		digest = CorpusDigest(corpus)
		if cached, ok := s.opts.cache.Restore(digest, corpus); ok {
			assembled = cached
			fromCache = true
			logger.Debug("layout restored from cache", zap.String("digest", digest))
		}
	}
	if assembled == nil {
		var err error
		assembled, err = NewAssembler(WithLogger(logger)).Assemble(ctx, corpus)
		if err != nil {
			return nil, err
		}
		if s.opts.cache != nil {
			s.opts.cache.Store(digest, assembled)
		}
	}

	checksum, err := assembled.Checksum()
	if err != nil {
		return nil, fmt.Errorf("computing checksum: %w", err)
	}

	composite := Merge(assembled)
	search := FindMarkers(composite, s.marker())
	roughness := search.Roughness()
	if !search.Found() {
		logger.Info("marker not found in any orientation", zap.String("source", s.opts.source))
	}

	result := Result{
		RunID:        uuid.NewString(),
		Source:       s.opts.source,
		Checksum:     checksum,
		Roughness:    roughness,
		Occurrences:  len(search.Occurrences),
		PatternFound: search.Found(),
		SideCount:    assembled.SideCount,
		TileDim:      assembled.TileDim,
		CompositeDim: composite.Dim(),
		Corners:      assembled.Corners(),
		Layout:       assembled.IDs(),
		FromCache:    fromCache,
		SolvedAt:     time.Now().Unix(),
	}
	if search.Found() {
		result.Orientation = search.Orientation.String()
	}

	logger.Debug("solved corpus",
		zap.String("runId", result.RunID),
		zap.Uint64("checksum", checksum),
		zap.Int("roughness", roughness),
		zap.Int("occurrences", result.Occurrences),
		zap.Duration("elapsed", time.Since(start)))

	return &Solution{Result: result, Assembled: assembled, Composite: composite, Search: search}, nil
}

// SolveFile parses and solves a corpus file
func (s *Solver) SolveFile(ctx context.Context, path string, glyphs Glyphs) (*Solution, error) {
	corpus, err := ParseCorpusFile(path, glyphs)
	if err != nil {
		return nil, err
	}
	sol, err := s.Solve(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("solving %s: %w", path, err)
	}
	if sol.Result.Source == "" {
		sol.Result.Source = path
	}
	return sol, nil
}
