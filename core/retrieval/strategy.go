package retrieval

import (
	"context"

	"github.com/siherrmann/kbrag/core/corpus"
	"github.com/siherrmann/kbrag/model"
)

// Strategy defines a retrieval strategy
type Strategy interface {
	Retrieve(ctx context.Context, c *corpus.Corpus, query []float32, config *model.QueryConfig) ([]model.Candidate, error)
}

// VectorOnlyStrategy returns the top-k candidates by similarity
type VectorOnlyStrategy struct {
	engine *Engine
}

// NewVectorOnlyStrategy creates a new vector-only strategy
func NewVectorOnlyStrategy(engine *Engine) *VectorOnlyStrategy {
	return &VectorOnlyStrategy{engine: engine}
}

// Retrieve performs vector-only retrieval
func (s *VectorOnlyStrategy) Retrieve(ctx context.Context, c *corpus.Corpus, query []float32, config *model.QueryConfig) ([]model.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidates := s.engine.Similarity(c, query, config)
	return candidates[:min(config.TopK, len(candidates))], nil
}

// MMRStrategy diversifies the similarity pool with maximal marginal relevance
type MMRStrategy struct {
	engine *Engine
}

// NewMMRStrategy creates a new MMR strategy
func NewMMRStrategy(engine *Engine) *MMRStrategy {
	return &MMRStrategy{engine: engine}
}

// Retrieve performs similarity search followed by diversification
func (s *MMRStrategy) Retrieve(ctx context.Context, c *corpus.Corpus, query []float32, config *model.QueryConfig) ([]model.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidates := s.engine.Similarity(c, query, config)
	return Diversify(candidates, config.TopK, config.Lambda), nil
}
