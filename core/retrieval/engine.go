package retrieval

import (
	"container/heap"
	"context"
	"log/slog"

	"github.com/siherrmann/kbrag/core/corpus"
	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
)

// Engine retrieves candidates from a corpus snapshot
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a new retrieval engine
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = helper.DiscardLogger()
	}
	return &Engine{logger: logger.With(slog.String("component", "retrieval"))}
}

// Retrieve runs the strategy selected by config: similarity search followed
// by MMR diversification, or plain top-k when MMR is disabled.
func (e *Engine) Retrieve(ctx context.Context, c *corpus.Corpus, query []float32, config *model.QueryConfig) ([]model.Candidate, error) {
	if config == nil {
		defaults := model.DefaultQueryConfig()
		config = &defaults
	}

	var strategy Strategy = NewVectorOnlyStrategy(e)
	if config.UseMMR {
		strategy = NewMMRStrategy(e)
	}

	return strategy.Retrieve(ctx, c, query, config)
}

// Similarity scores every corpus row against the unit query vector and
// returns the best PoolSize rows as candidates, deduplicated by item id and
// sorted by descending score. A zero query, an empty corpus or a dimension
// mismatch yield no candidates. Rows without embedding are never returned.
func (e *Engine) Similarity(c *corpus.Corpus, query []float32, config *model.QueryConfig) []model.Candidate {
	if c.Len() == 0 || config.TopK <= 0 {
		return []model.Candidate{}
	}
	if len(query) == 0 || helper.IsZero(query) {
		e.logger.Debug("Zero query vector, no candidates")
		return []model.Candidate{}
	}
	if len(query) != c.Dim {
		e.logger.Warn("Query dimension does not match corpus", slog.Int("query", len(query)), slog.Int("corpus", c.Dim))
		return []model.Candidate{}
	}

	poolK := config.PoolSize(c.Len())
	pool := make(scoreHeap, 0, poolK)
	for i, row := range c.Vectors {
		if helper.IsZero(row) {
			continue
		}
		s := scored{index: i, score: helper.Dot(query, row)}
		if len(pool) < poolK {
			heap.Push(&pool, s)
		} else if pool.worse(pool[0], s) {
			pool[0] = s
			heap.Fix(&pool, 0)
		}
	}

	// Pop worst first, fill from the back.
	ordered := make([]scored, len(pool))
	for i := len(ordered) - 1; i >= 0; i-- {
		ordered[i] = heap.Pop(&pool).(scored)
	}

	seen := make(map[string]bool, len(ordered))
	candidates := make([]model.Candidate, 0, len(ordered))
	for _, s := range ordered {
		item := c.Item(s.index)
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		candidates = append(candidates, model.Candidate{
			ID:          item.ID,
			Index:       s.index,
			Item:        item,
			Vector:      c.Row(s.index),
			VectorScore: s.score,
		})
	}

	return candidates
}

type scored struct {
	index int
	score float64
}

// scoreHeap is a min-heap with the worst candidate at the root.
// Equal scores rank the lower row index higher.
type scoreHeap []scored

func (h scoreHeap) worse(a, b scored) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.index > b.index
}

func (h scoreHeap) Len() int            { return len(h) }
func (h scoreHeap) Less(i, j int) bool  { return h.worse(h[i], h[j]) }
func (h scoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x interface{}) { *h = append(*h, x.(scored)) }
func (h *scoreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
