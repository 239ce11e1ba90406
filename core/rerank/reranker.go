package rerank

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
)

// stepPattern matches "step 3", "Step3", "ขั้นตอนที่ 3" and similar.
var stepPattern = regexp.MustCompile(`(?i)(ขั้นตอน|step)\s*(ที่)?\s*(\d+)`)

// Reranker rescores diversified candidates with lexical and metadata signals
type Reranker struct {
	config model.RerankConfig
	active map[string]bool
	logger *slog.Logger
}

// NewReranker creates a reranker for the given config
func NewReranker(config model.RerankConfig, logger *slog.Logger) *Reranker {
	if logger == nil {
		logger = helper.DiscardLogger()
	}

	active := make(map[string]bool, len(config.ActiveStatuses))
	for _, s := range config.ActiveStatuses {
		active[strings.ToLower(strings.TrimSpace(s))] = true
	}

	return &Reranker{
		config: config,
		active: active,
		logger: logger.With(slog.String("component", "rerank")),
	}
}

// RequestedStep returns the step number asked for in query, if any.
func RequestedStep(query string) (int, bool) {
	m := stepPattern.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Rerank scores candidates against query and returns at most topK results
// sorted by descending score. Each result holds a copy of the candidate item
// with Metadata.RerankScore set; the candidates are not modified.
// intent is informational: it is logged but does not affect the scores.
func (r *Reranker) Rerank(query string, candidates []model.Candidate, topK int, intent model.Intent) []model.RankedResult {
	if len(candidates) == 0 || topK <= 0 {
		return []model.RankedResult{}
	}

	q := queryFeatures{
		normalized: normalizeQuery(query),
		tokens:     Tokenize(query),
	}
	q.step, q.hasStep = RequestedStep(query)

	results := make([]model.RankedResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Item == nil {
			continue
		}
		score := r.scoreCandidate(q, c)

		item := c.Item.Clone()
		item.Metadata.RerankScore = &score
		results = append(results, model.RankedResult{Item: item, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	r.logger.Debug(
		"Reranked candidates",
		slog.String("intent", string(intent)),
		slog.Int("candidates", len(candidates)),
		slog.Int("results", len(results)),
		slog.Int("query_tokens", len(q.tokens)),
	)

	return results
}

type queryFeatures struct {
	normalized string
	tokens     []string
	step       int
	hasStep    bool
}

// scoreCandidate computes the rerank score of a single candidate.
// The type weight multiplies the base before any additive boost.
func (r *Reranker) scoreCandidate(q queryFeatures, c model.Candidate) float64 {
	item := c.Item
	meta := item.Metadata

	score := c.VectorScore * r.config.VectorScale
	score *= r.config.Weight(item.Type)

	score += LexicalOverlap(q.tokens, strings.ToLower(item.Content)) * r.config.LexicalWeight

	topic := meta.Topic
	if strings.TrimSpace(topic) == "" {
		topic = meta.Name
	}
	topic = normalizeQuery(topic)
	if utf8.RuneCountInString(topic) >= r.config.TopicMinRunes && q.normalized != "" &&
		(strings.Contains(q.normalized, topic) || strings.Contains(topic, q.normalized)) {
		score += r.config.TopicBonus
	}

	if q.hasStep && meta.StepNumber != nil {
		if *meta.StepNumber == q.step {
			score += r.config.StepMatchBonus
		} else {
			score -= r.config.StepMismatchPenalty
		}
	}

	if abbr := normalizeQuery(meta.FundAbbr); abbr != "" && strings.Contains(q.normalized, abbr) {
		score += r.config.FundBonus
	}

	if item.Type == model.ItemTypeFact && r.active[strings.ToLower(strings.TrimSpace(meta.Status))] {
		score += r.config.ActiveStatusBonus
	}

	return score
}
