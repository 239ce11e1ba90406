package rag

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/siherrmann/kbrag/core/corpus"
	"github.com/siherrmann/kbrag/core/decision"
	"github.com/siherrmann/kbrag/core/pipeline"
	"github.com/siherrmann/kbrag/core/rerank"
	"github.com/siherrmann/kbrag/core/retrieval"
	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
)

// ErrCorpusUnavailable is returned when no corpus snapshot can be searched.
var ErrCorpusUnavailable = errors.New("corpus unavailable")

// Snapshots provides the current corpus snapshot, see corpus.Coordinator.
type Snapshots interface {
	Current() *corpus.Corpus
}

// Config bundles the tuning of every pipeline stage.
type Config struct {
	Query     model.QueryConfig
	Rerank    model.RerankConfig
	Threshold model.ThresholdConfig
	Decision  model.DecisionConfig
	Response  model.ResponseConfig
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		Query:     model.DefaultQueryConfig(),
		Rerank:    model.DefaultRerankConfig(),
		Threshold: model.DefaultThresholdConfig(),
		Decision:  model.DefaultDecisionConfig(),
		Response:  model.DefaultResponseConfig(),
	}
}

// Service answers questions against the current corpus snapshot
type Service struct {
	pipeline  atomic.Pointer[pipeline.Pipeline]
	snapshots Snapshots
	engine    *retrieval.Engine
	reranker  *rerank.Reranker
	config    Config
	logger    *slog.Logger
}

// NewService creates a new request pipeline service
func NewService(p *pipeline.Pipeline, snapshots Snapshots, config Config, logger *slog.Logger) (*Service, error) {
	if p == nil {
		return nil, helper.NewError("service validation", errors.New("pipeline is nil"))
	}
	if snapshots == nil {
		return nil, helper.NewError("service validation", errors.New("snapshots is nil"))
	}
	if logger == nil {
		logger = helper.DiscardLogger()
	}

	s := &Service{
		snapshots: snapshots,
		engine:    retrieval.NewEngine(logger),
		reranker:  rerank.NewReranker(config.Rerank, logger),
		config:    config,
		logger:    logger.With(slog.String("component", "rag")),
	}
	s.pipeline.Store(p)
	return s, nil
}

// SetPipeline replaces the query pipeline for subsequent requests.
func (s *Service) SetPipeline(p *pipeline.Pipeline) {
	if p != nil {
		s.pipeline.Store(p)
	}
}

// Pipeline returns the query pipeline in use.
func (s *Service) Pipeline() *pipeline.Pipeline {
	return s.pipeline.Load()
}

// Ask runs classification, retrieval, reranking, the threshold gate and
// the source decision for question. Blocked questions and questions without
// sufficient context get the fixed reply in Answer.Message. The citation is
// decided whether or not the gate passed. A missing corpus is an error.
func (s *Service) Ask(ctx context.Context, question string) (*model.Answer, error) {
	prepared, err := s.pipeline.Load().Prepare(ctx, question, s.logger)
	if err != nil {
		return nil, err
	}

	answer := &model.Answer{
		Question:       question,
		Intent:         prepared.Intent,
		RewrittenQuery: prepared.Rewritten,
		Trace:          model.DecisionTrace{Entries: []model.SourceEntry{}, Rule: model.DecisionNone},
	}

	if prepared.Intent == model.IntentBlock {
		s.logger.Info("Blocked question", slog.String("question", question))
		answer.Message = s.config.Response.BlockedMessage
		return answer, nil
	}

	snapshot := s.snapshots.Current()
	if snapshot.Len() == 0 {
		return nil, helper.NewError("ask", ErrCorpusUnavailable)
	}

	if prepared.EmbedErr != nil {
		answer.Message = s.config.Response.NotFoundMessage
		return answer, nil
	}

	candidates, err := s.engine.Retrieve(ctx, snapshot, prepared.Vector, &s.config.Query)
	if err != nil {
		return nil, helper.NewError("retrieve", err)
	}

	results := s.reranker.Rerank(prepared.Rewritten, candidates, s.config.Query.RerankTopK, prepared.Intent)
	gate := decision.Gate(results, s.config.Threshold)
	decided := decision.DecideSources(decision.SourceEntries(gate.Accepted), s.config.Decision)

	answer.Context = gate.Context
	answer.HasContext = gate.HasContext
	answer.Results = results
	answer.Citation = decided.Citation
	answer.Sources = decided.Sources
	answer.Trace = decided.Trace
	if !gate.HasContext {
		answer.Message = s.config.Response.NotFoundMessage
	}

	s.logger.Debug(
		"Answered question",
		slog.String("corpus", snapshot.Version),
		slog.Int("candidates", len(candidates)),
		slog.Int("accepted", len(gate.Accepted)),
		slog.String("rule", string(decided.Trace.Rule)),
		slog.String("citation", decided.Citation),
	)

	return answer, nil
}
