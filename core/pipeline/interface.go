package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
)

// ErrEmbeddingUnavailable is returned when no usable embedding could be
// obtained for a text.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// ClassifyFunc decides whether a question is answered at all.
type ClassifyFunc func(ctx context.Context, question string) (model.Intent, error)

// RewriteFunc rewrites a question into the text used for retrieval.
type RewriteFunc func(ctx context.Context, question string) (string, error)

// Pipeline combines the query side functions
type Pipeline struct {
	Embedder   EmbedFunc
	Classifier ClassifyFunc // Optional, nil allows every question
	Rewriter   RewriteFunc  // Optional, nil keeps the question
}

// NewPipeline creates a new query pipeline with the topic block classifier
// and the passthrough rewriter.
func NewPipeline(embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Embedder:   embedder,
		Classifier: DefaultClassifier(),
		Rewriter:   PassthroughRewriter,
	}
}

// SetClassifier sets the intent classification function
func (p *Pipeline) SetClassifier(classifier ClassifyFunc) {
	p.Classifier = classifier
}

// SetRewriter sets the query rewrite function
func (p *Pipeline) SetRewriter(rewriter RewriteFunc) {
	p.Rewriter = rewriter
}

// PreparedQuery is a question ready for retrieval.
type PreparedQuery struct {
	Question  string
	Intent    model.Intent
	Rewritten string
	// Vector is unit norm, or empty when the embedding failed.
	Vector []float32
	// EmbedErr keeps the reason of an empty Vector.
	EmbedErr error
}

// Prepare classifies, rewrites and embeds question. Classifier and rewriter
// failures degrade to allowing and keeping the question, embedding failures
// leave Vector empty. Only a cancelled context is returned as error.
func (p *Pipeline) Prepare(ctx context.Context, question string, logger *slog.Logger) (*PreparedQuery, error) {
	if logger == nil {
		logger = helper.DiscardLogger()
	}

	prepared := &PreparedQuery{
		Question:  question,
		Intent:    model.IntentQuery,
		Rewritten: strings.TrimSpace(question),
	}

	if p.Classifier != nil {
		intent, err := p.Classifier(ctx, question)
		if err != nil {
			logger.Warn("Classifier failed, allowing question", slog.Any("error", err))
		} else if intent != "" {
			prepared.Intent = intent
		}
	}
	if prepared.Intent == model.IntentBlock {
		return prepared, nil
	}

	if p.Rewriter != nil {
		rewritten, err := p.Rewriter(ctx, question)
		if err != nil {
			logger.Warn("Rewriter failed, using original question", slog.Any("error", err))
		} else if strings.TrimSpace(rewritten) != "" {
			prepared.Rewritten = strings.TrimSpace(rewritten)
		}
	}

	if p.Embedder == nil {
		prepared.EmbedErr = helper.NewError("embed query", errors.New("no embedder configured"))
		return prepared, nil
	}

	vector, err := p.Embedder(ctx, prepared.Rewritten)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, helper.NewError("embed query", ctxErr)
	}
	if err != nil {
		prepared.EmbedErr = err
	} else if len(vector) == 0 || helper.IsZero(vector) {
		prepared.EmbedErr = ErrEmbeddingUnavailable
	} else {
		prepared.Vector = helper.Normalize(vector)
	}
	if prepared.EmbedErr != nil {
		logger.Warn("Query embedding unavailable", slog.Any("error", prepared.EmbedErr))
	}

	return prepared, nil
}
