package corpus

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/siherrmann/kbrag/core/pipeline"
	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
	"golang.org/x/sync/errgroup"
)

// ErrNoEmbeddings is returned when not a single item could be embedded.
var ErrNoEmbeddings = errors.New("no embeddings available")

// BuildOptions configures a corpus build.
type BuildOptions struct {
	// Workers bounds the number of concurrent embedding calls.
	Workers int
	Logger  *slog.Logger
}

// DefaultBuildOptions returns the default build options.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{Workers: 4}
}

// Build embeds the content of every item into an index-aligned vector array.
// The first non-empty embedding, scanned in item order, fixes the dimension.
// Failed, empty or mismatching embeddings become zero rows. Only a build
// without any embedding fails, with ErrNoEmbeddings.
func Build(ctx context.Context, version string, items []model.KnowledgeItem, embed pipeline.EmbedFunc, opts BuildOptions) (*Corpus, error) {
	logger := opts.Logger
	if logger == nil {
		logger = helper.DiscardLogger()
	}
	if embed == nil {
		return nil, helper.NewError("build corpus", errors.New("no embedder configured"))
	}
	if len(items) == 0 {
		return nil, helper.NewError("build corpus", ErrNoEmbeddings)
	}

	// Find the dimension sequentially.
	first := -1
	var firstVector []float32
	for i := range items {
		if err := ctx.Err(); err != nil {
			return nil, helper.NewError("build corpus", err)
		}
		if !items[i].HasContent() {
			continue
		}
		v, err := embed(ctx, items[i].Content)
		if err != nil {
			logger.Debug("Embedding failed", slog.String("item", items[i].ID), slog.Any("error", err))
			continue
		}
		if len(v) > 0 && !helper.IsZero(v) {
			first, firstVector = i, v
			break
		}
	}
	if first < 0 {
		if err := ctx.Err(); err != nil {
			return nil, helper.NewError("build corpus", err)
		}
		return nil, helper.NewError("build corpus", ErrNoEmbeddings)
	}

	dim := len(firstVector)
	vectors := make([][]float32, len(items))
	for i := range vectors {
		vectors[i] = make([]float32, dim)
	}
	vectors[first] = helper.Normalize(firstVector)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := first + 1; i < len(items); i++ {
		if !items[i].HasContent() {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			v, err := embed(gctx, items[i].Content)
			switch {
			case err != nil:
				logger.Debug("Embedding failed", slog.String("item", items[i].ID), slog.Any("error", err))
			case len(v) != dim:
				logger.Warn("Embedding dimension mismatch",
					slog.String("item", items[i].ID), slog.Int("expected", dim), slog.Int("got", len(v)))
			default:
				vectors[i] = helper.Normalize(v)
			}
			// Per row failures are absorbed.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, helper.NewError("build corpus", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, helper.NewError("build corpus", err)
	}

	c, err := New(version, items, vectors)
	if err != nil {
		return nil, err
	}

	logger.Info("Built corpus",
		slog.String("version", shortVersion(version)),
		slog.Int("items", c.Len()),
		slog.Int("embedded", c.Embedded()),
		slog.Int("dim", dim),
	)

	return c, nil
}

func shortVersion(version string) string {
	version = strings.TrimSpace(version)
	if len(version) > 12 {
		return version[:12]
	}
	return version
}
