package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/siherrmann/kbrag/core/pipeline"
	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
)

// Coordinator owns the current corpus snapshot. Readers call Current and
// never block, rebuilds are serialized and swap the snapshot atomically.
type Coordinator struct {
	source  Source
	cache   VectorCache
	opts    BuildOptions
	logger  *slog.Logger
	current atomic.Pointer[Corpus]

	mu      sync.Mutex
	embed   pipeline.EmbedFunc
	modelID string
}

// NewCoordinator creates a coordinator without a snapshot. The cache is
// optional. modelID scopes cached vectors to the embedding model.
func NewCoordinator(source Source, embed pipeline.EmbedFunc, modelID string, cache VectorCache, opts BuildOptions) (*Coordinator, error) {
	if source == nil {
		return nil, helper.NewError("coordinator validation", fmt.Errorf("source is nil"))
	}
	logger := opts.Logger
	if logger == nil {
		logger = helper.DiscardLogger()
	}
	opts.Logger = logger

	return &Coordinator{
		source:  source,
		cache:   cache,
		opts:    opts,
		logger:  logger.With(slog.String("component", "corpus")),
		embed:   embed,
		modelID: modelID,
	}, nil
}

// Current returns the current snapshot or nil before the first refresh.
func (c *Coordinator) Current() *Corpus {
	return c.current.Load()
}

// SetEmbedder replaces the embedder used by the next rebuild. The current
// snapshot is kept, vectors of a new model need Refresh with force.
func (c *Coordinator) SetEmbedder(embed pipeline.EmbedFunc, modelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embed = embed
	c.modelID = modelID
}

// Refresh loads the items and swaps in a new snapshot when they changed.
// A metadata-only change reuses the current vectors. Cached vectors are
// used if they line up with the items, force skips both the version check
// and the cache. On failure the current snapshot stays in place.
func (c *Coordinator) Refresh(ctx context.Context, force bool) (*Corpus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.source.LoadItems(ctx)
	if err != nil {
		return nil, helper.NewError("load items", err)
	}
	version := Fingerprint(items)

	digest, err := Digest(items)
	if err != nil {
		return nil, helper.NewError("digest items", err)
	}

	current := c.current.Load()
	if !force && current != nil && current.Version == version {
		if current.Digest == digest {
			c.logger.Debug("Corpus unchanged", slog.String("version", shortVersion(version)))
			return current, nil
		}

		// Same content, new metadata: keep the vectors.
		next := current.withItems(items, digest)
		c.current.Store(next)
		c.logger.Info("Refreshed corpus metadata", slog.String("version", shortVersion(version)), slog.Int("items", next.Len()))
		return next, nil
	}

	key := CacheKey(c.modelID, version)

	if !force && c.cache != nil {
		next, err := c.fromCache(ctx, key, version, items)
		if err == nil {
			next.Digest = digest
			c.current.Store(next)
			c.logger.Info("Loaded corpus from cache", slog.String("version", shortVersion(version)), slog.Int("items", next.Len()))
			return next, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("Ignoring vector cache", slog.Any("error", err))
		}
	}

	next, err := Build(ctx, version, items, c.embed, c.opts)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Save(ctx, key, next.Vectors); err != nil {
			c.logger.Warn("Failed to save vector cache", slog.Any("error", err))
		}
	}

	next.Digest = digest
	c.current.Store(next)

	return next, nil
}

// fromCache builds a snapshot from cached vectors. A row count mismatch
// is reported as an error so the caller rebuilds.
func (c *Coordinator) fromCache(ctx context.Context, key string, version string, items []model.KnowledgeItem) (*Corpus, error) {
	vectors, err := c.cache.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(items) {
		return nil, helper.NewError("vector cache", fmt.Errorf("cache has %d rows for %d items", len(vectors), len(items)))
	}
	dim := 0
	for _, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(v)
		} else if len(v) != dim {
			return nil, helper.NewError("vector cache", fmt.Errorf("cache mixes dimensions %d and %d", dim, len(v)))
		}
	}
	return New(version, items, vectors)
}

// RefreshIfPending rebuilds when the source flags pending knowledge and
// confirms the flag afterwards. It reports whether a refresh happened.
// Sources without a sync flag are never refreshed here.
func (c *Coordinator) RefreshIfPending(ctx context.Context) (bool, error) {
	syncSource, ok := c.source.(SyncSource)
	if !ok {
		return false, nil
	}

	pending, err := syncSource.PendingUpdate(ctx)
	if err != nil {
		return false, helper.NewError("check pending update", err)
	}
	if !pending {
		return false, nil
	}

	if _, err := c.Refresh(ctx, false); err != nil {
		return false, err
	}

	if _, err := syncSource.ConfirmSync(ctx); err != nil {
		return true, helper.NewError("confirm sync", err)
	}

	c.logger.Info("Refreshed pending knowledge")

	return true, nil
}
