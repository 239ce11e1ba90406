package kbrag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/siherrmann/kbrag/core/corpus"
	"github.com/siherrmann/kbrag/core/pipeline"
	"github.com/siherrmann/kbrag/core/rag"
	"github.com/siherrmann/kbrag/database"
	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
	loadSql "github.com/siherrmann/kbrag/sql"
)

// Config holds the settings of a Kbrag instance
type Config struct {
	Service rag.Config
	// Workers is the number of parallel embedding calls during a rebuild.
	Workers int
	// CacheDir switches the vector cache from the database to zstd files.
	CacheDir string
	Logger   *slog.Logger
}

// DefaultConfig returns the production settings with the database cache.
func DefaultConfig() *Config {
	return &Config{
		Service: rag.DefaultConfig(),
		Workers: corpus.DefaultBuildOptions().Workers,
	}
}

// Kbrag provides a unified interface to the knowledge base, the corpus
// snapshot and the question pipeline
type Kbrag struct {
	DB        *helper.Database
	Knowledge *database.KnowledgeDBHandler
	Vectors   *database.VectorsDBHandler
	ChatLogs  *database.ChatLogsDBHandler
	Corpus    *corpus.Coordinator
	Service   *rag.Service
	// Logging
	log *slog.Logger

	mu       sync.Mutex
	modelID  string
	useFiles bool
}

// NewKbrag creates a new Kbrag instance with all handlers initialized.
// The pipeline starts without embedder, use UseDefaultPipeline,
// UseRemoteEmbedder or SetPipeline before the first Refresh.
func NewKbrag(dbConfig *helper.DatabaseConfiguration, config *Config) (*Kbrag, error) {
	if config == nil {
		config = DefaultConfig()
	}

	// Logger
	logger := config.Logger
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, slog.LevelInfo)
	}

	// Initialize database
	db, err := helper.NewDatabase("kbrag", dbConfig, logger)
	if err != nil {
		return nil, helper.NewError("connect database", err)
	}
	err = loadSql.Init(db.Instance)
	if err != nil {
		db.Close()
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	knowledge, err := database.NewKnowledgeDBHandler(db, false)
	if err != nil {
		db.Close()
		return nil, helper.NewError("create knowledge handler", err)
	}

	vectors, err := database.NewVectorsDBHandler(db, false)
	if err != nil {
		db.Close()
		return nil, helper.NewError("create vectors handler", err)
	}

	chatLogs, err := database.NewChatLogsDBHandler(db, false)
	if err != nil {
		db.Close()
		return nil, helper.NewError("create chat logs handler", err)
	}

	var cache corpus.VectorCache = vectors
	if config.CacheDir != "" {
		cache = corpus.NewFileCache(config.CacheDir)
	}

	opts := corpus.DefaultBuildOptions()
	if config.Workers > 0 {
		opts.Workers = config.Workers
	}
	opts.Logger = logger

	coordinator, err := corpus.NewCoordinator(knowledge, nil, "", cache, opts)
	if err != nil {
		db.Close()
		return nil, helper.NewError("create corpus coordinator", err)
	}

	service, err := rag.NewService(pipeline.NewPipeline(nil), coordinator, config.Service, logger)
	if err != nil {
		db.Close()
		return nil, helper.NewError("create service", err)
	}

	return &Kbrag{
		DB:        db,
		Knowledge: knowledge,
		Vectors:   vectors,
		ChatLogs:  chatLogs,
		Corpus:    coordinator,
		Service:   service,
		log:       logger,
		useFiles:  config.CacheDir != "",
	}, nil
}

// Close closes the database connection
func (k *Kbrag) Close() error {
	return k.DB.Close()
}

// SetPipeline sets the query pipeline. Its embedder also embeds the corpus,
// modelID scopes the cached vectors. A new model needs Refresh with force
// unless its vectors are cached.
func (k *Kbrag) SetPipeline(p *pipeline.Pipeline, modelID string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.modelID = modelID
	k.Corpus.SetEmbedder(p.Embedder, modelID)
	k.Service.SetPipeline(p)
}

// UseDefaultPipeline sets up the topic classifier, the passthrough rewriter
// and the local multilingual sentence transformer.
func (k *Kbrag) UseDefaultPipeline() error {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	k.SetPipeline(pipeline.NewPipeline(embedder), pipeline.DefaultModelName)
	return nil
}

// UseRemoteEmbedder sets up the default pipeline with the HTTP embedding
// provider of config.
func (k *Kbrag) UseRemoteEmbedder(config *helper.EmbedderConfiguration) error {
	remote, err := pipeline.NewRemoteEmbedder(config, k.log)
	if err != nil {
		return helper.NewError("create remote embedder", err)
	}

	k.SetPipeline(pipeline.NewPipeline(remote.Embed), config.Model)
	return nil
}

// UseConfiguredEmbedder reads the EMBED_* environment and uses the remote
// provider if EMBED_URL is set, the local model otherwise.
func (k *Kbrag) UseConfiguredEmbedder() error {
	config, err := helper.NewEmbedderConfiguration()
	if err != nil {
		return err
	}
	if config.URL != "" {
		return k.UseRemoteEmbedder(config)
	}
	return k.UseDefaultPipeline()
}

// Refresh loads the knowledge and swaps in a new corpus snapshot if it
// changed, force rebuilds all embeddings.
func (k *Kbrag) Refresh(ctx context.Context, force bool) (*corpus.Corpus, error) {
	if k.Service.Pipeline().Embedder == nil {
		return nil, helper.NewError("refresh", fmt.Errorf("pipeline with embedder not set, use SetPipeline() first"))
	}

	snapshot, err := k.Corpus.Refresh(ctx, force)
	if err != nil {
		return nil, err
	}
	k.pruneVectorCache(ctx, snapshot)

	return snapshot, nil
}

// RefreshIfPending refreshes when the knowledge sync flag is set and
// reports whether it did.
func (k *Kbrag) RefreshIfPending(ctx context.Context) (bool, error) {
	if k.Service.Pipeline().Embedder == nil {
		return false, helper.NewError("refresh if pending", fmt.Errorf("pipeline with embedder not set, use SetPipeline() first"))
	}

	refreshed, err := k.Corpus.RefreshIfPending(ctx)
	if refreshed {
		k.pruneVectorCache(ctx, k.Corpus.Current())
	}
	return refreshed, err
}

// pruneVectorCache removes database vectors of all other versions.
func (k *Kbrag) pruneVectorCache(ctx context.Context, snapshot *corpus.Corpus) {
	if k.useFiles || snapshot == nil {
		return
	}

	k.mu.Lock()
	key := corpus.CacheKey(k.modelID, snapshot.Version)
	k.mu.Unlock()

	removed, err := k.Vectors.Prune(ctx, []string{key})
	if err != nil {
		k.log.Warn("Failed to prune vector cache", slog.Any("error", err))
		return
	}
	if removed > 0 {
		k.log.Info("Pruned vector cache", slog.Int64("rows", removed))
	}
}

// Ask answers question against the current corpus snapshot
func (k *Kbrag) Ask(ctx context.Context, question string) (*model.Answer, error) {
	return k.Service.Ask(ctx, question)
}

// SaveChatLog stores a conversation turn with the citation of answer as
// relevant source.
func (k *Kbrag) SaveChatLog(ctx context.Context, sessionID string, answer *model.Answer, aiResponse string) (*model.ChatLog, error) {
	if answer == nil {
		return nil, helper.NewError("save chat log", fmt.Errorf("answer is nil"))
	}

	chatLog := &model.ChatLog{
		SessionID:      sessionID,
		UserInput:      answer.Question,
		AIResponse:     aiResponse,
		RelevantSource: answer.Citation,
	}
	if err := k.ChatLogs.InsertChatLog(ctx, chatLog); err != nil {
		return nil, err
	}

	return chatLog, nil
}

// UpdateFeedback stores the user rating of a chat log
func (k *Kbrag) UpdateFeedback(ctx context.Context, chatLogID int64, score int) error {
	return k.ChatLogs.UpdateFeedback(ctx, chatLogID, score)
}
