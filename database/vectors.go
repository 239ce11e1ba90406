package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/kbrag/core/corpus"
	"github.com/siherrmann/kbrag/helper"
	loadSql "github.com/siherrmann/kbrag/sql"
)

// VectorsDBHandlerFunctions defines the interface for vector cache database operations.
type VectorsDBHandlerFunctions interface {
	Load(ctx context.Context, version string) ([][]float32, error)
	Save(ctx context.Context, version string, vectors [][]float32) error
	Delete(ctx context.Context, version string) (int64, error)
	Prune(ctx context.Context, keep []string) (int64, error)
}

// VectorsDBHandler stores corpus vector snapshots in a pgvector table.
// It implements corpus.VectorCache.
type VectorsDBHandler struct {
	db *helper.Database
}

var _ corpus.VectorCache = (*VectorsDBHandler)(nil)

// NewVectorsDBHandler creates a new vector cache database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewVectorsDBHandler(db *helper.Database, force bool) (*VectorsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	vectorsDbHandler := &VectorsDBHandler{
		db: db,
	}

	err := loadSql.LoadVectorCacheSql(vectorsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load vector cache sql", err)
	}

	err = vectorsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized VectorsDBHandler")

	return vectorsDbHandler, nil
}

// CreateTable creates the 'vector_cache' table if it does not exist yet.
func (h *VectorsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_vector_cache();`)
	if err != nil {
		return helper.NewError("init vector_cache", err)
	}

	h.db.Logger.Info("Checked/created table vector_cache")

	return nil
}

// Load returns the rows of version in row order. A version without rows
// is corpus.ErrCacheMiss, a gap in the row indices is an error.
func (h *VectorsDBHandler) Load(ctx context.Context, version string) ([][]float32, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_cache_vectors($1)`,
		version,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	vectors := [][]float32{}
	for rows.Next() {
		var index int
		var embedding pgvector.Vector
		if err := rows.Scan(&index, &embedding); err != nil {
			return nil, helper.NewError("scan", err)
		}
		if index != len(vectors) {
			return nil, helper.NewError("vector cache", fmt.Errorf("missing row %d for version %s", len(vectors), version))
		}
		vectors = append(vectors, embedding.Slice())
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}
	if len(vectors) == 0 {
		return nil, corpus.ErrCacheMiss
	}

	return vectors, nil
}

// Save replaces the rows of version in one transaction.
func (h *VectorsDBHandler) Save(ctx context.Context, version string, vectors [][]float32) error {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT delete_cache_vectors($1)`, version); err != nil {
		return helper.NewError("delete old vectors", err)
	}

	stmt, err := tx.PrepareContext(ctx, `SELECT insert_cache_vector($1, $2, $3)`)
	if err != nil {
		return helper.NewError("prepare insert", err)
	}
	defer stmt.Close()

	for i, v := range vectors {
		if _, err := stmt.ExecContext(ctx, version, i, pgvector.NewVector(v)); err != nil {
			return helper.NewError(fmt.Sprintf("insert row %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Debug("Saved vector cache", slog.String("version", version), slog.Int("rows", len(vectors)))

	return nil
}

// Delete removes the rows of version and returns their number.
func (h *VectorsDBHandler) Delete(ctx context.Context, version string) (int64, error) {
	var affected int64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_cache_vectors($1)`, version).Scan(&affected)
	if err != nil {
		return 0, helper.NewError("delete vectors", err)
	}
	return affected, nil
}

// Prune removes the rows of every version not in keep.
func (h *VectorsDBHandler) Prune(ctx context.Context, keep []string) (int64, error) {
	var affected int64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT prune_cache_vectors($1)`, pq.Array(keep)).Scan(&affected)
	if err != nil {
		return 0, helper.NewError("prune vectors", err)
	}

	if affected > 0 {
		h.db.Logger.Info("Pruned vector cache", slog.Int64("rows", affected))
	}

	return affected, nil
}
