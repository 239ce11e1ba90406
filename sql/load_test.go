package sql

import (
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	db := initDB(t)

	t.Run("Initialize database extensions", func(t *testing.T) {
		err := Init(db.Instance)
		assert.NoError(t, err)

		// Verify pgvector extension is created
		var exists bool
		err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "pgvector extension should be created")
	})

	t.Run("Initialize database extensions is idempotent", func(t *testing.T) {
		err := Init(db.Instance)
		assert.NoError(t, err)

		err = Init(db.Instance)
		assert.NoError(t, err)
	})
}

func TestLoadSql(t *testing.T) {
	db := initDB(t)

	loaders := []struct {
		name      string
		load      func(force bool) error
		functions []string
	}{
		{"chat logs", func(force bool) error { return LoadChatLogsSql(db.Instance, force) }, ChatLogsFunctions},
		{"sync", func(force bool) error { return LoadSyncSql(db.Instance, force) }, SyncFunctions},
		{"vector cache", func(force bool) error { return LoadVectorCacheSql(db.Instance, force) }, VectorCacheFunctions},
	}

	for _, loader := range loaders {
		t.Run("Load "+loader.name+" SQL functions", func(t *testing.T) {
			err := loader.load(false)
			assert.NoError(t, err)

			for _, funcName := range loader.functions {
				assert.True(t, functionExists(t, db, funcName), "Function %s should exist", funcName)
			}
		})

		t.Run("Load "+loader.name+" SQL is idempotent without force", func(t *testing.T) {
			err := loader.load(false)
			assert.NoError(t, err)
		})

		t.Run("Load "+loader.name+" SQL with force reloads", func(t *testing.T) {
			err := loader.load(true)
			assert.NoError(t, err)

			exist, err := checkFunctions(db.Instance, loader.functions)
			require.NoError(t, err)
			assert.True(t, exist, "Functions should exist after force reload")
		})
	}
}

func TestLoadAllSql(t *testing.T) {
	db := initDB(t)

	err := LoadAllSql(db.Instance, true)
	require.NoError(t, err)

	for _, functions := range [][]string{ChatLogsFunctions, SyncFunctions, VectorCacheFunctions} {
		exist, err := checkFunctions(db.Instance, functions)
		require.NoError(t, err)
		assert.True(t, exist)
	}
}

func TestCheckFunctions(t *testing.T) {
	db := initDB(t)

	exist, err := checkFunctions(db.Instance, []string{"function_that_does_not_exist"})

	require.NoError(t, err)
	assert.False(t, exist)
}
