package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed chat_logs.sql
var chatLogsSQL string

//go:embed sync.sql
var syncSQL string

//go:embed vector_cache.sql
var vectorCacheSQL string

// Function lists for verification
var ChatLogsFunctions = []string{
	"init_chat_logs",
	"insert_chat_log",
	"update_chat_log_feedback",
	"select_chat_log",
	"select_chat_logs_by_session",
}

var SyncFunctions = []string{
	"init_system_metadata",
	"select_sync_status",
	"mark_sync_pending",
	"confirm_sync",
}

var VectorCacheFunctions = []string{
	"init_vector_cache",
	"insert_cache_vector",
	"select_cache_vectors",
	"delete_cache_vectors",
	"prune_cache_vectors",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadChatLogsSql loads chat log SQL functions
func LoadChatLogsSql(db *sql.DB, force bool) error {
	return loadSql(db, "chat logs", chatLogsSQL, ChatLogsFunctions, force)
}

// LoadSyncSql loads the sync metadata SQL functions
func LoadSyncSql(db *sql.DB, force bool) error {
	return loadSql(db, "sync", syncSQL, SyncFunctions, force)
}

// LoadVectorCacheSql loads the vector cache SQL functions
func LoadVectorCacheSql(db *sql.DB, force bool) error {
	return loadSql(db, "vector cache", vectorCacheSQL, VectorCacheFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadChatLogsSql(db, force); err != nil {
		return err
	}

	if err := LoadSyncSql(db, force); err != nil {
		return err
	}

	if err := LoadVectorCacheSql(db, force); err != nil {
		return err
	}

	return nil
}

// loadSql executes script unless all functions already exist or force is set,
// then verifies that all functions were created.
func loadSql(db *sql.DB, name string, script string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
