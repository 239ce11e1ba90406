package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
	loadSql "github.com/siherrmann/kbrag/sql"
)

// ErrChatLogNotFound is returned when no chat log matches the given id.
var ErrChatLogNotFound = errors.New("chat log not found")

// ChatLogsDBHandlerFunctions defines the interface for chat log database operations.
type ChatLogsDBHandlerFunctions interface {
	InsertChatLog(ctx context.Context, chatLog *model.ChatLog) error
	UpdateFeedback(ctx context.Context, id int64, score int) error
	SelectChatLog(ctx context.Context, id int64) (*model.ChatLog, error)
	SelectChatLogsBySession(ctx context.Context, sessionID string, limit int) ([]*model.ChatLog, error)
}

// ChatLogsDBHandler handles chat log database operations
type ChatLogsDBHandler struct {
	db *helper.Database
}

// NewChatLogsDBHandler creates a new chat logs database handler.
// It loads the chat log SQL functions and creates the table if needed.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChatLogsDBHandler(db *helper.Database, force bool) (*ChatLogsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	chatLogsDbHandler := &ChatLogsDBHandler{
		db: db,
	}

	err := loadSql.LoadChatLogsSql(chatLogsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chat logs sql", err)
	}

	err = chatLogsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChatLogsDBHandler")

	return chatLogsDbHandler, nil
}

// CreateTable creates the 'chat_logs' table if it does not exist yet.
func (h *ChatLogsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chat_logs();`)
	if err != nil {
		return helper.NewError("init chat_logs", err)
	}

	h.db.Logger.Info("Checked/created table chat_logs")

	return nil
}

// InsertChatLog stores a chat exchange and fills in ID, RID and CreatedAt.
func (h *ChatLogsDBHandler) InsertChatLog(ctx context.Context, chatLog *model.ChatLog) error {
	if chatLog == nil {
		return helper.NewError("chat log validation", fmt.Errorf("chat log is nil"))
	}
	if chatLog.SessionID == "" {
		return helper.NewError("chat log validation", fmt.Errorf("session id is required"))
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_chat_log($1, $2, $3, $4)`,
		chatLog.SessionID,
		chatLog.UserInput,
		chatLog.AIResponse,
		chatLog.RelevantSource,
	)

	err := row.Scan(
		&chatLog.ID,
		&chatLog.RID,
		&chatLog.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// UpdateFeedback sets the user feedback score of a chat log.
func (h *ChatLogsDBHandler) UpdateFeedback(ctx context.Context, id int64, score int) error {
	var affected int64
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT update_chat_log_feedback($1, $2)`,
		id,
		score,
	).Scan(&affected)
	if err != nil {
		return helper.NewError("update feedback", err)
	}
	if affected == 0 {
		return helper.NewError("update feedback", fmt.Errorf("%w: %d", ErrChatLogNotFound, id))
	}

	return nil
}

// SelectChatLog returns the chat log with the given id.
func (h *ChatLogsDBHandler) SelectChatLog(ctx context.Context, id int64) (*model.ChatLog, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_chat_log($1)`,
		id,
	)

	chatLog, err := scanChatLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helper.NewError("select chat log", fmt.Errorf("%w: %d", ErrChatLogNotFound, id))
	} else if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return chatLog, nil
}

// SelectChatLogsBySession returns the latest chat logs of a session, newest first.
func (h *ChatLogsDBHandler) SelectChatLogsBySession(ctx context.Context, sessionID string, limit int) ([]*model.ChatLog, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_chat_logs_by_session($1, $2)`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	chatLogs := []*model.ChatLog{}
	for rows.Next() {
		chatLog, err := scanChatLog(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		chatLogs = append(chatLogs, chatLog)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chatLogs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChatLog(row rowScanner) (*model.ChatLog, error) {
	chatLog := &model.ChatLog{}
	var feedback sql.NullInt32
	err := row.Scan(
		&chatLog.ID,
		&chatLog.RID,
		&chatLog.SessionID,
		&chatLog.UserInput,
		&chatLog.AIResponse,
		&chatLog.RelevantSource,
		&feedback,
		&chatLog.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if feedback.Valid {
		score := int(feedback.Int32)
		chatLog.FeedbackScore = &score
	}
	return chatLog, nil
}
