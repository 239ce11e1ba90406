package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/kbrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatLogsNewChatLogsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewChatLogsDBHandler", func(t *testing.T) {
		chatLogsDbHandler, err := NewChatLogsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewChatLogsDBHandler to not return an error")
		require.NotNil(t, chatLogsDbHandler, "Expected NewChatLogsDBHandler to return a non-nil instance")
		require.NotNil(t, chatLogsDbHandler.db.Instance, "Expected NewChatLogsDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewChatLogsDBHandler with nil database", func(t *testing.T) {
		_, err := NewChatLogsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating ChatLogsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestChatLogsInsert(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	chatLogsDbHandler, err := NewChatLogsDBHandler(database, false)
	require.NoError(t, err)

	t.Run("Insert chat log with source", func(t *testing.T) {
		chatLog := &model.ChatLog{
			SessionID:      uuid.NewString(),
			UserInput:      "ยื่นข้อเสนอยังไง",
			AIResponse:     "ไปที่เมนูยื่นข้อเสนอ",
			RelevantSource: "คู่มือ RPA",
		}

		err := chatLogsDbHandler.InsertChatLog(ctx, chatLog)

		require.NoError(t, err, "Expected InsertChatLog to not return an error")
		assert.NotZero(t, chatLog.ID, "Expected ID to be set")
		assert.NotEqual(t, uuid.Nil, chatLog.RID, "Expected RID to be set")
		assert.False(t, chatLog.CreatedAt.IsZero(), "Expected CreatedAt to be set")

		selected, err := chatLogsDbHandler.SelectChatLog(ctx, chatLog.ID)
		require.NoError(t, err)
		assert.Equal(t, chatLog.RID, selected.RID)
		assert.Equal(t, "คู่มือ RPA", selected.RelevantSource)
		assert.Nil(t, selected.FeedbackScore)
	})

	t.Run("Insert chat log without source", func(t *testing.T) {
		chatLog := &model.ChatLog{SessionID: uuid.NewString(), UserInput: "hello"}

		err := chatLogsDbHandler.InsertChatLog(ctx, chatLog)
		require.NoError(t, err)

		selected, err := chatLogsDbHandler.SelectChatLog(ctx, chatLog.ID)
		require.NoError(t, err)
		assert.Empty(t, selected.RelevantSource)
	})

	t.Run("Insert requires a session", func(t *testing.T) {
		err := chatLogsDbHandler.InsertChatLog(ctx, &model.ChatLog{UserInput: "hello"})
		assert.Error(t, err)

		err = chatLogsDbHandler.InsertChatLog(ctx, nil)
		assert.Error(t, err)
	})
}

func TestChatLogsFeedback(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	chatLogsDbHandler, err := NewChatLogsDBHandler(database, false)
	require.NoError(t, err)

	chatLog := &model.ChatLog{SessionID: uuid.NewString(), UserInput: "q", AIResponse: "a"}
	require.NoError(t, chatLogsDbHandler.InsertChatLog(ctx, chatLog))

	t.Run("Update feedback", func(t *testing.T) {
		err := chatLogsDbHandler.UpdateFeedback(ctx, chatLog.ID, 1)
		require.NoError(t, err)

		selected, err := chatLogsDbHandler.SelectChatLog(ctx, chatLog.ID)
		require.NoError(t, err)
		require.NotNil(t, selected.FeedbackScore)
		assert.Equal(t, 1, *selected.FeedbackScore)
	})

	t.Run("Update feedback of unknown log", func(t *testing.T) {
		err := chatLogsDbHandler.UpdateFeedback(ctx, -1, 1)

		assert.ErrorIs(t, err, ErrChatLogNotFound)
	})

	t.Run("Select unknown log", func(t *testing.T) {
		_, err := chatLogsDbHandler.SelectChatLog(ctx, -1)

		assert.ErrorIs(t, err, ErrChatLogNotFound)
	})
}

func TestChatLogsSelectBySession(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	chatLogsDbHandler, err := NewChatLogsDBHandler(database, false)
	require.NoError(t, err)

	session := uuid.NewString()
	for _, input := range []string{"first", "second", "third"} {
		require.NoError(t, chatLogsDbHandler.InsertChatLog(ctx, &model.ChatLog{SessionID: session, UserInput: input}))
	}
	require.NoError(t, chatLogsDbHandler.InsertChatLog(ctx, &model.ChatLog{SessionID: uuid.NewString(), UserInput: "other"}))

	t.Run("Newest first with limit", func(t *testing.T) {
		chatLogs, err := chatLogsDbHandler.SelectChatLogsBySession(ctx, session, 2)

		require.NoError(t, err)
		require.Len(t, chatLogs, 2)
		assert.Equal(t, "third", chatLogs[0].UserInput)
		assert.Equal(t, "second", chatLogs[1].UserInput)
	})

	t.Run("Default limit", func(t *testing.T) {
		chatLogs, err := chatLogsDbHandler.SelectChatLogsBySession(ctx, session, 0)

		require.NoError(t, err)
		assert.Len(t, chatLogs, 3)
	})

	t.Run("Unknown session", func(t *testing.T) {
		chatLogs, err := chatLogsDbHandler.SelectChatLogsBySession(ctx, uuid.NewString(), 10)

		require.NoError(t, err)
		assert.Empty(t, chatLogs)
	})
}
