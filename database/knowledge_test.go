package database

import (
	"context"
	"strings"
	"testing"

	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createKnowledgeFixtures creates tables shaped like the knowledge views.
func createKnowledgeFixtures(t *testing.T, db *helper.Database) {
	_, err := db.Instance.Exec(`
		DROP TABLE IF EXISTS view_rpa_manuals, research_funds, glossary_terms, view_support_stories;

		CREATE TABLE view_rpa_manuals (
			chunk_id INTEGER, chunk_content TEXT, topic TEXT, section TEXT,
			document_title TEXT, data_type TEXT, step_number INTEGER, fund_abbr TEXT,
			category_main TEXT, category_sub TEXT
		);
		INSERT INTO view_rpa_manuals VALUES
			(1, 'กดปุ่มเข้าสู่ระบบ', 'เข้าสู่ระบบ', 'บทที่ 1', 'คู่มือ RPA', 'guide', 1, NULL, 'ระบบ', 'บัญชีผู้ใช้'),
			(2, '   ', 'ว่าง', NULL, 'คู่มือ RPA', NULL, NULL, NULL, NULL, NULL),
			(3, 'กรอกแบบฟอร์ม', 'ยื่นข้อเสนอ', NULL, 'คู่มือ RPA', NULL, NULL, 'NRCT', NULL, 'ข้อเสนอ');

		CREATE TABLE research_funds (
			status TEXT, fund_abbr TEXT, fund_name_th TEXT, fund_name_en TEXT,
			fiscal_year INTEGER, source_agency TEXT, start_period TEXT, end_period TEXT
		);
		INSERT INTO research_funds VALUES
			('Y', 'NRCT', 'ทุนวิจัยแห่งชาติ', 'National Research Fund', 2568, 'วช.', 'ม.ค.', 'มี.ค.'),
			('n', 'OLD FUND', '', 'Old Fund', 2560, NULL, NULL, NULL);

		CREATE TABLE glossary_terms (word TEXT, meaning TEXT, word_type TEXT);
		INSERT INTO glossary_terms VALUES
			('TOR', 'ขอบเขตของงาน', 'คำย่อ'),
			('', 'ไม่มีคำ', NULL),
			('งบดำเนินงาน', 'ค่าใช้จ่ายในการดำเนินงาน', NULL);

		CREATE TABLE view_support_stories (id INTEGER, problem TEXT, solution TEXT, category_name TEXT);
		INSERT INTO view_support_stories VALUES
			(7, 'เข้าระบบไม่ได้', 'ล้างแคช', 'การเข้าสู่ระบบ'),
			(8, NULL, NULL, 'ว่าง');
	`)
	require.NoError(t, err, "Expected knowledge fixtures to be created")
}

func TestKnowledgeNewKnowledgeDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewKnowledgeDBHandler", func(t *testing.T) {
		knowledgeDbHandler, err := NewKnowledgeDBHandler(database, true)
		assert.NoError(t, err, "Expected NewKnowledgeDBHandler to not return an error")
		require.NotNil(t, knowledgeDbHandler, "Expected NewKnowledgeDBHandler to return a non-nil instance")
		require.NotNil(t, knowledgeDbHandler.db, "Expected NewKnowledgeDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewKnowledgeDBHandler with nil database", func(t *testing.T) {
		_, err := NewKnowledgeDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating KnowledgeDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestKnowledgeSelect(t *testing.T) {
	database := initDB(t)
	createKnowledgeFixtures(t, database)
	ctx := context.Background()

	knowledgeDbHandler, err := NewKnowledgeDBHandler(database, false)
	require.NoError(t, err)

	t.Run("Select manuals", func(t *testing.T) {
		items, err := knowledgeDbHandler.SelectManuals(ctx)

		require.NoError(t, err)
		require.Len(t, items, 2, "Expected rows without content to be skipped")

		first := items[0]
		assert.Equal(t, "manual:1", first.ID)
		assert.Equal(t, model.ItemTypeGuide, first.Type)
		assert.Equal(t, "คู่มือ RPA", first.Metadata.Source)
		assert.Equal(t, "เข้าสู่ระบบ", first.Metadata.Topic)
		require.NotNil(t, first.Metadata.StepNumber)
		assert.Equal(t, 1, *first.Metadata.StepNumber)
		assert.Contains(t, first.Content, "หมวดหมู่: ระบบ > บัญชีผู้ใช้")
		assert.Contains(t, first.Content, "เนื้อหา:\nกดปุ่มเข้าสู่ระบบ")
		assert.Equal(t, "บทที่ 1", first.Metadata.Extra["section"])

		second := items[1]
		assert.Equal(t, model.ItemTypeInfo, second.Type, "Expected missing data type to default to info")
		assert.Nil(t, second.Metadata.StepNumber)
		assert.Equal(t, "NRCT", second.Metadata.FundAbbr)
		assert.Contains(t, second.Content, "หมวดหมู่: ข้อเสนอ\n")
	})

	t.Run("Select funds", func(t *testing.T) {
		items, err := knowledgeDbHandler.SelectFunds(ctx)

		require.NoError(t, err)
		require.Len(t, items, 2)

		active := items[0]
		assert.Equal(t, "fund:NRCT:2568", active.ID)
		assert.Equal(t, model.ItemTypeFact, active.Type)
		assert.Equal(t, "active", active.Metadata.Status)
		assert.Equal(t, "ทุนวิจัยแห่งชาติ", active.Metadata.Source)
		assert.Contains(t, active.Content, "สถานะทุน: ทำงาน")

		inactive := items[1]
		assert.Equal(t, "fund:OLD_FUND:2560", inactive.ID)
		assert.Equal(t, "inactive", inactive.Metadata.Status)
		assert.Equal(t, "Old Fund", inactive.Metadata.Source, "Expected English name when the Thai name is empty")
		assert.True(t, strings.HasPrefix(inactive.Content, "[SYSTEM WARNING"))
	})

	t.Run("Select glossary", func(t *testing.T) {
		items, err := knowledgeDbHandler.SelectGlossary(ctx)

		require.NoError(t, err)
		require.Len(t, items, 2, "Expected terms without word to be skipped")
		assert.Equal(t, "glossary:TOR", items[0].ID)
		assert.Equal(t, model.ItemTypeDefinition, items[0].Type)
		assert.Equal(t, "คำย่อ", items[0].Metadata.Source)
		assert.Equal(t, "General Term", items[1].Metadata.Source)
		assert.Equal(t, "glossary:งบดำเนินงาน", items[1].ID)
	})

	t.Run("Select support stories", func(t *testing.T) {
		items, err := knowledgeDbHandler.SelectSupportStories(ctx)

		require.NoError(t, err)
		require.Len(t, items, 1, "Expected stories without problem and solution to be skipped")
		assert.Equal(t, "ts:7", items[0].ID)
		assert.Equal(t, model.ItemTypeTroubleshoot, items[0].Type)
		assert.Equal(t, "การเข้าสู่ระบบ", items[0].Metadata.Source)
		assert.Contains(t, items[0].Content, "วิธีแก้: ล้างแคช")
	})

	t.Run("Load items keeps source order", func(t *testing.T) {
		items, err := knowledgeDbHandler.LoadItems(ctx)

		require.NoError(t, err)
		require.Len(t, items, 7)
		assert.True(t, strings.HasPrefix(items[0].ID, "manual:"))
		assert.True(t, strings.HasPrefix(items[2].ID, "fund:"))
		assert.True(t, strings.HasPrefix(items[4].ID, "glossary:"))
		assert.True(t, strings.HasPrefix(items[6].ID, "ts:"))
	})

	t.Run("Load items skips a missing source", func(t *testing.T) {
		_, err := database.Instance.Exec(`DROP TABLE glossary_terms`)
		require.NoError(t, err)

		items, err := knowledgeDbHandler.LoadItems(ctx)

		require.NoError(t, err)
		assert.Len(t, items, 5)
	})

	t.Run("Load items fails without any source", func(t *testing.T) {
		_, err := database.Instance.Exec(`DROP TABLE IF EXISTS view_rpa_manuals, research_funds, glossary_terms, view_support_stories`)
		require.NoError(t, err)

		_, err = knowledgeDbHandler.LoadItems(ctx)

		assert.Error(t, err)
	})
}

func TestKnowledgeSync(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	knowledgeDbHandler, err := NewKnowledgeDBHandler(database, false)
	require.NoError(t, err)
	_, err = database.Instance.Exec(`DELETE FROM system_metadata WHERE key = $1`, SyncStatusKey)
	require.NoError(t, err)

	t.Run("Missing sync row is not pending", func(t *testing.T) {
		status, err := knowledgeDbHandler.SelectSyncStatus(ctx)
		require.NoError(t, err)
		assert.Nil(t, status)

		pending, err := knowledgeDbHandler.PendingUpdate(ctx)
		require.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("Mark and confirm", func(t *testing.T) {
		err := knowledgeDbHandler.MarkPending(ctx)
		require.NoError(t, err)

		pending, err := knowledgeDbHandler.PendingUpdate(ctx)
		require.NoError(t, err)
		assert.True(t, pending)

		confirmed, err := knowledgeDbHandler.ConfirmSync(ctx)
		require.NoError(t, err)
		assert.True(t, confirmed)

		status, err := knowledgeDbHandler.SelectSyncStatus(ctx)
		require.NoError(t, err)
		require.NotNil(t, status)
		assert.Equal(t, SyncStatusKey, status.Key)
		assert.False(t, status.PendingUpdate)
		assert.False(t, status.LastUpdated.IsZero())
	})

	t.Run("Confirm without pending update", func(t *testing.T) {
		confirmed, err := knowledgeDbHandler.ConfirmSync(ctx)

		require.NoError(t, err)
		assert.False(t, confirmed)
	})
}

func TestSafeID(t *testing.T) {
	assert.Equal(t, "OLD_FUND", safeID("  OLD   FUND "))
	assert.Equal(t, "ทุนวิจัย", safeID("ทุน/วิจัย"))
	assert.Equal(t, "unknown", safeID("  "))
	assert.Equal(t, "unknown", safeID("///"))
	assert.Len(t, []rune(safeID(strings.Repeat("a", 80))), 50)
}
