package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
	loadSql "github.com/siherrmann/kbrag/sql"
)

// SyncStatusKey is the system_metadata row that flags new knowledge.
const SyncStatusKey = "bot_sync_status"

// KnowledgeDBHandlerFunctions defines the interface for knowledge database operations.
type KnowledgeDBHandlerFunctions interface {
	LoadItems(ctx context.Context) ([]model.KnowledgeItem, error)
	SelectManuals(ctx context.Context) ([]model.KnowledgeItem, error)
	SelectFunds(ctx context.Context) ([]model.KnowledgeItem, error)
	SelectGlossary(ctx context.Context) ([]model.KnowledgeItem, error)
	SelectSupportStories(ctx context.Context) ([]model.KnowledgeItem, error)
	SelectSyncStatus(ctx context.Context) (*model.SyncStatus, error)
	PendingUpdate(ctx context.Context) (bool, error)
	MarkPending(ctx context.Context) error
	ConfirmSync(ctx context.Context) (bool, error)
}

// KnowledgeDBHandler reads the knowledge views and the sync flag.
// The views themselves are maintained outside of this module.
type KnowledgeDBHandler struct {
	db *helper.Database
}

// NewKnowledgeDBHandler creates a new knowledge database handler.
// It loads the sync SQL functions and creates the system_metadata table if needed.
func NewKnowledgeDBHandler(db *helper.Database, force bool) (*KnowledgeDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	knowledgeDbHandler := &KnowledgeDBHandler{
		db: db,
	}

	err := loadSql.LoadSyncSql(knowledgeDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load sync sql", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = db.Instance.ExecContext(ctx, `SELECT init_system_metadata();`)
	if err != nil {
		return nil, helper.NewError("init system_metadata", err)
	}

	db.Logger.Info("Initialized KnowledgeDBHandler")

	return knowledgeDbHandler, nil
}

// LoadItems reads all knowledge sources in a fixed order: manuals, funds,
// glossary, support stories. A failing source is logged and skipped, only
// the failure of every source is returned as an error.
func (h *KnowledgeDBHandler) LoadItems(ctx context.Context) ([]model.KnowledgeItem, error) {
	loaders := []struct {
		name string
		load func(context.Context) ([]model.KnowledgeItem, error)
	}{
		{"view_rpa_manuals", h.SelectManuals},
		{"research_funds", h.SelectFunds},
		{"glossary_terms", h.SelectGlossary},
		{"view_support_stories", h.SelectSupportStories},
	}

	items := []model.KnowledgeItem{}
	var errs []error
	for _, loader := range loaders {
		loaded, err := loader.load(ctx)
		if err != nil {
			h.db.Logger.Warn("Skipping knowledge source", slog.String("source", loader.name), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		h.db.Logger.Debug("Loaded knowledge source", slog.String("source", loader.name), slog.Int("items", len(loaded)))
		items = append(items, loaded...)
	}

	if len(errs) == len(loaders) {
		return nil, helper.NewError("load knowledge", errors.Join(errs...))
	}

	h.db.Logger.Info("Loaded knowledge", slog.Int("items", len(items)))

	return items, nil
}

// SelectManuals reads the chunked procedure manuals.
func (h *KnowledgeDBHandler) SelectManuals(ctx context.Context) ([]model.KnowledgeItem, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `
		SELECT
			COALESCE(chunk_id::text, ''),
			COALESCE(chunk_content::text, ''),
			COALESCE(topic::text, ''),
			COALESCE(section::text, ''),
			COALESCE(document_title::text, ''),
			COALESCE(data_type::text, ''),
			COALESCE(step_number::text, ''),
			COALESCE(fund_abbr::text, ''),
			COALESCE(category_main::text, ''),
			COALESCE(category_sub::text, '')
		FROM view_rpa_manuals`)
	if err != nil {
		return nil, helper.NewError("query view_rpa_manuals", err)
	}
	defer rows.Close()

	items := []model.KnowledgeItem{}
	for rows.Next() {
		var id, content, topic, section, title, dataType, step, fundAbbr, categoryMain, categorySub string
		err := rows.Scan(&id, &content, &topic, &section, &title, &dataType, &step, &fundAbbr, &categoryMain, &categorySub)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		topic = strings.TrimSpace(topic)
		title = strings.TrimSpace(title)
		categoryMain = strings.TrimSpace(categoryMain)
		categorySub = strings.TrimSpace(categorySub)

		category := categorySub
		if categoryMain != "" && categorySub != "" {
			category = categoryMain + " > " + categorySub
		} else if categorySub == "" {
			category = categoryMain
		}

		item := model.KnowledgeItem{
			ID:      "manual:" + id,
			Content: fmt.Sprintf("เอกสาร: %s\nหมวดหมู่: %s\nหัวข้อ: %s\nเนื้อหา:\n%s", title, category, topic, content),
			Type:    model.ParseItemType(dataType),
			Metadata: model.ItemMetadata{
				Source:   title,
				Topic:    topic,
				FundAbbr: strings.TrimSpace(fundAbbr),
				Extra: model.Metadata{
					"section":        strings.TrimSpace(section),
					"category":       categorySub,
					"category_group": categoryMain,
				},
			},
		}
		if n, err := strconv.Atoi(strings.TrimSpace(step)); err == nil {
			item.Metadata.StepNumber = &n
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return items, nil
}

// activeFundStatuses are the raw status encodings of an open fund.
var activeFundStatuses = map[string]bool{
	"y": true, "yes": true, "enable": true, "active": true, "true": true, "1": true,
}

// SelectFunds reads the research fund records. The raw status is mapped to
// active or inactive, inactive funds get a warning banner in their content.
func (h *KnowledgeDBHandler) SelectFunds(ctx context.Context) ([]model.KnowledgeItem, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `
		SELECT
			COALESCE(status::text, ''),
			COALESCE(fund_abbr::text, ''),
			COALESCE(NULLIF(fund_name_th::text, ''), fund_name_en::text, ''),
			COALESCE(fiscal_year::text, ''),
			COALESCE(source_agency::text, ''),
			COALESCE(start_period::text, ''),
			COALESCE(end_period::text, '')
		FROM research_funds`)
	if err != nil {
		return nil, helper.NewError("query research_funds", err)
	}
	defer rows.Close()

	items := []model.KnowledgeItem{}
	for rows.Next() {
		var rawStatus, fundAbbr, fundName, fiscalYear, agency, start, end string
		err := rows.Scan(&rawStatus, &fundAbbr, &fundName, &fiscalYear, &agency, &start, &end)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		rawStatus = strings.ToLower(strings.TrimSpace(rawStatus))
		fundAbbr = strings.TrimSpace(fundAbbr)
		fundName = strings.TrimSpace(fundName)

		status := "inactive"
		content := fmt.Sprintf(
			"[SYSTEM WARNING: ข้อมูลสถานะทุน]\nทุนวิจัย: %s (%s)\nสถานะปัจจุบัน: ยุติการทำงาน\nปีงบประมาณ: %s",
			fundName, fundAbbr, fiscalYear,
		)
		if activeFundStatuses[rawStatus] {
			status = "active"
			content = fmt.Sprintf(
				"ทุนวิจัย: %s (%s)\nปีงบประมาณ: %s\nสถานะทุน: ทำงาน\nแหล่งทุน: %s\nช่วงเวลา: %s ถึง %s",
				fundName, fundAbbr, fiscalYear, agency, start, end,
			)
		}

		items = append(items, model.KnowledgeItem{
			ID:      fmt.Sprintf("fund:%s:%s", safeID(fundAbbr), fiscalYear),
			Content: content,
			Type:    model.ItemTypeFact,
			Metadata: model.ItemMetadata{
				Source:   fundName,
				Name:     fundName,
				FundAbbr: fundAbbr,
				Status:   status,
				Extra: model.Metadata{
					"fiscal_year": fiscalYear,
					"raw_status":  rawStatus,
				},
			},
		})
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return items, nil
}

// SelectGlossary reads the glossary terms as definitions.
func (h *KnowledgeDBHandler) SelectGlossary(ctx context.Context) ([]model.KnowledgeItem, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `
		SELECT
			COALESCE(word::text, ''),
			COALESCE(meaning::text, ''),
			COALESCE(NULLIF(word_type::text, ''), 'General Term')
		FROM glossary_terms`)
	if err != nil {
		return nil, helper.NewError("query glossary_terms", err)
	}
	defer rows.Close()

	items := []model.KnowledgeItem{}
	for rows.Next() {
		var word, meaning, wordType string
		err := rows.Scan(&word, &meaning, &wordType)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}

		items = append(items, model.KnowledgeItem{
			ID:      "glossary:" + safeID(word),
			Content: fmt.Sprintf("คำศัพท์: %s (%s)\nความหมาย: %s", word, wordType, strings.TrimSpace(meaning)),
			Type:    model.ItemTypeDefinition,
			Metadata: model.ItemMetadata{
				Source: wordType,
				Name:   word,
				Extra: model.Metadata{
					"keywords": []string{word},
				},
			},
		})
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return items, nil
}

// SelectSupportStories reads the troubleshooting stories. Stories without
// problem and solution are skipped.
func (h *KnowledgeDBHandler) SelectSupportStories(ctx context.Context) ([]model.KnowledgeItem, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `
		SELECT
			COALESCE(id::text, ''),
			COALESCE(problem::text, ''),
			COALESCE(solution::text, ''),
			COALESCE(category_name::text, '')
		FROM view_support_stories`)
	if err != nil {
		return nil, helper.NewError("query view_support_stories", err)
	}
	defer rows.Close()

	items := []model.KnowledgeItem{}
	for rows.Next() {
		var id, problem, solution, category string
		err := rows.Scan(&id, &problem, &solution, &category)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		problem = strings.TrimSpace(problem)
		solution = strings.TrimSpace(solution)
		if problem == "" && solution == "" {
			continue
		}

		items = append(items, model.KnowledgeItem{
			ID:      "ts:" + id,
			Content: fmt.Sprintf("หมวดหมู่: %s\nอาการ: %s\nวิธีแก้: %s", category, problem, solution),
			Type:    model.ItemTypeTroubleshoot,
			Metadata: model.ItemMetadata{
				Source: category,
				Extra: model.Metadata{
					"category": category,
				},
			},
		})
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return items, nil
}

// SelectSyncStatus returns the sync row or nil if it does not exist.
func (h *KnowledgeDBHandler) SelectSyncStatus(ctx context.Context) (*model.SyncStatus, error) {
	status := &model.SyncStatus{}
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_sync_status($1)`,
		SyncStatusKey,
	).Scan(
		&status.Key,
		&status.LastUpdated,
		&status.PendingUpdate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return status, nil
}

// PendingUpdate reports whether new knowledge waits to be synced.
func (h *KnowledgeDBHandler) PendingUpdate(ctx context.Context) (bool, error) {
	status, err := h.SelectSyncStatus(ctx)
	if err != nil {
		return false, err
	}
	return status != nil && status.PendingUpdate, nil
}

// MarkPending raises the sync flag.
func (h *KnowledgeDBHandler) MarkPending(ctx context.Context) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT mark_sync_pending($1)`, SyncStatusKey)
	if err != nil {
		return helper.NewError("mark sync pending", err)
	}
	return nil
}

// ConfirmSync clears the sync flag. It returns false if no update was pending.
func (h *KnowledgeDBHandler) ConfirmSync(ctx context.Context) (bool, error) {
	var confirmed bool
	err := h.db.Instance.QueryRowContext(ctx, `SELECT confirm_sync($1)`, SyncStatusKey).Scan(&confirmed)
	if err != nil {
		return false, helper.NewError("confirm sync", err)
	}

	if confirmed {
		h.db.Logger.Info("Confirmed knowledge sync", slog.String("key", SyncStatusKey))
	}

	return confirmed, nil
}

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	unsafeIDRegex   = regexp.MustCompile(`[^A-Za-z0-9_\-.ก-๙]+`)
)

// safeID turns free text into an id fragment of at most 50 runes.
func safeID(s string) string {
	s = strings.TrimSpace(s)
	s = whitespaceRegex.ReplaceAllString(s, "_")
	s = unsafeIDRegex.ReplaceAllString(s, "")
	if s == "" {
		return "unknown"
	}
	if runes := []rune(s); len(runes) > 50 {
		s = string(runes[:50])
	}
	return s
}
