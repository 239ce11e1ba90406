package model

import (
	"strings"
)

// ItemType is the content type of a knowledge item.
// The set is open, unknown values are kept as they are and fall back
// to the default weights and thresholds.
type ItemType string

const (
	ItemTypeFact         ItemType = "fact"
	ItemTypeDefinition   ItemType = "definition"
	ItemTypeTroubleshoot ItemType = "troubleshoot"
	ItemTypeInfo         ItemType = "info"
	ItemTypeGuide        ItemType = "guide"
	ItemTypeWarning      ItemType = "warning"
	ItemTypeContact      ItemType = "contact"
)

// ParseItemType lower-cases and trims raw. Empty input maps to info.
func ParseItemType(raw string) ItemType {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return ItemTypeInfo
	}
	return ItemType(t)
}

// Known reports whether t is one of the built-in types.
func (t ItemType) Known() bool {
	switch t {
	case ItemTypeFact, ItemTypeDefinition, ItemTypeTroubleshoot, ItemTypeInfo,
		ItemTypeGuide, ItemTypeWarning, ItemTypeContact:
		return true
	}
	return false
}

// ItemMetadata holds the metadata fields the ranking relies on.
// Everything else ends up in Extra.
type ItemMetadata struct {
	Source     string `json:"source,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Name       string `json:"name,omitempty"`
	StepNumber *int   `json:"step_number,omitempty"`
	FundAbbr   string `json:"fund_abbr,omitempty"`
	Status     string `json:"status,omitempty"`

	// RerankScore is set on ranked copies only.
	RerankScore *float64 `json:"rerank_score,omitempty"`

	Extra Metadata `json:"extra,omitempty"`
}

// Lookup returns the value stored under key, typed fields first.
func (m ItemMetadata) Lookup(key string) (interface{}, bool) {
	switch key {
	case "source":
		return m.Source, m.Source != ""
	case "topic":
		return m.Topic, m.Topic != ""
	case "name":
		return m.Name, m.Name != ""
	case "step_number":
		if m.StepNumber == nil {
			return nil, false
		}
		return *m.StepNumber, true
	case "fund_abbr":
		return m.FundAbbr, m.FundAbbr != ""
	case "status":
		return m.Status, m.Status != ""
	case "rerank_score":
		if m.RerankScore == nil {
			return nil, false
		}
		return *m.RerankScore, true
	}
	v, ok := m.Extra[key]
	return v, ok
}

// KnowledgeItem is one retrievable record of the corpus.
// Items are never modified after ingestion.
type KnowledgeItem struct {
	ID       string       `json:"id"`
	Content  string       `json:"content"`
	Type     ItemType     `json:"type"`
	Metadata ItemMetadata `json:"metadata"`
}

// Clone returns a copy that shares no mutable state with item.
func (item KnowledgeItem) Clone() KnowledgeItem {
	c := item
	if item.Metadata.StepNumber != nil {
		step := *item.Metadata.StepNumber
		c.Metadata.StepNumber = &step
	}
	if item.Metadata.RerankScore != nil {
		score := *item.Metadata.RerankScore
		c.Metadata.RerankScore = &score
	}
	c.Metadata.Extra = item.Metadata.Extra.Clone()
	return c
}

// HasContent reports whether the item carries any non-blank content.
func (item KnowledgeItem) HasContent() bool {
	return strings.TrimSpace(item.Content) != ""
}
