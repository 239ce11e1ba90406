package model

// QueryConfig represents configuration for retrieval and diversification
type QueryConfig struct {
	// Vector search parameters
	TopK           int `json:"top_k"`           // Candidates kept after diversification
	RerankTopK     int `json:"rerank_top_k"`    // Results kept after reranking
	PoolMultiplier int `json:"pool_multiplier"` // Pool is TopK*PoolMultiplier ...
	MinPoolSize    int `json:"min_pool_size"`   // ... but never smaller than this

	// MMR parameters
	UseMMR bool    `json:"use_mmr"`
	Lambda float64 `json:"lambda"` // 1 is pure relevance
}

// DefaultQueryConfig returns a sensible default configuration
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:           12,
		RerankTopK:     8,
		PoolMultiplier: 2,
		MinPoolSize:    50,
		UseMMR:         true,
		Lambda:         0.70,
	}
}

// PoolSize returns the number of rows taken from a corpus of n rows.
func (c QueryConfig) PoolSize(n int) int {
	pool := max(c.TopK*c.PoolMultiplier, c.MinPoolSize, c.TopK)
	return min(n, pool)
}

// RerankConfig holds the weights and bonuses of the heuristic reranker.
// Scores are on the vector score times VectorScale scale.
type RerankConfig struct {
	VectorScale    float64              `json:"vector_scale"`
	TypeWeights    map[ItemType]float64 `json:"type_weights"`
	FallbackWeight float64              `json:"fallback_weight"`

	LexicalWeight float64 `json:"lexical_weight"`

	TopicBonus    float64 `json:"topic_bonus"`
	TopicMinRunes int     `json:"topic_min_runes"`

	StepMatchBonus      float64 `json:"step_match_bonus"`
	StepMismatchPenalty float64 `json:"step_mismatch_penalty"`

	FundBonus float64 `json:"fund_bonus"`

	ActiveStatusBonus float64  `json:"active_status_bonus"`
	ActiveStatuses    []string `json:"active_statuses"`
}

// DefaultRerankConfig returns the tuned production weights.
func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		VectorScale: 100,
		TypeWeights: map[ItemType]float64{
			ItemTypeGuide:        1.25,
			ItemTypeContact:      1.20,
			ItemTypeTroubleshoot: 1.15,
			ItemTypeWarning:      1.15,
			ItemTypeFact:         1.10,
			ItemTypeDefinition:   1.05,
			ItemTypeInfo:         1.00,
		},
		FallbackWeight:      1.10,
		LexicalWeight:       35,
		TopicBonus:          30,
		TopicMinRunes:       3,
		StepMatchBonus:      60,
		StepMismatchPenalty: 20,
		FundBonus:           30,
		ActiveStatusBonus:   30,
		ActiveStatuses: []string{
			"y", "yes", "enable", "enabled", "active", "true", "1", "open",
			"ทำงาน", "เปิด", "เปิดรับ", "ใช้งาน",
		},
	}
}

// Weight returns the multiplier for t or the fallback.
func (c RerankConfig) Weight(t ItemType) float64 {
	if w, ok := c.TypeWeights[t]; ok {
		return w
	}
	return c.FallbackWeight
}

// ThresholdConfig holds the per type acceptance thresholds of the gate.
// Thresholds are compared against score/ScoreScale.
type ThresholdConfig struct {
	ScoreScale float64              `json:"score_scale"`
	Thresholds map[ItemType]float64 `json:"thresholds"`
	Fallback   float64              `json:"fallback"`
}

// DefaultThresholdConfig returns the tuned production thresholds.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		ScoreScale: 100,
		Thresholds: map[ItemType]float64{
			ItemTypeFact:         0.38,
			ItemTypeDefinition:   0.36,
			ItemTypeInfo:         0.35,
			ItemTypeTroubleshoot: 0.34,
		},
		Fallback: 0.35,
	}
}

// Threshold returns the threshold for t or the fallback.
func (c ThresholdConfig) Threshold(t ItemType) float64 {
	if th, ok := c.Thresholds[t]; ok {
		return th
	}
	return c.Fallback
}

// DecisionConfig holds the source decision thresholds. They apply to the
// raw rerank score which has no fixed upper bound.
type DecisionConfig struct {
	DominantScore float64 `json:"dominant_score"`
	DominantGap   float64 `json:"dominant_gap"`
	ThirdGap      float64 `json:"third_gap"`
	Separator     string  `json:"separator"`
}

// DefaultDecisionConfig returns the production thresholds.
func DefaultDecisionConfig() DecisionConfig {
	return DecisionConfig{
		DominantScore: 87.0,
		DominantGap:   8.0,
		ThirdGap:      5.0,
		Separator:     ", ",
	}
}

// ResponseConfig holds the fixed replies of the request pipeline.
type ResponseConfig struct {
	NotFoundMessage string `json:"not_found_message"`
	BlockedMessage  string `json:"blocked_message"`
}

// DefaultResponseConfig returns the Thai production replies.
func DefaultResponseConfig() ResponseConfig {
	return ResponseConfig{
		NotFoundMessage: "ไม่พบข้อมูลในระบบที่เกี่ยวข้องค่ะ รบกวนระบุรายละเอียดเพิ่ม เช่น ชื่อเมนู หรือขั้นตอนที่ทำค้างอยู่ค่ะ",
		BlockedMessage:  "ขออภัยค่ะ น้องทุนตอบเฉพาะเรื่องงานวิจัยและระบบเบิกจ่ายค่ะ",
	}
}
