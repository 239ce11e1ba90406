package model

// Candidate is a retrieval hit. Index is the corpus row of the item.
type Candidate struct {
	ID          string         `json:"id"`
	Index       int            `json:"index"`
	Item        *KnowledgeItem `json:"item"`
	Vector      []float32      `json:"-"`
	VectorScore float64        `json:"vector_score"`
}

// RankedResult is a reranked candidate. Score is on a roughly 0 to 150
// scale, 100 being a perfect cosine match before boosts.
type RankedResult struct {
	Item  KnowledgeItem `json:"item"`
	Score float64       `json:"score"`
}

// SourceEntry is one distinct citation candidate.
type SourceEntry struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// GateResult is the output of the threshold gate.
type GateResult struct {
	Context    string         `json:"context"`
	HasContext bool           `json:"has_context"`
	Accepted   []RankedResult `json:"accepted,omitempty"`
}

// DecisionRule names the branch the source decision took.
type DecisionRule string

const (
	DecisionNone      DecisionRule = "none"
	DecisionSingle    DecisionRule = "single"
	DecisionDominant  DecisionRule = "dominant"
	DecisionTopTwo    DecisionRule = "top_two"
	DecisionTopThree  DecisionRule = "top_three"
	DecisionBothOfTwo DecisionRule = "both"
)

// DecisionTrace records the inputs of a source decision for logging.
type DecisionTrace struct {
	Entries []SourceEntry `json:"entries"`
	Rule    DecisionRule  `json:"rule"`
	Top     float64       `json:"top,omitempty"`
	Gap12   float64       `json:"gap_12,omitempty"`
	Gap23   float64       `json:"gap_23,omitempty"`
}

// Decision is the citation outcome. Citation is empty when nothing is cited.
type Decision struct {
	Sources  []string      `json:"sources"`
	Citation string        `json:"citation,omitempty"`
	Trace    DecisionTrace `json:"trace"`
}

// Intent is the outcome of the topic classifier.
type Intent string

const (
	IntentQuery Intent = "QUERY"
	IntentBlock Intent = "BLOCK"
)

// Answer is everything the request pipeline hands to the generation step.
type Answer struct {
	Question       string         `json:"question"`
	Intent         Intent         `json:"intent"`
	RewrittenQuery string         `json:"rewritten_query,omitempty"`
	Context        string         `json:"context"`
	HasContext     bool           `json:"has_context"`
	Citation       string         `json:"citation,omitempty"`
	Sources        []string       `json:"sources,omitempty"`
	Results        []RankedResult `json:"results,omitempty"`
	Trace          DecisionTrace  `json:"trace"`
	// Message is the fixed reply for blocked questions or missing context.
	Message string `json:"message,omitempty"`
}
