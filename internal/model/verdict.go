package model

import "time"

// VerdictStatus is the outcome of checking one rule against one document
type VerdictStatus string

const (
	StatusCompliant     VerdictStatus = "compliant"
	StatusNonCompliant  VerdictStatus = "non_compliant"
	StatusNotApplicable VerdictStatus = "not_applicable"
	StatusNeedsReview   VerdictStatus = "needs_review" // Automated evaluation inconclusive or failed
)

// Valid reports whether the status is one of the known values
func (s VerdictStatus) Valid() bool {
	switch s {
	case StatusCompliant, StatusNonCompliant, StatusNotApplicable, StatusNeedsReview:
		return true
	}
	return false
}

// Verdict records the outcome of one rule evaluation. It carries enough of
// the rule (name, severity, mandatory) that scoring and reporting are pure
// functions of the verdict list alone.
type Verdict struct {
	RuleID      string        `json:"rule_id"`
	RuleName    string        `json:"rule_name"`
	Severity    Severity      `json:"severity"`
	Mandatory   bool          `json:"mandatory"`
	Status      VerdictStatus `json:"status"`
	Evidence    []string      `json:"evidence,omitempty"` // Quotes from the document supporting the finding
	Explanation string        `json:"explanation"`
	Confidence  float64       `json:"confidence"` // 0.0 to 1.0
	Sections    []string      `json:"sections,omitempty"`  // Section labels the verdict drew on
	FromCache   bool          `json:"from_cache,omitempty"`
}

// Gap is a mandatory rule that the document fails (or may fail)
type Gap struct {
	RuleID    string   `json:"rule_id"`
	RuleName  string   `json:"rule_name"`
	Severity  Severity `json:"severity"`
	Uncertain bool     `json:"uncertain"` // true for needs_review, false for a confirmed failure
}

// Score is the aggregate compliance result for a run
type Score struct {
	Value int   `json:"value"` // 0-100
	Gaps  []Gap `json:"gaps"`  // Non-compliant mandatory rules, rule-declaration order
}

// ValidationRun is the complete set of verdicts for one document+framework
// invocation. Never mutated after completion, only superseded by a new run.
type ValidationRun struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Framework  string    `json:"framework"`
	CreatedAt  time.Time `json:"created_at"`
	Verdicts   []Verdict `json:"verdicts"` // One per rule, rule-declaration order
	Score      Score     `json:"score"`
}

// RunSummary is a run without its verdict detail, for listings
type RunSummary struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Framework  string    `json:"framework"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}
