package model

// Severity indicates how serious a breach of the rule is
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether the severity is one of the known levels
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Rule is one checkable compliance requirement within a framework.
// Rules are loaded once at startup and never mutated afterwards.
type Rule struct {
	ID          string   `json:"id"`                    // Stable identifier, e.g. "ind_as_24_related_party"
	Framework   string   `json:"framework"`             // Owning framework, e.g. "ind_as"
	Name        string   `json:"name"`                  // Short human-readable name
	Description string   `json:"description"`           // What the rule checks
	Requirement string   `json:"requirement,omitempty"` // Regulatory requirement text quoted to the LLM
	Keywords    []string `json:"keywords"`              // Terms used by the relevance filter
	Severity    Severity `json:"severity"`              // low, medium, high
	Mandatory   bool     `json:"mandatory"`             // Mandatory rules weigh double in scoring
}
