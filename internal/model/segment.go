package model

// SegmentKind is a coarse semantic classification of a document section
type SegmentKind string

const (
	KindBalanceSheet    SegmentKind = "balance_sheet"
	KindProfitLoss      SegmentKind = "profit_loss"
	KindCashFlow        SegmentKind = "cash_flow"
	KindNotes           SegmentKind = "notes"
	KindAuditorReport   SegmentKind = "auditor_report"
	KindDirectorsReport SegmentKind = "directors_report"
	KindRelatedParty    SegmentKind = "related_party"
	KindGeneral         SegmentKind = "general"
)

// Segment is a labeled, ordered chunk of extracted document text.
// Produced by extraction; read-only for the orchestrator.
type Segment struct {
	DocumentID string      `json:"document_id"`
	Position   int         `json:"position"` // 0-based order within the document
	Section    string      `json:"section"`  // Section label, e.g. "2.1 Related Party Transactions"
	Kind       SegmentKind `json:"kind,omitempty"`
	Text       string      `json:"text"`
}

// ScoredSegment pairs a segment with a similarity score from vector search
type ScoredSegment struct {
	Segment Segment `json:"segment"`
	Score   float64 `json:"score"` // Cosine similarity, higher is closer
}
