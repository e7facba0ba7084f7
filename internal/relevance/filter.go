// Package relevance selects the document segments worth showing to the LLM
// for a given rule, bounding prompt size.
package relevance

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/prasadk/complyscan/internal/model"
)

// Searcher is an optional embedding-search collaborator. Results outside the
// candidate document are ignored.
type Searcher interface {
	SimilaritySearch(ctx context.Context, documentID, query string, k int) ([]model.ScoredSegment, error)
}

// Filter selects relevant segments for a rule. Selection is deterministic
// for identical inputs: keyword matches unioned with top-K similarity
// matches, ordered by segment position, bounded to maxSegments.
type Filter struct {
	searcher    Searcher // nil disables similarity search
	maxSegments int
	topK        int
	logger      *slog.Logger
}

// NewFilter creates a relevance filter. searcher may be nil.
func NewFilter(searcher Searcher, maxSegments, topK int, logger *slog.Logger) *Filter {
	if maxSegments <= 0 {
		maxSegments = 5
	}
	if topK <= 0 {
		topK = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		searcher:    searcher,
		maxSegments: maxSegments,
		topK:        topK,
		logger:      logger,
	}
}

// Select returns the bounded, position-ordered subsequence of segments
// relevant to the rule. A searcher failure degrades to keyword-only
// selection; it never fails the caller.
func (f *Filter) Select(ctx context.Context, rule model.Rule, segments []model.Segment) []model.Segment {
	selected := make(map[int]model.Segment)

	for _, seg := range segments {
		if matchesKeywords(rule.Keywords, seg) {
			selected[seg.Position] = seg
		}
	}

	if f.searcher != nil && len(segments) > 0 {
		query := rule.Name + ". " + rule.Description
		hits, err := f.searcher.SimilaritySearch(ctx, segments[0].DocumentID, query, f.topK)
		if err != nil {
			f.logger.Debug("similarity search unavailable, keyword-only selection",
				"rule", rule.ID, "error", err)
		} else {
			byPosition := make(map[int]model.Segment, len(segments))
			for _, seg := range segments {
				byPosition[seg.Position] = seg
			}
			for _, hit := range hits {
				// Only union segments that actually belong to this document's
				// current segment list
				if seg, ok := byPosition[hit.Segment.Position]; ok {
					selected[seg.Position] = seg
				}
			}
		}
	}

	out := make([]model.Segment, 0, len(selected))
	for _, seg := range selected {
		out = append(out, seg)
	}
	// Stable ordering by original document position; ties cannot occur
	// because position is unique within a document
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })

	if len(out) > f.maxSegments {
		out = out[:f.maxSegments]
	}
	return out
}

// matchesKeywords reports whether any rule keyword occurs in the segment's
// section label or text, case-insensitively
func matchesKeywords(keywords []string, seg model.Segment) bool {
	if len(keywords) == 0 {
		return false
	}
	text := strings.ToLower(seg.Text)
	section := strings.ToLower(seg.Section)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) || strings.Contains(section, kw) {
			return true
		}
	}
	return false
}
