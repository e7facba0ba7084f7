package extract

import (
	"regexp"
	"strings"

	"github.com/prasadk/complyscan/internal/model"
)

// Header shapes recognized in financial statements. Numbered sections
// ("3.", "2.1"), roman numerals ("IV."), markdown headers and short
// ALL-CAPS lines all start a new segment.
var (
	numberedHeader = regexp.MustCompile(`^((\d+\.)+\d*)\s+(.+)$`)
	romanHeader    = regexp.MustCompile(`^([IVXLCDM]+)\.\s+(.+)$`)
	markdownHeader = regexp.MustCompile(`^#+\s+(.+)$`)
)

const (
	minCapsHeaderLen = 4
	maxCapsHeaderLen = 100

	// Leading segments mentioning overview material classify as general
	// front matter rather than notes
	frontMatterSegments = 3
)

// Segmenter splits normalized document text into titled segments
type Segmenter struct{}

func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment splits text at detected headers. Text before the first header
// becomes a "Document Start" segment. Positions are assigned in document
// order; segments with no body text are dropped.
func (s *Segmenter) Segment(text, documentID string) []model.Segment {
	var segments []model.Segment

	section := "Document Start"
	var body strings.Builder

	flush := func() {
		content := strings.TrimSpace(body.String())
		if content == "" {
			return
		}
		segments = append(segments, model.Segment{
			DocumentID: documentID,
			Position:   len(segments),
			Section:    section,
			Text:       content,
		})
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if title, ok := detectHeader(line); ok {
			flush()
			section = title
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	for i := range segments {
		segments[i].Kind = classify(segments[i], i)
	}
	return segments
}

// detectHeader reports whether the line is a section header and returns
// its title, section number included when present
func detectHeader(line string) (string, bool) {
	if m := markdownHeader.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	if m := numberedHeader.FindStringSubmatch(line); m != nil {
		return m[1] + " " + m[3], true
	}
	if m := romanHeader.FindStringSubmatch(line); m != nil {
		return m[1] + ". " + m[2], true
	}
	if isAllCaps(line) && len(line) >= minCapsHeaderLen && len(line) <= maxCapsHeaderLen {
		return line, true
	}
	return "", false
}

// isAllCaps requires at least one letter and no lowercase letters, so
// numeric table rows don't register as headers
func isAllCaps(line string) bool {
	hasLetter := false
	for _, r := range line {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	return hasLetter
}

// Keyword tables for coarse section classification. Section titles are
// checked before body text since titles are far more reliable.
var kindKeywords = []struct {
	kind     model.SegmentKind
	keywords []string
}{
	{model.KindRelatedParty, []string{"related party", "related parties"}},
	{model.KindBalanceSheet, []string{"balance sheet", "statement of financial position"}},
	{model.KindProfitLoss, []string{"profit and loss", "statement of profit", "income statement"}},
	{model.KindCashFlow, []string{"cash flow", "statement of cash"}},
	{model.KindAuditorReport, []string{"auditor", "audit report", "independent audit"}},
	{model.KindDirectorsReport, []string{"director's report", "directors' report", "board's report", "report of the board"}},
	{model.KindNotes, []string{"note", "footnote", "accounting polic"}},
}

var frontMatterWords = []string{"introduction", "overview", "summary"}

func classify(seg model.Segment, position int) model.SegmentKind {
	title := strings.ToLower(seg.Section)
	for _, entry := range kindKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(title, kw) {
				return entry.kind
			}
		}
	}

	body := strings.ToLower(seg.Text)
	if position < frontMatterSegments {
		for _, w := range frontMatterWords {
			if strings.Contains(body, w) {
				return model.KindGeneral
			}
		}
	}
	for _, entry := range kindKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(body, kw) {
				return entry.kind
			}
		}
	}
	return model.KindGeneral
}
