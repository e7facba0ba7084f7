package validate

import (
	"fmt"
	"strings"

	"github.com/prasadk/complyscan/internal/model"
)

const systemPrompt = "You are a financial compliance analyst reviewing documents against regulatory requirements. You answer with a single JSON object and nothing else."

const responseFormat = `Respond with ONLY a JSON object in this exact form:
{
  "status": "compliant" | "non_compliant" | "not_applicable" | "needs_review",
  "explanation": "your reasoning in 2-4 sentences",
  "evidence": ["verbatim quotes from the document sections supporting the finding"],
  "confidence": 0.0 to 1.0
}`

const strictRetryInstruction = "\n\nIMPORTANT: Your previous response could not be parsed. Return ONLY the JSON object described above, with no markdown fences, commentary, or surrounding text."

// buildPrompt assembles the per-rule prompt: rule text plus the selected
// segment text, truncated to the character budget. Deterministic for
// identical inputs.
func buildPrompt(rule model.Rule, segments []model.Segment, budget int) string {
	if budget <= 0 {
		budget = 8000
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Compliance Rule: %s\n", rule.Name)
	fmt.Fprintf(&b, "Description: %s\n", rule.Description)
	if rule.Requirement != "" {
		fmt.Fprintf(&b, "Requirement: %s\n", rule.Requirement)
	}

	b.WriteString("\nRelevant Document Sections:\n")

	// Split the budget evenly so a long early section cannot starve the rest
	perSegment := budget / len(segments)
	if perSegment < 200 {
		perSegment = 200
	}
	remaining := budget
	for _, seg := range segments {
		if remaining <= 0 {
			break
		}
		text := seg.Text
		limit := perSegment
		if limit > remaining {
			limit = remaining
		}
		if len(text) > limit {
			text = text[:limit]
		}
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", seg.Section, text)
		remaining -= len(text)
	}

	fmt.Fprintf(&b, "\nTask: determine whether the document complies with this rule.\n")
	b.WriteString(`Use "not_applicable" only when the rule genuinely does not apply to this entity, "needs_review" only when the sections shown are insufficient to decide.` + "\n\n")
	b.WriteString(responseFormat)

	return b.String()
}
