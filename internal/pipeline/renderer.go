package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/prasadk/complyscan/internal/model"
)

// Renderer writes validation runs as JSON and Markdown reports
type Renderer struct {
	includeFooter bool
}

func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the run as indented JSON
func (r *Renderer) RenderJSON(run *model.ValidationRun, path string) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderMarkdown writes a human-readable compliance report
func (r *Renderer) RenderMarkdown(run *model.ValidationRun, path string) error {
	return os.WriteFile(path, []byte(r.Markdown(run)), 0o644)
}

// Markdown renders the report body
func (r *Renderer) Markdown(run *model.ValidationRun) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Compliance Report: %s\n\n", run.Framework)
	fmt.Fprintf(&b, "- **Document**: %s\n", run.DocumentID)
	fmt.Fprintf(&b, "- **Run**: %s\n", run.ID)
	fmt.Fprintf(&b, "- **Date**: %s\n", run.CreatedAt.Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "- **Score**: %d/100\n\n", run.Score.Value)

	if len(run.Score.Gaps) > 0 {
		b.WriteString("## Compliance Gaps\n\n")
		for _, gap := range run.Score.Gaps {
			marker := "✗"
			note := ""
			if gap.Uncertain {
				marker = "?"
				note = " (needs review)"
			}
			fmt.Fprintf(&b, "- %s **%s** [%s]%s\n", marker, gap.RuleName, gap.Severity, note)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Verdicts\n\n")
	b.WriteString("| Rule | Status | Severity | Confidence |\n")
	b.WriteString("|------|--------|----------|------------|\n")
	for _, v := range run.Verdicts {
		fmt.Fprintf(&b, "| %s | %s | %s | %.2f |\n", v.RuleName, statusLabel(v.Status), v.Severity, v.Confidence)
	}
	b.WriteString("\n## Details\n\n")

	for _, v := range run.Verdicts {
		fmt.Fprintf(&b, "### %s\n\n", v.RuleName)
		fmt.Fprintf(&b, "**Status**: %s", statusLabel(v.Status))
		if v.FromCache {
			b.WriteString(" (cached)")
		}
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "%s\n\n", v.Explanation)
		if len(v.Evidence) > 0 {
			b.WriteString("Evidence:\n\n")
			for _, quote := range v.Evidence {
				fmt.Fprintf(&b, "> %s\n\n", quote)
			}
		}
		if len(v.Sections) > 0 {
			fmt.Fprintf(&b, "Sections consulted: %s\n\n", strings.Join(v.Sections, ", "))
		}
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("*Generated by complyscan. Automated findings require professional review before filing.*\n")
	}
	return b.String()
}

// RenderSummary prints a terse run summary to stdout
func (r *Renderer) RenderSummary(run *model.ValidationRun) {
	fmt.Printf("\n%s compliance: %d/100 (%d rules, %d gaps)\n",
		run.Framework, run.Score.Value, len(run.Verdicts), len(run.Score.Gaps))
	for _, gap := range run.Score.Gaps {
		marker := "✗"
		if gap.Uncertain {
			marker = "?"
		}
		fmt.Printf("  %s %s [%s]\n", marker, gap.RuleName, gap.Severity)
	}
}

func statusLabel(status model.VerdictStatus) string {
	switch status {
	case model.StatusCompliant:
		return "Compliant"
	case model.StatusNonCompliant:
		return "Non-compliant"
	case model.StatusNotApplicable:
		return "Not applicable"
	case model.StatusNeedsReview:
		return "Needs review"
	}
	return string(status)
}
