package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prasadk/complyscan/internal/model"
)

func sampleRun() *model.ValidationRun {
	return &model.ValidationRun{
		ID:         "run-1",
		DocumentID: "doc-1",
		Framework:  "ind_as",
		CreatedAt:  time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC),
		Verdicts: []model.Verdict{
			{
				RuleID:      "r1",
				RuleName:    "Related party disclosure",
				Severity:    model.SeverityHigh,
				Mandatory:   true,
				Status:      model.StatusCompliant,
				Evidence:    []string{"Note 32 lists all related parties."},
				Explanation: "Disclosure present and complete.",
				Confidence:  0.92,
				Sections:    []string{"Notes"},
			},
			{
				RuleID:      "r2",
				RuleName:    "Going concern note",
				Severity:    model.SeverityHigh,
				Mandatory:   true,
				Status:      model.StatusNeedsReview,
				Explanation: "Automated evaluation failed: llm call failed.",
			},
		},
		Score: model.Score{
			Value: 50,
			Gaps: []model.Gap{
				{RuleID: "r2", RuleName: "Going concern note", Severity: model.SeverityHigh, Uncertain: true},
			},
		},
	}
}

func TestRenderJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := NewRenderer(true).RenderJSON(sampleRun(), path); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var run model.ValidationRun
	if err := json.Unmarshal(data, &run); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if run.ID != "run-1" || len(run.Verdicts) != 2 {
		t.Errorf("unexpected round-trip: %+v", run)
	}
}

func TestMarkdown_Content(t *testing.T) {
	md := NewRenderer(true).Markdown(sampleRun())

	for _, want := range []string{
		"# Compliance Report: ind_as",
		"**Score**: 50/100",
		"## Compliance Gaps",
		"? **Going concern note** [high] (needs review)",
		"| Related party disclosure | Compliant | high | 0.92 |",
		"> Note 32 lists all related parties.",
		"Sections consulted: Notes",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdown_Footer(t *testing.T) {
	withFooter := NewRenderer(true).Markdown(sampleRun())
	if !strings.Contains(withFooter, "professional review") {
		t.Error("expected footer when enabled")
	}

	without := NewRenderer(false).Markdown(sampleRun())
	if strings.Contains(without, "professional review") {
		t.Error("footer rendered despite being disabled")
	}
}
