package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prasadk/complyscan/internal/cache"
	"github.com/prasadk/complyscan/internal/llm"
	"github.com/prasadk/complyscan/internal/model"
	"github.com/prasadk/complyscan/internal/relevance"
	"github.com/prasadk/complyscan/internal/rules"
)

// stubProvider is a deterministic LLM stub. respond is called per prompt;
// the default answers compliant for every rule.
type stubProvider struct {
	respond func(prompt string) (string, error)
	calls   atomic.Int32
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls.Add(1)
	if p.respond != nil {
		text, err := p.respond(req.Prompt)
		if err != nil {
			return nil, err
		}
		return &llm.CompletionResponse{Text: text, Model: "stub"}, nil
	}
	return &llm.CompletionResponse{
		Text:  `{"status": "compliant", "explanation": "stub verdict", "confidence": 0.8}`,
		Model: "stub",
	}, nil
}

// memorySegments is an in-memory SegmentProvider
type memorySegments struct {
	docs map[string][]model.Segment
}

func (m *memorySegments) Segments(ctx context.Context, documentID string) ([]model.Segment, error) {
	segs, ok := m.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	return segs, nil
}

// testStore builds a rule store with n rules for framework "test"; every
// rule matches the keyword "disclosure". Rule 0 is mandatory high, the rest
// alternate optional/mandatory.
func testStore(t *testing.T, n int) *rules.Store {
	t.Helper()

	ruleDefs := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		ruleDefs[i] = map[string]any{
			"id":          fmt.Sprintf("rule_%02d", i),
			"name":        fmt.Sprintf("Rule %02d", i),
			"description": "Checks a disclosure requirement.",
			"keywords":    []string{"disclosure"},
			"severity":    "medium",
			"mandatory":   i%2 == 0,
		}
	}
	data, err := json.Marshal(ruleDefs)
	if err != nil {
		t.Fatalf("marshal rules: %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "test_rules.json"), data, 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	store, err := rules.Load(dir)
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	return store
}

func testSegments() *memorySegments {
	return &memorySegments{docs: map[string][]model.Segment{
		"doc-1": {
			{DocumentID: "doc-1", Position: 0, Section: "Notes", Text: "This disclosure covers the required matters in detail."},
			{DocumentID: "doc-1", Position: 1, Section: "Balance Sheet", Text: "Assets and liabilities as at year end."},
		},
	}}
}

func newTestOrchestrator(t *testing.T, store *rules.Store, provider llm.Provider, verdictCache cache.Cache) *Orchestrator {
	t.Helper()
	cfg := model.ValidationConfig{
		Workers:          3,
		PromptBudget:     4000,
		MaxSegments:      5,
		NoEvidencePolicy: model.NoEvidenceFail,
	}
	filter := relevance.NewFilter(nil, cfg.MaxSegments, 3, nil)
	return New(store, testSegments(), provider, filter, verdictCache, nil, cfg, nil)
}

func TestValidate_OneVerdictPerRuleInDeclarationOrder(t *testing.T) {
	const n = 12
	store := testStore(t, n)
	o := newTestOrchestrator(t, store, &stubProvider{}, nil)

	run, err := o.Validate(context.Background(), "doc-1", "test")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if len(run.Verdicts) != n {
		t.Fatalf("expected %d verdicts, got %d", n, len(run.Verdicts))
	}
	for i, v := range run.Verdicts {
		want := fmt.Sprintf("rule_%02d", i)
		if v.RuleID != want {
			t.Errorf("verdicts[%d].RuleID = %s, want %s", i, v.RuleID, want)
		}
	}
	if run.DocumentID != "doc-1" || run.Framework != "test" {
		t.Errorf("run identity wrong: %+v", run)
	}
	if run.ID == "" || run.CreatedAt.IsZero() {
		t.Error("run must carry an id and timestamp")
	}
}

func TestValidate_DeterministicWithStub(t *testing.T) {
	store := testStore(t, 6)
	o := newTestOrchestrator(t, store, &stubProvider{}, nil)

	first, err := o.Validate(context.Background(), "doc-1", "test")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	second, err := o.Validate(context.Background(), "doc-1", "test")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	// Runs are independent: new identity, identical content
	if first.ID == second.ID {
		t.Error("re-validation must produce a new run id")
	}

	a, _ := json.Marshal(first.Verdicts)
	b, _ := json.Marshal(second.Verdicts)
	if string(a) != string(b) {
		t.Errorf("verdicts differ between identical runs:\n%s\n%s", a, b)
	}
	if first.Score.Value != second.Score.Value {
		t.Errorf("scores differ: %d vs %d", first.Score.Value, second.Score.Value)
	}
}

func TestValidate_UnknownFramework(t *testing.T) {
	store := testStore(t, 3)
	o := newTestOrchestrator(t, store, &stubProvider{}, nil)

	_, err := o.Validate(context.Background(), "doc-1", "ifrs")
	if !errors.Is(err, ErrUnknownFramework) {
		t.Fatalf("expected ErrUnknownFramework, got %v", err)
	}
}

func TestValidate_DocumentNotFound(t *testing.T) {
	store := testStore(t, 3)
	o := newTestOrchestrator(t, store, &stubProvider{}, nil)

	_, err := o.Validate(context.Background(), "no-such-doc", "test")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestValidate_SingleRuleFailureDegradesNotAborts(t *testing.T) {
	const n = 5
	store := testStore(t, n)

	// rule_02's call times out; every other rule answers normally
	provider := &stubProvider{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Rule 02") {
			return "", context.DeadlineExceeded
		}
		return `{"status": "compliant", "explanation": "ok", "confidence": 0.9}`, nil
	}}

	o := newTestOrchestrator(t, store, provider, nil)
	run, err := o.Validate(context.Background(), "doc-1", "test")
	if err != nil {
		t.Fatalf("run must not abort on a single rule failure: %v", err)
	}

	if len(run.Verdicts) != n {
		t.Fatalf("expected %d verdicts, got %d", n, len(run.Verdicts))
	}
	for i, v := range run.Verdicts {
		if i == 2 {
			if v.Status != model.StatusNeedsReview {
				t.Errorf("timed-out rule status = %s, want needs_review", v.Status)
			}
			if !strings.Contains(v.Explanation, "llm call failed") {
				t.Errorf("failure reason missing from explanation: %q", v.Explanation)
			}
		} else if v.Status != model.StatusCompliant {
			t.Errorf("verdicts[%d].Status = %s, want compliant", i, v.Status)
		}
	}
}

func TestValidate_MalformedThenRetrySucceeds(t *testing.T) {
	store := testStore(t, 1)

	var calls atomic.Int32
	provider := &stubProvider{respond: func(prompt string) (string, error) {
		if calls.Add(1) == 1 {
			return "I think the document is compliant overall.", nil
		}
		// The retry must carry the stricter instruction
		if !strings.Contains(prompt, "could not be parsed") {
			return "", errors.New("retry prompt missing strict instruction")
		}
		return `{"status": "compliant", "explanation": "retry ok", "confidence": 0.7}`, nil
	}}

	o := newTestOrchestrator(t, store, provider, nil)
	run, err := o.Validate(context.Background(), "doc-1", "test")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if got := run.Verdicts[0].Status; got != model.StatusCompliant {
		t.Errorf("status after successful retry = %s, want compliant", got)
	}
	if calls.Load() != 2 {
		t.Errorf("expected exactly 2 LLM calls, got %d", calls.Load())
	}
}

func TestValidate_MalformedTwiceDegradesToNeedsReview(t *testing.T) {
	store := testStore(t, 1)

	provider := &stubProvider{respond: func(prompt string) (string, error) {
		return "no json here, ever", nil
	}}

	o := newTestOrchestrator(t, store, provider, nil)
	run, err := o.Validate(context.Background(), "doc-1", "test")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	v := run.Verdicts[0]
	if v.Status != model.StatusNeedsReview {
		t.Errorf("status = %s, want needs_review", v.Status)
	}
	if !strings.Contains(v.Explanation, "malformed") {
		t.Errorf("explanation should carry the failure reason, got %q", v.Explanation)
	}
	if provider.calls.Load() != 2 {
		t.Errorf("expected exactly one retry (2 calls), got %d", provider.calls.Load())
	}
}

func TestValidate_NoEvidencePolicies(t *testing.T) {
	// Segments that match no rule keywords at all
	segments := &memorySegments{docs: map[string][]model.Segment{
		"doc-1": {{DocumentID: "doc-1", Position: 0, Section: "Misc", Text: "unrelated content"}},
	}}

	store := testStore(t, 2) // rule_00 mandatory, rule_01 optional
	provider := &stubProvider{}

	t.Run("fail policy", func(t *testing.T) {
		cfg := model.ValidationConfig{Workers: 2, NoEvidencePolicy: model.NoEvidenceFail}
		o := New(store, segments, provider, relevance.NewFilter(nil, 5, 3, nil), nil, nil, cfg, nil)

		run, err := o.Validate(context.Background(), "doc-1", "test")
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if run.Verdicts[0].Status != model.StatusNonCompliant {
			t.Errorf("mandatory no-evidence status = %s, want non_compliant", run.Verdicts[0].Status)
		}
		if run.Verdicts[1].Status != model.StatusNotApplicable {
			t.Errorf("optional no-evidence status = %s, want not_applicable", run.Verdicts[1].Status)
		}
	})

	t.Run("review policy", func(t *testing.T) {
		cfg := model.ValidationConfig{Workers: 2, NoEvidencePolicy: model.NoEvidenceReview}
		o := New(store, segments, provider, relevance.NewFilter(nil, 5, 3, nil), nil, nil, cfg, nil)

		run, err := o.Validate(context.Background(), "doc-1", "test")
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		for i, v := range run.Verdicts {
			if v.Status != model.StatusNeedsReview {
				t.Errorf("verdicts[%d].Status = %s, want needs_review", i, v.Status)
			}
		}
	})

	if provider.calls.Load() != 0 {
		t.Errorf("no-evidence rules must not reach the LLM, got %d calls", provider.calls.Load())
	}
}

func TestValidate_VerdictsServedFromCache(t *testing.T) {
	store := testStore(t, 3)
	verdictCache := cache.NewMemoryCache(time.Minute, time.Minute)

	provider := &stubProvider{}
	o := newTestOrchestrator(t, store, provider, verdictCache)

	if _, err := o.Validate(context.Background(), "doc-1", "test"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	firstCalls := provider.calls.Load()
	if firstCalls == 0 {
		t.Fatal("expected LLM calls on a cold cache")
	}

	run, err := o.Validate(context.Background(), "doc-1", "test")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if provider.calls.Load() != firstCalls {
		t.Errorf("warm run made %d extra LLM calls", provider.calls.Load()-firstCalls)
	}
	for i, v := range run.Verdicts {
		if !v.FromCache {
			t.Errorf("verdicts[%d] not marked FromCache on warm run", i)
		}
	}
}

func TestValidate_NeedsReviewNotCached(t *testing.T) {
	store := testStore(t, 1)
	verdictCache := cache.NewMemoryCache(time.Minute, time.Minute)

	var fail atomic.Bool
	fail.Store(true)
	provider := &stubProvider{respond: func(prompt string) (string, error) {
		if fail.Load() {
			return "", errors.New("rate limited")
		}
		return `{"status": "compliant", "explanation": "recovered", "confidence": 0.8}`, nil
	}}

	o := newTestOrchestrator(t, store, provider, verdictCache)

	run, err := o.Validate(context.Background(), "doc-1", "test")
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if run.Verdicts[0].Status != model.StatusNeedsReview {
		t.Fatalf("expected degraded verdict, got %s", run.Verdicts[0].Status)
	}

	// Once the provider recovers, a fresh run must re-evaluate instead of
	// replaying the failure
	fail.Store(false)
	run, err = o.Validate(context.Background(), "doc-1", "test")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if run.Verdicts[0].Status != model.StatusCompliant {
		t.Errorf("expected recovery after provider came back, got %s", run.Verdicts[0].Status)
	}
}
