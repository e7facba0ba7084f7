// Package validate implements the compliance validation orchestrator: it
// fans rule evaluations out to an LLM provider under a concurrency cap and
// joins the verdicts back into rule-declaration order.
package validate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prasadk/complyscan/internal/cache"
	"github.com/prasadk/complyscan/internal/llm"
	"github.com/prasadk/complyscan/internal/metrics"
	"github.com/prasadk/complyscan/internal/model"
	"github.com/prasadk/complyscan/internal/relevance"
	"github.com/prasadk/complyscan/internal/rules"
	"github.com/prasadk/complyscan/internal/score"
	"github.com/prasadk/complyscan/internal/worker"
)

// SegmentProvider supplies the ordered segments of an extracted document
type SegmentProvider interface {
	Segments(ctx context.Context, documentID string) ([]model.Segment, error)
}

// Orchestrator runs rule sets against documents. It holds only immutable
// collaborators and is safe for concurrent use.
type Orchestrator struct {
	rules    *rules.Store
	segments SegmentProvider
	provider llm.Provider
	filter   *relevance.Filter
	cache    cache.Cache // nil disables caching
	limiter  *worker.Limiter
	cfg      model.ValidationConfig
	logger   *slog.Logger
}

// New creates an orchestrator. verdictCache and limiter may be nil.
func New(
	ruleStore *rules.Store,
	segments SegmentProvider,
	provider llm.Provider,
	filter *relevance.Filter,
	verdictCache cache.Cache,
	limiter *worker.Limiter,
	cfg model.ValidationConfig,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		rules:    ruleStore,
		segments: segments,
		provider: provider,
		filter:   filter,
		cache:    verdictCache,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger,
	}
}

// Validate evaluates every rule of the framework against the document and
// returns a new ValidationRun with one verdict per rule, in rule-declaration
// order. A single rule's LLM failure degrades that rule to needs_review;
// only an unknown framework or missing document aborts the run.
func (o *Orchestrator) Validate(ctx context.Context, documentID, framework string) (*model.ValidationRun, error) {
	start := time.Now()

	ruleSet, ok := o.rules.Rules(framework)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFramework, framework)
	}

	segments, err := o.segments.Segments(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: document %q has no extracted segments", ErrDocumentNotFound, documentID)
	}

	contentHash := hashSegments(segments)

	run := &model.ValidationRun{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Framework:  framework,
		CreatedAt:  time.Now().UTC(),
		Verdicts:   make([]model.Verdict, len(ruleSet)),
	}

	workers := o.cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	// Fan out per-rule evaluation under the concurrency cap. Each goroutine
	// writes only its own verdict slot, so no locking is needed, and the
	// indexed slots keep declaration order regardless of completion order.
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, rule := range ruleSet {
		wg.Add(1)
		go func(idx int, rule model.Rule) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				run.Verdicts[idx] = degradedVerdict(rule, "validation cancelled: "+ctx.Err().Error(), nil)
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			run.Verdicts[idx] = o.evaluateRule(ctx, rule, segments, contentHash)
		}(i, rule)
	}

	wg.Wait()

	run.Score = score.Aggregate(run.Verdicts)

	for _, v := range run.Verdicts {
		metrics.VerdictsTotal.WithLabelValues(string(v.Status)).Inc()
	}
	metrics.RunsTotal.WithLabelValues(framework).Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	o.logger.Info("validation run complete",
		"run_id", run.ID,
		"document_id", documentID,
		"framework", framework,
		"rules", len(ruleSet),
		"score", run.Score.Value,
		"gaps", len(run.Score.Gaps),
		"duration", time.Since(start).Round(time.Millisecond))

	return run, nil
}

// evaluateRule produces the verdict for one rule. It never returns an
// error: any failure is recorded in the verdict itself.
func (o *Orchestrator) evaluateRule(ctx context.Context, rule model.Rule, segments []model.Segment, contentHash string) model.Verdict {
	relevant := o.filter.Select(ctx, rule, segments)
	if len(relevant) == 0 {
		return o.noEvidenceVerdict(rule)
	}
	sections := sectionLabels(relevant)

	prompt := buildPrompt(rule, relevant, o.cfg.PromptBudget)

	key := cache.VerdictKey(contentHash, rule.Framework, rule.ID, prompt)
	if o.cache != nil {
		if data, found := o.cache.Get(key); found {
			var v model.Verdict
			if err := json.Unmarshal(data, &v); err == nil {
				v.FromCache = true
				metrics.CacheHitsTotal.Inc()
				return v
			}
			// Unreadable entries are dropped, not trusted
			_ = o.cache.Delete(key)
		}
	}

	payload, err := o.complete(ctx, rule, prompt)
	if err != nil {
		return degradedVerdict(rule, err.Error(), sections)
	}

	verdict := model.Verdict{
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Severity:    rule.Severity,
		Mandatory:   rule.Mandatory,
		Status:      payload.Status,
		Evidence:    payload.Evidence,
		Explanation: payload.Explanation,
		Confidence:  payload.Confidence,
		Sections:    sections,
	}

	// needs_review verdicts are transient (timeouts, bad output) and must
	// not be replayed from cache
	if o.cache != nil && verdict.Status != model.StatusNeedsReview {
		if data, err := json.Marshal(verdict); err == nil {
			_ = o.cache.Set(key, data, 0)
		}
	}

	return verdict
}

// complete calls the LLM and parses the verdict, retrying once with a
// stricter instruction when the response is malformed.
func (o *Orchestrator) complete(ctx context.Context, rule model.Rule, prompt string) (*verdictPayload, error) {
	resp, err := o.call(ctx, prompt)
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues(o.provider.Name(), "error").Inc()
		return nil, fmt.Errorf("llm call failed: %w", err)
	}

	payload, perr := ParseVerdict(resp.Text)
	if perr == nil {
		metrics.LLMCallsTotal.WithLabelValues(o.provider.Name(), "ok").Inc()
		return payload, nil
	}

	var malformed *MalformedResponseError
	if !errors.As(perr, &malformed) {
		return nil, perr
	}
	metrics.LLMCallsTotal.WithLabelValues(o.provider.Name(), "malformed").Inc()
	metrics.LLMRetriesTotal.Inc()
	o.logger.Warn("malformed LLM response, retrying with strict instruction",
		"rule", rule.ID, "reason", malformed.Reason)

	resp, err = o.call(ctx, prompt+strictRetryInstruction)
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues(o.provider.Name(), "error").Inc()
		return nil, fmt.Errorf("llm retry failed: %w", err)
	}

	payload, perr = ParseVerdict(resp.Text)
	if perr != nil {
		if errors.As(perr, &malformed) {
			metrics.LLMCallsTotal.WithLabelValues(o.provider.Name(), "malformed").Inc()
			// The raw response is preserved in the log, not in the verdict
			o.logger.Warn("LLM response still malformed after retry",
				"rule", rule.ID, "reason", malformed.Reason, "raw", malformed.Raw)
		}
		return nil, perr
	}

	metrics.LLMCallsTotal.WithLabelValues(o.provider.Name(), "ok").Inc()
	return payload, nil
}

func (o *Orchestrator) call(ctx context.Context, prompt string) (*llm.CompletionResponse, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx, o.provider.Name()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return o.provider.Complete(ctx, llm.CompletionRequest{
		System: systemPrompt,
		Prompt: prompt,
	})
}

// noEvidenceVerdict applies the configured policy for rules with no
// relevant segments: by default a mandatory rule without evidence fails and
// an optional one is not applicable; the review policy flags both for a
// human instead. No LLM call is made either way.
func (o *Orchestrator) noEvidenceVerdict(rule model.Rule) model.Verdict {
	v := model.Verdict{
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		Severity:  rule.Severity,
		Mandatory: rule.Mandatory,
	}

	if o.cfg.NoEvidencePolicy == model.NoEvidenceReview {
		v.Status = model.StatusNeedsReview
		v.Explanation = "No relevant document sections were found for this rule; manual review required."
		return v
	}

	if rule.Mandatory {
		v.Status = model.StatusNonCompliant
		v.Explanation = "No relevant disclosure was found in the document for this mandatory requirement."
	} else {
		v.Status = model.StatusNotApplicable
		v.Explanation = "No relevant document sections were found; the optional requirement is treated as not applicable."
	}
	v.Confidence = 1
	return v
}

// degradedVerdict records a per-rule failure as needs_review with the
// failure reason preserved, so the run can complete
func degradedVerdict(rule model.Rule, reason string, sections []string) model.Verdict {
	return model.Verdict{
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Severity:    rule.Severity,
		Mandatory:   rule.Mandatory,
		Status:      model.StatusNeedsReview,
		Explanation: "Automated evaluation failed: " + reason,
		Sections:    sections,
	}
}

func sectionLabels(segments []model.Segment) []string {
	labels := make([]string, 0, len(segments))
	seen := make(map[string]bool, len(segments))
	for _, seg := range segments {
		if !seen[seg.Section] {
			seen[seg.Section] = true
			labels = append(labels, seg.Section)
		}
	}
	return labels
}

// hashSegments fingerprints the extracted document content so cached
// verdicts die with re-ingestion
func hashSegments(segments []model.Segment) string {
	h := sha256.New()
	for _, seg := range segments {
		h.Write([]byte(seg.Section))
		h.Write([]byte{0})
		h.Write([]byte(seg.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
