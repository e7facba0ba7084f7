// Package score turns a verdict list into a compliance score and gap list.
// Everything here is a pure function of its inputs.
package score

import (
	"math"

	"github.com/prasadk/complyscan/internal/model"
)

// Weights applied per rule when aggregating. Mandatory rules count double.
const (
	mandatoryWeight = 2
	optionalWeight  = 1
)

// Aggregate computes the compliance score and gap list for a verdict list.
//
// Scoring policy:
//   - not_applicable verdicts are excluded from the denominator entirely
//   - needs_review counts as non-compliant for scoring but is flagged
//     Uncertain in the gap list so a reviewer can tell "failed" from
//     "could not evaluate"
//   - score = round(100 * Σweight(compliant) / Σweight(applicable)); a run
//     where every rule is not_applicable scores 100
//
// Gap list: every non-compliant or needs_review mandatory rule, in verdict
// (i.e. rule-declaration) order.
func Aggregate(verdicts []model.Verdict) model.Score {
	var earned, total int
	gaps := []model.Gap{}

	for _, v := range verdicts {
		if v.Status == model.StatusNotApplicable {
			continue
		}

		weight := optionalWeight
		if v.Mandatory {
			weight = mandatoryWeight
		}
		total += weight

		switch v.Status {
		case model.StatusCompliant:
			earned += weight
		case model.StatusNonCompliant, model.StatusNeedsReview:
			if v.Mandatory {
				gaps = append(gaps, model.Gap{
					RuleID:    v.RuleID,
					RuleName:  v.RuleName,
					Severity:  v.Severity,
					Uncertain: v.Status == model.StatusNeedsReview,
				})
			}
		}
	}

	value := 100
	if total > 0 {
		value = int(math.Round(100 * float64(earned) / float64(total)))
	}

	return model.Score{
		Value: value,
		Gaps:  gaps,
	}
}
