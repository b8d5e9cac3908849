// Package decision applies the execution gate to AI recommendations.
// A recommendation only reaches the chain when every criterion passes;
// anything else is a hold, which costs nothing.
package decision

import (
	"fmt"

	"starknet-pilot/internal/domain"
)

// ConfidenceThreshold is the minimum confidence for on-chain execution.
// Execution requires confidence strictly above the threshold.
const ConfidenceThreshold = 0.7

// Evaluator evaluates the execution gate.
type Evaluator struct{}

// NewEvaluator creates a new decision evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate produces a Result from a recommendation.
// EXECUTE only if ALL criteria pass; HOLD otherwise.
func (e *Evaluator) Evaluate(rec *domain.Recommendation) *Result {
	criteria := e.evaluateCriteria(rec)

	outcome := OutcomeExecute
	for _, c := range criteria {
		if !c.Pass {
			outcome = OutcomeHold
			break
		}
	}

	return &Result{
		Outcome:  outcome,
		Criteria: criteria,
	}
}

func (e *Evaluator) evaluateCriteria(rec *domain.Recommendation) []CriterionResult {
	criteria := make([]CriterionResult, 3)

	// 1. Confidence strictly above the threshold. A value exactly at
	// the threshold holds.
	criteria[0] = CriterionResult{
		Name:      "Confidence above threshold",
		Threshold: fmt.Sprintf("> %.2f", ConfidenceThreshold),
		Actual:    fmt.Sprintf("%.4f", rec.Confidence),
		Pass:      rec.Confidence > ConfidenceThreshold,
	}

	// 2. Action proposes a position change.
	criteria[1] = CriterionResult{
		Name:      "Actionable recommendation",
		Threshold: "action != HOLD",
		Actual:    string(rec.Action),
		Pass:      rec.Action != domain.ActionHold,
	}

	// 3. Repositioning actions must carry a price range or be able to
	// take the default.
	rangeOK := !rec.Action.RequiresRange() || rec.Range == nil || rec.Range.Lower < rec.Range.Upper
	rangeActual := "absent"
	if rec.Range != nil {
		rangeActual = fmt.Sprintf("%.2f-%.2f", rec.Range.Lower, rec.Range.Upper)
	}
	criteria[2] = CriterionResult{
		Name:      "Valid price range",
		Threshold: "lower < upper or absent",
		Actual:    rangeActual,
		Pass:      rangeOK,
	}

	return criteria
}
