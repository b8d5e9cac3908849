package decision

// Outcome represents the final execute/hold result.
type Outcome string

const (
	OutcomeExecute Outcome = "EXECUTE"
	OutcomeHold    Outcome = "HOLD"
)

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Result contains the final decision with checklist.
type Result struct {
	Outcome  Outcome
	Criteria []CriterionResult
}
