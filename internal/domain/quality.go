package domain

// ReviewOutcome is the graded answer to one review, on the SM-2 0..5 scale.
// Quality 3 and above counts as a correct answer.
type ReviewOutcome int

// Named points on the quality scale.
const (
	OutcomeBlackout  ReviewOutcome = 0 // Complete failure to recall
	OutcomeWrong     ReviewOutcome = 1
	OutcomeHard      ReviewOutcome = 2 // Wrong, but the answer felt familiar
	OutcomeDifficult ReviewOutcome = 3 // Correct after serious effort
	OutcomeGood      ReviewOutcome = 4
	OutcomePerfect   ReviewOutcome = 5
)

// SuccessThreshold is the lowest quality counted as a correct answer.
const SuccessThreshold = OutcomeDifficult

// Valid reports whether q is on the 0..5 scale.
func (q ReviewOutcome) Valid() bool {
	return q >= OutcomeBlackout && q <= OutcomePerfect
}

// IsSuccess reports whether q counts as a correct answer.
func (q ReviewOutcome) IsSuccess() bool {
	return q >= SuccessThreshold
}
