// Package evaluator judges run completion against task success criteria.
//
// Evaluate is a pure function of the declared criteria, the step log, and the
// latest observation; it performs no I/O and is deterministic, so the runner
// can call it after every step without a suspension point.
package evaluator

import (
	"strings"

	"github.com/arenalab/orchestrator/internal/domain"
)

// Result carries the verdict plus the criteria-match ratio used as the
// accuracy score input.
type Result struct {
	Verdict    domain.Verdict
	MatchRatio float64
}

// Evaluate inspects the accumulated history against the task's criteria.
//
// Content criteria follow the majority rule: the run succeeds once at least
// half of the required substrings appear in the latest page content. An
// expected action sequence must appear as a subsequence of applied steps. A
// finish step with an ExpectedResult criterion succeeds only when the claimed
// result contains the expectation; a finish with no declared criteria is
// taken at the agent's word.
func Evaluate(criteria domain.SuccessCriteria, stepLog []domain.StepRecord, latest *domain.Observation) Result {
	finished, claimed := finishClaim(stepLog)

	total := 0
	met := 0

	if len(criteria.RequiredContent) > 0 && latest != nil {
		content := strings.ToLower(latest.ContentText)
		for _, want := range criteria.RequiredContent {
			total++
			if strings.Contains(content, strings.ToLower(want)) {
				met++
			}
		}
	} else {
		total += len(criteria.RequiredContent)
	}

	if len(criteria.ExpectedActions) > 0 {
		total++
		if actionsMatch(criteria.ExpectedActions, stepLog) {
			met++
		}
	}

	if criteria.ExpectedResult != "" {
		total++
		if finished && strings.Contains(strings.ToLower(claimed), strings.ToLower(criteria.ExpectedResult)) {
			met++
		}
	}

	if total == 0 {
		// No declared criteria: the agent's finish claim decides.
		if finished {
			return Result{Verdict: domain.VerdictSuccess, MatchRatio: 1.0}
		}
		return Result{Verdict: domain.VerdictContinue}
	}

	ratio := float64(met) / float64(total)
	if met*2 >= total && met > 0 {
		return Result{Verdict: domain.VerdictSuccess, MatchRatio: ratio}
	}
	if finished {
		// The agent claimed completion but the criteria disagree.
		return Result{Verdict: domain.VerdictFailure, MatchRatio: ratio}
	}
	return Result{Verdict: domain.VerdictContinue, MatchRatio: ratio}
}

func finishClaim(stepLog []domain.StepRecord) (bool, string) {
	for i := len(stepLog) - 1; i >= 0; i-- {
		if stepLog[i].Outcome == domain.StepOutcomeFinish {
			return true, stepLog[i].Action.Result
		}
	}
	return false, ""
}

// actionsMatch reports whether expected appears as a subsequence of the
// applied (non-blocked, non-malformed) steps.
func actionsMatch(expected []domain.ActionType, stepLog []domain.StepRecord) bool {
	i := 0
	for _, step := range stepLog {
		if i >= len(expected) {
			break
		}
		if step.Outcome != domain.StepOutcomeApplied && step.Outcome != domain.StepOutcomeFinish {
			continue
		}
		if step.Action.Type == expected[i] {
			i++
		}
	}
	return i >= len(expected)
}
