package service

import (
	"github.com/expenseflow/backend/internal/domain/entity"
)

// RuleOutcome is the result of evaluating a conditional rule. Finalize
// distinguishes a specific-approver match, which approves the whole expense,
// from a percentage match, which only completes the current step.
type RuleOutcome struct {
	Satisfied bool
	Finalize  bool
}

// EvaluateRule decides whether the rule's auto-approval condition holds for
// the expense's current step. Pure over the rule, the resolved approver set
// and the expense's history.
//
// A specific-approver condition is evaluated over the entire history, at any
// step: the designated approver's approval short-circuits the whole flow.
// A percentage condition is step-scoped: only distinct approvals at the given
// step by members of the resolved approver set count. This asymmetry is a
// fixed contract, not an accident.
func EvaluateRule(rule *entity.Rule, stepIndex int, stepApprovers []string, expense *entity.Expense) RuleOutcome {
	if rule == nil || !rule.Enabled {
		return RuleOutcome{}
	}

	switch rule.Type {
	case entity.RuleTypeSpecific:
		if specificSatisfied(rule, expense) {
			return RuleOutcome{Satisfied: true, Finalize: true}
		}
	case entity.RuleTypePercentage:
		if percentageSatisfied(rule, stepIndex, stepApprovers, expense) {
			return RuleOutcome{Satisfied: true}
		}
	case entity.RuleTypeHybrid:
		// Specific first: it is global-scope and takes the finalize outcome.
		if specificSatisfied(rule, expense) {
			return RuleOutcome{Satisfied: true, Finalize: true}
		}
		if percentageSatisfied(rule, stepIndex, stepApprovers, expense) {
			return RuleOutcome{Satisfied: true}
		}
	}
	return RuleOutcome{}
}

func specificSatisfied(rule *entity.Rule, expense *entity.Expense) bool {
	return rule.SpecificApprover != "" && expense.HasApprovalBy(rule.SpecificApprover)
}

func percentageSatisfied(rule *entity.Rule, stepIndex int, stepApprovers []string, expense *entity.Expense) bool {
	total := len(stepApprovers)
	if total == 0 || rule.PercentageThreshold <= 0 {
		return false
	}
	approved := countStepApprovals(stepIndex, stepApprovers, expense)
	// approved/total*100 >= threshold, kept in integers
	return approved*100 >= rule.PercentageThreshold*total
}

// StepComplete applies plain require-all semantics when no rule governs the
// flow: with RequireAll every resolved approver needs a step-scoped approval
// (deduplicated by approver id); otherwise a single approval from any
// resolved approver completes the step. An empty approver set never
// completes, so a step nobody can act on stalls until an admin override.
func StepComplete(step entity.Step, stepIndex int, stepApprovers []string, expense *entity.Expense) bool {
	if len(stepApprovers) == 0 {
		return false
	}
	approvedSet := make(map[string]bool)
	for _, id := range expense.StepApprovals(stepIndex) {
		approvedSet[id] = true
	}
	if step.RequireAll {
		for _, id := range stepApprovers {
			if !approvedSet[id] {
				return false
			}
		}
		return true
	}
	for _, id := range stepApprovers {
		if approvedSet[id] {
			return true
		}
	}
	return false
}

func countStepApprovals(stepIndex int, stepApprovers []string, expense *entity.Expense) int {
	members := make(map[string]bool, len(stepApprovers))
	for _, id := range stepApprovers {
		members[id] = true
	}
	count := 0
	for _, id := range expense.StepApprovals(stepIndex) {
		if members[id] {
			count++
		}
	}
	return count
}
