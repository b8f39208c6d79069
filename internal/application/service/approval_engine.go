package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expenseflow/backend/internal/application/port"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

// maxConflictRetries bounds how often a submission is re-run after a
// concurrent-write conflict before the conflict surfaces to the caller.
const maxConflictRetries = 3

// ApprovalEngine owns all normal-path mutation of expense workflow state
type ApprovalEngine interface {
	// SubmitDecision records one approver's decision and advances,
	// finalizes or rejects the expense accordingly
	SubmitDecision(ctx context.Context, expenseID, approverID string, decision workflow.Decision, comments string) (*entity.Expense, workflow.Action, error)

	// IsCurrentApprover reports whether the user may decide on the
	// expense's current step
	IsCurrentApprover(ctx context.Context, expenseID, userID string) (bool, error)

	// GetCurrentApprovers returns the user ids resolved for the expense's
	// current step; empty when no flow governs the expense
	GetCurrentApprovers(ctx context.Context, expenseID string) ([]string, error)
}

type approvalEngine struct {
	expenses port.ExpenseRepository
	registry *FlowRegistry
	resolver *ApproverResolver
	tx       port.TransactionManager
	logger   Logger
	now      func() time.Time
}

// NewApprovalEngine creates a new ApprovalEngine
func NewApprovalEngine(
	expenses port.ExpenseRepository,
	registry *FlowRegistry,
	resolver *ApproverResolver,
	tx port.TransactionManager,
	logger Logger,
) ApprovalEngine {
	return &approvalEngine{
		expenses: expenses,
		registry: registry,
		resolver: resolver,
		tx:       tx,
		logger:   logger,
		now:      time.Now,
	}
}

// SubmitDecision re-runs the whole read-evaluate-write sequence on a version
// conflict, up to maxConflictRetries attempts. Each attempt reloads the
// expense and re-resolves the flow, so no stale evaluation is ever persisted.
func (e *approvalEngine) SubmitDecision(ctx context.Context, expenseID, approverID string, decision workflow.Decision, comments string) (*entity.Expense, workflow.Action, error) {
	if !decision.IsValid() {
		return nil, "", workflow.ErrInvalidDecision
	}

	var lastErr error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		expense, action, err := e.submitOnce(ctx, expenseID, approverID, decision, comments)
		if err == nil {
			return expense, action, nil
		}
		if !errors.Is(err, workflow.ErrConflict) {
			return nil, "", err
		}
		lastErr = err
		e.logger.Info("Retrying decision after write conflict",
			"expense_id", expenseID, "approver_id", approverID, "attempt", attempt)
	}
	return nil, "", lastErr
}

func (e *approvalEngine) submitOnce(ctx context.Context, expenseID, approverID string, decision workflow.Decision, comments string) (*entity.Expense, workflow.Action, error) {
	expense, err := e.loadPending(ctx, expenseID)
	if err != nil {
		return nil, "", err
	}

	resolved, err := e.registry.ResolveFlow(ctx, expense)
	if err != nil {
		return nil, "", err
	}
	if expense.CurrentStepIndex >= len(resolved.Flow.Steps) {
		// The flow was edited underneath an in-flight expense and the
		// step index now points past the end; same remedy as no flow.
		return nil, "", workflow.ErrNoFlowConfigured
	}
	step := resolved.Flow.Steps[expense.CurrentStepIndex]

	approvers, err := e.resolver.ResolveStepApprovers(ctx, step, expense)
	if err != nil {
		return nil, "", err
	}
	if !contains(approvers, approverID) {
		return nil, "", workflow.ErrUnauthorizedApprover
	}

	// The decision enters the audit trail unconditionally once
	// authorization passes, including rejections and escalations.
	expense.AppendDecision(entity.DecisionRecord{
		ApproverID: approverID,
		Decision:   decision,
		Comments:   comments,
		StepIndex:  expense.CurrentStepIndex,
		DecidedAt:  e.now(),
	})

	action := workflow.ActionPending
	switch decision {
	case workflow.DecisionRejected:
		// Rejection is immediately terminal at any step.
		expense.Status = workflow.StatusRejected
		action = workflow.ActionRejected

	case workflow.DecisionEscalated:
		// Recorded in the trail; the step stays where it is.

	case workflow.DecisionApproved:
		action = e.applyApproval(expense, resolved, step, approvers)
	}

	if err := e.save(ctx, expense); err != nil {
		return nil, "", err
	}

	e.logger.Info("Decision recorded",
		"expense_id", expense.ID,
		"approver_id", approverID,
		"decision", string(decision),
		"action", string(action),
		"step_index", expense.CurrentStepIndex,
		"status", expense.Status.String())
	return expense, action, nil
}

// applyApproval decides whether the freshly recorded approval completes the
// current step, finalizes the expense, or leaves it pending
func (e *approvalEngine) applyApproval(expense *entity.Expense, resolved *ResolvedFlow, step entity.Step, approvers []string) workflow.Action {
	stepIndex := expense.CurrentStepIndex
	lastStep := stepIndex == len(resolved.Flow.Steps)-1

	if resolved.Rule != nil {
		outcome := EvaluateRule(resolved.Rule, stepIndex, approvers, expense)
		switch {
		case outcome.Satisfied && outcome.Finalize:
			expense.Status = workflow.StatusApproved
			return workflow.ActionFinalized
		case outcome.Satisfied:
			return e.advance(expense, lastStep)
		default:
			return workflow.ActionPending
		}
	}

	if StepComplete(step, stepIndex, approvers, expense) {
		return e.advance(expense, lastStep)
	}
	return workflow.ActionPending
}

func (e *approvalEngine) advance(expense *entity.Expense, lastStep bool) workflow.Action {
	if lastStep {
		expense.Status = workflow.StatusApproved
		return workflow.ActionFinalized
	}
	expense.CurrentStepIndex++
	return workflow.ActionAdvanced
}

// IsCurrentApprover reports step-level authorization for the pending view.
// Non-pending expenses and expenses with no governing flow have no current
// approvers.
func (e *approvalEngine) IsCurrentApprover(ctx context.Context, expenseID, userID string) (bool, error) {
	approvers, err := e.GetCurrentApprovers(ctx, expenseID)
	if err != nil {
		return false, err
	}
	return contains(approvers, userID), nil
}

// GetCurrentApprovers resolves the approver set for the expense's current
// step, fresh against current configuration
func (e *approvalEngine) GetCurrentApprovers(ctx context.Context, expenseID string) ([]string, error) {
	expense, err := e.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, workflow.ErrExpenseNotFound
	}
	if expense.Status != workflow.StatusPending {
		return nil, nil
	}

	resolved, err := e.registry.ResolveFlow(ctx, expense)
	if err != nil {
		if errors.Is(err, workflow.ErrNoFlowConfigured) {
			return nil, nil
		}
		return nil, err
	}
	if expense.CurrentStepIndex >= len(resolved.Flow.Steps) {
		return nil, nil
	}
	return e.resolver.ResolveStepApprovers(ctx, resolved.Flow.Steps[expense.CurrentStepIndex], expense)
}

func (e *approvalEngine) loadPending(ctx context.Context, expenseID string) (*entity.Expense, error) {
	expense, err := e.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}
	if expense == nil {
		return nil, workflow.ErrExpenseNotFound
	}
	if expense.Status != workflow.StatusPending {
		return nil, workflow.ErrAlreadyProcessed
	}
	return expense, nil
}

// save persists the appended history and updated workflow fields as one
// atomic write guarded by the expense's version token
func (e *approvalEngine) save(ctx context.Context, expense *entity.Expense) error {
	return e.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return e.expenses.Save(txCtx, expense)
	})
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
