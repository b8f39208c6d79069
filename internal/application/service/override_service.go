package service

import (
	"context"
	"time"

	"github.com/expenseflow/backend/internal/application/port"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

// OverrideAction names the privileged operations available to admins
type OverrideAction string

const (
	OverrideApprove   OverrideAction = "approve"
	OverrideReject    OverrideAction = "reject"
	OverrideSetStatus OverrideAction = "setStatus"
)

// OverrideService is the privileged side-channel around the state machine.
// It bypasses approver authorization and rule evaluation, may re-open a
// terminal expense, and leaves currentStepIndex untouched. Its weaker
// guarantees are the reason it is a separate service rather than a flag on
// the normal submission path.
type OverrideService struct {
	expenses port.ExpenseRepository
	tx       port.TransactionManager
	logger   Logger
	now      func() time.Time
}

// NewOverrideService creates a new OverrideService
func NewOverrideService(expenses port.ExpenseRepository, tx port.TransactionManager, logger Logger) *OverrideService {
	return &OverrideService{expenses: expenses, tx: tx, logger: logger, now: time.Now}
}

// Override force-approves, force-rejects, or sets the status of an expense.
// approve and reject append an admin-tagged audit entry; setStatus changes
// the status without one. The expense must belong to companyID; an expense
// from another company is reported as not found rather than revealed.
func (s *OverrideService) Override(ctx context.Context, companyID, expenseID, adminID string, action OverrideAction, status workflow.Status, comment string) (*entity.Expense, error) {
	expense, err := s.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil || expense.CompanyID != companyID {
		return nil, workflow.ErrExpenseNotFound
	}

	switch action {
	case OverrideApprove:
		s.appendOverrideEntry(expense, adminID, workflow.DecisionApproved, comment, "Approved by admin override")
		expense.Status = workflow.StatusApproved

	case OverrideReject:
		s.appendOverrideEntry(expense, adminID, workflow.DecisionRejected, comment, "Rejected by admin override")
		expense.Status = workflow.StatusRejected

	case OverrideSetStatus:
		if !status.IsValid() {
			return nil, workflow.ErrInvalidStatus
		}
		expense.Status = status

	default:
		return nil, workflow.ErrInvalidAction
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.expenses.Save(txCtx, expense)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Admin override applied",
		"expense_id", expense.ID,
		"admin_id", adminID,
		"action", string(action),
		"status", expense.Status.String())
	return expense, nil
}

func (s *OverrideService) appendOverrideEntry(expense *entity.Expense, adminID string, decision workflow.Decision, comment, fallback string) {
	if comment == "" {
		comment = fallback
	}
	expense.AppendDecision(entity.DecisionRecord{
		ApproverID:     adminID,
		Decision:       decision,
		Comments:       comment,
		RoleAtApproval: string(entity.RoleAdmin),
		StepIndex:      expense.CurrentStepIndex,
		DecidedAt:      s.now(),
	})
}
