package service

import (
	"context"
	"errors"
	"testing"

	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

func overrideFixture(expense *entity.Expense) (*OverrideService, *mockExpenseRepo) {
	expenses := &mockExpenseRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Expense, error) {
			if expense != nil && expense.ID == id {
				return expense, nil
			}
			return nil, nil
		},
	}
	return NewOverrideService(expenses, &mockTxManager{}, &mockLogger{}), expenses
}

func TestOverrideService_Approve(t *testing.T) {
	expense := pendingExpense("exp-1")
	svc, _ := overrideFixture(expense)

	got, err := svc.Override(context.Background(), "co-1", "exp-1", "admin-1", OverrideApprove, "", "")
	if err != nil {
		t.Fatalf("Override() error = %v", err)
	}
	if got.Status != workflow.StatusApproved {
		t.Errorf("Override() status = %v, want approved", got.Status)
	}

	history := got.History()
	if len(history) != 1 {
		t.Fatalf("Override() history length = %d, want 1", len(history))
	}
	rec := history[0]
	if rec.ApproverID != "admin-1" || rec.RoleAtApproval != "admin" {
		t.Errorf("Override() audit entry = %+v, want admin-tagged", rec)
	}
	if rec.Comments != "Approved by admin override" {
		t.Errorf("Override() default comment = %q", rec.Comments)
	}
}

func TestOverrideService_RejectWithComment(t *testing.T) {
	expense := pendingExpense("exp-1")
	svc, _ := overrideFixture(expense)

	got, err := svc.Override(context.Background(), "co-1", "exp-1", "admin-1", OverrideReject, "", "policy violation")
	if err != nil {
		t.Fatalf("Override() error = %v", err)
	}
	if got.Status != workflow.StatusRejected {
		t.Errorf("Override() status = %v, want rejected", got.Status)
	}
	if history := got.History(); history[0].Comments != "policy violation" {
		t.Errorf("Override() comment = %q, want caller's comment", history[0].Comments)
	}
}

func TestOverrideService_ReopensTerminalExpense(t *testing.T) {
	expense := pendingExpense("exp-1")
	expense.Status = workflow.StatusRejected
	svc, _ := overrideFixture(expense)

	got, err := svc.Override(context.Background(), "co-1", "exp-1", "admin-1", OverrideApprove, "", "")
	if err != nil {
		t.Fatalf("Override() error = %v", err)
	}
	if got.Status != workflow.StatusApproved {
		t.Errorf("Override() status = %v, want approved from rejected", got.Status)
	}
}

func TestOverrideService_SetStatus(t *testing.T) {
	t.Run("valid status without audit entry", func(t *testing.T) {
		expense := pendingExpense("exp-1")
		expense.Status = workflow.StatusApproved
		svc, _ := overrideFixture(expense)

		got, err := svc.Override(context.Background(), "co-1", "exp-1", "admin-1", OverrideSetStatus, workflow.StatusPaid, "")
		if err != nil {
			t.Fatalf("Override() error = %v", err)
		}
		if got.Status != workflow.StatusPaid {
			t.Errorf("Override() status = %v, want paid", got.Status)
		}
		if len(got.History()) != 0 {
			t.Errorf("Override() setStatus appended an audit entry")
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		svc, _ := overrideFixture(pendingExpense("exp-1"))
		_, err := svc.Override(context.Background(), "co-1", "exp-1", "admin-1", OverrideSetStatus, workflow.Status("archived"), "")
		if !errors.Is(err, workflow.ErrInvalidStatus) {
			t.Errorf("Override() error = %v, want ErrInvalidStatus", err)
		}
	})
}

func TestOverrideService_UnknownAction(t *testing.T) {
	svc, _ := overrideFixture(pendingExpense("exp-1"))
	_, err := svc.Override(context.Background(), "co-1", "exp-1", "admin-1", OverrideAction("promote"), "", "")
	if !errors.Is(err, workflow.ErrInvalidAction) {
		t.Errorf("Override() error = %v, want ErrInvalidAction", err)
	}
}

func TestOverrideService_OtherCompanyExpenseIsNotFound(t *testing.T) {
	expense := pendingExpense("exp-1")
	expense.CompanyID = "co-2"
	svc, expenses := overrideFixture(expense)

	saves := 0
	expenses.saveFunc = func(ctx context.Context, e *entity.Expense) error {
		saves++
		return nil
	}

	_, err := svc.Override(context.Background(), "co-1", "exp-1", "admin-1", OverrideApprove, "", "")
	if !errors.Is(err, workflow.ErrExpenseNotFound) {
		t.Fatalf("Override() error = %v, want ErrExpenseNotFound for another company's expense", err)
	}
	if expense.Status != workflow.StatusPending {
		t.Errorf("Override() status = %v, want pending left untouched", expense.Status)
	}
	if len(expense.History()) != 0 {
		t.Errorf("Override() appended an audit entry to another company's expense")
	}
	if saves != 0 {
		t.Errorf("Override() persisted %d writes, want 0", saves)
	}
}

func TestOverrideService_ExpenseNotFound(t *testing.T) {
	svc, _ := overrideFixture(nil)
	_, err := svc.Override(context.Background(), "co-1", "missing", "admin-1", OverrideApprove, "", "")
	if !errors.Is(err, workflow.ErrExpenseNotFound) {
		t.Errorf("Override() error = %v, want ErrExpenseNotFound", err)
	}
}

func TestOverrideService_LeavesStepIndexUntouched(t *testing.T) {
	expense := pendingExpense("exp-1")
	expense.CurrentStepIndex = 2
	svc, _ := overrideFixture(expense)

	got, err := svc.Override(context.Background(), "co-1", "exp-1", "admin-1", OverrideApprove, "", "")
	if err != nil {
		t.Fatalf("Override() error = %v", err)
	}
	if got.CurrentStepIndex != 2 {
		t.Errorf("Override() step index = %d, want 2", got.CurrentStepIndex)
	}
}
