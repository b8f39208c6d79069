package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/expenseflow/backend/internal/application/service"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

type stubExpenseService struct {
	getExpenseFunc func(ctx context.Context, id string) (*entity.Expense, error)
}

func (s *stubExpenseService) CreateExpense(ctx context.Context, input service.CreateExpenseInput) (*entity.Expense, error) {
	return nil, errors.New("not implemented")
}

func (s *stubExpenseService) GetExpense(ctx context.Context, id string) (*entity.Expense, error) {
	if s.getExpenseFunc != nil {
		return s.getExpenseFunc(ctx, id)
	}
	return nil, workflow.ErrExpenseNotFound
}

func (s *stubExpenseService) ListExpenses(ctx context.Context, query service.ListExpensesQuery) ([]*entity.Expense, error) {
	return nil, errors.New("not implemented")
}

func (s *stubExpenseService) ListPendingApprovals(ctx context.Context, companyID, userID string) ([]*entity.Expense, error) {
	return nil, errors.New("not implemented")
}

type stubApprovalEngine struct {
	getCurrentApproversFunc func(ctx context.Context, expenseID string) ([]string, error)
}

func (s *stubApprovalEngine) SubmitDecision(ctx context.Context, expenseID, approverID string, decision workflow.Decision, comments string) (*entity.Expense, workflow.Action, error) {
	return nil, "", errors.New("not implemented")
}

func (s *stubApprovalEngine) IsCurrentApprover(ctx context.Context, expenseID, userID string) (bool, error) {
	return false, errors.New("not implemented")
}

func (s *stubApprovalEngine) GetCurrentApprovers(ctx context.Context, expenseID string) ([]string, error) {
	if s.getCurrentApproversFunc != nil {
		return s.getCurrentApproversFunc(ctx, expenseID)
	}
	return nil, nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func approversRequest(caller Identity, expenseID string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/expenses/"+expenseID+"/approvers", nil)
	c.Params = gin.Params{{Key: "id", Value: expenseID}}
	c.Set(identityKey, caller)
	return c, w
}

func TestGetCurrentApprovers_OwnCompanyExpense(t *testing.T) {
	expenses := &stubExpenseService{
		getExpenseFunc: func(ctx context.Context, id string) (*entity.Expense, error) {
			return &entity.Expense{ID: id, CompanyID: "co-1", Status: workflow.StatusPending}, nil
		},
	}
	engine := &stubApprovalEngine{
		getCurrentApproversFunc: func(ctx context.Context, expenseID string) ([]string, error) {
			return []string{"mgr-1"}, nil
		},
	}
	h := NewHandlers(expenses, engine, nopLogger{})

	c, w := approversRequest(Identity{UserID: "emp-1", CompanyID: "co-1", Role: entity.RoleEmployee}, "exp-1")
	h.GetCurrentApprovers(c)

	if w.Code != http.StatusOK {
		t.Fatalf("GetCurrentApprovers() status = %d, want 200", w.Code)
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Approvers []string `json:"approvers"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("GetCurrentApprovers() bad body: %v", err)
	}
	if !resp.Success || len(resp.Data.Approvers) != 1 || resp.Data.Approvers[0] != "mgr-1" {
		t.Errorf("GetCurrentApprovers() body = %s, want mgr-1", w.Body.String())
	}
}

func TestGetCurrentApprovers_OtherCompanyExpenseIsNotFound(t *testing.T) {
	expenses := &stubExpenseService{
		getExpenseFunc: func(ctx context.Context, id string) (*entity.Expense, error) {
			return &entity.Expense{ID: id, CompanyID: "co-2", Status: workflow.StatusPending}, nil
		},
	}
	engineCalled := false
	engine := &stubApprovalEngine{
		getCurrentApproversFunc: func(ctx context.Context, expenseID string) ([]string, error) {
			engineCalled = true
			return []string{"mgr-2"}, nil
		},
	}
	h := NewHandlers(expenses, engine, nopLogger{})

	c, w := approversRequest(Identity{UserID: "emp-1", CompanyID: "co-1", Role: entity.RoleEmployee}, "exp-b")
	h.GetCurrentApprovers(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("GetCurrentApprovers() status = %d, want 404 for another company's expense", w.Code)
	}
	if engineCalled {
		t.Errorf("GetCurrentApprovers() resolved approvers for another company's expense")
	}
}
