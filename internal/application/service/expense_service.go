package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/expenseflow/backend/internal/application/port"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

// pendingScanLimit caps how many pending expenses the approvals view scans
const pendingScanLimit = 200

// CreateExpenseInput carries the fields a submitter provides. Currency
// conversion happens upstream; both amounts arrive pre-computed.
type CreateExpenseInput struct {
	CompanyID        string
	SubmittedBy      string
	AmountOriginal   float64
	CurrencyOriginal string
	AmountBase       float64
	BaseCurrency     string
	Category         string
	Description      string
	ExpenseDate      time.Time
	ApprovalFlowName string
}

// ListExpensesQuery scopes an expense listing to the caller
type ListExpensesQuery struct {
	CompanyID string
	UserID    string
	Role      entity.Role
	// Scope is one of "mine" (default), "team" (manager's reports),
	// "company" (admin only)
	Scope  string
	Status workflow.Status
	Limit  int
	Offset int
}

// ExpenseService covers expense submission and the read-side views around
// the approval engine
type ExpenseService interface {
	CreateExpense(ctx context.Context, input CreateExpenseInput) (*entity.Expense, error)
	GetExpense(ctx context.Context, id string) (*entity.Expense, error)
	ListExpenses(ctx context.Context, query ListExpensesQuery) ([]*entity.Expense, error)
	ListPendingApprovals(ctx context.Context, companyID, userID string) ([]*entity.Expense, error)
}

type expenseService struct {
	expenses port.ExpenseRepository
	users    port.UserRepository
	engine   ApprovalEngine
	logger   Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(expenses port.ExpenseRepository, users port.UserRepository, engine ApprovalEngine, logger Logger) ExpenseService {
	return &expenseService{expenses: expenses, users: users, engine: engine, logger: logger}
}

// CreateExpense creates a pending expense at step zero with an empty history
func (s *expenseService) CreateExpense(ctx context.Context, input CreateExpenseInput) (*entity.Expense, error) {
	if input.AmountOriginal <= 0 || input.AmountBase <= 0 {
		return nil, errors.New("amounts must be positive")
	}
	if input.CurrencyOriginal == "" || input.BaseCurrency == "" {
		return nil, errors.New("currencies are required")
	}
	if input.ExpenseDate.IsZero() {
		return nil, errors.New("expense date is required")
	}

	now := time.Now()
	expense := &entity.Expense{
		ID:               uuid.NewString(),
		CompanyID:        input.CompanyID,
		SubmittedBy:      input.SubmittedBy,
		AmountOriginal:   input.AmountOriginal,
		CurrencyOriginal: input.CurrencyOriginal,
		AmountBase:       input.AmountBase,
		BaseCurrency:     input.BaseCurrency,
		Category:         input.Category,
		Description:      input.Description,
		ExpenseDate:      input.ExpenseDate,
		ApprovalFlowName: input.ApprovalFlowName,
		CurrentStepIndex: 0,
		Status:           workflow.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.expenses.Create(ctx, expense); err != nil {
		s.logger.Error("Failed to create expense", "error", err, "submitted_by", input.SubmittedBy)
		return nil, err
	}

	s.logger.Info("Expense created",
		"expense_id", expense.ID,
		"company_id", expense.CompanyID,
		"amount_base", expense.AmountBase)
	return expense, nil
}

// GetExpense retrieves an expense by id
func (s *expenseService) GetExpense(ctx context.Context, id string) (*entity.Expense, error) {
	expense, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, workflow.ErrExpenseNotFound
	}
	return expense, nil
}

// ListExpenses lists expenses scoped to the caller: own expenses by default,
// the manager's team with scope=team, the whole company for admins with
// scope=company
func (s *expenseService) ListExpenses(ctx context.Context, query ListExpensesQuery) ([]*entity.Expense, error) {
	filter := port.ExpenseFilter{
		Status: query.Status,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}

	switch {
	case query.Scope == "company" && query.Role == entity.RoleAdmin:
		// No submitter filter: the whole company.
	case query.Scope == "team" && query.Role == entity.RoleManager:
		team, err := s.users.FindByManager(ctx, query.CompanyID, query.UserID)
		if err != nil {
			return nil, fmt.Errorf("load team: %w", err)
		}
		if len(team) == 0 {
			return nil, nil
		}
		for _, member := range team {
			filter.SubmittedBy = append(filter.SubmittedBy, member.ID)
		}
	default:
		filter.SubmittedBy = []string{query.UserID}
	}

	return s.expenses.ListByCompany(ctx, query.CompanyID, filter)
}

// ListPendingApprovals returns the company's pending expenses for which the
// user is a current approver
func (s *expenseService) ListPendingApprovals(ctx context.Context, companyID, userID string) ([]*entity.Expense, error) {
	pending, err := s.expenses.ListPendingByCompany(ctx, companyID, pendingScanLimit)
	if err != nil {
		return nil, err
	}

	var results []*entity.Expense
	for _, expense := range pending {
		ok, err := s.engine.IsCurrentApprover(ctx, expense.ID, userID)
		if err != nil {
			s.logger.Error("Failed to resolve approvers for pending expense",
				"error", err, "expense_id", expense.ID)
			continue
		}
		if ok {
			results = append(results, expense)
		}
	}
	return results, nil
}
