package port

import (
	"context"

	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

// ExpenseFilter narrows expense listings
type ExpenseFilter struct {
	Status      workflow.Status
	SubmittedBy []string
	Limit       int
	Offset      int
}

// ExpenseRepository defines persistence operations for Expense.
// GetByID returns (nil, nil) when the expense does not exist.
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id string) (*entity.Expense, error)

	// Save persists the expense's workflow fields and appends any pending
	// history entries in one transaction. The write is guarded by the
	// expense's version token; a mismatch returns workflow.ErrConflict
	// and leaves the stored document untouched.
	Save(ctx context.Context, expense *entity.Expense) error

	ListByCompany(ctx context.Context, companyID string, filter ExpenseFilter) ([]*entity.Expense, error)
	ListPendingByCompany(ctx context.Context, companyID string, limit int) ([]*entity.Expense, error)
}

// CompanyRepository defines persistence operations for companies and their
// embedded approval flow and rule collections
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)

	// GetFlows returns the company's flows in stored order
	GetFlows(ctx context.Context, companyID string) ([]entity.ApprovalFlow, error)
	GetFlowByID(ctx context.Context, companyID, flowID string) (*entity.ApprovalFlow, error)
	CreateFlow(ctx context.Context, companyID string, flow *entity.ApprovalFlow) error
	UpdateFlow(ctx context.Context, companyID string, flow *entity.ApprovalFlow) error
	DeleteFlow(ctx context.Context, companyID, flowID string) error
	// ClearDefaultFlows drops the default flag from every flow except the
	// given one, enforcing the at-most-one-default invariant
	ClearDefaultFlows(ctx context.Context, companyID, exceptFlowID string) error

	GetRules(ctx context.Context, companyID string) ([]entity.Rule, error)
	GetRuleByID(ctx context.Context, companyID, ruleID string) (*entity.Rule, error)
	CreateRule(ctx context.Context, companyID string, rule *entity.Rule) error
	UpdateRule(ctx context.Context, companyID string, rule *entity.Rule) error
	DeleteRule(ctx context.Context, companyID, ruleID string) error
}

// UserRepository defines read operations against the company roster.
// User management itself belongs to an external collaborator.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	FindByRole(ctx context.Context, companyID string, role entity.Role) ([]*entity.User, error)
	FindByManager(ctx context.Context, companyID, managerID string) ([]*entity.User, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
