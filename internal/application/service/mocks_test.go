package service

import (
	"context"

	"github.com/expenseflow/backend/internal/application/port"
	"github.com/expenseflow/backend/internal/domain/entity"
)

// Mock repositories

type mockExpenseRepo struct {
	createFunc               func(ctx context.Context, expense *entity.Expense) error
	getByIDFunc              func(ctx context.Context, id string) (*entity.Expense, error)
	saveFunc                 func(ctx context.Context, expense *entity.Expense) error
	listByCompanyFunc        func(ctx context.Context, companyID string, filter port.ExpenseFilter) ([]*entity.Expense, error)
	listPendingByCompanyFunc func(ctx context.Context, companyID string, limit int) ([]*entity.Expense, error)
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *entity.Expense) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, expense)
	}
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id string) (*entity.Expense, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockExpenseRepo) Save(ctx context.Context, expense *entity.Expense) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, expense)
	}
	expense.Version++
	expense.MarkHistoryPersisted()
	return nil
}

func (m *mockExpenseRepo) ListByCompany(ctx context.Context, companyID string, filter port.ExpenseFilter) ([]*entity.Expense, error) {
	if m.listByCompanyFunc != nil {
		return m.listByCompanyFunc(ctx, companyID, filter)
	}
	return nil, nil
}

func (m *mockExpenseRepo) ListPendingByCompany(ctx context.Context, companyID string, limit int) ([]*entity.Expense, error) {
	if m.listPendingByCompanyFunc != nil {
		return m.listPendingByCompanyFunc(ctx, companyID, limit)
	}
	return nil, nil
}

type mockCompanyRepo struct {
	getByIDFunc           func(ctx context.Context, id string) (*entity.Company, error)
	getFlowsFunc          func(ctx context.Context, companyID string) ([]entity.ApprovalFlow, error)
	getFlowByIDFunc       func(ctx context.Context, companyID, flowID string) (*entity.ApprovalFlow, error)
	createFlowFunc        func(ctx context.Context, companyID string, flow *entity.ApprovalFlow) error
	updateFlowFunc        func(ctx context.Context, companyID string, flow *entity.ApprovalFlow) error
	deleteFlowFunc        func(ctx context.Context, companyID, flowID string) error
	clearDefaultFlowsFunc func(ctx context.Context, companyID, exceptFlowID string) error
	getRulesFunc          func(ctx context.Context, companyID string) ([]entity.Rule, error)
	getRuleByIDFunc       func(ctx context.Context, companyID, ruleID string) (*entity.Rule, error)
	createRuleFunc        func(ctx context.Context, companyID string, rule *entity.Rule) error
	updateRuleFunc        func(ctx context.Context, companyID string, rule *entity.Rule) error
	deleteRuleFunc        func(ctx context.Context, companyID, ruleID string) error
}

func (m *mockCompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Company{ID: id, Name: "Acme", BaseCurrency: "USD"}, nil
}

func (m *mockCompanyRepo) GetFlows(ctx context.Context, companyID string) ([]entity.ApprovalFlow, error) {
	if m.getFlowsFunc != nil {
		return m.getFlowsFunc(ctx, companyID)
	}
	return nil, nil
}

func (m *mockCompanyRepo) GetFlowByID(ctx context.Context, companyID, flowID string) (*entity.ApprovalFlow, error) {
	if m.getFlowByIDFunc != nil {
		return m.getFlowByIDFunc(ctx, companyID, flowID)
	}
	return nil, nil
}

func (m *mockCompanyRepo) CreateFlow(ctx context.Context, companyID string, flow *entity.ApprovalFlow) error {
	if m.createFlowFunc != nil {
		return m.createFlowFunc(ctx, companyID, flow)
	}
	return nil
}

func (m *mockCompanyRepo) UpdateFlow(ctx context.Context, companyID string, flow *entity.ApprovalFlow) error {
	if m.updateFlowFunc != nil {
		return m.updateFlowFunc(ctx, companyID, flow)
	}
	return nil
}

func (m *mockCompanyRepo) DeleteFlow(ctx context.Context, companyID, flowID string) error {
	if m.deleteFlowFunc != nil {
		return m.deleteFlowFunc(ctx, companyID, flowID)
	}
	return nil
}

func (m *mockCompanyRepo) ClearDefaultFlows(ctx context.Context, companyID, exceptFlowID string) error {
	if m.clearDefaultFlowsFunc != nil {
		return m.clearDefaultFlowsFunc(ctx, companyID, exceptFlowID)
	}
	return nil
}

func (m *mockCompanyRepo) GetRules(ctx context.Context, companyID string) ([]entity.Rule, error) {
	if m.getRulesFunc != nil {
		return m.getRulesFunc(ctx, companyID)
	}
	return nil, nil
}

func (m *mockCompanyRepo) GetRuleByID(ctx context.Context, companyID, ruleID string) (*entity.Rule, error) {
	if m.getRuleByIDFunc != nil {
		return m.getRuleByIDFunc(ctx, companyID, ruleID)
	}
	return nil, nil
}

func (m *mockCompanyRepo) CreateRule(ctx context.Context, companyID string, rule *entity.Rule) error {
	if m.createRuleFunc != nil {
		return m.createRuleFunc(ctx, companyID, rule)
	}
	return nil
}

func (m *mockCompanyRepo) UpdateRule(ctx context.Context, companyID string, rule *entity.Rule) error {
	if m.updateRuleFunc != nil {
		return m.updateRuleFunc(ctx, companyID, rule)
	}
	return nil
}

func (m *mockCompanyRepo) DeleteRule(ctx context.Context, companyID, ruleID string) error {
	if m.deleteRuleFunc != nil {
		return m.deleteRuleFunc(ctx, companyID, ruleID)
	}
	return nil
}

type mockUserRepo struct {
	getByIDFunc       func(ctx context.Context, id string) (*entity.User, error)
	findByRoleFunc    func(ctx context.Context, companyID string, role entity.Role) ([]*entity.User, error)
	findByManagerFunc func(ctx context.Context, companyID, managerID string) ([]*entity.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByRole(ctx context.Context, companyID string, role entity.Role) ([]*entity.User, error) {
	if m.findByRoleFunc != nil {
		return m.findByRoleFunc(ctx, companyID, role)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByManager(ctx context.Context, companyID, managerID string) ([]*entity.User, error) {
	if m.findByManagerFunc != nil {
		return m.findByManagerFunc(ctx, companyID, managerID)
	}
	return nil, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct {
	infoFunc func(msg string, keysAndValues ...interface{})
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	if m.infoFunc != nil {
		m.infoFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// Verify interface compliance
var (
	_ port.ExpenseRepository  = (*mockExpenseRepo)(nil)
	_ port.CompanyRepository  = (*mockCompanyRepo)(nil)
	_ port.UserRepository     = (*mockUserRepo)(nil)
	_ port.TransactionManager = (*mockTxManager)(nil)
)
