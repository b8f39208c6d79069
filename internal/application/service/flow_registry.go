package service

import (
	"context"
	"fmt"

	"github.com/expenseflow/backend/internal/application/port"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

// ResolvedFlow is the normalized result of flow resolution. Rule is nil when
// plain require-all step completion applies, so downstream code never has to
// distinguish inline rules from rule references or disabled rules.
type ResolvedFlow struct {
	Flow    entity.ApprovalFlow
	Rule    *entity.Rule
	Company *entity.Company
}

// FlowRegistry resolves which approval flow and rule govern an expense
type FlowRegistry struct {
	companies port.CompanyRepository
	logger    Logger
}

// NewFlowRegistry creates a new FlowRegistry
func NewFlowRegistry(companies port.CompanyRepository, logger Logger) *FlowRegistry {
	return &FlowRegistry{companies: companies, logger: logger}
}

// ResolveFlow selects the governing flow for the expense. An explicit flow
// name on the expense wins (matched case-sensitively, regardless of the
// active flag); otherwise the company default is used, then the first flow
// in stored order. An empty flow list yields ErrNoFlowConfigured, meaning an
// admin override is required to move the expense.
func (r *FlowRegistry) ResolveFlow(ctx context.Context, expense *entity.Expense) (*ResolvedFlow, error) {
	company, err := r.companies.GetByID(ctx, expense.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}
	if company == nil {
		return nil, workflow.ErrCompanyNotFound
	}

	flows, err := r.companies.GetFlows(ctx, expense.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load flows: %w", err)
	}

	flow, ok := selectFlow(flows, expense.ApprovalFlowName)
	if !ok {
		return nil, workflow.ErrNoFlowConfigured
	}
	if expense.ApprovalFlowName != "" && flow.Name != expense.ApprovalFlowName {
		r.logger.Info("Named approval flow not found, using company resolution order",
			"expense_id", expense.ID,
			"flow_name", expense.ApprovalFlowName,
			"selected", flow.Name)
	}

	rule, err := r.resolveRule(ctx, expense.CompanyID, flow)
	if err != nil {
		return nil, err
	}

	return &ResolvedFlow{Flow: flow, Rule: rule, Company: company}, nil
}

func selectFlow(flows []entity.ApprovalFlow, explicitName string) (entity.ApprovalFlow, bool) {
	if explicitName != "" {
		for _, f := range flows {
			if f.Name == explicitName {
				return f, true
			}
		}
		// An explicitly named flow that no longer exists falls through to
		// the company default, matching resolution for unnamed expenses.
	}
	for _, f := range flows {
		if f.IsDefault {
			return f, true
		}
	}
	if len(flows) > 0 {
		return flows[0], true
	}
	return entity.ApprovalFlow{}, false
}

// resolveRule normalizes the flow's rule field to an inline rule or nil.
// A dangling rule reference resolves to nil (plain require-all semantics).
func (r *FlowRegistry) resolveRule(ctx context.Context, companyID string, flow entity.ApprovalFlow) (*entity.Rule, error) {
	rule := flow.Rule
	if rule == nil && flow.RuleID != "" {
		ref, err := r.companies.GetRuleByID(ctx, companyID, flow.RuleID)
		if err != nil {
			return nil, fmt.Errorf("load rule %s: %w", flow.RuleID, err)
		}
		if ref == nil {
			r.logger.Info("Flow references missing rule, using require-all semantics",
				"flow", flow.Name, "rule_id", flow.RuleID)
		}
		rule = ref
	}
	if rule == nil || !rule.Enabled || rule.Type == entity.RuleTypeNone {
		return nil, nil
	}
	return rule, nil
}
