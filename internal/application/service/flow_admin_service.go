package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/expenseflow/backend/internal/application/port"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

// FlowUpdate carries partial updates to a flow definition. Nil fields are
// left unchanged; ClearRule drops both the inline rule and the reference.
type FlowUpdate struct {
	Name        *string
	Description *string
	Steps       []entity.Step
	Rule        *entity.Rule
	RuleID      *string
	ClearRule   bool
	IsDefault   *bool
	Active      *bool
}

// RuleUpdate carries partial updates to a standalone rule definition
type RuleUpdate struct {
	Name                *string
	Type                *entity.RuleType
	PercentageThreshold *int
	SpecificApprover    *string
	Description         *string
	Enabled             *bool
}

// FlowAdminService manages a company's approval flow and rule configuration.
// Flow and rule definitions are immutable per version from the engine's point
// of view; edits here replace them wholesale.
type FlowAdminService struct {
	companies port.CompanyRepository
	tx        port.TransactionManager
	logger    Logger
}

// NewFlowAdminService creates a new FlowAdminService
func NewFlowAdminService(companies port.CompanyRepository, tx port.TransactionManager, logger Logger) *FlowAdminService {
	return &FlowAdminService{companies: companies, tx: tx, logger: logger}
}

// CreateFlow validates and stores a new flow, enforcing unique names and the
// at-most-one-default invariant within the company
func (s *FlowAdminService) CreateFlow(ctx context.Context, companyID string, flow entity.ApprovalFlow) (*entity.ApprovalFlow, error) {
	if err := flow.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.companies.GetFlows(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for _, f := range existing {
		if f.Name == flow.Name {
			return nil, workflow.ErrDuplicateName
		}
	}

	flow.ID = uuid.NewString()
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.companies.CreateFlow(txCtx, companyID, &flow); err != nil {
			return err
		}
		if flow.IsDefault {
			return s.companies.ClearDefaultFlows(txCtx, companyID, flow.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval flow created", "company_id", companyID, "flow", flow.Name)
	return &flow, nil
}

// ListFlows returns the company's flows in stored order
func (s *FlowAdminService) ListFlows(ctx context.Context, companyID string) ([]entity.ApprovalFlow, error) {
	return s.companies.GetFlows(ctx, companyID)
}

// GetFlow returns one flow by id
func (s *FlowAdminService) GetFlow(ctx context.Context, companyID, flowID string) (*entity.ApprovalFlow, error) {
	flow, err := s.companies.GetFlowByID(ctx, companyID, flowID)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return nil, workflow.ErrFlowNotFound
	}
	return flow, nil
}

// UpdateFlow applies a partial update and re-validates the merged definition.
// In-flight expenses referencing the flow by name bind to the edited version
// on their next decision; there is no per-expense snapshot.
func (s *FlowAdminService) UpdateFlow(ctx context.Context, companyID, flowID string, upd FlowUpdate) (*entity.ApprovalFlow, error) {
	flow, err := s.GetFlow(ctx, companyID, flowID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		flows, err := s.companies.GetFlows(ctx, companyID)
		if err != nil {
			return nil, err
		}
		for _, f := range flows {
			if f.Name == *upd.Name && f.ID != flowID {
				return nil, workflow.ErrDuplicateName
			}
		}
		flow.Name = *upd.Name
	}
	if upd.Description != nil {
		flow.Description = *upd.Description
	}
	if upd.Steps != nil {
		flow.Steps = upd.Steps
	}
	if upd.ClearRule {
		flow.Rule = nil
		flow.RuleID = ""
	}
	if upd.Rule != nil {
		flow.Rule = upd.Rule
		flow.RuleID = ""
	}
	if upd.RuleID != nil {
		flow.RuleID = *upd.RuleID
		flow.Rule = nil
	}
	if upd.Active != nil {
		flow.Active = *upd.Active
	}
	if upd.IsDefault != nil {
		flow.IsDefault = *upd.IsDefault
	}

	if err := flow.Validate(); err != nil {
		return nil, err
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.companies.UpdateFlow(txCtx, companyID, flow); err != nil {
			return err
		}
		if flow.IsDefault {
			return s.companies.ClearDefaultFlows(txCtx, companyID, flow.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval flow updated", "company_id", companyID, "flow", flow.Name)
	return flow, nil
}

// DeleteFlow removes a flow definition
func (s *FlowAdminService) DeleteFlow(ctx context.Context, companyID, flowID string) error {
	if _, err := s.GetFlow(ctx, companyID, flowID); err != nil {
		return err
	}
	if err := s.companies.DeleteFlow(ctx, companyID, flowID); err != nil {
		return err
	}
	s.logger.Info("Approval flow deleted", "company_id", companyID, "flow_id", flowID)
	return nil
}

// CreateRule validates and stores a standalone rule definition
func (s *FlowAdminService) CreateRule(ctx context.Context, companyID string, rule entity.Rule) (*entity.Rule, error) {
	if rule.Name == "" {
		return nil, errors.New("rule name is required")
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.companies.GetRules(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.Name == rule.Name {
			return nil, workflow.ErrDuplicateName
		}
	}

	rule.ID = uuid.NewString()
	if err := s.companies.CreateRule(ctx, companyID, &rule); err != nil {
		return nil, err
	}

	s.logger.Info("Approval rule created", "company_id", companyID, "rule", rule.Name)
	return &rule, nil
}

// ListRules returns the company's standalone rules
func (s *FlowAdminService) ListRules(ctx context.Context, companyID string) ([]entity.Rule, error) {
	return s.companies.GetRules(ctx, companyID)
}

// UpdateRule applies a partial update and re-validates the merged rule
func (s *FlowAdminService) UpdateRule(ctx context.Context, companyID, ruleID string, upd RuleUpdate) (*entity.Rule, error) {
	rule, err := s.companies.GetRuleByID(ctx, companyID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, workflow.ErrRuleNotFound
	}

	if upd.Name != nil {
		rule.Name = *upd.Name
	}
	if upd.Type != nil {
		rule.Type = *upd.Type
	}
	if upd.PercentageThreshold != nil {
		rule.PercentageThreshold = *upd.PercentageThreshold
	}
	if upd.SpecificApprover != nil {
		rule.SpecificApprover = *upd.SpecificApprover
	}
	if upd.Description != nil {
		rule.Description = *upd.Description
	}
	if upd.Enabled != nil {
		rule.Enabled = *upd.Enabled
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.companies.UpdateRule(ctx, companyID, rule); err != nil {
		return nil, err
	}

	s.logger.Info("Approval rule updated", "company_id", companyID, "rule", rule.Name)
	return rule, nil
}

// DeleteRule removes a standalone rule definition. Flows still referencing
// it fall back to require-all semantics at resolution time.
func (s *FlowAdminService) DeleteRule(ctx context.Context, companyID, ruleID string) error {
	rule, err := s.companies.GetRuleByID(ctx, companyID, ruleID)
	if err != nil {
		return err
	}
	if rule == nil {
		return workflow.ErrRuleNotFound
	}
	if err := s.companies.DeleteRule(ctx, companyID, ruleID); err != nil {
		return err
	}
	s.logger.Info("Approval rule deleted", "company_id", companyID, "rule_id", ruleID)
	return nil
}
