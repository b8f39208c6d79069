package service

import (
	"context"
	"errors"
	"testing"

	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

func validFlow(name string) entity.ApprovalFlow {
	return entity.ApprovalFlow{
		Name:   name,
		Steps:  []entity.Step{{Target: entity.ManagerTarget{}}},
		Active: true,
	}
}

func TestFlowAdminService_CreateFlow(t *testing.T) {
	t.Run("assigns an id and stores the flow", func(t *testing.T) {
		var stored *entity.ApprovalFlow
		companies := &mockCompanyRepo{
			createFlowFunc: func(ctx context.Context, companyID string, flow *entity.ApprovalFlow) error {
				stored = flow
				return nil
			},
		}
		svc := NewFlowAdminService(companies, &mockTxManager{}, &mockLogger{})

		flow, err := svc.CreateFlow(context.Background(), "co-1", validFlow("Standard"))
		if err != nil {
			t.Fatalf("CreateFlow() error = %v", err)
		}
		if flow.ID == "" {
			t.Errorf("CreateFlow() did not assign an id")
		}
		if stored == nil || stored.Name != "Standard" {
			t.Errorf("CreateFlow() stored = %+v", stored)
		}
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		companies := &mockCompanyRepo{
			getFlowsFunc: func(ctx context.Context, companyID string) ([]entity.ApprovalFlow, error) {
				return []entity.ApprovalFlow{validFlow("Standard")}, nil
			},
		}
		svc := NewFlowAdminService(companies, &mockTxManager{}, &mockLogger{})

		_, err := svc.CreateFlow(context.Background(), "co-1", validFlow("Standard"))
		if !errors.Is(err, workflow.ErrDuplicateName) {
			t.Errorf("CreateFlow() error = %v, want ErrDuplicateName", err)
		}
	})

	t.Run("rejects invalid definitions", func(t *testing.T) {
		svc := NewFlowAdminService(&mockCompanyRepo{}, &mockTxManager{}, &mockLogger{})

		_, err := svc.CreateFlow(context.Background(), "co-1", entity.ApprovalFlow{Name: "NoSteps"})
		if err == nil {
			t.Errorf("CreateFlow() accepted a flow without steps")
		}
	})

	t.Run("new default clears previous defaults", func(t *testing.T) {
		cleared := false
		companies := &mockCompanyRepo{
			clearDefaultFlowsFunc: func(ctx context.Context, companyID, exceptFlowID string) error {
				cleared = true
				return nil
			},
		}
		svc := NewFlowAdminService(companies, &mockTxManager{}, &mockLogger{})

		flow := validFlow("NewDefault")
		flow.IsDefault = true
		if _, err := svc.CreateFlow(context.Background(), "co-1", flow); err != nil {
			t.Fatalf("CreateFlow() error = %v", err)
		}
		if !cleared {
			t.Errorf("CreateFlow() did not clear previous defaults")
		}
	})
}

func TestFlowAdminService_UpdateFlow(t *testing.T) {
	existing := validFlow("Standard")
	existing.ID = "f-1"
	existing.Rule = &entity.Rule{Type: entity.RuleTypePercentage, PercentageThreshold: 60, Enabled: true}

	newCompanies := func(updated **entity.ApprovalFlow) *mockCompanyRepo {
		return &mockCompanyRepo{
			getFlowByIDFunc: func(ctx context.Context, companyID, flowID string) (*entity.ApprovalFlow, error) {
				if flowID == "f-1" {
					f := existing
					return &f, nil
				}
				return nil, nil
			},
			updateFlowFunc: func(ctx context.Context, companyID string, flow *entity.ApprovalFlow) error {
				*updated = flow
				return nil
			},
		}
	}

	t.Run("partial update keeps unset fields", func(t *testing.T) {
		var updated *entity.ApprovalFlow
		svc := NewFlowAdminService(newCompanies(&updated), &mockTxManager{}, &mockLogger{})

		desc := "edited"
		flow, err := svc.UpdateFlow(context.Background(), "co-1", "f-1", FlowUpdate{Description: &desc})
		if err != nil {
			t.Fatalf("UpdateFlow() error = %v", err)
		}
		if flow.Description != "edited" || flow.Name != "Standard" {
			t.Errorf("UpdateFlow() = %+v, want description edited and name kept", flow)
		}
		if updated == nil {
			t.Errorf("UpdateFlow() did not persist")
		}
	})

	t.Run("clear rule drops inline rule and reference", func(t *testing.T) {
		var updated *entity.ApprovalFlow
		svc := NewFlowAdminService(newCompanies(&updated), &mockTxManager{}, &mockLogger{})

		flow, err := svc.UpdateFlow(context.Background(), "co-1", "f-1", FlowUpdate{ClearRule: true})
		if err != nil {
			t.Fatalf("UpdateFlow() error = %v", err)
		}
		if flow.Rule != nil || flow.RuleID != "" {
			t.Errorf("UpdateFlow() rule = %+v ruleID = %q, want cleared", flow.Rule, flow.RuleID)
		}
	})

	t.Run("unknown flow", func(t *testing.T) {
		var updated *entity.ApprovalFlow
		svc := NewFlowAdminService(newCompanies(&updated), &mockTxManager{}, &mockLogger{})

		_, err := svc.UpdateFlow(context.Background(), "co-1", "missing", FlowUpdate{})
		if !errors.Is(err, workflow.ErrFlowNotFound) {
			t.Errorf("UpdateFlow() error = %v, want ErrFlowNotFound", err)
		}
	})

	t.Run("merged definition is re-validated", func(t *testing.T) {
		var updated *entity.ApprovalFlow
		svc := NewFlowAdminService(newCompanies(&updated), &mockTxManager{}, &mockLogger{})

		_, err := svc.UpdateFlow(context.Background(), "co-1", "f-1", FlowUpdate{
			Steps: []entity.Step{{Target: entity.UserTarget{}}},
		})
		if err == nil {
			t.Errorf("UpdateFlow() accepted an invalid step")
		}
	})
}

func TestFlowAdminService_CreateRule(t *testing.T) {
	t.Run("valid rule", func(t *testing.T) {
		svc := NewFlowAdminService(&mockCompanyRepo{}, &mockTxManager{}, &mockLogger{})

		rule, err := svc.CreateRule(context.Background(), "co-1", entity.Rule{
			Name:                "Majority",
			Type:                entity.RuleTypePercentage,
			PercentageThreshold: 60,
			Enabled:             true,
		})
		if err != nil {
			t.Fatalf("CreateRule() error = %v", err)
		}
		if rule.ID == "" {
			t.Errorf("CreateRule() did not assign an id")
		}
	})

	t.Run("name required", func(t *testing.T) {
		svc := NewFlowAdminService(&mockCompanyRepo{}, &mockTxManager{}, &mockLogger{})
		_, err := svc.CreateRule(context.Background(), "co-1", entity.Rule{
			Type: entity.RuleTypePercentage, PercentageThreshold: 60,
		})
		if err == nil {
			t.Errorf("CreateRule() accepted a nameless rule")
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		companies := &mockCompanyRepo{
			getRulesFunc: func(ctx context.Context, companyID string) ([]entity.Rule, error) {
				return []entity.Rule{{Name: "Majority"}}, nil
			},
		}
		svc := NewFlowAdminService(companies, &mockTxManager{}, &mockLogger{})
		_, err := svc.CreateRule(context.Background(), "co-1", entity.Rule{
			Name: "Majority", Type: entity.RuleTypePercentage, PercentageThreshold: 60,
		})
		if !errors.Is(err, workflow.ErrDuplicateName) {
			t.Errorf("CreateRule() error = %v, want ErrDuplicateName", err)
		}
	})

	t.Run("threshold bounds", func(t *testing.T) {
		svc := NewFlowAdminService(&mockCompanyRepo{}, &mockTxManager{}, &mockLogger{})
		for _, threshold := range []int{0, 101, -5} {
			_, err := svc.CreateRule(context.Background(), "co-1", entity.Rule{
				Name: "Bad", Type: entity.RuleTypePercentage, PercentageThreshold: threshold,
			})
			if err == nil {
				t.Errorf("CreateRule() accepted threshold %d", threshold)
			}
		}
	})
}

func TestFlowAdminService_UpdateRule(t *testing.T) {
	stored := entity.Rule{
		ID: "r-1", Name: "Majority",
		Type: entity.RuleTypePercentage, PercentageThreshold: 60, Enabled: true,
	}
	companies := &mockCompanyRepo{
		getRuleByIDFunc: func(ctx context.Context, companyID, ruleID string) (*entity.Rule, error) {
			if ruleID == "r-1" {
				r := stored
				return &r, nil
			}
			return nil, nil
		},
	}
	svc := NewFlowAdminService(companies, &mockTxManager{}, &mockLogger{})

	t.Run("partial update", func(t *testing.T) {
		threshold := 75
		rule, err := svc.UpdateRule(context.Background(), "co-1", "r-1", RuleUpdate{
			PercentageThreshold: &threshold,
		})
		if err != nil {
			t.Fatalf("UpdateRule() error = %v", err)
		}
		if rule.PercentageThreshold != 75 || rule.Name != "Majority" {
			t.Errorf("UpdateRule() = %+v", rule)
		}
	})

	t.Run("unknown rule", func(t *testing.T) {
		_, err := svc.UpdateRule(context.Background(), "co-1", "missing", RuleUpdate{})
		if !errors.Is(err, workflow.ErrRuleNotFound) {
			t.Errorf("UpdateRule() error = %v, want ErrRuleNotFound", err)
		}
	})

	t.Run("merged rule is re-validated", func(t *testing.T) {
		threshold := 500
		_, err := svc.UpdateRule(context.Background(), "co-1", "r-1", RuleUpdate{
			PercentageThreshold: &threshold,
		})
		if err == nil {
			t.Errorf("UpdateRule() accepted an out-of-range threshold")
		}
	})
}

func TestFlowAdminService_DeleteRule(t *testing.T) {
	svc := NewFlowAdminService(&mockCompanyRepo{}, &mockTxManager{}, &mockLogger{})

	err := svc.DeleteRule(context.Background(), "co-1", "missing")
	if !errors.Is(err, workflow.ErrRuleNotFound) {
		t.Errorf("DeleteRule() error = %v, want ErrRuleNotFound", err)
	}
}
