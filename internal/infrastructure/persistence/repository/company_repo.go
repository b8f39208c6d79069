package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/backend/internal/application/port"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/infrastructure/persistence/sqlite"
)

// CompanyRepository implements port.CompanyRepository against sqlite.
// Flow steps and inline rules are stored as JSON columns; stored flow order
// is the position column, which the flow registry relies on for its
// first-configured-flow fallback.
type CompanyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *sql.DB, logger *zap.Logger) port.CompanyRepository {
	return &CompanyRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a company, or (nil, nil) when it does not exist
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	query := `SELECT id, name, country, base_currency, created_at FROM companies WHERE id = ?`

	var company entity.Company
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.Country,
		&company.BaseCurrency,
		&company.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get company", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

const flowColumns = `id, name, description, steps, rule, rule_id, is_default, active`

// GetFlows returns the company's flows in stored order
func (r *CompanyRepository) GetFlows(ctx context.Context, companyID string) ([]entity.ApprovalFlow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM approval_flows
		WHERE company_id = ?
		ORDER BY position ASC
	`
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to list flows", zap.String("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	var flows []entity.ApprovalFlow
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, *flow)
	}
	return flows, rows.Err()
}

// GetFlowByID returns one flow, or (nil, nil) when it does not exist
func (r *CompanyRepository) GetFlowByID(ctx context.Context, companyID, flowID string) (*entity.ApprovalFlow, error) {
	query := `SELECT ` + flowColumns + ` FROM approval_flows WHERE company_id = ? AND id = ?`

	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, companyID, flowID)
	flow, err := scanFlow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get flow", zap.String("flow_id", flowID), zap.Error(err))
		return nil, fmt.Errorf("failed to get flow: %w", err)
	}
	return flow, nil
}

// CreateFlow appends a flow at the end of the company's stored order
func (r *CompanyRepository) CreateFlow(ctx context.Context, companyID string, flow *entity.ApprovalFlow) error {
	steps, rule, err := encodeFlow(flow)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO approval_flows (id, company_id, name, description, steps, rule, rule_id, is_default, active, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM approval_flows WHERE company_id = ?))
	`
	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		flow.ID, companyID, flow.Name, flow.Description,
		steps, rule, flow.RuleID, flow.IsDefault, flow.Active, companyID,
	)
	if err != nil {
		r.logger.Error("Failed to create flow", zap.String("name", flow.Name), zap.Error(err))
		return fmt.Errorf("failed to create flow: %w", err)
	}
	return nil
}

// UpdateFlow replaces a flow definition in place, keeping its position
func (r *CompanyRepository) UpdateFlow(ctx context.Context, companyID string, flow *entity.ApprovalFlow) error {
	steps, rule, err := encodeFlow(flow)
	if err != nil {
		return err
	}

	query := `
		UPDATE approval_flows
		SET name = ?, description = ?, steps = ?, rule = ?, rule_id = ?, is_default = ?, active = ?
		WHERE company_id = ? AND id = ?
	`
	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		flow.Name, flow.Description, steps, rule, flow.RuleID,
		flow.IsDefault, flow.Active, companyID, flow.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update flow", zap.String("flow_id", flow.ID), zap.Error(err))
		return fmt.Errorf("failed to update flow: %w", err)
	}
	return nil
}

// DeleteFlow removes a flow definition
func (r *CompanyRepository) DeleteFlow(ctx context.Context, companyID, flowID string) error {
	query := `DELETE FROM approval_flows WHERE company_id = ? AND id = ?`
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, companyID, flowID)
	if err != nil {
		r.logger.Error("Failed to delete flow", zap.String("flow_id", flowID), zap.Error(err))
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	return nil
}

// ClearDefaultFlows drops the default flag from all flows but one
func (r *CompanyRepository) ClearDefaultFlows(ctx context.Context, companyID, exceptFlowID string) error {
	query := `UPDATE approval_flows SET is_default = 0 WHERE company_id = ? AND id != ?`
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, companyID, exceptFlowID)
	if err != nil {
		r.logger.Error("Failed to clear default flows", zap.String("company_id", companyID), zap.Error(err))
		return fmt.Errorf("failed to clear default flows: %w", err)
	}
	return nil
}

const ruleColumns = `id, name, type, percentage_threshold, specific_approver, description, enabled`

// GetRules returns the company's standalone rules
func (r *CompanyRepository) GetRules(ctx context.Context, companyID string) ([]entity.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM approval_rules WHERE company_id = ? ORDER BY name ASC`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to list rules", zap.String("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []entity.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// GetRuleByID returns one rule, or (nil, nil) when it does not exist
func (r *CompanyRepository) GetRuleByID(ctx context.Context, companyID, ruleID string) (*entity.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM approval_rules WHERE company_id = ? AND id = ?`

	rule, err := scanRule(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, companyID, ruleID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get rule", zap.String("rule_id", ruleID), zap.Error(err))
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// CreateRule stores a standalone rule definition
func (r *CompanyRepository) CreateRule(ctx context.Context, companyID string, rule *entity.Rule) error {
	query := `
		INSERT INTO approval_rules (id, company_id, name, type, percentage_threshold, specific_approver, description, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		rule.ID, companyID, rule.Name, string(rule.Type),
		rule.PercentageThreshold, rule.SpecificApprover, rule.Description, rule.Enabled,
	)
	if err != nil {
		r.logger.Error("Failed to create rule", zap.String("name", rule.Name), zap.Error(err))
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// UpdateRule replaces a rule definition
func (r *CompanyRepository) UpdateRule(ctx context.Context, companyID string, rule *entity.Rule) error {
	query := `
		UPDATE approval_rules
		SET name = ?, type = ?, percentage_threshold = ?, specific_approver = ?, description = ?, enabled = ?
		WHERE company_id = ? AND id = ?
	`
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		rule.Name, string(rule.Type), rule.PercentageThreshold,
		rule.SpecificApprover, rule.Description, rule.Enabled,
		companyID, rule.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update rule", zap.String("rule_id", rule.ID), zap.Error(err))
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return nil
}

// DeleteRule removes a rule definition. Flows referencing it by id resolve
// to require-all semantics afterwards.
func (r *CompanyRepository) DeleteRule(ctx context.Context, companyID, ruleID string) error {
	query := `DELETE FROM approval_rules WHERE company_id = ? AND id = ?`
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, companyID, ruleID)
	if err != nil {
		r.logger.Error("Failed to delete rule", zap.String("rule_id", ruleID), zap.Error(err))
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

func encodeFlow(flow *entity.ApprovalFlow) (steps []byte, rule []byte, err error) {
	steps, err = json.Marshal(flow.Steps)
	if err != nil {
		return nil, nil, fmt.Errorf("encode steps: %w", err)
	}
	if flow.Rule != nil {
		rule, err = json.Marshal(flow.Rule)
		if err != nil {
			return nil, nil, fmt.Errorf("encode rule: %w", err)
		}
	}
	return steps, rule, nil
}

func scanFlow(row rowScanner) (*entity.ApprovalFlow, error) {
	var flow entity.ApprovalFlow
	var steps []byte
	var rule []byte
	var ruleID sql.NullString

	err := row.Scan(
		&flow.ID,
		&flow.Name,
		&flow.Description,
		&steps,
		&rule,
		&ruleID,
		&flow.IsDefault,
		&flow.Active,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(steps, &flow.Steps); err != nil {
		return nil, fmt.Errorf("decode steps for flow %s: %w", flow.ID, err)
	}
	if len(rule) > 0 {
		flow.Rule = &entity.Rule{}
		if err := json.Unmarshal(rule, flow.Rule); err != nil {
			return nil, fmt.Errorf("decode rule for flow %s: %w", flow.ID, err)
		}
	}
	if ruleID.Valid {
		flow.RuleID = ruleID.String
	}
	return &flow, nil
}

func scanRule(row rowScanner) (*entity.Rule, error) {
	var rule entity.Rule
	var ruleType string
	var threshold sql.NullInt64
	var approver sql.NullString

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&ruleType,
		&threshold,
		&approver,
		&rule.Description,
		&rule.Enabled,
	)
	if err != nil {
		return nil, err
	}

	rule.Type = entity.RuleType(ruleType)
	if threshold.Valid {
		rule.PercentageThreshold = int(threshold.Int64)
	}
	if approver.Valid {
		rule.SpecificApprover = approver.String
	}
	return &rule, nil
}

// Verify interface compliance
var _ port.CompanyRepository = (*CompanyRepository)(nil)
