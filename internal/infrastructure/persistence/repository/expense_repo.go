package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/expenseflow/backend/internal/application/port"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
	"github.com/expenseflow/backend/internal/infrastructure/persistence/sqlite"
)

// ExpenseRepository implements port.ExpenseRepository against sqlite
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseColumns = `
	id, company_id, submitted_by, amount_original, currency_original,
	amount_base, base_currency, category, description, expense_date,
	approval_flow_name, current_step_index, status, version,
	created_at, updated_at
`

// Create inserts a new expense at version 1
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	expense.Version = 1
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		expense.ID,
		expense.CompanyID,
		expense.SubmittedBy,
		expense.AmountOriginal,
		expense.CurrencyOriginal,
		expense.AmountBase,
		expense.BaseCurrency,
		expense.Category,
		expense.Description,
		expense.ExpenseDate,
		expense.ApprovalFlowName,
		expense.CurrentStepIndex,
		expense.Status.String(),
		expense.Version,
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}
	expense.MarkHistoryPersisted()
	return nil
}

// GetByID retrieves an expense with its full approval history, or (nil, nil)
// when it does not exist
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	exec := sqlite.ExecutorFrom(ctx, r.db)
	expense, err := scanExpense(exec.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := r.loadHistory(ctx, exec, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// Save writes the expense's workflow fields guarded by the version token and
// appends any pending history rows. A version mismatch means another writer
// got there first; nothing is changed and workflow.ErrConflict is returned.
func (r *ExpenseRepository) Save(ctx context.Context, expense *entity.Expense) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		UPDATE expenses
		SET status = ?, current_step_index = ?, approval_flow_name = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`
	result, err := exec.ExecContext(ctx, query,
		expense.Status.String(),
		expense.CurrentStepIndex,
		expense.ApprovalFlowName,
		expense.ID,
		expense.Version,
	)
	if err != nil {
		r.logger.Error("Failed to save expense", zap.String("id", expense.ID), zap.Error(err))
		return fmt.Errorf("failed to save expense: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return workflow.ErrConflict
	}

	for _, rec := range expense.PendingHistory() {
		insert := `
			INSERT INTO approval_history (
				expense_id, approver_id, decision, comments,
				role_at_approval, step_index, decided_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := exec.ExecContext(ctx, insert,
			expense.ID,
			rec.ApproverID,
			string(rec.Decision),
			rec.Comments,
			rec.RoleAtApproval,
			rec.StepIndex,
			rec.DecidedAt,
		); err != nil {
			r.logger.Error("Failed to append history", zap.String("expense_id", expense.ID), zap.Error(err))
			return fmt.Errorf("failed to append history: %w", err)
		}
	}

	expense.Version++
	expense.MarkHistoryPersisted()
	return nil
}

// ListByCompany lists a company's expenses newest first, optionally narrowed
// by status and submitter set
func (r *ExpenseRepository) ListByCompany(ctx context.Context, companyID string, filter port.ExpenseFilter) ([]*entity.Expense, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + expenseColumns + ` FROM expenses WHERE company_id = ?`)
	args := []interface{}{companyID}

	if filter.Status != "" {
		sb.WriteString(` AND status = ?`)
		args = append(args, filter.Status.String())
	}
	if len(filter.SubmittedBy) > 0 {
		sb.WriteString(` AND submitted_by IN (?` + strings.Repeat(", ?", len(filter.SubmittedBy)-1) + `)`)
		for _, id := range filter.SubmittedBy {
			args = append(args, id)
		}
	}
	sb.WriteString(` ORDER BY created_at DESC`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, filter.Limit, filter.Offset)
	}

	return r.queryExpenses(ctx, sb.String(), args...)
}

// ListPendingByCompany lists the company's pending expenses newest first
func (r *ExpenseRepository) ListPendingByCompany(ctx context.Context, companyID string, limit int) ([]*entity.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE company_id = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	return r.queryExpenses(ctx, query, companyID, workflow.StatusPending.String(), limit)
}

func (r *ExpenseRepository) queryExpenses(ctx context.Context, query string, args ...interface{}) ([]*entity.Expense, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, expense := range expenses {
		if err := r.loadHistory(ctx, exec, expense); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

// loadHistory hydrates the append-only history in decided order
func (r *ExpenseRepository) loadHistory(ctx context.Context, exec sqlite.Executor, expense *entity.Expense) error {
	query := `
		SELECT id, approver_id, decision, comments, role_at_approval, step_index, decided_at
		FROM approval_history
		WHERE expense_id = ?
		ORDER BY id ASC
	`
	rows, err := exec.QueryContext(ctx, query, expense.ID)
	if err != nil {
		r.logger.Error("Failed to load history", zap.String("expense_id", expense.ID), zap.Error(err))
		return fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec entity.DecisionRecord
		var decision string
		if err := rows.Scan(
			&rec.ID,
			&rec.ApproverID,
			&decision,
			&rec.Comments,
			&rec.RoleAtApproval,
			&rec.StepIndex,
			&rec.DecidedAt,
		); err != nil {
			return fmt.Errorf("failed to scan history: %w", err)
		}
		rec.Decision = workflow.Decision(decision)
		expense.AppendDecision(rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	expense.MarkHistoryPersisted()
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row rowScanner) (*entity.Expense, error) {
	var expense entity.Expense
	var status string
	err := row.Scan(
		&expense.ID,
		&expense.CompanyID,
		&expense.SubmittedBy,
		&expense.AmountOriginal,
		&expense.CurrencyOriginal,
		&expense.AmountBase,
		&expense.BaseCurrency,
		&expense.Category,
		&expense.Description,
		&expense.ExpenseDate,
		&expense.ApprovalFlowName,
		&expense.CurrentStepIndex,
		&status,
		&expense.Version,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	expense.Status = workflow.Status(status)
	return &expense, nil
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
