package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/expenseflow/backend/internal/application/port"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

const reportSheet = "Expenses"

// defaultExportLimit caps a single export when no limit is configured
const defaultExportLimit = 1000

// ReportService renders a company's expense ledger with approval summaries
// as an xlsx workbook for accounting
type ReportService struct {
	expenses port.ExpenseRepository
	maxRows  int
	logger   Logger
}

// NewReportService creates a new ReportService. maxRows caps a single
// export; zero or negative means the default.
func NewReportService(expenses port.ExpenseRepository, maxRows int, logger Logger) *ReportService {
	if maxRows <= 0 {
		maxRows = defaultExportLimit
	}
	return &ReportService{expenses: expenses, maxRows: maxRows, logger: logger}
}

// ExportCompanyExpenses builds the workbook and returns its bytes. Status
// narrows the export when set.
func (s *ReportService) ExportCompanyExpenses(ctx context.Context, companyID string, status workflow.Status) ([]byte, error) {
	expenses, err := s.expenses.ListByCompany(ctx, companyID, port.ExpenseFilter{
		Status: status,
		Limit:  s.maxRows,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{
		"Expense ID", "Submitted By", "Category", "Description",
		"Amount", "Currency", "Amount (Base)", "Base Currency",
		"Expense Date", "Status", "Step", "Decisions", "Last Decision By",
	}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(reportSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, expense := range expenses {
		row := i + 2
		if err := s.writeRow(f, row, expense); err != nil {
			return nil, err
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	s.logger.Info("Expense report exported",
		"company_id", companyID, "rows", len(expenses))
	return buf.Bytes(), nil
}

func (s *ReportService) writeRow(f *excelize.File, row int, expense *entity.Expense) error {
	history := expense.History()
	lastBy := ""
	if len(history) > 0 {
		last := history[len(history)-1]
		lastBy = fmt.Sprintf("%s (%s)", last.ApproverID, last.Decision)
	}

	values := []interface{}{
		expense.ID,
		expense.SubmittedBy,
		expense.Category,
		expense.Description,
		expense.AmountOriginal,
		expense.CurrencyOriginal,
		expense.AmountBase,
		expense.BaseCurrency,
		expense.ExpenseDate.Format("2006-01-02"),
		expense.Status.String(),
		expense.CurrentStepIndex,
		len(history),
		lastBy,
	}
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(reportSheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
