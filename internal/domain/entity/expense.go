package entity

import (
	"time"

	"github.com/expenseflow/backend/internal/domain/workflow"
)

// DecisionRecord is one entry in an expense's approval history
type DecisionRecord struct {
	ID             int64             `json:"id"`
	ApproverID     string            `json:"approver_id"`
	Decision       workflow.Decision `json:"decision"`
	Comments       string            `json:"comments"`
	RoleAtApproval string            `json:"role_at_approval,omitempty"`
	StepIndex      int               `json:"step_index"`
	DecidedAt      time.Time         `json:"decided_at"`
}

// Expense is the workflow-bearing reimbursement entity. The approval history
// is append-only: entries can be added via AppendDecision but never removed
// or rewritten.
type Expense struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id"`
	SubmittedBy string `json:"submitted_by"`

	AmountOriginal   float64 `json:"amount_original"`
	CurrencyOriginal string  `json:"currency_original"`
	AmountBase       float64 `json:"amount_base"`
	BaseCurrency     string  `json:"base_currency"`

	Category    string    `json:"category"`
	Description string    `json:"description"`
	ExpenseDate time.Time `json:"expense_date"`

	ApprovalFlowName string          `json:"approval_flow_name,omitempty"`
	CurrentStepIndex int             `json:"current_step_index"`
	Status           workflow.Status `json:"status"`

	// Version is the optimistic-concurrency token checked on every save
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	history   []DecisionRecord
	persisted int
}

// AppendDecision adds a record to the approval history. The history offers no
// removal or in-place update; this is the only mutation path.
func (e *Expense) AppendDecision(rec DecisionRecord) {
	e.history = append(e.history, rec)
}

// History returns a copy of the approval history in append order
func (e *Expense) History() []DecisionRecord {
	out := make([]DecisionRecord, len(e.history))
	copy(out, e.history)
	return out
}

// PendingHistory returns the records appended since the expense was last
// persisted. Repositories insert exactly these rows on save.
func (e *Expense) PendingHistory() []DecisionRecord {
	out := make([]DecisionRecord, len(e.history)-e.persisted)
	copy(out, e.history[e.persisted:])
	return out
}

// MarkHistoryPersisted records that all current history entries are stored.
// Called by repositories after a successful save or load.
func (e *Expense) MarkHistoryPersisted() {
	e.persisted = len(e.history)
}

// StepApprovals returns the distinct approver ids with an approved decision
// at the given step index
func (e *Expense) StepApprovals(stepIndex int) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, rec := range e.history {
		if rec.StepIndex != stepIndex || rec.Decision != workflow.DecisionApproved {
			continue
		}
		if seen[rec.ApproverID] {
			continue
		}
		seen[rec.ApproverID] = true
		ids = append(ids, rec.ApproverID)
	}
	return ids
}

// HasApprovalBy reports whether any history entry, at any step, records an
// approved decision by the given user
func (e *Expense) HasApprovalBy(userID string) bool {
	for _, rec := range e.history {
		if rec.ApproverID == userID && rec.Decision == workflow.DecisionApproved {
			return true
		}
	}
	return false
}
