package workflow

import "errors"

var (
	// ErrExpenseNotFound is returned when the referenced expense does not exist
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrAlreadyProcessed is returned when a decision targets a non-pending expense
	ErrAlreadyProcessed = errors.New("expense already processed")

	// ErrUnauthorizedApprover is returned when the caller is not among the
	// resolved approvers for the expense's current step
	ErrUnauthorizedApprover = errors.New("user is not a current approver")

	// ErrConflict is returned when a concurrent write to the same expense is
	// detected during persistence
	ErrConflict = errors.New("concurrent modification detected")

	// ErrNoFlowConfigured is returned when no approval flow governs the
	// expense; callers should direct the user to an admin override
	ErrNoFlowConfigured = errors.New("no approval flow configured")

	// ErrInvalidDecision is returned when the submitted decision is not a
	// known decision value
	ErrInvalidDecision = errors.New("invalid decision")

	// ErrInvalidStatus is returned when a status value is not a known
	// workflow status
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidAction is returned when an override action is not one of
	// approve, reject, setStatus
	ErrInvalidAction = errors.New("invalid override action")

	// ErrCompanyNotFound is returned when the expense's company does not exist
	ErrCompanyNotFound = errors.New("company not found")

	// ErrFlowNotFound is returned when a referenced flow definition does not exist
	ErrFlowNotFound = errors.New("approval flow not found")

	// ErrRuleNotFound is returned when a referenced rule definition does not exist
	ErrRuleNotFound = errors.New("approval rule not found")

	// ErrDuplicateName is returned when a flow or rule name is already taken
	// within the company
	ErrDuplicateName = errors.New("name already exists")
)
