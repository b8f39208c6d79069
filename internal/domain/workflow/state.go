package workflow

// Status represents the workflow status of an expense
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPaid     Status = "paid"
)

var validStatuses = map[Status]bool{
	StatusPending:  true,
	StatusApproved: true,
	StatusRejected: true,
	StatusPaid:     true,
}

// normalTransitions maps the transitions permitted on the normal approval path.
// Admin override may force any status and does not consult this table.
var normalTransitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusPaid},
}

// IsValid returns true if the status is a known workflow status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if no normal-path transition leaves the status
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusPaid
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// CanTransition reports whether the normal approval path permits moving
// from one status to another
func CanTransition(from, to Status) bool {
	for _, next := range normalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Decision represents a single approver's verdict on an expense
type Decision string

const (
	DecisionApproved  Decision = "approved"
	DecisionRejected  Decision = "rejected"
	DecisionEscalated Decision = "escalated"
)

// IsValid returns true if the decision is a known decision value
func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected || d == DecisionEscalated
}

// Action describes the outcome of a decision submission
type Action string

const (
	// ActionPending means the decision was recorded but the current step
	// is not yet complete
	ActionPending Action = "pending"
	// ActionAdvanced means the current step completed and the expense
	// moved to the next step
	ActionAdvanced Action = "advanced"
	// ActionFinalized means the expense was approved, either because the
	// last step completed or a specific-approver rule short-circuited
	ActionFinalized Action = "finalized"
	// ActionRejected means the expense was rejected and closed
	ActionRejected Action = "rejected"
)
