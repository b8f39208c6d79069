package service

import (
	"context"
	"fmt"

	"github.com/expenseflow/backend/internal/application/port"
	"github.com/expenseflow/backend/internal/domain/entity"
)

// ApproverResolver computes the concrete set of users empowered to act at a
// flow step. Unresolvable input (a submitter with no manager link, an unknown
// role) yields an empty set rather than an error; only roster I/O failures
// propagate.
type ApproverResolver struct {
	users  port.UserRepository
	logger Logger
}

// NewApproverResolver creates a new ApproverResolver
func NewApproverResolver(users port.UserRepository, logger Logger) *ApproverResolver {
	return &ApproverResolver{users: users, logger: logger}
}

// ResolveStepApprovers returns the deduplicated user ids empowered to decide
// at the given step for the given expense
func (r *ApproverResolver) ResolveStepApprovers(ctx context.Context, step entity.Step, expense *entity.Expense) ([]string, error) {
	switch target := step.Target.(type) {
	case entity.ManagerTarget:
		submitter, err := r.users.GetByID(ctx, expense.SubmittedBy)
		if err != nil {
			return nil, fmt.Errorf("load submitter: %w", err)
		}
		if submitter == nil || submitter.ManagerID == "" {
			return nil, nil
		}
		return []string{submitter.ManagerID}, nil

	case entity.UserTarget:
		if target.UserID == "" {
			return nil, nil
		}
		return []string{target.UserID}, nil

	case entity.GroupTarget:
		return dedupe(target.UserIDs), nil

	case entity.RoleTarget:
		role := entity.Role(target.Role)
		users, err := r.users.FindByRole(ctx, expense.CompanyID, role)
		if err != nil {
			return nil, fmt.Errorf("find users by role %q: %w", target.Role, err)
		}
		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		return dedupe(ids), nil

	default:
		return nil, nil
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
