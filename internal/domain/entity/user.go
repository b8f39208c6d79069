package entity

import "time"

// Role classifies a company user
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// IsValid returns true if the role is a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleEmployee
}

// User is a company roster entry. The roster is maintained by an external
// collaborator; the engine reads it to resolve approvers.
type User struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	// ManagerID links to another user in the same company; empty if unset
	ManagerID         string    `json:"manager_id,omitempty"`
	IsManagerApprover bool      `json:"is_manager_approver"`
	CreatedAt         time.Time `json:"created_at"`
}
