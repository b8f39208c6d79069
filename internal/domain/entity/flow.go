package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StepTarget identifies who is empowered to act at a flow step. The four
// concrete cases carry only the data their resolution needs, so an invalid
// combination (for example a role step holding a user-id list) cannot be
// represented.
type StepTarget interface {
	stepTarget()
	Type() StepType
}

// StepType discriminates the serialized form of a StepTarget
type StepType string

const (
	StepTypeManager StepType = "manager"
	StepTypeUser    StepType = "user"
	StepTypeGroup   StepType = "group"
	StepTypeRole    StepType = "role"
)

// ManagerTarget resolves to the submitter's manager link
type ManagerTarget struct{}

// UserTarget resolves to a single named user
type UserTarget struct {
	UserID string
}

// GroupTarget resolves to an explicit list of users
type GroupTarget struct {
	UserIDs []string
}

// RoleTarget resolves to every company user holding the role
type RoleTarget struct {
	Role string
}

func (ManagerTarget) stepTarget() {}
func (UserTarget) stepTarget()    {}
func (GroupTarget) stepTarget()   {}
func (RoleTarget) stepTarget()    {}

func (ManagerTarget) Type() StepType { return StepTypeManager }
func (UserTarget) Type() StepType    { return StepTypeUser }
func (GroupTarget) Type() StepType   { return StepTypeGroup }
func (RoleTarget) Type() StepType    { return StepTypeRole }

// Step is one stage of an approval flow
type Step struct {
	Target     StepTarget
	RequireAll bool
	// MinAmount is a threshold below which the host policy may skip the
	// step. The engine stores it but does not evaluate it.
	MinAmount float64
}

// stepJSON is the stored wire form of a Step
type stepJSON struct {
	Type       StepType        `json:"type"`
	Value      json.RawMessage `json:"value,omitempty"`
	RequireAll bool            `json:"require_all"`
	MinAmount  float64         `json:"min_amount,omitempty"`
}

// MarshalJSON encodes the step with a type discriminator and a type-shaped value
func (s Step) MarshalJSON() ([]byte, error) {
	out := stepJSON{RequireAll: s.RequireAll, MinAmount: s.MinAmount}
	if s.Target == nil {
		return nil, errors.New("step has no target")
	}
	out.Type = s.Target.Type()

	var err error
	switch t := s.Target.(type) {
	case ManagerTarget:
	case UserTarget:
		out.Value, err = json.Marshal(t.UserID)
	case GroupTarget:
		out.Value, err = json.Marshal(t.UserIDs)
	case RoleTarget:
		out.Value, err = json.Marshal(t.Role)
	default:
		err = fmt.Errorf("unknown step target %T", s.Target)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the discriminated step form
func (s *Step) UnmarshalJSON(data []byte) error {
	var in stepJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.RequireAll = in.RequireAll
	s.MinAmount = in.MinAmount

	switch in.Type {
	case StepTypeManager:
		s.Target = ManagerTarget{}
	case StepTypeUser:
		var id string
		if err := json.Unmarshal(in.Value, &id); err != nil {
			return fmt.Errorf("user step value: %w", err)
		}
		s.Target = UserTarget{UserID: id}
	case StepTypeGroup:
		var ids []string
		if err := json.Unmarshal(in.Value, &ids); err != nil {
			return fmt.Errorf("group step value: %w", err)
		}
		s.Target = GroupTarget{UserIDs: ids}
	case StepTypeRole:
		var role string
		if err := json.Unmarshal(in.Value, &role); err != nil {
			return fmt.Errorf("role step value: %w", err)
		}
		s.Target = RoleTarget{Role: role}
	default:
		return fmt.Errorf("unknown step type %q", in.Type)
	}
	return nil
}

// Validate enforces write-time invariants on step shape
func (s Step) Validate() error {
	switch t := s.Target.(type) {
	case nil:
		return errors.New("step target is required")
	case ManagerTarget:
		return nil
	case UserTarget:
		if t.UserID == "" {
			return errors.New("user step requires a user id")
		}
	case GroupTarget:
		if len(t.UserIDs) == 0 {
			return errors.New("group step requires a non-empty user id list")
		}
		for _, id := range t.UserIDs {
			if id == "" {
				return errors.New("group step contains an empty user id")
			}
		}
	case RoleTarget:
		if t.Role == "" {
			return errors.New("role step requires a non-empty role")
		}
	default:
		return fmt.Errorf("unknown step target %T", s.Target)
	}
	return nil
}

// RuleType classifies a conditional auto-completion rule
type RuleType string

const (
	RuleTypeNone       RuleType = "none"
	RuleTypePercentage RuleType = "percentage"
	RuleTypeSpecific   RuleType = "specific"
	RuleTypeHybrid     RuleType = "hybrid"
)

// Rule is a conditional auto-completion policy layered on a flow
type Rule struct {
	ID                  string   `json:"id,omitempty"`
	Name                string   `json:"name,omitempty"`
	Type                RuleType `json:"type"`
	PercentageThreshold int      `json:"percentage_threshold,omitempty"`
	SpecificApprover    string   `json:"specific_approver,omitempty"`
	Description         string   `json:"description,omitempty"`
	Enabled             bool     `json:"enabled"`
}

// Validate enforces write-time invariants on rule shape
func (r Rule) Validate() error {
	switch r.Type {
	case RuleTypeNone:
		return nil
	case RuleTypePercentage:
		if r.PercentageThreshold < 1 || r.PercentageThreshold > 100 {
			return errors.New("percentage rule requires a threshold between 1 and 100")
		}
	case RuleTypeSpecific:
		if r.SpecificApprover == "" {
			return errors.New("specific rule requires an approver id")
		}
	case RuleTypeHybrid:
		if r.PercentageThreshold < 1 || r.PercentageThreshold > 100 {
			return errors.New("hybrid rule requires a threshold between 1 and 100")
		}
		if r.SpecificApprover == "" {
			return errors.New("hybrid rule requires an approver id")
		}
	default:
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
	return nil
}

// ApprovalFlow is an ordered list of steps plus an optional rule, configured
// per company. The rule may be inline or a reference into the company's rule
// collection; the flow registry normalizes the two forms at resolution time.
type ApprovalFlow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Steps       []Step `json:"steps"`
	Rule        *Rule  `json:"rule,omitempty"`
	RuleID      string `json:"rule_id,omitempty"`
	IsDefault   bool   `json:"is_default"`
	Active      bool   `json:"active"`
}

// Validate enforces write-time invariants on the flow definition
func (f ApprovalFlow) Validate() error {
	if f.Name == "" {
		return errors.New("flow name is required")
	}
	if len(f.Steps) == 0 {
		return errors.New("flow requires at least one step")
	}
	for i, step := range f.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	if f.Rule != nil {
		if err := f.Rule.Validate(); err != nil {
			return fmt.Errorf("rule: %w", err)
		}
	}
	return nil
}
