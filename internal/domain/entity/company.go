package entity

import "time"

// Company owns its approval flows and rules. Flow and rule collections are
// versioned by full replacement; editing a flow does not retroactively adjust
// in-flight expenses referencing it by name.
type Company struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Country      string    `json:"country,omitempty"`
	BaseCurrency string    `json:"base_currency"`
	CreatedAt    time.Time `json:"created_at"`
}
