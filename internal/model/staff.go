package model

// StaffIdentity is an entry of the static staff directory.  Priority 1 is
// the highest tier.
type StaffIdentity struct {
	ID            string `json:"staff_id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Department    string `json:"department" yaml:"department"`
	PriorityLevel int    `json:"priority_level" yaml:"priority"`
}
