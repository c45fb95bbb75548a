package service

import (
	"strings"

	"github.com/iliyamo/smart-parking/internal/model"
)

// IdentityDirectory is the static staff allow-list.  It is read-only after
// construction.
type IdentityDirectory struct {
	staff map[string]model.StaffIdentity
}

func NewIdentityDirectory(staff []model.StaffIdentity) *IdentityDirectory {
	d := &IdentityDirectory{staff: make(map[string]model.StaffIdentity, len(staff))}
	for _, s := range staff {
		s.ID = NormalizeStaffID(s.ID)
		d.staff[s.ID] = s
	}
	return d
}

// NormalizeStaffID trims and upper-cases a staff id.
func NormalizeStaffID(id string) string { return strings.ToUpper(strings.TrimSpace(id)) }

// Lookup returns the identity for staffID.
func (d *IdentityDirectory) Lookup(staffID string) (model.StaffIdentity, bool) {
	s, ok := d.staff[NormalizeStaffID(staffID)]
	return s, ok
}

func (d *IdentityDirectory) Len() int { return len(d.staff) }
