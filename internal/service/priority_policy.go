package service

import (
	"github.com/iliyamo/smart-parking/internal/model"
	"github.com/iliyamo/smart-parking/internal/repository"
)

// PolicyReason explains an eligibility decision.
type PolicyReason string

const (
	ReasonUnknownStaff         PolicyReason = "UnknownStaff"
	ReasonPriorityGranted      PolicyReason = "PriorityGranted"
	ReasonInsufficientPriority PolicyReason = "InsufficientPriority"
	ReasonOpenToStaff          PolicyReason = "OpenToStaff"
)

// PriorityPolicy decides which staff may take which slots.  Each block may
// reserve a range of slot numbers for staff whose priority level is at or
// above maxLevel (numerically at or below it); every other slot is open to
// any recognized staff member.
type PriorityPolicy struct {
	directory *IdentityDirectory
	slots     *repository.SlotRegistry
	ranges    map[string]map[string]bool
	ordered   map[string][]string
	maxLevel  int
}

// NewPriorityPolicy builds the policy from already expanded slot ranges.
func NewPriorityPolicy(directory *IdentityDirectory, slots *repository.SlotRegistry, ranges map[string][]string, maxLevel int) *PriorityPolicy {
	p := &PriorityPolicy{
		directory: directory,
		slots:     slots,
		ranges:    make(map[string]map[string]bool, len(ranges)),
		ordered:   make(map[string][]string, len(ranges)),
		maxLevel:  maxLevel,
	}
	for block, ids := range ranges {
		set := make(map[string]bool, len(ids))
		ordered := make([]string, 0, len(ids))
		for _, id := range ids {
			if !set[id] {
				set[id] = true
				ordered = append(ordered, id)
			}
		}
		repository.SortSlotIDs(ordered)
		p.ranges[block] = set
		p.ordered[block] = ordered
	}
	return p
}

// InPriorityRange reports whether (block, slot) is reserved for priority staff.
func (p *PriorityPolicy) InPriorityRange(block, slot string) bool {
	return p.ranges[block][slot]
}

// IsEligible decides whether staffID may take (block, slot).
func (p *PriorityPolicy) IsEligible(staffID, block, slot string) (bool, PolicyReason) {
	staff, ok := p.directory.Lookup(staffID)
	if !ok {
		return false, ReasonUnknownStaff
	}
	if !p.InPriorityRange(block, slot) {
		return true, ReasonOpenToStaff
	}
	if staff.PriorityLevel <= p.maxLevel {
		return true, ReasonPriorityGranted
	}
	return false, ReasonInsufficientPriority
}

// ListAvailablePrioritySlots returns the AVAILABLE slots of block's
// priority range in numeric order.
func (p *PriorityPolicy) ListAvailablePrioritySlots(block string) []string {
	out := []string{}
	for _, id := range p.ordered[block] {
		s, err := p.slots.Query(block, id)
		if err == nil && s.Status == model.SlotAvailable {
			out = append(out, id)
		}
	}
	return out
}

// PriorityBlocks returns the blocks that reserve a priority range, in the
// registry's block order.
func (p *PriorityPolicy) PriorityBlocks() []string {
	var out []string
	for _, b := range p.slots.Blocks() {
		if len(p.ordered[b]) > 0 {
			out = append(out, b)
		}
	}
	return out
}
