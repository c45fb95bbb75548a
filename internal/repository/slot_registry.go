package repository

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/iliyamo/smart-parking/internal/model"
)

// slotCell guards one slot.  Each slot is its own mutual-exclusion domain,
// so transitions on different slots never contend.
type slotCell struct {
	mu   sync.RWMutex
	slot model.Slot
}

// SlotRegistry is the authoritative map of block/slot to occupancy state.
// The set of blocks and slots is fixed at construction, so the maps
// themselves are read without locking; only cells are locked.
type SlotRegistry struct {
	cells  map[string]map[string]*slotCell
	order  map[string][]string
	blocks []string
}

// OccupantChange describes the occupant side of a transition.
//
// Fields:
//  ExpectOccupant – when non-empty the current occupant must match, or the
//                   transition fails with ErrConflict.
//  Occupant, ReleaseRef, StaffID, Priority, Trust – applied when the target
//                   status is OCCUPIED; cleared when it is AVAILABLE.
//  At             – commit time recorded as BookedAt.
type OccupantChange struct {
	ExpectOccupant string
	Occupant       string
	ReleaseRef     string
	StaffID        string
	Priority       bool
	Trust          *model.TrustMetadata
	At             time.Time
}

// NewSlotRegistry builds a registry with slotsPerBlock slots numbered
// "1".."n" in every named block, all AVAILABLE.
func NewSlotRegistry(blocks []string, slotsPerBlock int) *SlotRegistry {
	r := &SlotRegistry{
		cells: make(map[string]map[string]*slotCell, len(blocks)),
		order: make(map[string][]string, len(blocks)),
	}
	for _, b := range blocks {
		if _, dup := r.cells[b]; dup || b == "" {
			continue
		}
		r.blocks = append(r.blocks, b)
		m := make(map[string]*slotCell, slotsPerBlock)
		ids := make([]string, 0, slotsPerBlock)
		for i := 1; i <= slotsPerBlock; i++ {
			id := strconv.Itoa(i)
			m[id] = &slotCell{slot: availableSlot(b, id)}
			ids = append(ids, id)
		}
		r.cells[b] = m
		r.order[b] = ids
	}
	return r
}

func availableSlot(block, number string) model.Slot {
	return model.Slot{Block: block, Number: number, Status: model.SlotAvailable}
}

func (r *SlotRegistry) cell(block, slot string) (*slotCell, error) {
	b, ok := r.cells[block]
	if !ok {
		return nil, fmt.Errorf("%w: block %q", ErrSlotNotFound, block)
	}
	c, ok := b[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrSlotNotFound, block, slot)
	}
	return c, nil
}

// Transition atomically moves (block, slot) from one status to another.
// Only the caller that observes `from` (and ExpectOccupant, when set)
// applies the change; every other caller gets ErrConflict.  The mutation
// is built in full before it is stored, so a transition either applies
// completely or not at all.
func (r *SlotRegistry) Transition(block, slot string, from, to model.SlotStatus, change OccupantChange) (model.Slot, error) {
	c, err := r.cell(block, slot)
	if err != nil {
		return model.Slot{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot.Status != from {
		return c.slot, fmt.Errorf("%w: %s/%s is %s, expected %s", ErrConflict, block, slot, c.slot.Status, from)
	}
	if change.ExpectOccupant != "" && c.slot.Occupant != change.ExpectOccupant {
		return c.slot, fmt.Errorf("%w: %s/%s occupant changed", ErrConflict, block, slot)
	}

	next := availableSlot(block, slot)
	if to == model.SlotOccupied {
		at := change.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		next = model.Slot{
			Block:           block,
			Number:          slot,
			Status:          model.SlotOccupied,
			Occupant:        change.Occupant,
			ReleaseRef:      change.ReleaseRef,
			StaffID:         change.StaffID,
			PriorityBooking: change.Priority,
			Trust:           change.Trust,
			BookedAt:        &at,
		}
	}
	c.slot = next
	return next, nil
}

// Query returns the committed state of one slot.
func (r *SlotRegistry) Query(block, slot string) (model.Slot, error) {
	c, err := r.cell(block, slot)
	if err != nil {
		return model.Slot{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slot, nil
}

// QueryBlock returns every slot of a block keyed by slot number.
func (r *SlotRegistry) QueryBlock(block string) (map[string]model.Slot, error) {
	b, ok := r.cells[block]
	if !ok {
		return nil, fmt.Errorf("%w: block %q", ErrSlotNotFound, block)
	}
	out := make(map[string]model.Slot, len(b))
	for id, c := range b {
		c.mu.RLock()
		out[id] = c.slot
		c.mu.RUnlock()
	}
	return out, nil
}

// SlotIDs returns the slot numbers of a block in ascending numeric order.
func (r *SlotRegistry) SlotIDs(block string) ([]string, error) {
	ids, ok := r.order[block]
	if !ok {
		return nil, fmt.Errorf("%w: block %q", ErrSlotNotFound, block)
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// Blocks returns block names in configuration order.
func (r *SlotRegistry) Blocks() []string {
	out := make([]string, len(r.blocks))
	copy(out, r.blocks)
	return out
}

// HasBlock reports whether the registry knows the block.
func (r *SlotRegistry) HasBlock(block string) bool {
	_, ok := r.cells[block]
	return ok
}

// Reset restores slots to AVAILABLE with cleared occupant and trust data.
// An empty block resets everything; an empty slot resets the whole block.
// It returns the number of slots that were occupied before the reset.
func (r *SlotRegistry) Reset(block, slot string) (int, error) {
	var targets []*slotCell
	switch {
	case block == "":
		for _, b := range r.blocks {
			for _, c := range r.cells[b] {
				targets = append(targets, c)
			}
		}
	case slot == "":
		b, ok := r.cells[block]
		if !ok {
			return 0, fmt.Errorf("%w: block %q", ErrSlotNotFound, block)
		}
		for _, c := range b {
			targets = append(targets, c)
		}
	default:
		c, err := r.cell(block, slot)
		if err != nil {
			return 0, err
		}
		targets = append(targets, c)
	}

	freed := 0
	for _, c := range targets {
		c.mu.Lock()
		if c.slot.Occupied() {
			freed++
		}
		c.slot = availableSlot(c.slot.Block, c.slot.Number)
		c.mu.Unlock()
	}
	return freed, nil
}

// SortSlotIDs orders slot numbers numerically, falling back to lexical
// order for non-numeric ids.
func SortSlotIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool { return lessSlotID(ids[i], ids[j]) })
}

func lessSlotID(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}
