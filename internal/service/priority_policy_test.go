package service

import (
	"errors"
	"testing"

	"github.com/iliyamo/smart-parking/internal/model"
	"github.com/iliyamo/smart-parking/internal/repository"
)

func TestPriorityEligibility(t *testing.T) {
	slots := repository.NewSlotRegistry([]string{"medical", "dental", "mba"}, 50)
	p := newPolicy(t, slots)

	tests := []struct {
		staff, block, slot string
		ok                 bool
		reason             PolicyReason
	}{
		{"EMRG001", "medical", "1", true, ReasonPriorityGranted},
		{"emrg001", "dental", "5", true, ReasonPriorityGranted},
		{"NRS001", "medical", "8", true, ReasonPriorityGranted},
		{"STF001", "medical", "1", false, ReasonInsufficientPriority},
		{"STF001", "dental", "3", false, ReasonInsufficientPriority},
		{"STF001", "medical", "9", true, ReasonOpenToStaff},
		{"STF001", "mba", "1", true, ReasonOpenToStaff},
		{"NOPE999", "medical", "1", false, ReasonUnknownStaff},
		{"NOPE999", "mba", "20", false, ReasonUnknownStaff},
	}
	for _, tt := range tests {
		ok, reason := p.IsEligible(tt.staff, tt.block, tt.slot)
		if ok != tt.ok || reason != tt.reason {
			t.Errorf("IsEligible(%s, %s, %s) = %v %s, want %v %s", tt.staff, tt.block, tt.slot, ok, reason, tt.ok, tt.reason)
		}
	}
}

func TestListAvailablePrioritySlots(t *testing.T) {
	slots := repository.NewSlotRegistry([]string{"medical", "dental", "mba"}, 50)
	p := newPolicy(t, slots)

	if _, err := slots.Transition("medical", "2", model.SlotAvailable, model.SlotOccupied, repository.OccupantChange{Occupant: testPhone}); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	got := p.ListAvailablePrioritySlots("medical")
	want := []string{"1", "3", "4", "5", "6", "7", "8"}
	if len(got) != len(want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slots = %v, want %v", got, want)
		}
	}
	if len(p.ListAvailablePrioritySlots("mba")) != 0 {
		t.Fatal("mba has no priority range")
	}
	if b := p.PriorityBlocks(); len(b) != 2 || b[0] != "medical" || b[1] != "dental" {
		t.Fatalf("priority blocks = %v", b)
	}
}

func TestPolicyErrorMatchesSentinels(t *testing.T) {
	err := error(&PolicyError{Reason: ReasonUnknownStaff})
	if !errors.Is(err, ErrPolicyDenied) || !errors.Is(err, ErrUnknownStaff) {
		t.Fatalf("unknown staff error should match both sentinels: %v", err)
	}
	err = &PolicyError{Reason: ReasonInsufficientPriority}
	if !errors.Is(err, ErrPolicyDenied) || errors.Is(err, ErrUnknownStaff) {
		t.Fatalf("insufficient priority error matched wrong sentinel: %v", err)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"9876543210", "+919876543210", true},
		{"+91 98765 43210", "+919876543210", true},
		{"919876543210", "+919876543210", true},
		{"(987) 654-3210", "+919876543210", true},
		{"5876543210", "", false},
		{"12345", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("NormalizePhone(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
		if !tt.ok && !errors.Is(err, ErrValidation) {
			t.Errorf("NormalizePhone(%q) err = %v, want ErrValidation", tt.in, err)
		}
	}
	if m := MaskPhone("+919876543210"); m != "+91******3210" {
		t.Errorf("MaskPhone = %q", m)
	}
}
