package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/smart-parking/internal/model"
)

// PriorityConfig is the static staff allow-list and the per-block
// priority reservation ranges.  It can be supplied as a YAML file:
//
//	max_priority_level: 3
//	staff:
//	  - {id: EMRG001, name: Dr. Emergency Chief, department: Emergency, priority: 1}
//	priority_slots:
//	  medical: ["1-8"]
//	  dental: ["1-5"]
type PriorityConfig struct {
	MaxPriorityLevel int                   `yaml:"max_priority_level"`
	Staff            []model.StaffIdentity `yaml:"staff"`
	PrioritySlots    map[string][]string   `yaml:"priority_slots"`
}

// DefaultPriorityConfig returns the hospital directory of the reference
// deployment: levels 1 (emergency) to 4 (support staff), medical slots 1-8
// and dental slots 1-5 reserved for levels 1-3.
func DefaultPriorityConfig() PriorityConfig {
	return PriorityConfig{
		MaxPriorityLevel: 3,
		Staff: []model.StaffIdentity{
			{ID: "EMRG001", Name: "Dr. Emergency Chief", Department: "Emergency", PriorityLevel: 1},
			{ID: "EMRG002", Name: "Emergency Nurse", Department: "Emergency", PriorityLevel: 1},
			{ID: "EMRG003", Name: "Emergency Technician", Department: "Emergency", PriorityLevel: 1},
			{ID: "DOC001", Name: "Dr. Cardiology", Department: "Cardiology", PriorityLevel: 2},
			{ID: "DOC002", Name: "Dr. Surgery", Department: "Surgery", PriorityLevel: 2},
			{ID: "DOC003", Name: "Dr. Pediatrics", Department: "Pediatrics", PriorityLevel: 2},
			{ID: "DOC004", Name: "Dr. Neurology", Department: "Neurology", PriorityLevel: 2},
			{ID: "DOC005", Name: "Dr. Orthopedics", Department: "Orthopedics", PriorityLevel: 2},
			{ID: "NRS001", Name: "ICU Nurse", Department: "ICU", PriorityLevel: 3},
			{ID: "NRS002", Name: "General Nurse", Department: "General", PriorityLevel: 3},
			{ID: "NRS003", Name: "Pediatric Nurse", Department: "Pediatrics", PriorityLevel: 3},
			{ID: "NRS004", Name: "Surgery Nurse", Department: "Surgery", PriorityLevel: 3},
			{ID: "MED001", Name: "Prof. Medicine", Department: "Medical College", PriorityLevel: 3},
			{ID: "MED002", Name: "Prof. Anatomy", Department: "Medical College", PriorityLevel: 3},
			{ID: "MED003", Name: "Prof. Physiology", Department: "Medical College", PriorityLevel: 3},
			{ID: "DEN001", Name: "Dr. Dental Surgery", Department: "Dental College", PriorityLevel: 3},
			{ID: "DEN002", Name: "Dr. Orthodontics", Department: "Dental College", PriorityLevel: 3},
			{ID: "DEN003", Name: "Dr. Periodontics", Department: "Dental College", PriorityLevel: 3},
			{ID: "STF001", Name: "Lab Technician", Department: "Laboratory", PriorityLevel: 4},
			{ID: "STF002", Name: "Administrator", Department: "Admin", PriorityLevel: 4},
			{ID: "STF003", Name: "Radiology Tech", Department: "Radiology", PriorityLevel: 4},
			{ID: "STF004", Name: "Pharmacist", Department: "Pharmacy", PriorityLevel: 4},
		},
		PrioritySlots: map[string][]string{
			"medical": {"1-8"},
			"dental":  {"1-5"},
		},
	}
}

// LoadPriorityConfig reads path, or returns the default directory when
// path is empty.
func LoadPriorityConfig(path string) (PriorityConfig, error) {
	if path == "" {
		return DefaultPriorityConfig(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return PriorityConfig{}, fmt.Errorf("read priority file: %w", err)
	}
	var pc PriorityConfig
	if err := yaml.Unmarshal(b, &pc); err != nil {
		return PriorityConfig{}, fmt.Errorf("decode priority file: %w", err)
	}
	if pc.MaxPriorityLevel == 0 {
		pc.MaxPriorityLevel = 3
	}
	for i, s := range pc.Staff {
		if s.ID == "" {
			return PriorityConfig{}, fmt.Errorf("staff entry %d: missing id", i)
		}
		if s.PriorityLevel < 1 || s.PriorityLevel > 4 {
			return PriorityConfig{}, fmt.Errorf("staff %s: priority %d outside 1..4", s.ID, s.PriorityLevel)
		}
	}
	for block, entries := range pc.PrioritySlots {
		if _, err := ExpandSlotRanges(entries); err != nil {
			return PriorityConfig{}, fmt.Errorf("priority_slots.%s: %w", block, err)
		}
	}
	return pc, nil
}

// ExpandSlotRanges turns entries such as "1-8" or "12" into individual
// slot ids, preserving order and dropping duplicates.
func ExpandSlotRanges(entries []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		lo, hi, isRange := strings.Cut(e, "-")
		if !isRange {
			if e == "" {
				continue
			}
			add(e)
			continue
		}
		a, errA := strconv.Atoi(strings.TrimSpace(lo))
		b, errB := strconv.Atoi(strings.TrimSpace(hi))
		if errA != nil || errB != nil || a < 1 || b < a {
			return nil, fmt.Errorf("invalid slot range %q", e)
		}
		for i := a; i <= b; i++ {
			add(strconv.Itoa(i))
		}
	}
	return out, nil
}
