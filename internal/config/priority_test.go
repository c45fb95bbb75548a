package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandSlotRanges(t *testing.T) {
	got, err := ExpandSlotRanges([]string{"1-3", "5", "2", " 7 - 8 "})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"1", "2", "3", "5", "7", "8"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	for _, bad := range []string{"5-1", "a-3", "0-2"} {
		if _, err := ExpandSlotRanges([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestLoadPriorityConfigDefault(t *testing.T) {
	pc, err := LoadPriorityConfig("")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if len(pc.Staff) != 22 || pc.MaxPriorityLevel != 3 {
		t.Fatalf("unexpected default directory: %d staff, max level %d", len(pc.Staff), pc.MaxPriorityLevel)
	}
	medical, _ := ExpandSlotRanges(pc.PrioritySlots["medical"])
	if len(medical) != 8 {
		t.Fatalf("medical priority range = %v", medical)
	}
}

func TestLoadPriorityConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "priority.yaml")
	doc := `
staff:
  - {id: ER1, name: Night Shift, department: Emergency, priority: 1}
  - {id: ADM1, name: Clerk, department: Admin, priority: 4}
priority_slots:
  techpark: ["1-2"]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	pc, err := LoadPriorityConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pc.MaxPriorityLevel != 3 || len(pc.Staff) != 2 || pc.Staff[1].PriorityLevel != 4 {
		t.Fatalf("unexpected config: %+v", pc)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("staff:\n  - {id: X, priority: 9}\n"), 0o644)
	if _, err := LoadPriorityConfig(bad); err == nil {
		t.Fatalf("expected priority range error")
	}
}
