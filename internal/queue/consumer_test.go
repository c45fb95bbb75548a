package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSlotEventLoggerAppends(t *testing.T) {
	dir := t.TempDir()
	h := SlotEventLogger(dir)

	events := []SlotEvent{
		{Action: ActionBooked, Block: "medical", Slot: "3", Occupant: "+919876543210", OccurredAt: "2025-01-01T10:00:00Z"},
		{Action: ActionReleased, Block: "medical", Slot: "3", Occupant: "+919876543210", OccurredAt: "2025-01-01T11:00:00Z"},
		{Action: ActionReset, Freed: 4, OccurredAt: "2025-01-01T12:00:00Z"},
	}
	for _, ev := range events {
		body, _ := json.Marshal(ev)
		if err := h(body); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	b, err := os.ReadFile(filepath.Join(dir, "parking.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), b)
	}
	if !strings.Contains(lines[0], "Slot booked | block=medical | slot=3") {
		t.Errorf("unexpected booked line: %s", lines[0])
	}
	if !strings.Contains(lines[1], "Slot released") {
		t.Errorf("unexpected released line: %s", lines[1])
	}
	if !strings.Contains(lines[2], "target=* | freed=4") {
		t.Errorf("unexpected reset line: %s", lines[2])
	}
}

func TestSlotEventLoggerRejectsGarbage(t *testing.T) {
	h := SlotEventLogger(t.TempDir())
	if err := h([]byte("{not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if err := h([]byte(`{"action":"BOOKED"}`)); err == nil {
		t.Fatal("expected error for event without block")
	}
}

type recordingSender struct {
	to, msg string
	err     error
}

func (r *recordingSender) Send(_ context.Context, to, message string) error {
	r.to, r.msg = to, message
	return r.err
}

func TestNotificationDeliverer(t *testing.T) {
	s := &recordingSender{}
	h := NotificationDeliverer(s)
	body, _ := json.Marshal(Notification{To: "+919876543210", Message: "OTP 123456"})
	if err := h(body); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if s.to != "+919876543210" || s.msg != "OTP 123456" {
		t.Fatalf("sender got %q %q", s.to, s.msg)
	}

	s.err = errors.New("gateway down")
	if err := h(body); err == nil {
		t.Fatal("expected sender error to propagate")
	}
	if err := h([]byte(`{"message":"x"}`)); err == nil {
		t.Fatal("expected error for missing recipient")
	}
}
