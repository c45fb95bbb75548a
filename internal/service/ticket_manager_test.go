package service

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/smart-parking/internal/model"
)

const testPhone = "+919876543210"

func bookKey(phone, block, slot string) model.TicketKey {
	return model.TicketKey{Identity: phone, Purpose: model.PurposeBook, Block: block, Slot: slot}
}

func wrongCode(code string) string {
	if code == "100000" {
		return "100001"
	}
	return "100000"
}

func TestBookingTicketLifecycle(t *testing.T) {
	f := newFixture(t, TicketManagerOptions{})
	tk, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "medical", Slot: "3", Phone: testPhone})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(tk.Code) != 6 || tk.Code < "100000" || tk.Code > "999999" {
		t.Fatalf("code %q not a 6 digit code", tk.Code)
	}
	if !tk.ExpiresAt.Equal(tk.IssuedAt.Add(DefaultTicketTTL)) {
		t.Fatalf("expires at %v, want issued + 5m", tk.ExpiresAt)
	}

	key := bookKey(testPhone, "medical", "3")
	if _, err := f.tickets.Verify(VerifyRequest{Key: key, Code: wrongCode(tk.Code)}); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("wrong code: got %v, want ErrInvalidCode", err)
	}
	if s, _ := f.slots.Query("medical", "3"); s.Status != model.SlotAvailable {
		t.Fatalf("slot %s after wrong code, want AVAILABLE", s.Status)
	}

	res, err := f.tickets.Verify(VerifyRequest{Key: key, Code: tk.Code})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Outcome != OutcomeCommitted || res.Slot.Occupant != testPhone || res.Slot.Status != model.SlotOccupied {
		t.Fatalf("result = %+v", res)
	}
	if res.ReleaseURL != "http://parking.test/release/medical/3" {
		t.Fatalf("release url = %q", res.ReleaseURL)
	}

	if _, err := f.tickets.Verify(VerifyRequest{Key: key, Code: tk.Code}); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("second verify: got %v, want ErrTicketNotFound", err)
	}
}

func TestVerifyAfterExpiry(t *testing.T) {
	f := newFixture(t, TicketManagerOptions{})
	tk, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "mba", Slot: "7", Phone: testPhone})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	f.clock.Advance(DefaultTicketTTL + time.Second)

	key := bookKey(testPhone, "mba", "7")
	if _, err := f.tickets.Verify(VerifyRequest{Key: key, Code: tk.Code}); !errors.Is(err, ErrTicketExpired) {
		t.Fatalf("got %v, want ErrTicketExpired", err)
	}
	if s, _ := f.slots.Query("mba", "7"); s.Occupied() {
		t.Fatal("expired ticket occupied the slot")
	}
	if f.tickets.Len() != 0 {
		t.Fatalf("expired ticket kept, len = %d", f.tickets.Len())
	}
}

func TestConcurrentVerifiesSingleWinner(t *testing.T) {
	f := newFixture(t, TicketManagerOptions{})
	tk, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "java", Slot: "12", Phone: testPhone})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	key := bookKey(testPhone, "java", "12")

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.tickets.Verify(VerifyRequest{Key: key, Code: tk.Code})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict), errors.Is(err, ErrStaleState), errors.Is(err, ErrTicketNotFound):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
	if s, _ := f.slots.Query("java", "12"); s.Occupant != testPhone {
		t.Fatalf("occupant = %q", s.Occupant)
	}
}

func TestConcurrentRequestersSameSlot(t *testing.T) {
	f := newFixture(t, TicketManagerOptions{})
	phones := []string{"+919800000001", "+919800000002", "+919800000003", "+919800000004", "+919800000005", "+919800000006"}
	codes := make([]string, len(phones))
	for i, p := range phones {
		tk, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "fablab", Slot: "1", Phone: p})
		if err != nil {
			t.Fatalf("issue %s: %v", p, err)
		}
		codes[i] = tk.Code
	}

	var wg sync.WaitGroup
	errs := make([]error, len(phones))
	for i, p := range phones {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			_, errs[i] = f.tickets.Verify(VerifyRequest{Key: bookKey(p, "fablab", "1"), Code: codes[i]})
		}(i, p)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict), errors.Is(err, ErrStaleState):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
	if f.tickets.Len() != 0 {
		t.Fatalf("losing tickets kept, len = %d", f.tickets.Len())
	}
}

func TestTicketsKeyedByTarget(t *testing.T) {
	f := newFixture(t, TicketManagerOptions{})
	a, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "techpark", Slot: "1", Phone: testPhone})
	if err != nil {
		t.Fatalf("issue a: %v", err)
	}
	if _, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "techpark", Slot: "2", Phone: testPhone}); err != nil {
		t.Fatalf("issue b: %v", err)
	}
	if f.tickets.Len() != 2 {
		t.Fatalf("len = %d, want 2 independent tickets", f.tickets.Len())
	}
	if _, err := f.tickets.Verify(VerifyRequest{Key: bookKey(testPhone, "techpark", "1"), Code: a.Code}); err != nil {
		t.Fatalf("first ticket lost: %v", err)
	}
}

func TestReissueReplacesTicket(t *testing.T) {
	f := newFixture(t, TicketManagerOptions{})
	req := IssueRequest{Purpose: model.PurposeBook, Block: "techpark", Slot: "9", Phone: testPhone}
	old, err := f.tickets.Issue(req)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	cur, err := f.tickets.Issue(req)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if f.tickets.Len() != 1 {
		t.Fatalf("len = %d, want 1", f.tickets.Len())
	}
	key := bookKey(testPhone, "techpark", "9")
	if old.Code != cur.Code {
		if _, err := f.tickets.Verify(VerifyRequest{Key: key, Code: old.Code}); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("old code: got %v, want ErrInvalidCode", err)
		}
	}
	if _, err := f.tickets.Verify(VerifyRequest{Key: key, Code: cur.Code}); err != nil {
		t.Fatalf("new code: %v", err)
	}
}

func TestMaxAttemptsDropsTicket(t *testing.T) {
	f := newFixture(t, TicketManagerOptions{MaxAttempts: 3})
	tk, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "dental", Slot: "20", Phone: testPhone})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	key := bookKey(testPhone, "dental", "20")
	for i := 0; i < 3; i++ {
		if _, err := f.tickets.Verify(VerifyRequest{Key: key, Code: wrongCode(tk.Code)}); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: got %v", i, err)
		}
	}
	if _, err := f.tickets.Verify(VerifyRequest{Key: key, Code: tk.Code}); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("after exhausting attempts: got %v, want ErrTicketNotFound", err)
	}
}

func TestTrustMismatchKeepsTicket(t *testing.T) {
	f := newFixture(t, TicketManagerOptions{})
	tk, err := f.tickets.Issue(IssueRequest{
		Purpose: model.PurposeBook, Block: "medical", Slot: "30", Phone: testPhone,
		FingerprintHash: "hash-a", Enhanced: true, DeviceVerified: true, RiskLevel: model.RiskLow,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	key := bookKey(testPhone, "medical", "30")
	if _, err := f.tickets.Verify(VerifyRequest{Key: key, Code: tk.Code, FingerprintHash: "hash-b"}); !errors.Is(err, ErrTrustMismatch) {
		t.Fatalf("got %v, want ErrTrustMismatch", err)
	}
	res, err := f.tickets.Verify(VerifyRequest{Key: key, Code: tk.Code, FingerprintHash: "hash-a"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Slot.Trust == nil || res.Slot.Trust.FingerprintHash != "hash-a" || !res.Slot.Trust.DeviceVerified {
		t.Fatalf("trust metadata = %+v", res.Slot.Trust)
	}
}

func TestStaleStateOnIssueAndVerify(t *testing.T) {
	f := newFixture(t, TicketManagerOptions{})
	tk, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "mba", Slot: "1", Phone: testPhone})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "mba", Slot: "1", Phone: "+919812345678"})
	if err != nil {
		t.Fatalf("issue other: %v", err)
	}
	if _, err := f.tickets.Verify(VerifyRequest{Key: bookKey("+919812345678", "mba", "1"), Code: other.Code}); err != nil {
		t.Fatalf("verify other: %v", err)
	}
	if _, err := f.tickets.Verify(VerifyRequest{Key: bookKey(testPhone, "mba", "1"), Code: tk.Code}); !errors.Is(err, ErrStaleState) {
		t.Fatalf("got %v, want ErrStaleState", err)
	}
	if _, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "mba", Slot: "1", Phone: testPhone}); !errors.Is(err, ErrStaleState) {
		t.Fatalf("issue on occupied slot: got %v, want ErrStaleState", err)
	}
	if _, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeRelease, Block: "mba", Slot: "1", Phone: testPhone}); !errors.Is(err, ErrNotOccupant) {
		t.Fatalf("release by non occupant: got %v, want ErrNotOccupant", err)
	}
	if _, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "mba", Slot: "99", Phone: testPhone}); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("unknown slot: got %v, want ErrSlotNotFound", err)
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	f := newFixture(t, TicketManagerOptions{TTL: time.Minute})
	for _, slot := range []string{"1", "2", "3"} {
		if _, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "techpark", Slot: slot, Phone: testPhone}); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}
	f.clock.Advance(30 * time.Second)
	if _, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: "techpark", Slot: "4", Phone: testPhone}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	f.clock.Advance(31 * time.Second)
	if n := f.tickets.Sweep(); n != 3 {
		t.Fatalf("swept %d, want 3", n)
	}
	if f.tickets.Len() != 1 {
		t.Fatalf("len = %d, want 1", f.tickets.Len())
	}
}

func TestLiveCodesAreUnique(t *testing.T) {
	f := newFixture(t, TicketManagerOptions{})
	seen := map[string]bool{}
	for _, block := range f.slots.Blocks() {
		for i := 1; i <= 50; i++ {
			tk, err := f.tickets.Issue(IssueRequest{Purpose: model.PurposeBook, Block: block, Slot: strconv.Itoa(i), Phone: testPhone})
			if err != nil {
				t.Fatalf("issue: %v", err)
			}
			if seen[tk.Code] {
				t.Fatalf("code %s reused across live tickets", tk.Code)
			}
			seen[tk.Code] = true
		}
	}
}
