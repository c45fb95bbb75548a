package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/smart-parking/internal/config"
	"github.com/iliyamo/smart-parking/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// captureNotifier remembers the last message sent to each recipient.
type captureNotifier struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (n *captureNotifier) Send(_ context.Context, to, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[string]string{}
	}
	n.sent[to] = message
	return n.err
}

func (n *captureNotifier) last(to string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[to]
}

type fixture struct {
	svc      *ParkingService
	slots    *repository.SlotRegistry
	tickets  *TicketManager
	policy   *PriorityPolicy
	clock    *fakeClock
	notifier *captureNotifier
	bookings *repository.BookingFileRepo
	audit    *repository.AuditFileRepo
	prints   *repository.FingerprintFileRepo
}

func newPolicy(t *testing.T, slots *repository.SlotRegistry) *PriorityPolicy {
	t.Helper()
	pc := config.DefaultPriorityConfig()
	ranges := map[string][]string{}
	for block, entries := range pc.PrioritySlots {
		ids, err := config.ExpandSlotRanges(entries)
		if err != nil {
			t.Fatalf("expand %s: %v", block, err)
		}
		ranges[block] = ids
	}
	return NewPriorityPolicy(NewIdentityDirectory(pc.Staff), slots, ranges, pc.MaxPriorityLevel)
}

// newFixture wires the engine over in-memory stores: six blocks of 50
// slots and the default staff directory.
func newFixture(t *testing.T, opts TicketManagerOptions) *fixture {
	t.Helper()
	clock := newFakeClock()
	slots := repository.NewSlotRegistry([]string{"techpark", "medical", "mba", "java", "fablab", "dental"}, 50)
	policy := newPolicy(t, slots)

	prints, err := repository.NewFingerprintFileRepo("", repository.DefaultHistoryLimit)
	if err != nil {
		t.Fatalf("fingerprint repo: %v", err)
	}
	audit, err := repository.NewAuditFileRepo("", repository.DefaultAuditLimit)
	if err != nil {
		t.Fatalf("audit repo: %v", err)
	}
	bookings, err := repository.NewBookingFileRepo("")
	if err != nil {
		t.Fatalf("booking repo: %v", err)
	}

	opts.Now = clock.Now
	opts.Policy = policy
	if opts.BaseURL == "" {
		opts.BaseURL = "http://parking.test/"
	}
	tickets := NewTicketManager(slots, opts)
	notifier := &captureNotifier{}
	svc := NewParkingService(Deps{
		Slots:     slots,
		Tickets:   tickets,
		Directory: NewIdentityDirectory(config.DefaultPriorityConfig().Staff),
		Policy:    policy,
		Trust:     NewFingerprintTrustEngine(prints, clock.Now),
		Auditor:   NewSecurityAuditor(audit, prints, clock.Now),
		Bookings:  bookings,
		Notifier:  notifier,
		Now:       clock.Now,
	})
	return &fixture{
		svc:      svc,
		slots:    slots,
		tickets:  tickets,
		policy:   policy,
		clock:    clock,
		notifier: notifier,
		bookings: bookings,
		audit:    audit,
		prints:   prints,
	}
}
