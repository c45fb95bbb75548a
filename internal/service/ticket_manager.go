package service

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash/fnv"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/smart-parking/internal/model"
	"github.com/iliyamo/smart-parking/internal/repository"
)

const (
	// DefaultTicketTTL is how long an issued code stays valid.
	DefaultTicketTTL = 5 * time.Minute

	ticketShards = 32
	codeMin      = 100000
	codeSpan     = 900000
)

// Outcome classifies the result of a verification attempt.
type Outcome string

const (
	OutcomeCommitted     Outcome = "Committed"
	OutcomeNotFound      Outcome = "NotFound"
	OutcomeExpired       Outcome = "Expired"
	OutcomeInvalidCode   Outcome = "InvalidCode"
	OutcomeTrustMismatch Outcome = "TrustMismatch"
	OutcomeStaleState    Outcome = "StaleState"
	OutcomeConflict      Outcome = "Conflict"
	OutcomePolicyDenied  Outcome = "PolicyDenied"
	OutcomeError         Outcome = "Error"
)

// OutcomeOf maps a verification error to its outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, ErrTicketNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrTicketExpired):
		return OutcomeExpired
	case errors.Is(err, ErrInvalidCode):
		return OutcomeInvalidCode
	case errors.Is(err, ErrTrustMismatch):
		return OutcomeTrustMismatch
	case errors.Is(err, ErrStaleState):
		return OutcomeStaleState
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	case errors.Is(err, ErrPolicyDenied):
		return OutcomePolicyDenied
	}
	return OutcomeError
}

// EligibilityChecker is the priority gate consulted before issuing and
// again before committing a PRIORITY_BOOK ticket.
type EligibilityChecker interface {
	IsEligible(staffID, block, slot string) (bool, PolicyReason)
}

// TicketManagerOptions configures a TicketManager.  Zero values select
// the defaults.
type TicketManagerOptions struct {
	TTL         time.Duration
	MaxAttempts int // 0 means unlimited retries within the TTL
	BaseURL     string
	Now         func() time.Time
	Policy      EligibilityChecker
}

// IssueRequest describes a ticket to issue.  Phone is required for every
// purpose; StaffID only for PRIORITY_BOOK, where it is also the
// negotiation identity.
type IssueRequest struct {
	Purpose         model.Purpose
	Block           string
	Slot            string
	Phone           string
	StaffID         string
	FingerprintHash string
	Enhanced        bool
	DeviceVerified  bool
	RiskLevel       model.RiskLevel
}

// Key returns the negotiation key the request files its ticket under.
func (r IssueRequest) Key() model.TicketKey {
	id := r.Phone
	if r.Purpose == model.PurposePriorityBook {
		id = r.StaffID
	}
	return model.TicketKey{Identity: id, Purpose: r.Purpose, Block: r.Block, Slot: r.Slot}
}

// VerifyRequest is one code submission.
type VerifyRequest struct {
	Key             model.TicketKey
	Code            string
	FingerprintHash string
}

// VerificationResult is returned by Verify.  Slot and ReleaseURL are set
// only when Outcome is Committed; Ticket is set whenever a ticket was
// found.
type VerificationResult struct {
	Outcome    Outcome
	Ticket     model.ReservationTicket
	Slot       model.Slot
	ReleaseURL string
}

type ticketEntry struct {
	ticket  model.ReservationTicket
	claimed bool
}

type ticketShard struct {
	mu      sync.Mutex
	tickets map[model.TicketKey]*ticketEntry
}

// TicketManager issues and verifies one-time codes and drives the slot
// transition each ticket gates.  Tickets are partitioned into shards by
// key; a verification claims its ticket under the shard lock and performs
// the slot transition after releasing it, so a slow transition never
// blocks unrelated keys.
type TicketManager struct {
	shards [ticketShards]ticketShard
	codes  sync.Map // live code -> ticket id

	slots       *repository.SlotRegistry
	policy      EligibilityChecker
	ttl         time.Duration
	maxAttempts int
	baseURL     string
	now         func() time.Time
}

func NewTicketManager(slots *repository.SlotRegistry, opts TicketManagerOptions) *TicketManager {
	m := &TicketManager{
		slots:       slots,
		policy:      opts.Policy,
		ttl:         opts.TTL,
		maxAttempts: opts.MaxAttempts,
		baseURL:     opts.BaseURL,
		now:         opts.Now,
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTicketTTL
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.baseURL == "" {
		m.baseURL = "/"
	}
	for i := range m.shards {
		m.shards[i].tickets = make(map[model.TicketKey]*ticketEntry)
	}
	return m
}

func (m *TicketManager) shard(key model.TicketKey) *ticketShard {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	return &m.shards[h.Sum32()%ticketShards]
}

// ReleaseURL is the release credential reference handed to an occupant.
func (m *TicketManager) ReleaseURL(block, slot string) string {
	return m.baseURL + "release/" + block + "/" + slot
}

// generateCode returns a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// reserveCode draws codes until one is not held by any live ticket.
func (m *TicketManager) reserveCode(id string) (string, error) {
	for {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, taken := m.codes.LoadOrStore(code, id); !taken {
			return code, nil
		}
	}
}

func (m *TicketManager) releaseCode(t model.ReservationTicket) {
	m.codes.CompareAndDelete(t.Code, t.ID)
}

// checkIssue enforces the slot precondition of the request's purpose.
func (m *TicketManager) checkIssue(req IssueRequest) error {
	slot, err := m.slots.Query(req.Block, req.Slot)
	if err != nil {
		return err
	}
	switch req.Purpose {
	case model.PurposeBook, model.PurposePriorityBook:
		if slot.Occupied() {
			return fmt.Errorf("%w: slot %s/%s is already occupied", ErrStaleState, req.Block, req.Slot)
		}
		if req.Purpose == model.PurposePriorityBook {
			if m.policy == nil {
				return &PolicyError{Reason: ReasonUnknownStaff}
			}
			if ok, reason := m.policy.IsEligible(req.StaffID, req.Block, req.Slot); !ok {
				return &PolicyError{Reason: reason}
			}
		}
	case model.PurposeRelease:
		if !slot.Occupied() {
			return fmt.Errorf("%w: slot %s/%s is not occupied", ErrStaleState, req.Block, req.Slot)
		}
		if slot.Occupant != req.Phone {
			return ErrNotOccupant
		}
	default:
		return validationError("unknown purpose %q", req.Purpose)
	}
	return nil
}

// Issue creates a ticket after checking the slot precondition and, for
// priority tickets, the priority policy.  A live ticket under the same key
// is replaced unless a verification currently holds it, in which case
// Issue returns ErrConflict.
func (m *TicketManager) Issue(req IssueRequest) (model.ReservationTicket, error) {
	if req.Phone == "" {
		return model.ReservationTicket{}, validationError("phone number is required")
	}
	if req.Purpose == model.PurposePriorityBook && req.StaffID == "" {
		return model.ReservationTicket{}, validationError("staff id is required")
	}
	if err := m.checkIssue(req); err != nil {
		return model.ReservationTicket{}, err
	}

	now := m.now()
	t := model.ReservationTicket{
		ID:              uuid.NewString(),
		Key:             req.Key(),
		Phone:           req.Phone,
		StaffID:         req.StaffID,
		IssuedAt:        now,
		ExpiresAt:       now.Add(m.ttl),
		FingerprintHash: req.FingerprintHash,
		Enhanced:        req.Enhanced,
		DeviceVerified:  req.DeviceVerified,
		RiskLevel:       req.RiskLevel,
	}
	code, err := m.reserveCode(t.ID)
	if err != nil {
		return model.ReservationTicket{}, fmt.Errorf("generate code: %w", err)
	}
	t.Code = code

	sh := m.shard(t.Key)
	sh.mu.Lock()
	if prev, ok := sh.tickets[t.Key]; ok {
		if prev.claimed {
			sh.mu.Unlock()
			m.releaseCode(t)
			return model.ReservationTicket{}, fmt.Errorf("%w: verification in progress", ErrConflict)
		}
		m.releaseCode(prev.ticket)
	}
	sh.tickets[t.Key] = &ticketEntry{ticket: t}
	sh.mu.Unlock()
	return t, nil
}

// Verify checks a submitted code against the ticket filed under req.Key
// and, when it matches, applies the ticket's slot transition.  Wrong
// codes and fingerprint mismatches keep the ticket; every other outcome
// consumes it.
func (m *TicketManager) Verify(req VerifyRequest) (VerificationResult, error) {
	sh := m.shard(req.Key)
	sh.mu.Lock()
	e, ok := sh.tickets[req.Key]
	if !ok {
		sh.mu.Unlock()
		return VerificationResult{Outcome: OutcomeNotFound}, ErrTicketNotFound
	}
	t := e.ticket
	res := VerificationResult{Ticket: t}
	if e.claimed {
		sh.mu.Unlock()
		res.Outcome = OutcomeConflict
		return res, fmt.Errorf("%w: ticket is being verified", ErrConflict)
	}
	if t.Expired(m.now()) {
		delete(sh.tickets, req.Key)
		sh.mu.Unlock()
		m.releaseCode(t)
		res.Outcome = OutcomeExpired
		return res, ErrTicketExpired
	}
	if t.FingerprintHash != "" && req.FingerprintHash != "" && t.FingerprintHash != req.FingerprintHash {
		sh.mu.Unlock()
		res.Outcome = OutcomeTrustMismatch
		return res, ErrTrustMismatch
	}
	if subtle.ConstantTimeCompare([]byte(req.Code), []byte(t.Code)) != 1 {
		e.ticket.Attempts++
		res.Ticket = e.ticket
		exhausted := m.maxAttempts > 0 && e.ticket.Attempts >= m.maxAttempts
		if exhausted {
			delete(sh.tickets, req.Key)
		}
		sh.mu.Unlock()
		if exhausted {
			m.releaseCode(t)
		}
		res.Outcome = OutcomeInvalidCode
		return res, ErrInvalidCode
	}
	e.claimed = true
	sh.mu.Unlock()

	res, err := m.commit(t, req.FingerprintHash)

	sh.mu.Lock()
	if sh.tickets[req.Key] == e {
		delete(sh.tickets, req.Key)
	}
	sh.mu.Unlock()
	m.releaseCode(t)
	return res, err
}

// commit re-runs the gates for a claimed ticket and applies its
// transition.
func (m *TicketManager) commit(t model.ReservationTicket, submittedHash string) (VerificationResult, error) {
	res := VerificationResult{Ticket: t}
	k := t.Key

	if k.Purpose == model.PurposePriorityBook && m.policy != nil {
		if ok, reason := m.policy.IsEligible(t.StaffID, k.Block, k.Slot); !ok {
			res.Outcome = OutcomePolicyDenied
			return res, &PolicyError{Reason: reason}
		}
	}

	cur, err := m.slots.Query(k.Block, k.Slot)
	if err != nil {
		res.Outcome = OutcomeError
		return res, err
	}
	expected := k.Purpose.ExpectedStatus()
	if cur.Status != expected || (k.Purpose == model.PurposeRelease && cur.Occupant != t.Phone) {
		res.Outcome = OutcomeStaleState
		return res, fmt.Errorf("%w: slot %s/%s is %s", ErrStaleState, k.Block, k.Slot, cur.Status)
	}

	change := repository.OccupantChange{At: m.now().UTC()}
	if k.Purpose == model.PurposeRelease {
		change.ExpectOccupant = t.Phone
	} else {
		change.Occupant = t.Phone
		change.ReleaseRef = m.ReleaseURL(k.Block, k.Slot)
		change.StaffID = t.StaffID
		change.Priority = k.Purpose == model.PurposePriorityBook
		if t.Enhanced {
			hash := submittedHash
			if hash == "" {
				hash = t.FingerprintHash
			}
			change.Trust = &model.TrustMetadata{
				FingerprintHash: hash,
				DeviceVerified:  t.DeviceVerified,
				RiskLevel:       t.RiskLevel,
			}
		}
	}

	slot, err := m.slots.Transition(k.Block, k.Slot, expected, k.Purpose.TargetStatus(), change)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			res.Outcome = OutcomeConflict
			return res, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		res.Outcome = OutcomeError
		return res, err
	}
	res.Outcome = OutcomeCommitted
	res.Slot = slot
	res.ReleaseURL = change.ReleaseRef
	return res, nil
}

// Sweep deletes expired tickets that no verification holds and returns
// how many were removed.
func (m *TicketManager) Sweep() int {
	now := m.now()
	removed := 0
	for i := range m.shards {
		sh := &m.shards[i]
		var dropped []model.ReservationTicket
		sh.mu.Lock()
		for k, e := range sh.tickets {
			if !e.claimed && e.ticket.Expired(now) {
				delete(sh.tickets, k)
				dropped = append(dropped, e.ticket)
			}
		}
		sh.mu.Unlock()
		for _, t := range dropped {
			m.releaseCode(t)
		}
		removed += len(dropped)
	}
	return removed
}

// Len returns the number of live tickets, expired ones included until
// they are swept or verified.
func (m *TicketManager) Len() int {
	n := 0
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		n += len(sh.tickets)
		sh.mu.Unlock()
	}
	return n
}

// Reset drops every ticket.
func (m *TicketManager) Reset() {
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		for k, e := range sh.tickets {
			delete(sh.tickets, k)
			m.releaseCode(e.ticket)
		}
		sh.mu.Unlock()
	}
}
