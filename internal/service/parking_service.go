package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/smart-parking/internal/metrics"
	"github.com/iliyamo/smart-parking/internal/model"
	"github.com/iliyamo/smart-parking/internal/queue"
	"github.com/iliyamo/smart-parking/internal/repository"
)

// BookingStore durably records the current occupant of each slot.
type BookingStore interface {
	Put(ctx context.Context, rec model.BookingRecord) error
	Get(ctx context.Context, block, slot string) (model.BookingRecord, error)
	Delete(ctx context.Context, block, slot string) error
	List(ctx context.Context) ([]model.BookingRecord, error)
}

// Deps wires a ParkingService.  Events is optional.
type Deps struct {
	Slots     *repository.SlotRegistry
	Tickets   *TicketManager
	Directory *IdentityDirectory
	Policy    *PriorityPolicy
	Trust     *FingerprintTrustEngine
	Auditor   *SecurityAuditor
	Bookings  BookingStore
	Notifier  Notifier
	Events    EventPublisher
	Now       func() time.Time
}

// ParkingService exposes the reservation engine to the transport layer.
// Every slot mutation goes through a verified ticket, except the
// administrative resets and startup recovery.
type ParkingService struct {
	d Deps
}

func NewParkingService(d Deps) *ParkingService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = LogNotifier{}
	}
	return &ParkingService{d: d}
}

// BookingRequest asks for a booking code.  A non-nil Fingerprint selects
// the trust-gated path.
type BookingRequest struct {
	Block       string
	Slot        string
	Phone       string
	Fingerprint *model.FingerprintSnapshot
	Meta        model.RequestMeta
}

// ReleaseRequest asks for a release code.  An empty Phone means "whoever
// occupies the slot", which is how the QR release link works.
type ReleaseRequest struct {
	Block string
	Slot  string
	Phone string
	Meta  model.RequestMeta
}

// PriorityRequest asks for a staff priority booking code.
type PriorityRequest struct {
	StaffID string
	Block   string
	Slot    string
	Phone   string
	Meta    model.RequestMeta
}

// CodeSubmission verifies a code.  Phone identifies booking and release
// tickets, StaffID priority tickets.
type CodeSubmission struct {
	Block           string
	Slot            string
	Phone           string
	StaffID         string
	Code            string
	FingerprintHash string
	Meta            model.RequestMeta
}

// IssueResult describes an issued ticket.  Ticket carries the code and is
// never serialized.
type IssueResult struct {
	TicketID  string                  `json:"ticket_id"`
	ExpiresAt time.Time               `json:"expires_at"`
	SentTo    string                  `json:"sent_to"`
	Verdict   *model.TrustVerdict     `json:"device_verification,omitempty"`
	Risk      *model.RiskAssessment   `json:"risk_assessment,omitempty"`
	Staff     *model.StaffIdentity    `json:"staff_info,omitempty"`
	Ticket    model.ReservationTicket `json:"-"`
}

func (s *ParkingService) slotExists(block, slot string) error {
	_, err := s.d.Slots.Query(block, slot)
	return err
}

// issue files the ticket and delivers its code.  A delivery failure is
// returned alongside a valid result: the ticket stays issued.
func (s *ParkingService) issue(ctx context.Context, req IssueRequest, message func(code string) string) (IssueResult, error) {
	t, err := s.d.Tickets.Issue(req)
	if err != nil {
		return IssueResult{}, err
	}
	metrics.TicketsIssuedTotal.WithLabelValues(string(req.Purpose)).Inc()
	res := IssueResult{TicketID: t.ID, ExpiresAt: t.ExpiresAt, SentTo: MaskPhone(t.Phone), Ticket: t}
	if err := s.d.Notifier.Send(ctx, t.Phone, message(t.Code)); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		log.Printf("notify: send %s code to %s: %v", req.Purpose, MaskPhone(t.Phone), err)
		return res, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return res, nil
}

// IssueBookingTicket issues a BOOK ticket for an AVAILABLE slot.  With a
// fingerprint attached the device is assessed first; a HIGH risk score
// above 80 vetoes the request before any ticket exists.
func (s *ParkingService) IssueBookingTicket(ctx context.Context, req BookingRequest) (IssueResult, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return IssueResult{}, err
	}
	if err := s.slotExists(req.Block, req.Slot); err != nil {
		return IssueResult{}, err
	}

	ir := IssueRequest{Purpose: model.PurposeBook, Block: req.Block, Slot: req.Slot, Phone: phone}
	if req.Fingerprint == nil {
		return s.issue(ctx, ir, BookingMessage)
	}

	snap := s.d.Trust.Capture(*req.Fingerprint, req.Meta)
	verdict, risk, err := s.d.Trust.Assess(ctx, phone, snap)
	if err != nil {
		return IssueResult{}, fmt.Errorf("assess device: %w", err)
	}
	metrics.RiskScore.Observe(float64(risk.Score))
	if _, err := s.d.Trust.Record(ctx, phone, snap); err != nil {
		log.Printf("fingerprint: record for %s: %v", MaskPhone(phone), err)
	}
	s.d.Auditor.Record(ctx, req.Meta, phone, model.EventEnhancedBookingAttempt, map[string]any{
		"block":            req.Block,
		"slot":             req.Slot,
		"fingerprint_hash": hashPrefix(snap.FingerprintHash),
		"is_trusted":       verdict.Trusted,
		"confidence":       verdict.Confidence,
		"risk_score":       risk.Score,
		"risk_level":       risk.Level,
	})
	if risk.Rejected {
		metrics.RiskRejectionsTotal.Inc()
		s.d.Auditor.Record(ctx, req.Meta, phone, model.EventRiskRejected, map[string]any{
			"block":        req.Block,
			"slot":         req.Slot,
			"risk_score":   risk.Score,
			"risk_factors": risk.Factors,
		})
		return IssueResult{}, &RiskRejectedError{Assessment: risk}
	}

	ir.FingerprintHash = snap.FingerprintHash
	ir.Enhanced = true
	ir.DeviceVerified = verdict.Trusted
	ir.RiskLevel = risk.Level
	res, err := s.issue(ctx, ir, func(code string) string {
		return EnhancedBookingMessage(code, verdict, risk, req.Block, req.Slot)
	})
	res.Verdict, res.Risk = &verdict, &risk
	return res, err
}

// hashPrefix shortens a fingerprint hash for audit records.
func hashPrefix(h string) string {
	if len(h) > 16 {
		return h[:16] + "..."
	}
	return h
}

func (s *ParkingService) recordVerification(ctx context.Context, sub CodeSubmission, identity string, purpose model.Purpose, res VerificationResult, err error) {
	metrics.VerificationsTotal.WithLabelValues(string(purpose), string(res.Outcome)).Inc()
	switch {
	case err == nil:
	case errors.Is(err, ErrTrustMismatch):
		s.d.Auditor.Record(ctx, sub.Meta, identity, model.EventFingerprintMismatch, map[string]any{
			"block":         sub.Block,
			"slot":          sub.Slot,
			"expected_hash": hashPrefix(res.Ticket.FingerprintHash),
			"received_hash": hashPrefix(sub.FingerprintHash),
		})
	case errors.Is(err, ErrPolicyDenied):
		s.d.Auditor.Record(ctx, sub.Meta, identity, model.EventPolicyDenied, map[string]any{
			"block": sub.Block, "slot": sub.Slot, "stage": "verify", "error": err.Error(),
		})
	case errors.Is(err, ErrTicketNotFound):
	default:
		s.d.Auditor.Record(ctx, sub.Meta, identity, model.EventVerificationFailed, map[string]any{
			"block": sub.Block, "slot": sub.Slot, "purpose": purpose, "outcome": res.Outcome,
		})
	}
}

func (s *ParkingService) publish(ev queue.SlotEvent) {
	if s.d.Events == nil {
		return
	}
	ev.OccurredAt = s.d.Now().UTC().Format(time.RFC3339)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.d.Events.PublishSlotEvent(ctx, ev); err != nil {
			log.Printf("slot-events: publish %s %s/%s: %v", ev.Action, ev.Block, ev.Slot, err)
		}
	}()
}

func (s *ParkingService) putBooking(ctx context.Context, slot model.Slot, meta model.RequestMeta, t model.ReservationTicket) {
	rec := model.BookingRecord{
		Block:      slot.Block,
		Slot:       slot.Number,
		Phone:      slot.Occupant,
		StaffID:    slot.StaffID,
		ReleaseURL: slot.ReleaseRef,
		Device: model.BookingDevice{
			UserAgent: meta.UserAgent,
			IPAddress: meta.IPAddress,
			Enhanced:  t.Enhanced,
		},
		BookedAt: s.d.Now().UTC(),
	}
	if slot.BookedAt != nil {
		rec.BookedAt = *slot.BookedAt
	}
	if slot.Trust != nil {
		rec.Device.FingerprintHash = slot.Trust.FingerprintHash
		rec.Device.DeviceVerified = slot.Trust.DeviceVerified
		rec.Device.RiskLevel = slot.Trust.RiskLevel
	}
	if staff, ok := s.d.Directory.Lookup(slot.StaffID); ok && slot.StaffID != "" {
		rec.PriorityLevel = staff.PriorityLevel
	}
	if err := s.d.Bookings.Put(ctx, rec); err != nil {
		log.Printf("booking-store: put %s/%s: %v", slot.Block, slot.Number, err)
	}
}

// VerifyBookingTicket verifies a BOOK code and occupies the slot.
func (s *ParkingService) VerifyBookingTicket(ctx context.Context, sub CodeSubmission) (VerificationResult, error) {
	phone, err := NormalizePhone(sub.Phone)
	if err != nil {
		return VerificationResult{}, err
	}
	key := model.TicketKey{Identity: phone, Purpose: model.PurposeBook, Block: sub.Block, Slot: sub.Slot}
	res, err := s.d.Tickets.Verify(VerifyRequest{Key: key, Code: sub.Code, FingerprintHash: sub.FingerprintHash})
	s.recordVerification(ctx, sub, phone, model.PurposeBook, res, err)
	if err != nil {
		return res, err
	}

	s.putBooking(ctx, res.Slot, sub.Meta, res.Ticket)
	s.d.Auditor.Record(ctx, sub.Meta, phone, model.EventBookingSuccess, map[string]any{
		"block":       sub.Block,
		"slot":        sub.Slot,
		"enhanced":    res.Ticket.Enhanced,
		"release_url": res.ReleaseURL,
	})
	s.publish(queue.SlotEvent{
		Action:     queue.ActionBooked,
		Block:      sub.Block,
		Slot:       sub.Slot,
		Occupant:   MaskPhone(phone),
		ReleaseURL: res.ReleaseURL,
		Enhanced:   res.Ticket.Enhanced,
		RiskLevel:  string(res.Ticket.RiskLevel),
	})
	return res, nil
}

// occupant returns the phone bound to (block, slot).  Only the registry
// is consulted: booking records are read back at startup by Recover, and
// a record left behind by a failed delete must not re-occupy a free slot.
func (s *ParkingService) occupant(block, slot string) (string, error) {
	cur, err := s.d.Slots.Query(block, slot)
	if err != nil {
		return "", err
	}
	if !cur.Occupied() {
		return "", fmt.Errorf("%w: slot %s/%s is not occupied", ErrStaleState, block, slot)
	}
	return cur.Occupant, nil
}

// IssueReleaseTicket issues a RELEASE ticket to the slot's occupant.
func (s *ParkingService) IssueReleaseTicket(ctx context.Context, req ReleaseRequest) (IssueResult, error) {
	occupant, err := s.occupant(req.Block, req.Slot)
	if err != nil {
		return IssueResult{}, err
	}
	phone := occupant
	if req.Phone != "" {
		if phone, err = NormalizePhone(req.Phone); err != nil {
			return IssueResult{}, err
		}
	}
	return s.issue(ctx, IssueRequest{Purpose: model.PurposeRelease, Block: req.Block, Slot: req.Slot, Phone: phone}, ReleaseMessage)
}

// IssueReleaseForSlot issues a release code to whoever occupies the slot.
func (s *ParkingService) IssueReleaseForSlot(ctx context.Context, block, slot string, meta model.RequestMeta) (IssueResult, error) {
	return s.IssueReleaseTicket(ctx, ReleaseRequest{Block: block, Slot: slot, Meta: meta})
}

// VerifyReleaseTicket verifies a RELEASE code and frees the slot.  An
// empty Phone verifies against the current occupant.
func (s *ParkingService) VerifyReleaseTicket(ctx context.Context, sub CodeSubmission) (VerificationResult, error) {
	var phone string
	var err error
	if sub.Phone != "" {
		phone, err = NormalizePhone(sub.Phone)
	} else {
		phone, err = s.occupant(sub.Block, sub.Slot)
	}
	if err != nil {
		return VerificationResult{}, err
	}
	key := model.TicketKey{Identity: phone, Purpose: model.PurposeRelease, Block: sub.Block, Slot: sub.Slot}
	res, err := s.d.Tickets.Verify(VerifyRequest{Key: key, Code: sub.Code})
	s.recordVerification(ctx, sub, phone, model.PurposeRelease, res, err)
	if err != nil {
		return res, err
	}

	if err := s.d.Bookings.Delete(ctx, sub.Block, sub.Slot); err != nil {
		log.Printf("booking-store: delete %s/%s: %v", sub.Block, sub.Slot, err)
	}
	s.d.Auditor.Record(ctx, sub.Meta, phone, model.EventReleaseSuccess, map[string]any{
		"block": sub.Block,
		"slot":  sub.Slot,
	})
	s.publish(queue.SlotEvent{Action: queue.ActionReleased, Block: sub.Block, Slot: sub.Slot, Occupant: MaskPhone(phone)})
	return res, nil
}

// IssuePriorityTicket issues a PRIORITY_BOOK ticket after the priority
// policy authorizes the staff member for the slot.
func (s *ParkingService) IssuePriorityTicket(ctx context.Context, req PriorityRequest) (IssueResult, error) {
	staffID := NormalizeStaffID(req.StaffID)
	if staffID == "" {
		return IssueResult{}, validationError("staff id is required")
	}
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return IssueResult{}, err
	}
	if err := s.slotExists(req.Block, req.Slot); err != nil {
		return IssueResult{}, err
	}
	staff, ok := s.d.Directory.Lookup(staffID)
	if !ok {
		s.d.Auditor.Record(ctx, req.Meta, staffID, model.EventPolicyDenied, map[string]any{
			"block": req.Block, "slot": req.Slot, "stage": "issue", "reason": ReasonUnknownStaff,
		})
		return IssueResult{}, &PolicyError{Reason: ReasonUnknownStaff}
	}

	res, err := s.issue(ctx, IssueRequest{
		Purpose: model.PurposePriorityBook,
		Block:   req.Block,
		Slot:    req.Slot,
		Phone:   phone,
		StaffID: staffID,
	}, func(code string) string { return PriorityMessage(code, staff, req.Block, req.Slot) })
	var pe *PolicyError
	if errors.As(err, &pe) {
		s.d.Auditor.Record(ctx, req.Meta, staffID, model.EventPolicyDenied, map[string]any{
			"block": req.Block, "slot": req.Slot, "stage": "issue", "reason": pe.Reason,
		})
		return res, err
	}
	if res.TicketID != "" {
		res.Staff = &staff
	}
	return res, err
}

// VerifyPriorityTicket verifies a PRIORITY_BOOK code and occupies the
// slot.  The priority policy is consulted again before the transition.
func (s *ParkingService) VerifyPriorityTicket(ctx context.Context, sub CodeSubmission) (VerificationResult, error) {
	staffID := NormalizeStaffID(sub.StaffID)
	if staffID == "" {
		return VerificationResult{}, validationError("staff id is required")
	}
	key := model.TicketKey{Identity: staffID, Purpose: model.PurposePriorityBook, Block: sub.Block, Slot: sub.Slot}
	res, err := s.d.Tickets.Verify(VerifyRequest{Key: key, Code: sub.Code})
	s.recordVerification(ctx, sub, staffID, model.PurposePriorityBook, res, err)
	if err != nil {
		return res, err
	}

	s.putBooking(ctx, res.Slot, sub.Meta, res.Ticket)
	s.d.Auditor.Record(ctx, sub.Meta, staffID, model.EventPriorityBookingSuccess, map[string]any{
		"block":    sub.Block,
		"slot":     sub.Slot,
		"phone":    MaskPhone(res.Ticket.Phone),
		"priority": s.d.Policy.InPriorityRange(sub.Block, sub.Slot),
	})
	s.publish(queue.SlotEvent{
		Action:     queue.ActionPriorityBooked,
		Block:      sub.Block,
		Slot:       sub.Slot,
		Occupant:   MaskPhone(res.Ticket.Phone),
		StaffID:    staffID,
		ReleaseURL: res.ReleaseURL,
	})
	return res, nil
}

// StaffVerification is the result of VerifyStaff.
type StaffVerification struct {
	Staff          model.StaffIdentity `json:"staff_info"`
	AvailableSlots map[string][]string `json:"available_priority_slots"`
}

// VerifyStaff looks up a staff member and lists the free priority slots
// of every block that reserves some.
func (s *ParkingService) VerifyStaff(staffID string) (StaffVerification, error) {
	if NormalizeStaffID(staffID) == "" {
		return StaffVerification{}, validationError("staff id is required")
	}
	staff, ok := s.d.Directory.Lookup(staffID)
	if !ok {
		return StaffVerification{}, &PolicyError{Reason: ReasonUnknownStaff}
	}
	out := StaffVerification{Staff: staff, AvailableSlots: map[string][]string{}}
	for _, b := range s.d.Policy.PriorityBlocks() {
		out.AvailableSlots[b] = s.d.Policy.ListAvailablePrioritySlots(b)
	}
	return out, nil
}

// QuerySlot returns the committed state of one slot.
func (s *ParkingService) QuerySlot(block, slot string) (model.Slot, error) {
	return s.d.Slots.Query(block, slot)
}

// BlockView is a block's slots in numeric order with occupancy counts.
type BlockView struct {
	Block     string       `json:"block"`
	Slots     []model.Slot `json:"slots"`
	Available int          `json:"available"`
	Occupied  int          `json:"occupied"`
}

// QueryBlock returns every slot of block.
func (s *ParkingService) QueryBlock(block string) (BlockView, error) {
	m, err := s.d.Slots.QueryBlock(block)
	if err != nil {
		return BlockView{}, err
	}
	ids, err := s.d.Slots.SlotIDs(block)
	if err != nil {
		return BlockView{}, err
	}
	v := BlockView{Block: block, Slots: make([]model.Slot, 0, len(ids))}
	for _, id := range ids {
		sl := m[id]
		if sl.Occupied() {
			v.Occupied++
		} else {
			v.Available++
		}
		v.Slots = append(v.Slots, sl)
	}
	return v, nil
}

// ListSlots returns every block in registry order.
func (s *ParkingService) ListSlots() []BlockView {
	var out []BlockView
	for _, b := range s.d.Slots.Blocks() {
		if v, err := s.QueryBlock(b); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// ResetSlot frees one slot.
func (s *ParkingService) ResetSlot(ctx context.Context, meta model.RequestMeta, block, slot string) (int, error) {
	if block == "" || slot == "" {
		return 0, validationError("block and slot are required")
	}
	return s.reset(ctx, meta, block, slot)
}

// ResetBlock frees every slot of block.
func (s *ParkingService) ResetBlock(ctx context.Context, meta model.RequestMeta, block string) (int, error) {
	if block == "" {
		return 0, validationError("block is required")
	}
	return s.reset(ctx, meta, block, "")
}

// ResetAll frees every slot.
func (s *ParkingService) ResetAll(ctx context.Context, meta model.RequestMeta) (int, error) {
	return s.reset(ctx, meta, "", "")
}

func (s *ParkingService) reset(ctx context.Context, meta model.RequestMeta, block, slot string) (int, error) {
	freed, err := s.d.Slots.Reset(block, slot)
	if err != nil {
		return 0, err
	}
	recs, err := s.d.Bookings.List(ctx)
	if err != nil {
		log.Printf("booking-store: list for reset: %v", err)
	}
	for _, r := range recs {
		if (block == "" || r.Block == block) && (slot == "" || r.Slot == slot) {
			if err := s.d.Bookings.Delete(ctx, r.Block, r.Slot); err != nil {
				log.Printf("booking-store: delete %s/%s: %v", r.Block, r.Slot, err)
			}
		}
	}
	s.d.Auditor.Record(ctx, meta, "admin", model.EventSlotReset, map[string]any{
		"block": block, "slot": slot, "freed": freed,
	})
	s.publish(queue.SlotEvent{Action: queue.ActionReset, Block: block, Slot: slot, Freed: freed})
	return freed, nil
}

// FingerprintResult is returned by SubmitFingerprint.
type FingerprintResult struct {
	Verdict   model.TrustVerdict   `json:"device_verification"`
	Risk      model.RiskAssessment `json:"risk_assessment"`
	SessionID string               `json:"session_id"`
}

// SubmitFingerprint assesses a device against the requester's history,
// then appends it.  No ticket is issued.
func (s *ParkingService) SubmitFingerprint(ctx context.Context, phone string, snap model.FingerprintSnapshot, meta model.RequestMeta) (FingerprintResult, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return FingerprintResult{}, err
	}
	snap = s.d.Trust.Capture(snap, meta)
	verdict, risk, err := s.d.Trust.Assess(ctx, phone, snap)
	if err != nil {
		return FingerprintResult{}, fmt.Errorf("assess device: %w", err)
	}
	metrics.RiskScore.Observe(float64(risk.Score))
	if _, err := s.d.Trust.Record(ctx, phone, snap); err != nil {
		return FingerprintResult{}, fmt.Errorf("record fingerprint: %w", err)
	}
	s.d.Auditor.Record(ctx, meta, phone, model.EventFingerprintVerification, map[string]any{
		"fingerprint_hash": hashPrefix(snap.FingerprintHash),
		"is_trusted":       verdict.Trusted,
		"confidence":       verdict.Confidence,
		"risk_score":       risk.Score,
		"risk_level":       risk.Level,
	})
	return FingerprintResult{Verdict: verdict, Risk: risk, SessionID: snap.SessionID}, nil
}

// AnalyticsSummary aggregates device and audit activity over window.
func (s *ParkingService) AnalyticsSummary(ctx context.Context, window time.Duration) (AnalyticsSummary, error) {
	return s.d.Auditor.Summarize(ctx, window)
}

func (s *ParkingService) restore(rec model.BookingRecord) error {
	change := repository.OccupantChange{
		Occupant:   rec.Phone,
		ReleaseRef: rec.ReleaseURL,
		StaffID:    rec.StaffID,
		Priority:   rec.StaffID != "",
		At:         rec.BookedAt,
	}
	if change.ReleaseRef == "" {
		change.ReleaseRef = s.d.Tickets.ReleaseURL(rec.Block, rec.Slot)
	}
	if rec.Device.Enhanced {
		change.Trust = &model.TrustMetadata{
			FingerprintHash: rec.Device.FingerprintHash,
			DeviceVerified:  rec.Device.DeviceVerified,
			RiskLevel:       rec.Device.RiskLevel,
		}
	}
	_, err := s.d.Slots.Transition(rec.Block, rec.Slot, model.SlotAvailable, model.SlotOccupied, change)
	return err
}

// Recover marks every slot with a booking record as OCCUPIED.  Records for
// slots the registry does not know are skipped.
func (s *ParkingService) Recover(ctx context.Context) (int, error) {
	recs, err := s.d.Bookings.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list bookings: %w", err)
	}
	n := 0
	for _, r := range recs {
		if err := s.restore(r); err != nil {
			log.Printf("booking-store: skip %s/%s: %v", r.Block, r.Slot, err)
			continue
		}
		n++
	}
	return n, nil
}

// StartSweeper drops expired tickets every interval until ctx is done.
func (s *ParkingService) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := s.d.Tickets.Sweep(); n > 0 {
					metrics.TicketsSweptTotal.Add(float64(n))
					log.Printf("ticket-sweeper: removed %d expired tickets", n)
				}
			}
		}
	}()
}
