package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/smart-parking/internal/model"
)

func bookingKey(block, slot string) string { return block + "_" + slot }

// BookingFileRepo keeps current occupants in bookings.json, keyed by
// "<block>_<slot>".
type BookingFileRepo struct {
	mu      sync.Mutex
	records map[string]model.BookingRecord
	seq     uint64
	file    *jsonFile
}

func NewBookingFileRepo(path string) (*BookingFileRepo, error) {
	r := &BookingFileRepo{records: make(map[string]model.BookingRecord), file: newJSONFile(path)}
	if err := r.file.load(&r.records); err != nil {
		return nil, err
	}
	if r.records == nil {
		r.records = make(map[string]model.BookingRecord)
	}
	return r, nil
}

// Put stores rec as the current occupant of its slot, replacing any
// previous record.
func (r *BookingFileRepo) Put(ctx context.Context, rec model.BookingRecord) error {
	r.mu.Lock()
	r.records[bookingKey(rec.Block, rec.Slot)] = rec
	seq, snap := r.bump()
	r.mu.Unlock()
	return r.file.save(seq, snap)
}

func (r *BookingFileRepo) Get(ctx context.Context, block, slot string) (model.BookingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[bookingKey(block, slot)]
	if !ok {
		return model.BookingRecord{}, ErrBookingNotFound
	}
	return rec, nil
}

// Delete removes the record for a released slot.  Deleting a missing
// record is not an error.
func (r *BookingFileRepo) Delete(ctx context.Context, block, slot string) error {
	r.mu.Lock()
	delete(r.records, bookingKey(block, slot))
	seq, snap := r.bump()
	r.mu.Unlock()
	return r.file.save(seq, snap)
}

// List returns all records ordered by block then slot.
func (r *BookingFileRepo) List(ctx context.Context) ([]model.BookingRecord, error) {
	r.mu.Lock()
	out := make([]model.BookingRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.Unlock()
	sortBookings(out)
	return out, nil
}

// bump must be called with mu held.
func (r *BookingFileRepo) bump() (uint64, map[string]model.BookingRecord) {
	r.seq++
	snap := make(map[string]model.BookingRecord, len(r.records))
	for k, v := range r.records {
		snap[k] = v
	}
	return r.seq, snap
}

func sortBookings(recs []model.BookingRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Block != recs[j].Block {
			return recs[i].Block < recs[j].Block
		}
		return lessSlotID(recs[i].Slot, recs[j].Slot)
	})
}

// BookingSchema creates the MySQL table used by BookingMySQLRepo.
const BookingSchema = `CREATE TABLE IF NOT EXISTS parking_bookings (
    block          VARCHAR(64)  NOT NULL,
    slot           VARCHAR(16)  NOT NULL,
    phone_number   VARCHAR(20)  NOT NULL,
    staff_id       VARCHAR(32)  NULL,
    priority_level TINYINT      NOT NULL DEFAULT 0,
    release_url    VARCHAR(512) NOT NULL,
    device_info    JSON         NOT NULL,
    booked_at      DATETIME     NOT NULL,
    PRIMARY KEY (block, slot)
)`

// BookingMySQLRepo provides data access to the parking_bookings table.
// There is at most one row per slot; a booking upserts it and a release
// deletes it.
type BookingMySQLRepo struct {
	db *sql.DB
}

func NewBookingMySQLRepo(db *sql.DB) *BookingMySQLRepo { return &BookingMySQLRepo{db: db} }

// EnsureSchema creates parking_bookings when it does not exist.
func (r *BookingMySQLRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, BookingSchema)
	return err
}

func (r *BookingMySQLRepo) Put(ctx context.Context, rec model.BookingRecord) error {
	device, err := json.Marshal(rec.Device)
	if err != nil {
		return fmt.Errorf("encode device info: %w", err)
	}
	var staff sql.NullString
	if rec.StaffID != "" {
		staff = sql.NullString{String: rec.StaffID, Valid: true}
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO parking_bookings (block, slot, phone_number, staff_id, priority_level, release_url, device_info, booked_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON DUPLICATE KEY UPDATE phone_number = VALUES(phone_number), staff_id = VALUES(staff_id),
             priority_level = VALUES(priority_level), release_url = VALUES(release_url),
             device_info = VALUES(device_info), booked_at = VALUES(booked_at)`,
		rec.Block, rec.Slot, rec.Phone, staff, rec.PriorityLevel, rec.ReleaseURL, string(device),
		rec.BookedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	return err
}

const bookingColumns = `block, slot, phone_number, staff_id, priority_level, release_url, device_info, booked_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (model.BookingRecord, error) {
	var (
		rec    model.BookingRecord
		staff  sql.NullString
		device []byte
		at     time.Time
	)
	if err := s.Scan(&rec.Block, &rec.Slot, &rec.Phone, &staff, &rec.PriorityLevel, &rec.ReleaseURL, &device, &at); err != nil {
		return rec, err
	}
	rec.StaffID = staff.String
	rec.BookedAt = at.UTC()
	if len(device) > 0 {
		if err := json.Unmarshal(device, &rec.Device); err != nil {
			return rec, fmt.Errorf("decode device info: %w", err)
		}
	}
	return rec, nil
}

func (r *BookingMySQLRepo) Get(ctx context.Context, block, slot string) (model.BookingRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM parking_bookings WHERE block = ? AND slot = ?`, block, slot)
	rec, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookingRecord{}, ErrBookingNotFound
	}
	return rec, err
}

func (r *BookingMySQLRepo) Delete(ctx context.Context, block, slot string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM parking_bookings WHERE block = ? AND slot = ?`, block, slot)
	return err
}

func (r *BookingMySQLRepo) List(ctx context.Context) ([]model.BookingRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM parking_bookings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingRecord
	for rows.Next() {
		rec, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortBookings(out)
	return out, nil
}
