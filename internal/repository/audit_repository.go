package repository

import (
	"context"
	"sync"

	"github.com/iliyamo/smart-parking/internal/model"
)

// DefaultAuditLimit is the number of security events retained.
const DefaultAuditLimit = 1000

// AuditFileRepo is the append-only security log (security_log.json).  The
// ring and its sequence number move together under mu; the file write
// happens after mu is released.
type AuditFileRepo struct {
	mu   sync.Mutex
	ring *ring[model.SecurityEvent]
	seq  uint64
	file *jsonFile
}

func NewAuditFileRepo(path string, limit int) (*AuditFileRepo, error) {
	if limit < 1 {
		limit = DefaultAuditLimit
	}
	r := &AuditFileRepo{ring: newRing[model.SecurityEvent](limit), file: newJSONFile(path)}
	var stored []model.SecurityEvent
	if err := r.file.load(&stored); err != nil {
		return nil, err
	}
	for _, ev := range stored {
		r.ring.push(ev)
	}
	return r, nil
}

// Append records ev, dropping the oldest event past the limit.
func (r *AuditFileRepo) Append(ctx context.Context, ev model.SecurityEvent) error {
	r.mu.Lock()
	r.ring.push(ev)
	r.seq++
	seq, events := r.seq, r.ring.items()
	r.mu.Unlock()
	return r.file.save(seq, events)
}

// List returns the retained events, oldest first.
func (r *AuditFileRepo) List(ctx context.Context) ([]model.SecurityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ring.items(), nil
}

func (r *AuditFileRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ring.len()
}

func (r *AuditFileRepo) Reset() {
	r.mu.Lock()
	r.ring.reset()
	r.seq++
	seq := r.seq
	r.mu.Unlock()
	_ = r.file.save(seq, []model.SecurityEvent{})
}
