package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/smart-parking/internal/model"
)

// DefaultHistoryLimit is the number of snapshots kept per requester.
const DefaultHistoryLimit = 10

// fingerprintHistory is one requester's bounded history.  Its mutex makes
// append-and-trim atomic per requester.
type fingerprintHistory struct {
	mu   sync.Mutex
	ring *ring[model.FingerprintSnapshot]
}

// FingerprintFileRepo keeps fingerprint histories in memory and mirrors
// them to a JSON file (device_fingerprints.json) when a path is given.
type FingerprintFileRepo struct {
	mu        sync.RWMutex
	histories map[string]*fingerprintHistory
	limit     int
	seq       atomic.Uint64
	file      *jsonFile
}

// NewFingerprintFileRepo loads any existing file at path.  An empty path
// keeps the store purely in memory.
func NewFingerprintFileRepo(path string, limit int) (*FingerprintFileRepo, error) {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	r := &FingerprintFileRepo{
		histories: make(map[string]*fingerprintHistory),
		limit:     limit,
		file:      newJSONFile(path),
	}
	var stored map[string][]model.FingerprintSnapshot
	if err := r.file.load(&stored); err != nil {
		return nil, err
	}
	for id, snaps := range stored {
		h := r.history(id)
		for _, s := range snaps {
			h.ring.push(s)
		}
	}
	return r, nil
}

func (r *FingerprintFileRepo) history(identity string) *fingerprintHistory {
	r.mu.RLock()
	h, ok := r.histories[identity]
	r.mu.RUnlock()
	if ok {
		return h
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok = r.histories[identity]; !ok {
		h = &fingerprintHistory{ring: newRing[model.FingerprintSnapshot](r.limit)}
		r.histories[identity] = h
	}
	return h
}

// Append adds snap to identity's history, evicting the oldest entry past
// the limit, and returns the stored snapshot.
func (r *FingerprintFileRepo) Append(ctx context.Context, identity string, snap model.FingerprintSnapshot) (model.FingerprintSnapshot, error) {
	h := r.history(identity)
	h.mu.Lock()
	h.ring.push(snap)
	h.mu.Unlock()

	seq := r.seq.Add(1)
	if err := r.file.save(seq, r.snapshot()); err != nil {
		return snap, err
	}
	return snap, nil
}

// List returns identity's history, most recent last.
func (r *FingerprintFileRepo) List(ctx context.Context, identity string) ([]model.FingerprintSnapshot, error) {
	r.mu.RLock()
	h, ok := r.histories[identity]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ring.items(), nil
}

// All returns every history keyed by identity.
func (r *FingerprintFileRepo) All(ctx context.Context) (map[string][]model.FingerprintSnapshot, error) {
	return r.snapshot(), nil
}

func (r *FingerprintFileRepo) snapshot() map[string][]model.FingerprintSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]model.FingerprintSnapshot, len(r.histories))
	for id, h := range r.histories {
		h.mu.Lock()
		if h.ring.len() > 0 {
			out[id] = h.ring.items()
		}
		h.mu.Unlock()
	}
	return out
}

// Reset empties every history in place.  Histories stay registered, so
// an Append holding one either lands before the clear or survives it.
func (r *FingerprintFileRepo) Reset() {
	r.mu.RLock()
	for _, h := range r.histories {
		h.mu.Lock()
		h.ring.reset()
		h.mu.Unlock()
	}
	r.mu.RUnlock()
	_ = r.file.save(r.seq.Add(1), r.snapshot())
}

// FingerprintRedisRepo stores each history as a Redis list trimmed to the
// limit inside one MULTI/EXEC, so concurrent appends never exceed it.
type FingerprintRedisRepo struct {
	rdb    *redis.Client
	prefix string
	limit  int
}

func NewFingerprintRedisRepo(rdb *redis.Client, prefix string, limit int) *FingerprintRedisRepo {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if prefix == "" {
		prefix = "fp"
	}
	return &FingerprintRedisRepo{rdb: rdb, prefix: prefix, limit: limit}
}

func (r *FingerprintRedisRepo) key(identity string) string { return r.prefix + ":history:" + identity }
func (r *FingerprintRedisRepo) indexKey() string          { return r.prefix + ":identities" }

func (r *FingerprintRedisRepo) Append(ctx context.Context, identity string, snap model.FingerprintSnapshot) (model.FingerprintSnapshot, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return snap, fmt.Errorf("encode snapshot: %w", err)
	}
	key := r.key(identity)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, b)
		p.LTrim(ctx, key, int64(-r.limit), -1)
		p.SAdd(ctx, r.indexKey(), identity)
		return nil
	})
	if err != nil {
		return snap, fmt.Errorf("append fingerprint: %w", err)
	}
	return snap, nil
}

func (r *FingerprintRedisRepo) List(ctx context.Context, identity string) ([]model.FingerprintSnapshot, error) {
	raw, err := r.rdb.LRange(ctx, r.key(identity), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}
	out := make([]model.FingerprintSnapshot, 0, len(raw))
	for _, s := range raw {
		var snap model.FingerprintSnapshot
		if err := json.Unmarshal([]byte(s), &snap); err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func (r *FingerprintRedisRepo) All(ctx context.Context) (map[string][]model.FingerprintSnapshot, error) {
	ids, err := r.rdb.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	out := make(map[string][]model.FingerprintSnapshot, len(ids))
	for _, id := range ids {
		snaps, err := r.List(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = snaps
	}
	return out, nil
}
