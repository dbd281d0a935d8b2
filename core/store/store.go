// Package store holds named, ordered collections of records mirrored to a persistence slot.
//
// A Store applies every mutation in memory first, notifies its listeners with the new
// snapshot, then writes the whole collection to its slot. A failed write does not roll
// the memory state back: it is logged and returned as a *core.PersistenceError.
//
// Listeners see snapshots in mutation order; a snapshot older than one already
// delivered is dropped. Listeners must not mutate the store they listen to.
package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/hostelhq/hostel/core"
)

// Mutation names, as reported in metrics and persistence errors.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
)

type (
	// Record is anything a Store can hold.
	Record interface {
		RecordID() string
	}

	// Patch is a partial update: Apply only touches the fields present in the patch.
	Patch[T any] interface {
		Apply(rec *T)
	}

	// PatchFunc adapts a plain function to a Patch.
	PatchFunc[T any] func(rec *T)

	// Listener receives the snapshot that follows each mutation.
	Listener[T any] func(records []T)

	Config struct {
		Slot       string // persistence slot name, e.g. "announcement-storage"
		Field      string // name of the records field inside the envelope
		Version    int
		Migrations map[int]Migration // keyed by the version they upgrade from
	}

	Option func(*options)

	options struct {
		logger core.Logger
	}
)

func (f PatchFunc[T]) Apply(rec *T) { f(rec) }

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger core.Logger) Option {
	return func(o *options) { o.logger = logger }
}

type Store[T Record] struct {
	conf    Config
	backend core.SlotStorage
	logger  core.Logger

	mu      sync.RWMutex
	records []T
	seq     uint64 // bumped on every in-memory mutation

	saveMu   sync.Mutex
	savedSeq uint64

	notifyMu    sync.Mutex
	notifiedSeq uint64

	listeners  *xsync.MapOf[uint64, Listener[T]]
	listenerID atomic.Uint64
}

// New returns a Store rehydrated from its slot. A missing slot yields an empty store.
func New[T Record](ctx context.Context, backend core.SlotStorage, conf Config, opts ...Option) (*Store[T], error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(backend, "backend"),
		vala.StringNotEmpty(conf.Slot, "conf.Slot"),
		vala.StringNotEmpty(conf.Field, "conf.Field"),
		vala.GreaterThan(conf.Version, -1, "conf.Version"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "invalid store arguments")
	}

	o := options{logger: core.DiscardLogger}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[T]{
		conf:      conf,
		backend:   backend,
		logger:    o.logger,
		records:   make([]T, 0),
		listeners: xsync.NewMapOf[uint64, Listener[T]](),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns the persistence slot name of the store.
func (s *Store[T]) Name() string { return s.conf.Slot }

// Reload replaces the in-memory records with the content of the slot.
// Listeners are not notified. A write in progress completes first; older pending writes are dropped.
func (s *Store[T]) Reload(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	payload, found, err := s.backend.Load(ctx, s.conf.Slot)
	if err != nil {
		return errors.Wrapf(err, "loading slot %q", s.conf.Slot)
	}
	records := make([]T, 0)
	if found && len(payload) > 0 {
		records, err = decodeEnvelope[T](payload, s.conf.Field, s.conf.Version, s.conf.Migrations)
		if err != nil {
			return errors.Wrapf(err, "decoding slot %q", s.conf.Slot)
		}
	}

	s.mu.Lock()
	s.records = records
	s.seq++
	seq := s.seq
	s.mu.Unlock()
	s.savedSeq = seq

	s.notifyMu.Lock()
	s.notifiedSeq = seq
	recordsGauge.WithLabelValues(s.conf.Slot).Set(float64(len(records)))
	s.notifyMu.Unlock()
	return nil
}

// GetAll returns a copy of every record in insertion order.
func (s *Store[T]) GetAll() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Len returns the number of records.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Filter returns the records satisfying pred, in insertion order.
func (s *Store[T]) Filter(pred func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0)
	for _, rec := range s.records {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Find returns the first record with the given id.
func (s *Store[T]) Find(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.RecordID() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// Add appends rec. No validation is performed.
func (s *Store[T]) Add(ctx context.Context, rec T) error {
	return s.mutate(ctx, OpAdd, func(records []T) ([]T, bool) {
		return append(records, rec), true
	})
}

// Update applies patch to every record with the given id. An unknown id is a no-op.
func (s *Store[T]) Update(ctx context.Context, id string, patch Patch[T]) error {
	return s.mutate(ctx, OpUpdate, func(records []T) ([]T, bool) {
		var matched bool
		for i := range records {
			if records[i].RecordID() == id {
				patch.Apply(&records[i])
				matched = true
			}
		}
		return records, matched
	})
}

// Remove deletes every record with the given id. An unknown id is a no-op.
func (s *Store[T]) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, OpRemove, func(records []T) ([]T, bool) {
		kept := make([]T, 0, len(records))
		for _, rec := range records {
			if rec.RecordID() != id {
				kept = append(kept, rec)
			}
		}
		return kept, len(kept) != len(records)
	})
}

// Subscribe registers listener and returns the function removing it.
func (s *Store[T]) Subscribe(listener Listener[T]) (unsubscribe func()) {
	id := s.listenerID.Add(1)
	s.listeners.Store(id, listener)
	return func() { s.listeners.Delete(id) }
}

func (s *Store[T]) mutate(ctx context.Context, op string, apply func([]T) ([]T, bool)) error {
	s.mu.Lock()
	records, changed := apply(s.records)
	if !changed {
		s.mu.Unlock()
		return nil
	}
	s.records = records
	s.seq++
	seq := s.seq
	snap := s.snapshot()
	s.mu.Unlock()

	mutationsTotal.WithLabelValues(s.conf.Slot, op).Inc()

	s.notify(seq, snap)
	return s.persist(ctx, op, seq, snap)
}

// notify delivers snap unless a more recent snapshot was already delivered.
func (s *Store[T]) notify(seq uint64, snap []T) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if seq <= s.notifiedSeq {
		return
	}
	s.notifiedSeq = seq
	s.listeners.Range(func(_ uint64, listener Listener[T]) bool {
		listener(append([]T(nil), snap...))
		return true
	})
}

// persist writes snap unless a more recent snapshot already reached the slot.
func (s *Store[T]) persist(ctx context.Context, op string, seq uint64, snap []T) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if seq <= s.savedSeq {
		return nil
	}

	payload, err := encodeEnvelope(s.conf.Field, s.conf.Version, snap)
	if err == nil {
		err = s.backend.Save(ctx, s.conf.Slot, payload)
	}
	if err != nil {
		persistFailuresTotal.WithLabelValues(s.conf.Slot).Inc()
		perr := core.NewPersistenceError(s.conf.Slot, op, err)
		s.logger.Error(fmt.Sprintf("store: %v", perr), perr)
		return perr
	}
	s.savedSeq = seq
	return nil
}

// snapshot must be called with s.mu held.
func (s *Store[T]) snapshot() []T {
	out := make([]T, len(s.records))
	copy(out, s.records)
	return out
}
