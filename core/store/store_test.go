package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/core/store"
	"github.com/hostelhq/hostel/storage/memory"
)

type note struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Status string `json:"status"`
}

func (n note) RecordID() string { return n.ID }

func (n *note) ApplyDefaults() {
	if n.Status == "" {
		n.Status = "draft"
	}
}

type notePatch struct {
	Title *string
	Body  *string
}

func (p notePatch) Apply(n *note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Body != nil {
		n.Body = *p.Body
	}
}

func strPtr(s string) *string { return &s }

var noteConf = store.Config{Slot: "note-storage", Field: "notes", Version: 1}

func newNoteStore(t *testing.T, backend core.SlotStorage, conf ...store.Config) *store.Store[note] {
	t.Helper()
	c := noteConf
	if len(conf) > 0 {
		c = conf[0]
	}
	s, err := store.New[note](context.Background(), backend, c)
	require.NoError(t, err)
	return s
}

func TestNew_invalidArguments(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewSlotStorage()

	tests := []struct {
		name    string
		backend core.SlotStorage
		conf    store.Config
	}{
		{name: "nil backend", conf: noteConf},
		{name: "no slot", backend: backend, conf: store.Config{Field: "notes"}},
		{name: "no field", backend: backend, conf: store.Config{Slot: "note-storage"}},
		{name: "negative version", backend: backend, conf: store.Config{Slot: "note-storage", Field: "notes", Version: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.New[note](ctx, tt.backend, tt.conf)
			assert.Error(t, err)
		})
	}
}

func TestStore_getAllIsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newNoteStore(t, memory.NewSlotStorage())

	assert.NotNil(t, s.GetAll())
	assert.Empty(t, s.GetAll())

	require.NoError(t, s.Add(ctx, note{ID: "1", Title: "a"}))
	first := s.GetAll()
	assert.Equal(t, first, s.GetAll())

	first[0].Title = "mutated"
	assert.Equal(t, "a", s.GetAll()[0].Title)
}

func TestStore_addPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := newNoteStore(t, memory.NewSlotStorage())

	r1 := note{ID: "1", Title: "first"}
	r2 := note{ID: "2", Title: "second"}
	r3 := note{ID: "2", Title: "duplicate id"}
	for _, r := range []note{r1, r2, r3} {
		require.NoError(t, s.Add(ctx, r))
	}
	assert.Equal(t, []note{r1, r2, r3}, s.GetAll())
}

func TestStore_update(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		id    string
		patch notePatch
		want  []note
	}{
		{
			name:  "partial merge",
			id:    "1",
			patch: notePatch{Title: strPtr("new")},
			want: []note{
				{ID: "1", Title: "new", Body: "b1", Status: "open"},
				{ID: "2", Title: "t2", Body: "b2", Status: "open"},
				{ID: "1", Title: "new", Body: "b3", Status: "open"},
			},
		},
		{
			name:  "unknown id is a no-op",
			id:    "404",
			patch: notePatch{Title: strPtr("new")},
			want: []note{
				{ID: "1", Title: "t1", Body: "b1", Status: "open"},
				{ID: "2", Title: "t2", Body: "b2", Status: "open"},
				{ID: "1", Title: "t3", Body: "b3", Status: "open"},
			},
		},
		{
			name:  "empty patch keeps fields",
			id:    "2",
			patch: notePatch{},
			want: []note{
				{ID: "1", Title: "t1", Body: "b1", Status: "open"},
				{ID: "2", Title: "t2", Body: "b2", Status: "open"},
				{ID: "1", Title: "t3", Body: "b3", Status: "open"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newNoteStore(t, memory.NewSlotStorage())
			require.NoError(t, s.Add(ctx, note{ID: "1", Title: "t1", Body: "b1", Status: "open"}))
			require.NoError(t, s.Add(ctx, note{ID: "2", Title: "t2", Body: "b2", Status: "open"}))
			require.NoError(t, s.Add(ctx, note{ID: "1", Title: "t3", Body: "b3", Status: "open"}))

			require.NoError(t, s.Update(ctx, tt.id, tt.patch))
			assert.Equal(t, tt.want, s.GetAll())
		})
	}
}

func TestStore_remove(t *testing.T) {
	ctx := context.Background()
	s := newNoteStore(t, memory.NewSlotStorage())
	for _, id := range []string{"1", "2", "1", "3"} {
		require.NoError(t, s.Add(ctx, note{ID: id, Title: "t" + id}))
	}

	require.NoError(t, s.Remove(ctx, "404"))
	assert.Equal(t, 4, s.Len())

	require.NoError(t, s.Remove(ctx, "1"))
	assert.Equal(t, []note{{ID: "2", Title: "t2"}, {ID: "3", Title: "t3"}}, s.GetAll())
}

func TestStore_filterAndFind(t *testing.T) {
	ctx := context.Background()
	s := newNoteStore(t, memory.NewSlotStorage())
	records := []note{
		{ID: "1", Status: "open"},
		{ID: "2", Status: "closed"},
		{ID: "3", Status: "open"},
	}
	for _, r := range records {
		require.NoError(t, s.Add(ctx, r))
	}

	open := s.Filter(func(n note) bool { return n.Status == "open" })
	assert.Equal(t, []note{records[0], records[2]}, open)
	assert.Equal(t, records, s.GetAll(), "filter must not change the store")
	assert.NotNil(t, s.Filter(func(note) bool { return false }))

	found, ok := s.Find("2")
	assert.True(t, ok)
	assert.Equal(t, records[1], found)
	_, ok = s.Find("404")
	assert.False(t, ok)
}

func TestStore_persistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewSlotStorage()
	s := newNoteStore(t, backend)

	require.NoError(t, s.Add(ctx, note{ID: "1", Title: "a", Status: "open"}))
	require.NoError(t, s.Add(ctx, note{ID: "2", Title: "b", Status: "open"}))
	require.NoError(t, s.Update(ctx, "2", notePatch{Body: strPtr("body")}))
	require.NoError(t, s.Add(ctx, note{ID: "3", Title: "c", Status: "open"}))
	require.NoError(t, s.Remove(ctx, "1"))

	rehydrated := newNoteStore(t, backend)
	assert.Equal(t, s.GetAll(), rehydrated.GetAll())

	payload, found, err := backend.Load(ctx, noteConf.Slot)
	require.NoError(t, err)
	require.True(t, found)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &doc))
	assert.JSONEq(t, "1", string(doc["version"]))
	assert.Contains(t, doc, "notes")
}

func TestStore_loadMigratesAndDefaults(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		payload string
		want    []note
		wantErr bool
	}{
		{
			name:    "unversioned payload is migrated",
			payload: `{"notes":[{"id":"1","name":"old title"}]}`,
			want:    []note{{ID: "1", Title: "old title", Status: "draft"}},
		},
		{
			name:    "current version is not migrated",
			payload: `{"version":1,"notes":[{"id":"1","title":"t","name":"ignored","status":"open"}]}`,
			want:    []note{{ID: "1", Title: "t", Status: "open"}},
		},
		{
			name:    "legacy state layout",
			payload: `{"state":{"notes":[{"id":"1","title":"t"}]},"version":1}`,
			want:    []note{{ID: "1", Title: "t", Status: "draft"}},
		},
		{
			name:    "missing field",
			payload: `{"version":1}`,
			want:    []note{},
		},
		{
			name:    "newer version",
			payload: `{"version":2,"notes":[]}`,
			wantErr: true,
		},
		{
			name:    "malformed",
			payload: `{"version":1,"notes":`,
			wantErr: true,
		},
	}

	// version 0 stored the title as "name"
	conf := noteConf
	conf.Migrations = map[int]store.Migration{
		0: func(records []store.RawRecord) ([]store.RawRecord, error) {
			for _, r := range records {
				if name, ok := r["name"]; ok {
					r["title"] = name
					delete(r, "name")
				}
			}
			return records, nil
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := memory.NewSlotStorage()
			require.NoError(t, backend.Save(ctx, conf.Slot, []byte(tt.payload)))

			s, err := store.New[note](ctx, backend, conf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.GetAll())
		})
	}
}

func TestStore_subscribe(t *testing.T) {
	ctx := context.Background()
	s := newNoteStore(t, memory.NewSlotStorage())

	var (
		mu    sync.Mutex
		calls [][]note
	)
	unsubscribe := s.Subscribe(func(records []note) {
		mu.Lock()
		calls = append(calls, records)
		mu.Unlock()
	})

	require.NoError(t, s.Add(ctx, note{ID: "1"}))
	require.NoError(t, s.Update(ctx, "1", notePatch{Title: strPtr("t")}))
	require.NoError(t, s.Update(ctx, "404", notePatch{Title: strPtr("t")})) // no-op: not notified
	require.NoError(t, s.Remove(ctx, "1"))

	unsubscribe()
	require.NoError(t, s.Add(ctx, note{ID: "2"}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 3)
	assert.Equal(t, []note{{ID: "1"}}, calls[0])
	assert.Equal(t, []note{{ID: "1", Title: "t"}}, calls[1])
	assert.Empty(t, calls[2])
}

func TestStore_persistenceFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewSlotStorage()
	s := newNoteStore(t, backend)
	require.NoError(t, s.Add(ctx, note{ID: "1"}))

	var notified int
	s.Subscribe(func([]note) { notified++ })

	diskFull := errors.New("disk full")
	backend.FailSaves(diskFull)
	err := s.Add(ctx, note{ID: "2"})
	require.Error(t, err)
	assert.True(t, core.IsPersistence(err))
	assert.ErrorIs(t, err, diskFull)

	var perr *core.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, noteConf.Slot, perr.Slot)
	assert.Equal(t, store.OpAdd, perr.Op)

	assert.Equal(t, []note{{ID: "1"}, {ID: "2"}}, s.GetAll(), "memory is not rolled back")
	assert.Equal(t, 1, notified)

	// the slot still holds the last successful write
	assert.Len(t, newNoteStore(t, backend).GetAll(), 1)

	// the next successful write catches the slot up
	backend.FailSaves(nil)
	require.NoError(t, s.Add(ctx, note{ID: "3"}))
	assert.Equal(t, s.GetAll(), newNoteStore(t, backend).GetAll())
}

func TestStore_concurrentAdds(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewSlotStorage()
	s := newNoteStore(t, backend)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Add(ctx, note{ID: string(rune('a' + i%26))})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
	assert.Len(t, newNoteStore(t, backend).GetAll(), 50, "last persisted snapshot is the latest")
}

func recordsGauge(t *testing.T, slot string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "hostel_store_records" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "slot" && lp.GetValue() == slot {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("no records gauge for slot %q", slot)
	return 0
}

func TestStore_concurrentAddsNotifyInOrder(t *testing.T) {
	const n = 100
	ctx := context.Background()
	conf := store.Config{Slot: "note-ordered-storage", Field: "notes", Version: 1}
	s := newNoteStore(t, memory.NewSlotStorage(), conf)
	defer s.TrackRecords()()

	var (
		mu   sync.Mutex
		lens []int
		last []note
	)
	s.Subscribe(func(records []note) {
		mu.Lock()
		lens = append(lens, len(records))
		last = records
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Add(ctx, note{ID: fmt.Sprintf("n%d", i)}))
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(lens); i++ {
		require.Greater(t, lens[i], lens[i-1], "snapshot %d delivered after a newer one", i)
	}
	assert.Len(t, last, n)
	assert.Equal(t, s.GetAll(), last)
	assert.Equal(t, float64(n), recordsGauge(t, conf.Slot))
}

// gatedBackend blocks every Save until release is closed.
type gatedBackend struct {
	*memory.SlotStorage
	entered chan struct{}
	release chan struct{}
}

func (b *gatedBackend) Save(ctx context.Context, slot string, value []byte) error {
	b.entered <- struct{}{}
	<-b.release
	return b.SlotStorage.Save(ctx, slot, value)
}

func TestStore_reloadWaitsForPendingWrite(t *testing.T) {
	ctx := context.Background()
	backend := &gatedBackend{
		SlotStorage: memory.NewSlotStorage(),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	s := newNoteStore(t, backend)

	added := make(chan error, 1)
	go func() { added <- s.Add(ctx, note{ID: "1"}) }()
	<-backend.entered

	reloaded := make(chan error, 1)
	go func() { reloaded <- s.Reload(ctx) }()
	select {
	case <-reloaded:
		t.Fatal("Reload() returned while a write was pending")
	case <-time.After(50 * time.Millisecond):
	}

	close(backend.release)
	require.NoError(t, <-added)
	require.NoError(t, <-reloaded)

	assert.Equal(t, []note{{ID: "1"}}, s.GetAll())
	assert.Equal(t, s.GetAll(), newNoteStore(t, backend.SlotStorage).GetAll())
	assert.Equal(t, float64(1), recordsGauge(t, noteConf.Slot))
}

func TestPatchFunc(t *testing.T) {
	ctx := context.Background()
	s := newNoteStore(t, memory.NewSlotStorage())
	require.NoError(t, s.Add(ctx, note{ID: "1", Status: "open"}))

	require.NoError(t, s.Update(ctx, "1", store.PatchFunc[note](func(n *note) { n.Status = "closed" })))
	got, _ := s.Find("1")
	assert.Equal(t, "closed", got.Status)
}
