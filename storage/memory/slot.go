package memory

import (
	"context"
	"sync"

	"github.com/hostelhq/hostel/core"
)

// SlotStorage keeps slots in process memory.
type SlotStorage struct {
	mu    sync.RWMutex
	slots map[string][]byte
	fail  error
}

var _ core.SlotStorage = (*SlotStorage)(nil)

func NewSlotStorage() *SlotStorage {
	return &SlotStorage{slots: make(map[string][]byte)}
}

func (s *SlotStorage) Load(_ context.Context, slot string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.slots[slot]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}

func (s *SlotStorage) Save(_ context.Context, slot string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.slots[slot] = append([]byte(nil), value...)
	return nil
}

// FailSaves makes every following Save return err. A nil err restores normal behaviour.
func (s *SlotStorage) FailSaves(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *SlotStorage) Close() error { return nil }
