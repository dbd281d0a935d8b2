// Package file stores each slot as a JSON document in a directory.
// Writes are atomic and guarded by a per-slot lock file, so several processes may share the directory.
package file

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core"
)

var (
	lockTimeout   = 3 * time.Second
	lockRetry     = 100 * time.Millisecond
	slotNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

	ErrInvalidSlot = errors.New("invalid slot name")
	errLockTimeout = errors.New("could not acquire file lock")
)

type SlotStorage struct {
	dir string

	mu    sync.Mutex
	locks map[string]*flock.Flock
}

var _ core.SlotStorage = (*SlotStorage)(nil)

// NewSlotStorage creates dir if needed.
func NewSlotStorage(dir string) (*SlotStorage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	return &SlotStorage{dir: dir, locks: make(map[string]*flock.Flock)}, nil
}

func (s *SlotStorage) path(slot string) (string, error) {
	if !slotNameRegex.MatchString(slot) {
		return "", errors.Wrapf(ErrInvalidSlot, "%q", slot)
	}
	return filepath.Join(s.dir, slot+".json"), nil
}

func (s *SlotStorage) lock(ctx context.Context, fp string) (func(), error) {
	s.mu.Lock()
	fl, ok := s.locks[fp]
	if !ok {
		fl = flock.New(fp + ".lock")
		s.locks[fp] = fl
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, errors.Wrap(err, "acquiring file lock")
	}
	if !locked {
		return nil, errLockTimeout
	}
	return func() { _ = fl.Unlock() }, nil
}

func (s *SlotStorage) Load(ctx context.Context, slot string) ([]byte, bool, error) {
	fp, err := s.path(slot)
	if err != nil {
		return nil, false, err
	}
	unlock, err := s.lock(ctx, fp)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	data, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "reading %s", fp)
	}
	return data, true, nil
}

func (s *SlotStorage) Save(ctx context.Context, slot string, value []byte) error {
	fp, err := s.path(slot)
	if err != nil {
		return err
	}
	unlock, err := s.lock(ctx, fp)
	if err != nil {
		return err
	}
	defer unlock()

	tmp := fp + ".tmp"
	if err := os.WriteFile(tmp, value, 0o640); err != nil {
		return errors.Wrapf(err, "writing %s", tmp)
	}
	if err := os.Rename(tmp, fp); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "renaming %s", tmp)
	}
	return nil
}

func (s *SlotStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for fp, fl := range s.locks {
		_ = fl.Close()
		delete(s.locks, fp)
	}
	return nil
}
