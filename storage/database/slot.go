package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core"
)

const (
	loadSlotQuery = `SELECT payload FROM slots WHERE name = ?`
	saveSlotQuery = `INSERT INTO slots (name, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
)

// SlotStorage keeps each slot as a row of the "slots" table.
type SlotStorage struct {
	db *sqlx.DB
}

var _ core.SlotStorage = (*SlotStorage)(nil)

// NewSlotStorage expects the schema to be migrated.
func NewSlotStorage(db *sqlx.DB) *SlotStorage {
	return &SlotStorage{db: db}
}

func (s *SlotStorage) Load(ctx context.Context, slot string) ([]byte, bool, error) {
	var payload string
	if err := s.db.GetContext(ctx, &payload, s.db.Rebind(loadSlotQuery), slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "selecting slot %q", slot)
	}
	return []byte(payload), true, nil
}

func (s *SlotStorage) Save(ctx context.Context, slot string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(saveSlotQuery), slot, string(value), time.Now().UTC())
	return errors.Wrapf(err, "upserting slot %q", slot)
}

// DB returns the underlying connection pool, used by the admin CLI to run migrations.
func (s *SlotStorage) DB() *sqlx.DB { return s.db }

func (s *SlotStorage) Close() error {
	return s.db.Close()
}
