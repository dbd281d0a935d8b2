// Package storage selects the slot backend named by the configuration.
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/storage/database"
	"github.com/hostelhq/hostel/storage/file"
	"github.com/hostelhq/hostel/storage/memory"
	"github.com/hostelhq/hostel/storage/s3"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Open returns the slot backend of conf.Storage.Driver.
// SQL backends are created if needed and migrated before use.
func Open(ctx context.Context, conf *core.Config) (core.SlotStorage, error) {
	switch conf.Storage.Driver {
	case core.StorageMemory:
		return memory.NewSlotStorage(), nil
	case core.StorageFile:
		fs, err := file.NewSlotStorage(conf.Storage.FileDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case core.StorageSQLite, core.StoragePostgres:
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		if err := database.Migrate(db, conf.Storage.Driver); err != nil {
			_ = db.Close()
			return nil, err
		}
		return database.NewSlotStorage(db), nil
	case core.StorageS3:
		bs, err := s3.New(ctx, conf.Storage.S3)
		if err != nil {
			return nil, err
		}
		return bs, nil
	}
	return nil, errors.Wrapf(ErrUnknownDriver, "%q", conf.Storage.Driver)
}
