package database

import (
	"context"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/hostelhq/hostel/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

var ErrUnsupportedDriver = errors.New("unsupported database driver")

// driverName returns the database/sql driver registered for a storage driver.
func driverName(driver string) (string, error) {
	switch driver {
	case core.StorageSQLite:
		return "sqlite", nil
	case core.StoragePostgres:
		return "postgres", nil
	}
	return "", errors.Wrapf(ErrUnsupportedDriver, "%q", driver)
}

// gooseDialect returns the goose dialect of a storage driver.
func gooseDialect(driver string) string {
	if driver == core.StorageSQLite {
		return "sqlite3"
	}
	return "postgres"
}

func postgresURL(dbName string, admin bool, conf core.DatabaseConfig) string {
	user := url.UserPassword(conf.User, conf.Password)
	if admin && conf.AdminUser != "" {
		user = url.UserPassword(conf.AdminUser, conf.AdminPassword)
	}

	sslMode := "require"
	if conf.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open connects to the database selected by conf.Storage.Driver and waits for it to answer.
func Open(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	name, err := driverName(conf.Storage.Driver)
	if err != nil {
		return nil, err
	}

	var dsn string
	if conf.Storage.Driver == core.StorageSQLite {
		path := conf.Storage.Database.SQLitePath
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, errors.Wrapf(err, "creating %s", dir)
			}
		}
	} else {
		dsn = postgresURL(conf.Storage.Database.Name, false, conf.Storage.Database)
	}

	db, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func createAppUser(ctx context.Context, db *sqlx.DB, conf core.DatabaseConfig) error {
	if conf.User == "" {
		return nil
	}

	var exists bool
	if err := db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", conf.User); err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !exists {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.User, conf.Password)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(ctx context.Context, db *sqlx.DB, conf core.DatabaseConfig) error {
	var exists bool
	if err := db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", conf.Name); err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !exists {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", conf.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the postgres application user and database. It does nothing for SQLite.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	if conf.Storage.Driver != core.StoragePostgres {
		return nil
	}
	dbConf := conf.Storage.Database

	// connect as admin
	admin, err := sqlx.Open("postgres", postgresURL("postgres", true, dbConf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()
	if err = ping(ctx, admin); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(ctx, admin, dbConf); err != nil {
		return errors.Wrap(err, "creating app user")
	}

	// create DB as app user
	app, err := sqlx.Open("postgres", postgresURL("postgres", false, dbConf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = app.Close() }()
	return errors.Wrap(createDB(ctx, app, dbConf), "creating database")
}

// RunMigrations runs a goose command ("up", "down", "status", "version", ...) against the slot schema.
func RunMigrations(command string, db *sqlx.DB, driver string, args ...string) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(gooseDialect(driver)); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	return goose.Run(command, db.DB, migrationsDir, args...)
}

// Migrate brings the slot schema up to date.
func Migrate(db *sqlx.DB, driver string) error {
	return errors.Wrap(RunMigrations("up", db, driver), "migrating database")
}
