package store

import (
	"context"
	errs "errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"

	"github.com/mkobari/skmeterd/db"
)

// ErrNoChange reports that the schema was already at the requested version.
var ErrNoChange = errs.New("no change")

// Migrator applies the embedded schema migrations.
type Migrator struct {
	dsn string
}

// NewMigrator builds a Migrator for the given PostgreSQL DSN.
func NewMigrator(dsn string) (*Migrator, error) {
	if dsn == "" {
		return nil, errors.New("missing DSN")
	}
	return &Migrator{dsn: dsn}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	mig, closer, err := m.instance()
	if err != nil {
		return err
	}
	defer closer()
	if err := mig.Up(); err != nil {
		if err == migrate.ErrNoChange {
			return ErrNoChange
		}
		return errors.Wrap(err, "migrate up")
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	mig, closer, err := m.instance()
	if err != nil {
		return err
	}
	defer closer()
	if err := mig.Steps(-1); err != nil {
		if err == migrate.ErrNoChange {
			return ErrNoChange
		}
		return errors.Wrap(err, "migrate down")
	}
	return nil
}

func (m *Migrator) instance() (*migrate.Migrate, func(), error) {
	src, err := iofs.New(db.Migrations, "migrations")
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "open embedded migrations")
	}
	mig, err := migrate.NewWithSourceInstance("iofs", src, m.dsn)
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "build migrator")
	}
	return mig, func() { mig.Close() }, nil
}
