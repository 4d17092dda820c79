package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/circle/internal/profile"
	"github.com/hrygo/circle/store"
	"github.com/hrygo/circle/store/db/postgres"
	"github.com/hrygo/circle/store/db/sqlite"
)

// Supported databases:
//
// PostgreSQL: production. Tag set replacement runs at serializable isolation
// with retry on serialization failures.
// SQLite: development, demo and tests. Write transactions take the database
// lock at BEGIN (_txlock=immediate).

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
