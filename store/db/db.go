package db

import (
	"github.com/pkg/errors"

	"github.com/campusclock/campusclock/internal/profile"
	"github.com/campusclock/campusclock/store"
	"github.com/campusclock/campusclock/store/db/postgres"
	"github.com/campusclock/campusclock/store/db/sqlite"
)

// NewDBDriver creates a new key-value store driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'sqlite' and 'postgres' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
