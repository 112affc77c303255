package store

import (
	"context"

	"github.com/hrygo/mnemos/internal/profile"
)

// Store provides the database access layer for all memory models.
// It is a thin facade over a Driver so that callers never deal with
// engine-specific SQL.
type Store struct {
	driver  Driver
	profile *profile.Profile
}

func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}
