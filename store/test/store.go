package test

import (
	"context"
	"os"
	"testing"

	"github.com/hrygo/circle/internal/profile"
	"github.com/hrygo/circle/store"
	"github.com/hrygo/circle/store/db"
)

// NewTestingStore returns a migrated store backed by the driver named in the
// DRIVER environment variable. SQLite (the default) lives in t.TempDir().
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	p := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(dbDriver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Data:   t.TempDir(),
		Driver: getDriverFromEnv(),
	}
	if p.Driver == "postgres" {
		p.DSN = GetPostgresDSN(t)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("invalid testing profile: %v", err)
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
