// Package store persists farms and users. Backends share one contract:
// farms are scoped to their owner, lists are newest first, and a farm owned
// by someone else is indistinguishable from a missing one.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrowatch/models"

	"github.com/jonboulle/clockwork"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type FarmStore interface {
	// CreateFarm assigns ID and timestamps and returns the stored farm.
	CreateFarm(ctx context.Context, f models.Farm) (models.Farm, error)
	GetFarm(ctx context.Context, ownerID, id int64) (models.Farm, error)
	// UpdateFarm replaces name, crop and area of the farm f.ID owned by
	// f.OwnerID and bumps UpdatedAt.
	UpdateFarm(ctx context.Context, f models.Farm) (models.Farm, error)
	DeleteFarm(ctx context.Context, ownerID, id int64) error
	ListFarms(ctx context.Context, ownerID int64) ([]models.Farm, error)
}

type UserStore interface {
	// CreateUser returns ErrDuplicate when the email is taken.
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
}

type Store interface {
	FarmStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	Driver   string
	DSN      string // postgres DSN or sqlite file path
	MongoURI string
	MongoDB  string
	Clock    clockwork.Clock // nil means real time
}

// Open connects the configured backend and prepares its schema or indexes.
func Open(ctx context.Context, opts Options) (Store, error) {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	switch opts.Driver {
	case DriverPostgres:
		return OpenSQL(ctx, Postgres, opts.DSN, clock)
	case DriverSQLite:
		return OpenSQL(ctx, SQLite, opts.DSN, clock)
	case DriverMongo:
		return OpenMongo(ctx, opts.MongoURI, opts.MongoDB, clock)
	case DriverMemory:
		return NewMemory(clock), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// now is truncated to milliseconds so every backend round-trips it exactly.
func now(c clockwork.Clock) time.Time {
	return c.Now().UTC().Truncate(time.Millisecond)
}
