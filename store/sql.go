package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agrowatch/models"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures what differs between the SQL backends: the driver, the
// schema and how the area column is written and read.
type Dialect struct {
	Name        string
	driver      string
	schema      []string
	areaIn      string // SQL expression wrapping the GeoJSON bind parameter
	areaOut     string // SQL expression producing GeoJSON text
	isDuplicate func(error) bool
}

// Postgres stores areas as PostGIS geometries in WGS84.
var Postgres = Dialect{
	Name:   DriverPostgres,
	driver: "postgres",
	schema: []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			username      TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS farms (
			id         BIGSERIAL PRIMARY KEY,
			owner_id   BIGINT NOT NULL,
			name       TEXT NOT NULL,
			crop       TEXT NOT NULL DEFAULT '',
			area       geometry(POLYGON, 4326) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS farms_owner_created_idx ON farms (owner_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS farms_area_gist ON farms USING GIST (area)`,
	},
	areaIn:  `ST_SetSRID(ST_GeomFromGeoJSON(?::text), 4326)`,
	areaOut: `ST_AsGeoJSON(area)`,
	isDuplicate: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	},
}

// SQLite keeps the area as GeoJSON text.
var SQLite = Dialect{
	Name:   DriverSQLite,
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS farms (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id   INTEGER NOT NULL,
			name       TEXT NOT NULL,
			crop       TEXT NOT NULL DEFAULT '',
			area       TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS farms_owner_created_idx ON farms (owner_id, created_at DESC)`,
	},
	areaIn:  `?`,
	areaOut: `area`,
	isDuplicate: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE"))
	},
}

// SQLStore is the sqlx-backed Store shared by the Postgres and SQLite backends.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
	clock   clockwork.Clock
}

// OpenSQL connects and applies the dialect's schema.
func OpenSQL(ctx context.Context, d Dialect, dsn string, clock clockwork.Clock) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s: empty DSN", d.Name)
	}
	if d.driver == "sqlite" && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_time_format=sqlite"
	}
	db, err := sqlx.ConnectContext(ctx, d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", d.Name, err)
	}
	if d.driver == "sqlite" {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s schema: %w", d.Name, err)
		}
	}
	return &SQLStore{db: db, dialect: d, clock: clock}, nil
}

// farmRow adds the GeoJSON text column the area is scanned from.
type farmRow struct {
	models.Farm
	AreaJSON string `db:"area"`
}

func (r farmRow) farm() (models.Farm, error) {
	f := r.Farm
	if err := json.Unmarshal([]byte(r.AreaJSON), &f.Area); err != nil {
		return models.Farm{}, fmt.Errorf("decode area of farm %d: %w", f.ID, err)
	}
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return f, nil
}

func (s *SQLStore) farmColumns() string {
	return "id, owner_id, name, crop, " + s.dialect.areaOut + " AS area, created_at, updated_at"
}

func (s *SQLStore) CreateFarm(ctx context.Context, f models.Farm) (models.Farm, error) {
	area, err := json.Marshal(f.Area)
	if err != nil {
		return models.Farm{}, fmt.Errorf("encode area: %w", err)
	}
	f.CreatedAt = now(s.clock)
	f.UpdatedAt = f.CreatedAt

	q := s.db.Rebind(`INSERT INTO farms (owner_id, name, crop, area, created_at, updated_at)
		VALUES (?, ?, ?, ` + s.dialect.areaIn + `, ?, ?) RETURNING id`)
	if err := s.db.GetContext(ctx, &f.ID, q, f.OwnerID, f.Name, f.Crop, string(area), f.CreatedAt, f.UpdatedAt); err != nil {
		return models.Farm{}, fmt.Errorf("insert farm: %w", err)
	}
	return f, nil
}

func (s *SQLStore) GetFarm(ctx context.Context, ownerID, id int64) (models.Farm, error) {
	var row farmRow
	q := s.db.Rebind(`SELECT ` + s.farmColumns() + ` FROM farms WHERE id = ? AND owner_id = ?`)
	if err := s.db.GetContext(ctx, &row, q, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Farm{}, ErrNotFound
		}
		return models.Farm{}, fmt.Errorf("get farm %d: %w", id, err)
	}
	return row.farm()
}

func (s *SQLStore) UpdateFarm(ctx context.Context, f models.Farm) (models.Farm, error) {
	area, err := json.Marshal(f.Area)
	if err != nil {
		return models.Farm{}, fmt.Errorf("encode area: %w", err)
	}

	q := s.db.Rebind(`UPDATE farms SET name = ?, crop = ?, area = ` + s.dialect.areaIn + `, updated_at = ?
		WHERE id = ? AND owner_id = ?`)
	res, err := s.db.ExecContext(ctx, q, f.Name, f.Crop, string(area), now(s.clock), f.ID, f.OwnerID)
	if err != nil {
		return models.Farm{}, fmt.Errorf("update farm %d: %w", f.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Farm{}, fmt.Errorf("update farm %d: %w", f.ID, err)
	}
	if n == 0 {
		return models.Farm{}, ErrNotFound
	}
	return s.GetFarm(ctx, f.OwnerID, f.ID)
}

func (s *SQLStore) DeleteFarm(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM farms WHERE id = ? AND owner_id = ?`), id, ownerID)
	if err != nil {
		return fmt.Errorf("delete farm %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete farm %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListFarms(ctx context.Context, ownerID int64) ([]models.Farm, error) {
	var rows []farmRow
	q := s.db.Rebind(`SELECT ` + s.farmColumns() + ` FROM farms WHERE owner_id = ? ORDER BY created_at DESC, id DESC`)
	if err := s.db.SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, fmt.Errorf("list farms: %w", err)
	}
	out := make([]models.Farm, 0, len(rows))
	for _, r := range rows {
		f, err := r.farm()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.CreatedAt = now(s.clock)
	q := s.db.Rebind(`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?) RETURNING id`)
	if err := s.db.GetContext(ctx, &u.ID, q, u.Username, u.Email, u.PasswordHash, u.CreatedAt); err != nil {
		if s.dialect.isDuplicate(err) {
			return models.User{}, ErrDuplicate
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.user(ctx, `email = ?`, email)
}

func (s *SQLStore) UserByID(ctx context.Context, id int64) (models.User, error) {
	return s.user(ctx, `id = ?`, id)
}

func (s *SQLStore) user(ctx context.Context, where string, arg any) (models.User, error) {
	var u models.User
	q := s.db.Rebind(`SELECT id, username, email, password_hash, created_at FROM users WHERE ` + where)
	if err := s.db.GetContext(ctx, &u, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close() error { return s.db.Close() }
