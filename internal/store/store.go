// Package store persists seeded photos in a relational database.
//
// Two tables are kept: media holds one row per accepted photo (event,
// capture time and GPS position) and images holds the thumbnail handle
// for that photo. The pipeline only ever writes a media row together with
// exactly one image row, inside a single transaction.
//
// Postgres is used in deployment; SQLite (pure Go, via glebarez/sqlite) is
// used for local runs and tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrUnsupportedDSN is returned by Open for a DSN no driver understands.
var ErrUnsupportedDSN = errors.New("unsupported database DSN")

const sqliteForeignKeys = "_pragma=foreign_keys(1)"

// RecordStore is the gorm-backed record store.
type RecordStore struct {
	db      *gorm.DB
	dialect string
}

// New wraps an already opened gorm connection.
func New(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db, dialect: db.Dialector.Name()}
}

// Open connects to the database named by dsn:
//   - postgres://… or postgresql://… uses the Postgres driver
//   - sqlite:<path> or file:<path> uses the pure Go SQLite driver with
//     foreign keys enabled
func Open(ctx context.Context, dsn string) (*RecordStore, error) {
	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve sql db: %w", err)
	}
	if dialector.Name() == "sqlite" {
		// SQLite serializes writers; one connection also keeps in-memory
		// databases alive across calls.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug().Str("dialect", dialector.Name()).Msg("Record store connected")
	return New(db), nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(withForeignKeys(strings.TrimPrefix(dsn, "sqlite:"))), nil
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(withForeignKeys(dsn)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, redactDSN(dsn))
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqliteForeignKeys
	}
	return dsn + "?" + sqliteForeignKeys
}

// redactDSN drops everything after the scheme so credentials never reach
// an error message.
func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "…"
	}
	if i := strings.Index(dsn, ":"); i >= 0 {
		return dsn[:i+1] + "…"
	}
	return "…"
}

// Dialect returns the gorm dialect name ("postgres" or "sqlite").
func (s *RecordStore) Dialect() string { return s.dialect }

// DB exposes the underlying connection for tests and tooling.
func (s *RecordStore) DB() *gorm.DB { return s.db }

// AutoMigrate creates or updates the media and images tables.
func (s *RecordStore) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Media{}, &Image{}); err != nil {
		return fmt.Errorf("failed to migrate record store: %w", err)
	}
	log.Info().Str("dialect", s.dialect).Msg("Applied record store migrations")
	return nil
}

// Close releases the database connection.
func (s *RecordStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve sql db: %w", err)
	}
	return sqlDB.Close()
}
