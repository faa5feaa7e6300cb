// Package sqlite provides a SQLite-backed forge storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/riftforge/internal/forge/schema"
	"github.com/louisbranch/riftforge/internal/forge/storage"
	"github.com/louisbranch/riftforge/internal/forge/storage/sqlite/migrations"
	sqlitemigrate "github.com/louisbranch/riftforge/internal/platform/storage/sqlitemigrate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const tracerName = "github.com/louisbranch/riftforge/internal/forge/storage/sqlite"

// Store persists profiles, profile state and cached results in SQLite.
type Store struct {
	sqlDB       *sql.DB
	catalog     *schema.Catalog
	maxProfiles int
	strict      bool
	now         func() time.Time
	tracer      trace.Tracer
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithCatalog overrides the embedded schema catalog.
func WithCatalog(catalog *schema.Catalog) Option {
	return func(s *Store) {
		if catalog != nil {
			s.catalog = catalog
		}
	}
}

// WithMaxProfiles overrides the catalog profile limit. Values <= 0 are ignored.
func WithMaxProfiles(limit int) Option {
	return func(s *Store) {
		if limit > 0 {
			s.maxProfiles = limit
		}
	}
}

// WithStrictInvariants makes invariant violations panic instead of returning
// storage.ErrInvariantViolation.
func WithStrictInvariants(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}

// WithClock overrides the clock used to stamp timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(s *Store) {
		if provider != nil {
			s.tracer = provider.Tracer(tracerName)
		}
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a forge SQLite store at path and applies embedded migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	store := &Store{
		catalog: schema.Default(),
		now:     time.Now,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.maxProfiles <= 0 {
		store.maxProfiles = store.catalog.MaxProfiles
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if _, err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	store.sqlDB = sqlDB
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// MaxProfiles returns the configured profile limit.
func (s *Store) MaxProfiles() int {
	return s.maxProfiles
}

// Catalog returns the schema catalog the store normalizes against.
func (s *Store) Catalog() *schema.Catalog {
	return s.catalog
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("sqlite db is required")
	}
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside one transaction. The transaction is rolled back
// unless fn returns nil and the commit succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) startSpan(ctx context.Context, operation string, profileID int64) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("db.system", "sqlite")}
	if profileID > 0 {
		attrs = append(attrs, attribute.Int64("riftforge.profile_id", profileID))
	}
	return s.tracer.Start(ctx, "storage."+operation, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// invariantViolation reports a broken storage invariant. Strict stores panic.
func (s *Store) invariantViolation(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", storage.ErrInvariantViolation, fmt.Sprintf(format, args...))
	if s.strict {
		panic(err)
	}
	log.Printf("storage: %v", err)
	return err
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT ||
		code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE ||
		code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY ||
		code == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
