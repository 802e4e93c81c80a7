// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of SQLite: no C compiler needed, works everywhere Go works.
//
// LAYOUT:
// DB owns the connection pool. Each table gets a small repository type
// (UserDB, GroupDB, PostDB, CommentDB, FollowDB) that shares the pool and
// implements one interface from the repository package. Get them through
// db.Users(), db.Posts() and so on.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// migrationsFS holds the versioned schema. Files follow golang-migrate's
// NNNNNN_name.up.sql / NNNNNN_name.down.sql convention.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

// DB wraps a sql.DB connection pool and hands out per-table repositories.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and applies all
// pending migrations.
//
// PRAGMAS IN THE DSN:
// PRAGMA foreign_keys is per-connection. Running it once with Exec would
// only configure whichever pooled connection happened to serve that call,
// so it goes into the DSN, which modernc applies to every new connection.
// journal_mode=WAL is stored in the database file itself, so one Exec is enough.
//
// IN-MEMORY DATABASES:
// Every connection to ":memory:" gets its OWN empty database. The pool is
// pinned to a single connection so all queries see the same data.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if dbPath == MemoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if dbPath != MemoryPath {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the users repository.
func (db *DB) Users() *UserDB { return &UserDB{conn: db.conn} }

// Groups returns the groups repository.
func (db *DB) Groups() *GroupDB { return &GroupDB{conn: db.conn} }

// Posts returns the posts repository.
func (db *DB) Posts() *PostDB { return &PostDB{conn: db.conn} }

// Comments returns the comments repository.
func (db *DB) Comments() *CommentDB { return &CommentDB{conn: db.conn} }

// Follows returns the follows repository.
func (db *DB) Follows() *FollowDB { return &FollowDB{conn: db.conn} }

// migrate applies every embedded migration that has not run yet.
//
// golang-migrate records the applied version in a schema_migrations table,
// so calling this on every start is safe: migrate.ErrNoChange just means
// the schema is already current.
//
// The migrate instance is deliberately NOT closed: closing the database
// driver would close our shared *sql.DB.
func (db *DB) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure. Repositories translate these into apperror.Conflict.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// isCheckViolation reports whether err is a CHECK constraint failure.
func isCheckViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_CHECK
}
