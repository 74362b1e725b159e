package consumable

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS consumables (
	id             TEXT PRIMARY KEY,
	display_name   TEXT NOT NULL,
	normalized_key TEXT NOT NULL UNIQUE,
	price_cents    INTEGER NOT NULL,
	quantity       INTEGER NOT NULL,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);`

// SQLiteDB implements the DB interface using SQLite. The UNIQUE constraint on
// normalized_key backs the uniqueness guarantee of Insert.
type SQLiteDB struct {
	db *sqlx.DB
}

// NewSQLiteDB opens (and if needed creates) a SQLite database at path
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating consumables table: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// FindByKey retrieves a consumable by its normalized key
func (s *SQLiteDB) FindByKey(key string) (*Consumable, error) {
	var c Consumable
	err := s.db.Get(&c, `SELECT * FROM consumables WHERE normalized_key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying consumable by key: %w", err)
	}
	return &c, nil
}

// Insert stores a new consumable, enforcing normalized-key uniqueness
func (s *SQLiteDB) Insert(c *Consumable) error {
	_, err := s.db.NamedExec(`
		INSERT INTO consumables (id, display_name, normalized_key, price_cents, quantity, created_at, updated_at)
		VALUES (:id, :display_name, :normalized_key, :price_cents, :quantity, :created_at, :updated_at)`, c)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("inserting consumable: %w", err)
	}
	return nil
}

// Update rewrites an existing consumable
func (s *SQLiteDB) Update(c *Consumable) error {
	res, err := s.db.NamedExec(`
		UPDATE consumables
		SET display_name = :display_name, price_cents = :price_cents, quantity = :quantity, updated_at = :updated_at
		WHERE normalized_key = :normalized_key`, c)
	if err != nil {
		return fmt.Errorf("updating consumable: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns all consumables ordered by normalized key ascending
func (s *SQLiteDB) ListAll() ([]*Consumable, error) {
	consumables := make([]*Consumable, 0)
	err := s.db.Select(&consumables, `SELECT * FROM consumables ORDER BY normalized_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing consumables: %w", err)
	}
	return consumables, nil
}

// Upsert reads, merges and writes the record for key in one immediate
// transaction, so concurrent upserts on the same key serialize
func (s *SQLiteDB) Upsert(key string, merge MergeFunc) (*Consumable, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing *Consumable
	var c Consumable
	err = tx.Get(&c, `SELECT * FROM consumables WHERE normalized_key = ?`, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First sighting of this key
	case err != nil:
		return nil, fmt.Errorf("querying consumable by key: %w", err)
	default:
		existing = &c
	}

	merged, err := merge(existing)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		_, err = tx.NamedExec(`
			INSERT INTO consumables (id, display_name, normalized_key, price_cents, quantity, created_at, updated_at)
			VALUES (:id, :display_name, :normalized_key, :price_cents, :quantity, :created_at, :updated_at)`, merged)
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
	} else {
		_, err = tx.NamedExec(`
			UPDATE consumables
			SET display_name = :display_name, price_cents = :price_cents, quantity = :quantity, updated_at = :updated_at
			WHERE normalized_key = :normalized_key`, merged)
	}
	if err != nil {
		return nil, fmt.Errorf("writing merged consumable: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return merged, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
