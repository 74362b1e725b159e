package consumable

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "consumables"

// ErrNotFound is returned when no consumable exists for a normalized key
var ErrNotFound = errors.New("consumable not found")

// ErrDuplicateKey is returned when an insert would violate normalized-key
// uniqueness. Callers should treat it as a retryable conflict.
var ErrDuplicateKey = errors.New("consumable already exists for normalized key")

// MergeFunc decides what a consumable record becomes on an upsert. It
// receives nil when no record exists for the key and returns the record to
// persist. Implementations of DB run it inside a single store transaction so
// concurrent upserts on the same key cannot lose updates.
type MergeFunc func(existing *Consumable) (*Consumable, error)

// DB defines the interface for consumable persistence
type DB interface {
	// FindByKey retrieves a consumable by its normalized key
	FindByKey(key string) (*Consumable, error)

	// Insert stores a new consumable; the normalized key must be unused
	Insert(c *Consumable) error

	// Update rewrites an existing consumable
	Update(c *Consumable) error

	// ListAll returns all consumables ordered by normalized key ascending
	ListAll() ([]*Consumable, error)

	// Upsert atomically reads the record for key, applies merge, and persists
	// the result
	Upsert(key string, merge MergeFunc) (*Consumable, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB. Records are keyed by
// normalized key, so bolt's byte-ordered iteration doubles as the sorted
// listing.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// FindByKey retrieves a consumable by its normalized key
func (b *BoltDB) FindByKey(key string) (*Consumable, error) {
	var consumable *Consumable
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &consumable)
	})
	if err != nil {
		return nil, err
	}
	return consumable, nil
}

// Insert stores a new consumable, enforcing normalized-key uniqueness
func (b *BoltDB) Insert(c *Consumable) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get([]byte(c.NormalizedKey)) != nil {
			return ErrDuplicateKey
		}
		return putConsumable(bucket, c)
	})
}

// Update rewrites an existing consumable
func (b *BoltDB) Update(c *Consumable) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get([]byte(c.NormalizedKey)) == nil {
			return ErrNotFound
		}
		return putConsumable(bucket, c)
	})
}

// ListAll returns all consumables ordered by normalized key ascending
func (b *BoltDB) ListAll() ([]*Consumable, error) {
	consumables := make([]*Consumable, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var c Consumable
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("unmarshaling consumable: %w", err)
			}
			consumables = append(consumables, &c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return consumables, nil
}

// Upsert reads, merges and writes the record for key in one bolt transaction
func (b *BoltDB) Upsert(key string, merge MergeFunc) (*Consumable, error) {
	var result *Consumable
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))

		var existing *Consumable
		if data := bucket.Get([]byte(key)); data != nil {
			if err := json.Unmarshal(data, &existing); err != nil {
				return fmt.Errorf("unmarshaling consumable: %w", err)
			}
		}

		merged, err := merge(existing)
		if err != nil {
			return err
		}
		if merged.NormalizedKey != key {
			return fmt.Errorf("merge changed normalized key from %q to %q", key, merged.NormalizedKey)
		}

		result = merged
		return putConsumable(bucket, merged)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func putConsumable(bucket *bbolt.Bucket, c *Consumable) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling consumable: %w", err)
	}
	return bucket.Put([]byte(c.NormalizedKey), data)
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
