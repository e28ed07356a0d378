package session

import (
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/drivemanager/drivectl/internal/constants"
)

var sessionBucket = []byte("session")

// BoltPort persists session keys in a bbolt database file.
type BoltPort struct {
	db *bolt.DB
}

// OpenBoltPort opens (or creates) the database at path.
// Callers must Close it.
func OpenBoltPort(path string) (*BoltPort, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: constants.BoltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialise session database: %w", err)
	}

	return &BoltPort{db: db}, nil
}

func (p *BoltPort) Get(key string) (string, error) {
	var value string
	err := p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(sessionBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		value = string(v)
		return nil
	})
	return value, err
}

func (p *BoltPort) Set(key, value string) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put([]byte(key), []byte(value))
	})
}

func (p *BoltPort) Delete(key string) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete([]byte(key))
	})
}

// Close releases the database file lock.
func (p *BoltPort) Close() error {
	return p.db.Close()
}
