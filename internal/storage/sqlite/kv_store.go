package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// KVStore is a string key-value store in the local_storage table. It is an
// alternative backend to the JSON document for operators who keep the
// session next to other SQLite state.
type KVStore struct {
	db *DB
}

// NewKVStore creates a key-value store on a migrated database
func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the value stored under key
func (s *KVStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM local_storage WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// SetMany upserts all entries in one transaction
func (s *KVStore) SetMany(entries map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for k, v := range entries {
		_, err := tx.Exec(`
			INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
			k, v, now)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete removes keys; missing keys are ignored
func (s *KVStore) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.Exec("DELETE FROM local_storage WHERE key = ?", k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Keys returns all stored keys in sorted order
func (s *KVStore) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM local_storage ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
