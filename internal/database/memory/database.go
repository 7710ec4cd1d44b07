// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package memory provides an in-memory database implementation.
package memory

import (
	"fmt"
	"sync"

	"github.com/ChainSafe/blockimport/internal/database"
)

var _ database.Database = (*Database)(nil)

// Database is an in-memory database, used for tests and
// throwaway imports.
type Database struct {
	mutex sync.RWMutex
	// keyValues is nil once the database is closed.
	keyValues map[string][]byte
}

// New returns a new empty in-memory database.
func New() *Database {
	return &Database{
		keyValues: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored at the key. It returns
// an error wrapping database.ErrKeyNotFound if the key is not set.
func (db *Database) Get(key []byte) (value []byte, err error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	if db.keyValues == nil {
		return nil, database.ErrClosed
	}

	value, ok := db.keyValues[string(key)]
	if !ok {
		return nil, fmt.Errorf("getting 0x%x: %w", key, database.ErrKeyNotFound)
	}
	return copyBytes(value), nil
}

// Set stores a copy of the value at the key.
func (db *Database) Set(key, value []byte) error {
	return db.apply([]operation{newSetOperation(key, value)})
}

// Delete deletes the key. Deleting a key not set is not an error.
func (db *Database) Delete(key []byte) error {
	return db.apply([]operation{newDeleteOperation(key)})
}

// apply applies the operations atomically.
func (db *Database) apply(operations []operation) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if db.keyValues == nil {
		return database.ErrClosed
	}

	for _, op := range operations {
		switch op.kind {
		case operationSet:
			db.keyValues[op.key] = op.value
		case operationDelete:
			delete(db.keyValues, op.key)
		}
	}
	return nil
}

// NewWriteBatch returns a batch applying its operations atomically on
// Flush. The batch itself is not safe for concurrent use.
func (db *Database) NewWriteBatch() database.WriteBatch {
	return &writeBatch{database: db}
}

// Close releases the stored data. Operations on a closed
// database return database.ErrClosed.
func (db *Database) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.keyValues = nil
	return nil
}

// DropAll deletes all the keys of the database.
func (db *Database) DropAll() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if db.keyValues == nil {
		return database.ErrClosed
	}

	db.keyValues = make(map[string][]byte)
	return nil
}

func copyBytes(b []byte) []byte {
	return append(make([]byte, 0, len(b)), b...)
}
