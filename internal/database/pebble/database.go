// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package pebble provides a database implementation using pebble.
package pebble

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ChainSafe/blockimport/internal/database"
	"github.com/ChainSafe/blockimport/internal/log"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "pebble"))

var _ database.Database = (*Database)(nil)

// Database is a database implementation using pebble.
type Database struct {
	path   string
	db     *pebble.DB
	closed bool
	mutex  sync.RWMutex
}

// New opens a pebble database at the given path.
// If inMemory is true, the path is only used as a name within
// an in-memory filesystem.
func New(path string, inMemory bool) (*Database, error) {
	opts := &pebble.Options{}
	if inMemory {
		opts = &pebble.Options{FS: vfs.NewMem()}
	} else {
		if err := os.MkdirAll(path, os.ModePerm); err != nil {
			return nil, err
		}
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %w", err)
	}

	logger.Debugf("opened pebble database at %s (in memory: %t)", path, inMemory)

	return &Database{path: path, db: db}, nil
}

// Path returns the database path.
func (p *Database) Path() string {
	return p.path
}

// Get retrieves a copy of the value at the given key.
// It returns the wrapped error `database.ErrKeyNotFound` if the
// key is not found.
func (p *Database) Get(key []byte) (value []byte, err error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	if p.closed {
		return nil, database.ErrClosed
	}

	value, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: 0x%x", database.ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("getting 0x%x from database: %w", key, err)
	}

	valueCpy := make([]byte, len(value))
	copy(valueCpy, value)

	if err := closer.Close(); err != nil {
		return nil, fmt.Errorf("closing after get: %w", err)
	}

	return valueCpy, nil
}

// Set writes the value at the given key.
func (p *Database) Set(key, value []byte) error {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	if p.closed {
		return database.ErrClosed
	}

	err := p.db.Set(key, value, pebble.Sync)
	if err != nil {
		return fmt.Errorf("writing 0x%x to database: %w", key, err)
	}
	return nil
}

// Delete deletes the given key.
// If the key is not found, no error is returned.
func (p *Database) Delete(key []byte) error {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	if p.closed {
		return database.ErrClosed
	}

	err := p.db.Delete(key, pebble.Sync)
	if err != nil {
		return fmt.Errorf("deleting 0x%x from database: %w", key, err)
	}
	return nil
}

// NewWriteBatch returns a pebble batch committed atomically on Flush.
func (p *Database) NewWriteBatch() database.WriteBatch {
	return &writeBatch{
		database: p,
		batch:    p.db.NewBatch(),
	}
}

// Close closes the database.
func (p *Database) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed {
		return nil
	}

	p.closed = true
	return p.db.Close()
}

// DropAll deletes all keys from the database.
func (p *Database) DropAll() error {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	if p.closed {
		return database.ErrClosed
	}

	iter, err := p.db.NewIter(nil)
	if err != nil {
		return fmt.Errorf("creating iterator: %w", err)
	}

	batch := p.db.NewBatch()
	for valid := iter.First(); valid; valid = iter.Next() {
		err = batch.Delete(iter.Key(), nil)
		if err != nil {
			_ = iter.Close()
			_ = batch.Close()
			return fmt.Errorf("deleting key in batch: %w", err)
		}
	}

	err = iter.Close()
	if err != nil {
		_ = batch.Close()
		return fmt.Errorf("closing iterator: %w", err)
	}

	err = batch.Commit(pebble.Sync)
	if err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}
