// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package badger provides a database implementation using badger v2.
package badger

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/blockimport/internal/database"
	"github.com/ChainSafe/blockimport/internal/log"
	badger "github.com/dgraph-io/badger/v2"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "badger"))

var _ database.Database = (*Database)(nil)

// Database is a database implementation using a badger v2 database.
type Database struct {
	db *badger.DB
}

// New opens a badger database with the settings given.
func New(settings Settings) (*Database, error) {
	settings.SetDefaults()
	err := settings.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating settings: %w", err)
	}

	db, err := badger.Open(settings.badgerOptions())
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}

	logger.Debugf("opened badger database at %q (in memory: %t, sync writes: %t)",
		*settings.Path, *settings.InMemory, *settings.SyncWrites)
	return &Database{db: db}, nil
}

// Get returns a copy of the value stored at the key. It returns
// an error wrapping database.ErrKeyNotFound if the key is not set.
func (d *Database) Get(key []byte) (value []byte, err error) {
	txn := d.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(key)
	if err != nil {
		return nil, fmt.Errorf("getting 0x%x: %w", key, transformError(err))
	}

	value, err = item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("copying value of 0x%x: %w", key, transformError(err))
	}
	return value, nil
}

// Set writes the value at the key in its own transaction.
func (d *Database) Set(key, value []byte) error {
	return d.update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete deletes the key in its own transaction. Deleting
// a key not set is not an error.
func (d *Database) Delete(key []byte) error {
	return d.update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (d *Database) update(write func(txn *badger.Txn) error) error {
	return transformError(d.db.Update(write))
}

// NewWriteBatch returns a batch backed by a single read-write
// transaction, so its writes become visible at once on Flush.
func (d *Database) NewWriteBatch() database.WriteBatch {
	return &writeBatch{txn: d.db.NewTransaction(true)}
}

// Close closes the database.
func (d *Database) Close() error {
	return transformError(d.db.Close())
}

// DropAll deletes all the keys of the database.
func (d *Database) DropAll() error {
	return transformError(d.db.DropAll())
}

// transformError maps badger errors to the database package errors.
func transformError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return database.ErrKeyNotFound
	case errors.Is(err, badger.ErrDBClosed):
		return database.ErrClosed
	default:
		return err
	}
}
