// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package database defines the key value storage contracts
// the chain backend is written against.
package database

import (
	"errors"
)

var (
	// ErrKeyNotFound is returned when a key is not found in the database.
	ErrKeyNotFound = errors.New("key not found")
	// ErrClosed is returned when operating on a closed database.
	ErrClosed = errors.New("database closed")
)

// Reader reads values from the database.
type Reader interface {
	Get(key []byte) (value []byte, err error)
}

// Writer writes values to the database.
type Writer interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// WriteBatch is a set of writes applied atomically on Flush.
// Either all the writes are committed or none are.
// It is not safe for concurrent use.
type WriteBatch interface {
	Writer
	Flush() error
	Cancel()
}

// Database is a key value database.
// All methods are safe for concurrent use.
type Database interface {
	Reader
	Writer
	NewWriteBatch() WriteBatch
	Close() error
	DropAll() error
}

// Has returns true if the key exists in the reader.
func Has(reader Reader, key []byte) (has bool, err error) {
	_, err = reader.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}
