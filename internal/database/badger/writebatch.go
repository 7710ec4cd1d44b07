// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package badger

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v2"
)

// writeBatch wraps a badger update transaction.
// Badger's own WriteBatch may commit in several transactions
// once it grows large, so it is not used here.
type writeBatch struct {
	txn *badger.Txn
}

// Set sets a value at the given key in the batch.
func (wb *writeBatch) Set(key, value []byte) (err error) {
	// badger keeps references to the slices until commit.
	err = wb.txn.Set(copyBytes(key), copyBytes(value))
	if err != nil {
		return fmt.Errorf("setting in transaction: %w", transformError(err))
	}
	return nil
}

// Delete deletes the given key in the batch.
func (wb *writeBatch) Delete(key []byte) (err error) {
	err = wb.txn.Delete(copyBytes(key))
	if err != nil {
		return fmt.Errorf("deleting in transaction: %w", transformError(err))
	}
	return nil
}

// Flush commits the batch transaction to the database.
func (wb *writeBatch) Flush() (err error) {
	err = wb.txn.Commit()
	if err != nil {
		return fmt.Errorf("committing transaction: %w", transformError(err))
	}
	return nil
}

// Cancel discards the batch transaction.
func (wb *writeBatch) Cancel() {
	wb.txn.Discard()
}

func copyBytes(b []byte) (bCopy []byte) {
	bCopy = make([]byte, len(b))
	copy(bCopy, b)
	return bCopy
}
