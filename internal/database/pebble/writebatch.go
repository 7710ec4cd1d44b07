// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pebble

import (
	"fmt"

	"github.com/ChainSafe/blockimport/internal/database"
	"github.com/cockroachdb/pebble"
)

type writeBatch struct {
	database *Database
	batch    *pebble.Batch
}

func (wb *writeBatch) Set(key, value []byte) error {
	err := wb.batch.Set(key, value, nil)
	if err != nil {
		return fmt.Errorf("setting to batch writer: %w", err)
	}
	return nil
}

func (wb *writeBatch) Delete(key []byte) error {
	err := wb.batch.Delete(key, nil)
	if err != nil {
		return fmt.Errorf("setting to batch delete: %w", err)
	}
	return nil
}

// Flush commits the batch with a synced write.
func (wb *writeBatch) Flush() error {
	wb.database.mutex.RLock()
	defer wb.database.mutex.RUnlock()
	if wb.database.closed {
		return database.ErrClosed
	}

	err := wb.batch.Commit(pebble.Sync)
	if err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

func (wb *writeBatch) Cancel() {
	wb.batch.Reset()
}
