// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package memory

type operationKind uint8

const (
	operationSet operationKind = iota
	operationDelete
)

type operation struct {
	kind  operationKind
	key   string
	value []byte
}

func newSetOperation(key, value []byte) operation {
	return operation{kind: operationSet, key: string(key), value: copyBytes(value)}
}

func newDeleteOperation(key []byte) operation {
	return operation{kind: operationDelete, key: string(key)}
}

// writeBatch records operations and applies them all at once
// under the database lock on Flush.
type writeBatch struct {
	database   *Database
	operations []operation
}

func (wb *writeBatch) Set(key, value []byte) error {
	wb.operations = append(wb.operations, newSetOperation(key, value))
	return nil
}

func (wb *writeBatch) Delete(key []byte) error {
	wb.operations = append(wb.operations, newDeleteOperation(key))
	return nil
}

// Flush applies the recorded operations atomically and resets the batch.
func (wb *writeBatch) Flush() error {
	err := wb.database.apply(wb.operations)
	if err != nil {
		return err
	}
	wb.operations = nil
	return nil
}

// Cancel discards the recorded operations.
func (wb *writeBatch) Cancel() {
	wb.operations = nil
}
