// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package badger

import (
	"errors"
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v2"
)

var ErrPathSetInMemory = errors.New("path must be empty for an in-memory database")

// Settings is the database settings.
type Settings struct {
	// Path is the database directory path to use.
	// It defaults to the current directory if left unset.
	Path *string
	// InMemory runs the database in memory only.
	// It defaults to false.
	InMemory *bool
	// SyncWrites syncs every committed transaction to disk.
	// It defaults to true.
	SyncWrites *bool
}

// SetDefaults sets the default values on the settings.
func (s *Settings) SetDefaults() {
	if s.InMemory == nil {
		s.InMemory = ptrTo(false)
	}

	if s.Path == nil {
		s.Path = ptrTo("")
	}

	if s.SyncWrites == nil {
		s.SyncWrites = ptrTo(true)
	}
}

// Validate validates the settings.
func (s Settings) Validate() (err error) {
	if *s.InMemory {
		if *s.Path != "" {
			return fmt.Errorf("%w: %s", ErrPathSetInMemory, *s.Path)
		}
		return nil
	}

	_, err = filepath.Abs(*s.Path)
	if err != nil {
		return fmt.Errorf("changing path to absolute path: %w", err)
	}

	return nil
}

func (s Settings) badgerOptions() badger.Options {
	options := badger.DefaultOptions(*s.Path).
		WithLogger(nil).
		WithInMemory(*s.InMemory)
	if !*s.InMemory {
		options = options.WithSyncWrites(*s.SyncWrites)
	}
	return options
}

func ptrTo[T any](value T) *T { return &value }
