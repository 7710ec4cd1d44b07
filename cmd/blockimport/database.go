// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"fmt"

	"github.com/ChainSafe/blockimport/internal/client/db"
	"github.com/ChainSafe/blockimport/internal/database"
	"github.com/ChainSafe/blockimport/internal/database/badger"
	"github.com/ChainSafe/blockimport/internal/database/memory"
	"github.com/ChainSafe/blockimport/internal/database/pebble"
	"github.com/urfave/cli"
)

type backend string

const (
	backendBadger backend = "badger"
	backendPebble backend = "pebble"
	backendMemory backend = "memory"
)

func openDatabase(ctx *cli.Context) (database.Database, error) {
	path := ctx.GlobalString(basePathFlag.Name)
	switch backend(ctx.GlobalString(databaseFlag.Name)) {
	case backendBadger:
		return badger.New(badger.Settings{Path: &path})
	case backendPebble:
		return pebble.New(path, false)
	case backendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("database backend %q is not supported", ctx.GlobalString(databaseFlag.Name))
	}
}

func clientOptions(ctx *cli.Context) db.Options {
	return db.Options{
		JustificationPeriod: ctx.GlobalUint(justificationPeriodFlag.Name),
	}
}

// openClient opens the client of an existing chain database.
func openClient(ctx *cli.Context) (*db.Client, error) {
	database, err := openDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	client, err := db.OpenClient(database, clientOptions(ctx))
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("opening chain: %w", err)
	}
	return client, nil
}
