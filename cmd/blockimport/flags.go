// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"github.com/urfave/cli"
)

// Global flags
var (
	// logFlag sets the global log level.
	logFlag = cli.StringFlag{
		Name:  "log",
		Usage: "Global log level. Supports levels crit (silent), eror, warn, info, dbug and trce (trace)",
	}
	// logFormatFlag sets the global log format.
	logFormatFlag = cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format, either console or json",
		Value: "console",
	}
	// basePathFlag is the database directory.
	basePathFlag = cli.StringFlag{
		Name:  "base-path",
		Usage: "Database directory",
		Value: "./blockimport-data",
	}
	// databaseFlag selects the database backend.
	databaseFlag = cli.StringFlag{
		Name:  "database",
		Usage: "Database backend: badger, pebble or memory",
		Value: string(backendBadger),
	}
	// justificationPeriodFlag is the period of blocks requiring a justification.
	justificationPeriodFlag = cli.UintFlag{
		Name:  "justification-period",
		Usage: "Period of block numbers requiring a justification, 0 to disable",
	}
)

var globalFlags = []cli.Flag{
	logFlag,
	logFormatFlag,
	basePathFlag,
	databaseFlag,
	justificationPeriodFlag,
}

// Import flags
var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML import queue configuration file",
	}
	inputFlag = cli.StringFlag{
		Name:  "input",
		Usage: "Blocks file to import, one JSON block per line, starting with the genesis block",
	}
	batchSizeFlag = cli.IntFlag{
		Name:  "batch-size",
		Usage: "Number of blocks submitted to the import queue at once",
		Value: 128,
	}
)

// Export flags
var (
	outputFlag = cli.StringFlag{
		Name:  "output",
		Usage: "Blocks file to write, one JSON block per line",
	}
)
