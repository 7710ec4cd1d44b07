// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"fmt"
	"os"

	"github.com/ChainSafe/blockimport/internal/log"
	"github.com/urfave/cli"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "cmd"))

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "blockimport"
	app.Usage = "Import, export and inspect chains of blocks"
	app.ErrWriter = os.Stderr
	app.Flags = globalFlags
	app.Before = setupLogging
	app.Commands = []cli.Command{
		importBlocksCommand,
		exportBlocksCommand,
		infoCommand,
	}
	return app
}

func setupLogging(ctx *cli.Context) error {
	format, err := log.ParseFormat(ctx.GlobalString(logFormatFlag.Name))
	if err != nil {
		return fmt.Errorf("parsing --%s: %w", logFormatFlag.Name, err)
	}
	options := []log.Option{log.SetFormat(format), log.SetWriter(ctx.App.ErrWriter)}

	if levelString := ctx.GlobalString(logFlag.Name); levelString != "" {
		level, err := log.ParseLevel(levelString)
		if err != nil {
			return fmt.Errorf("parsing --%s: %w", logFlag.Name, err)
		}
		options = append(options, log.SetLevel(level))
	}

	log.Patch(options...)
	return nil
}
