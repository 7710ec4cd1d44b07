// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"fmt"

	"github.com/urfave/cli"
)

var infoCommand = cli.Command{
	Action:   infoAction,
	Name:     "info",
	Usage:    "Print the genesis, best and finalized blocks of the chain database",
	Category: "EXPORT",
	Description: "The info command prints the chain heads stored in the database.\n" +
		"\tUsage: blockimport --base-path ./data info",
}

func infoAction(ctx *cli.Context) (err error) {
	client, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := client.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("closing client: %w", closeErr)
		}
	}()

	_, err = fmt.Fprintf(ctx.App.Writer, "genesis:   %s\nbest:      %s\nfinalized: %s\n",
		client.GenesisHash(), client.BestBlock(), client.FinalizedBlock())
	return err
}
