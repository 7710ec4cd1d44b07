// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/ChainSafe/blockimport/internal/client/db"
	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/urfave/cli"
)

var exportBlocksCommand = cli.Command{
	Action:    exportBlocksAction,
	Name:      "export-blocks",
	Usage:     "Export the canonical chain to a blocks file",
	ArgsUsage: "",
	Flags: []cli.Flag{
		outputFlag,
	},
	Category: "EXPORT",
	Description: "The export-blocks command writes the canonical chain from genesis to the best block\n" +
		"\tas a JSON lines blocks file which import-blocks can read.\n" +
		"\tUsage: blockimport --base-path ./data export-blocks --output blocks.jsonl",
}

var errMissingOutput = errors.New("output file is required")

func exportBlocksAction(ctx *cli.Context) (err error) {
	outputPath := ctx.String(outputFlag.Name)
	if outputPath == "" {
		return fmt.Errorf("%w: set it with --%s", errMissingOutput, outputFlag.Name)
	}

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

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("closing output file: %w", closeErr)
		}
	}()

	buffered := bufio.NewWriter(file)
	exported, err := exportBlocks(client, newBlockWriter(buffered))
	if err != nil {
		return err
	}

	err = buffered.Flush()
	if err != nil {
		return fmt.Errorf("flushing output file: %w", err)
	}

	_, err = fmt.Fprintf(ctx.App.Writer, "exported %d blocks to %s\n", exported, outputPath)
	return err
}

// exportBlocks writes the canonical blocks from genesis to the best block.
func exportBlocks(client *db.Client, writer *blockWriter) (exported int, err error) {
	best := client.BestBlock()
	for number := uint(0); number <= best.Number; number++ {
		hash, err := client.HashByNumber(number)
		if err != nil {
			return exported, fmt.Errorf("getting canonical hash of block #%d: %w", number, err)
		}

		record, err := readBlockRecord(client, hash)
		if err != nil {
			return exported, fmt.Errorf("reading block #%d: %w", number, err)
		}

		err = writer.write(record)
		if err != nil {
			return exported, err
		}
		exported++
	}
	return exported, nil
}

func readBlockRecord(client *db.Client, hash common.Hash) (record blockRecord, err error) {
	header, err := client.Header(hash)
	if err != nil {
		return record, fmt.Errorf("getting header: %w", err)
	}
	record.Header = *header

	record.Body, err = client.Body(hash)
	if err != nil {
		return record, fmt.Errorf("getting body: %w", err)
	}

	record.Justifications, err = client.Justifications(hash)
	if err != nil {
		return record, fmt.Errorf("getting justifications: %w", err)
	}
	return record, nil
}
