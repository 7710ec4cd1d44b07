// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/internal/client/consensus/queue"
	"github.com/ChainSafe/blockimport/internal/client/db"
	"github.com/urfave/cli"
)

var importBlocksCommand = cli.Command{
	Action:    importBlocksAction,
	Name:      "import-blocks",
	Usage:     "Import blocks from a blocks file through the import queue",
	ArgsUsage: "",
	Flags: []cli.Flag{
		inputFlag,
		configFlag,
		batchSizeFlag,
	},
	Category: "IMPORT",
	Description: "The import-blocks command imports the blocks of a JSON lines file.\n" +
		"\tThe first block of the file must be the genesis block.\n" +
		"\tUsage: blockimport --base-path ./data import-blocks --input blocks.jsonl",
}

var errMissingInput = errors.New("blocks file is required")

func importBlocksAction(ctx *cli.Context) (err error) {
	inputPath := ctx.String(inputFlag.Name)
	if inputPath == "" {
		return fmt.Errorf("%w: set it with --%s", errMissingInput, inputFlag.Name)
	}

	batchSize := ctx.Int(batchSizeFlag.Name)
	if batchSize < 1 {
		return fmt.Errorf("batch size must be at least 1: %d", batchSize)
	}

	config, err := loadQueueConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("opening blocks file: %w", err)
	}
	defer file.Close()

	reader := newBlockReader(file)
	genesis, err := reader.read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("blocks file %s is empty", inputPath)
	} else if err != nil {
		return err
	} else if genesis.Header.Number != 0 {
		return fmt.Errorf("first block of blocks file has number %d instead of 0", genesis.Header.Number)
	}

	database, err := openDatabase(ctx)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	client, err := db.NewClient(database, genesis.Header, clientOptions(ctx))
	if err != nil {
		_ = database.Close()
		return fmt.Errorf("creating client: %w", err)
	}
	defer func() {
		closeErr := client.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("closing client: %w", closeErr)
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := importBlocks(signalCtx, config, client, reader, batchSize)
	if err != nil {
		return err
	}

	best := client.BestBlock()
	finalized := client.FinalizedBlock()
	_, err = fmt.Fprintf(ctx.App.Writer, "%s, best block %s, finalized block %s\n",
		summary, best, finalized)
	return err
}

func loadQueueConfig(path string) (config queue.Config, err error) {
	if path == "" {
		return config, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return config, fmt.Errorf("opening config file: %w", err)
	}
	defer file.Close()

	config, err = queue.LoadConfig(file)
	if err != nil {
		return config, fmt.Errorf("loading config file %s: %w", path, err)
	}
	return config, nil
}

// importBlocks submits the blocks of the reader to an import queue
// writing to the client, and waits for all of them to be processed.
func importBlocks(ctx context.Context, config queue.Config, client *db.Client,
	reader *blockReader, batchSize int) (summary importSummary, err error) {
	if config.Logger == nil {
		config.Logger = logger
	}

	importQueue, err := queue.New(config, client, consensus.LongestChainVerifier{}, client)
	if err != nil {
		return summary, fmt.Errorf("creating import queue: %w", err)
	}

	err = importQueue.Start()
	if err != nil {
		return summary, fmt.Errorf("starting import queue: %w", err)
	}

	link := newProgressLink()
	pollingDone := make(chan struct{})
	pollCtx, cancelPolling := context.WithCancel(ctx)
	go func() {
		defer close(pollingDone)
		pollReports(pollCtx, importQueue, link)
	}()

	submitted, err := submitBlocks(ctx, importQueue, reader, batchSize)
	if err == nil {
		err = waitProcessed(ctx, importQueue, link, submitted)
	}

	stopErr := importQueue.Stop()
	cancelPolling()
	<-pollingDone
	// Flush reports of blocks cancelled by Stop.
	importQueue.PollActions(link)

	if err != nil {
		return link.summary(), err
	} else if stopErr != nil {
		return link.summary(), fmt.Errorf("stopping import queue: %w", stopErr)
	}
	return link.summary(), nil
}

func submitBlocks(ctx context.Context, importQueue *queue.Queue,
	reader *blockReader, batchSize int) (submitted int, err error) {
	blocks := make([]consensus.IncomingBlock, 0, batchSize)
	for {
		record, err := reader.read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return submitted, err
		}

		blocks = append(blocks, record.incomingBlock())
		if len(blocks) < batchSize {
			continue
		}

		err = importQueue.ImportBlocks(ctx, consensus.BlockOriginFile, blocks)
		if err != nil {
			return submitted, fmt.Errorf("submitting blocks: %w", err)
		}
		submitted += len(blocks)
		blocks = make([]consensus.IncomingBlock, 0, batchSize)
	}

	if len(blocks) > 0 {
		err = importQueue.ImportBlocks(ctx, consensus.BlockOriginFile, blocks)
		if err != nil {
			return submitted, fmt.Errorf("submitting blocks: %w", err)
		}
		submitted += len(blocks)
	}

	logger.Debugf("submitted %d blocks", submitted)
	return submitted, nil
}

func pollReports(ctx context.Context, importQueue *queue.Queue, link *progressLink) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-importQueue.Ready():
			importQueue.PollActions(link)
		}
	}
}

func waitProcessed(ctx context.Context, importQueue *queue.Queue,
	link *progressLink, submitted int) error {
	for {
		if link.processedCount() >= submitted {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-importQueue.Fatal():
			return fmt.Errorf("import queue halted: %w", err)
		case <-link.progress:
		}
	}
}
