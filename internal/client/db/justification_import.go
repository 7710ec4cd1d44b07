// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/internal/client/db/columns"
	"github.com/ChainSafe/blockimport/internal/client/db/metakeys"
	"github.com/ChainSafe/blockimport/internal/database"
	"github.com/ChainSafe/blockimport/lib/common"
)

// OnStart returns the canonical blocks above the finalized block
// which require a justification and have none stored.
func (c *Client) OnStart(ctx context.Context) (blocks []types.NumberHash) {
	if c.options.JustificationPeriod == 0 {
		return nil
	}

	finalized := c.FinalizedBlock()
	best := c.BestBlock()
	period := c.options.JustificationPeriod
	first := (finalized.Number/period + 1) * period
	for number := first; number <= best.Number; number += period {
		if ctx.Err() != nil {
			return blocks
		}

		hash, err := c.HashByNumber(number)
		if err != nil {
			logger.Warnf("reading canonical hash at #%d: %s", number, err)
			continue
		}

		justifications, err := c.readJustifications(hash)
		if err != nil {
			logger.Warnf("reading justifications of block #%d (%s): %s", number, hash.Short(), err)
			continue
		}

		if _, ok := justifications.Get(*c.options.EngineID); ok {
			continue
		}
		blocks = append(blocks, types.NumberHash{Hash: hash, Number: number})
	}

	return blocks
}

// ImportJustification verifies and stores the justification, finalizing
// the block. The finalized block becomes the best block if it is not on the
// best chain. It returns an error wrapping consensus.ErrUnknownBlock if the
// block is not imported, and consensus.ErrJustificationInvalid if the
// justification is rejected.
func (c *Client) ImportJustification(_ context.Context, hash common.Hash, number uint,
	justification types.Justification) error {
	c.importMutex.Lock()
	defer c.importMutex.Unlock()

	bad, err := c.IsBad(hash)
	if err != nil {
		return backendFailure(err, "checking bad block %s", hash.Short())
	} else if bad {
		return fmt.Errorf("%w: block %s is bad", consensus.ErrJustificationInvalid, hash.Short())
	}

	header, err := readHeader(c.db, hash)
	if errors.Is(err, database.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", consensus.ErrUnknownBlock, hash.Short())
	} else if err != nil {
		return backendFailure(err, "reading header %s", hash.Short())
	}

	switch {
	case header.Number != number:
		return fmt.Errorf("%w: block %s has number %d and not %d",
			consensus.ErrJustificationInvalid, hash.Short(), header.Number, number)
	case justification.EngineID != *c.options.EngineID:
		return fmt.Errorf("%w: engine id %s is not %s", consensus.ErrJustificationInvalid,
			justification.EngineID, *c.options.EngineID)
	}

	err = c.options.JustificationVerifier(hash, number, justification)
	if err != nil {
		return fmt.Errorf("%w: %w", consensus.ErrJustificationInvalid, err)
	}

	justifications, err := c.readJustifications(hash)
	if err != nil {
		return backendFailure(err, "reading justifications of %s", hash.Short())
	}

	if !justifications.Append(justification) {
		// the block is justified already.
		return nil
	}

	encoded, err := justifications.Encode()
	if err != nil {
		return fmt.Errorf("encoding justifications: %w", err)
	}

	c.metaMutex.RLock()
	current := c.meta
	c.metaMutex.RUnlock()

	canonical, err := c.HashByNumber(number)
	if err != nil && !errors.Is(err, database.ErrKeyNotFound) {
		return backendFailure(err, "reading canonical hash at #%d", number)
	}
	onBestChain := err == nil && canonical == hash
	finalize := number > current.FinalizedNumber

	if !finalize && !onBestChain {
		return fmt.Errorf("%w: block #%d (%s) conflicts with finalized block #%d (%s)",
			consensus.ErrJustificationInvalid, number, hash.Short(),
			current.FinalizedNumber, current.FinalizedHash.Short())
	}

	batch := newImportBatch(c.db.NewWriteBatch())
	batch.set(columns.Justifications.Key(hash[:]), encoded)

	if finalize && !onBestChain {
		err = c.canonicalize(batch, current, hash, number, header.ParentHash)
		if err != nil {
			batch.cancel()
			return err
		}
		batch.set(columns.Meta.Key(metakeys.BestBlock), hash[:])
	}
	if finalize {
		batch.set(columns.Meta.Key(metakeys.FinalizedBlock), hash[:])
	}

	err = batch.flush()
	if err != nil {
		return backendFailure(err, "importing justification of block #%d (%s)", number, hash.Short())
	}

	c.pinned.updateJustifications(hash, justifications)

	if !finalize {
		return nil
	}

	c.metaMutex.Lock()
	if !onBestChain {
		arrival, err := readArrival(c.db, hash)
		if err != nil {
			logger.Warnf("reading arrival of block %s: %s", hash.Short(), err)
		}
		c.meta.BestHash = hash
		c.meta.BestNumber = number
		c.meta.BestArrival = arrival
	}
	c.meta.FinalizedHash = hash
	c.meta.FinalizedNumber = number
	c.metaMutex.Unlock()

	logger.Debugf("finalized block #%d (%s)", number, hash.Short())
	return nil
}
