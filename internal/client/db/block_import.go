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

var errBelowFinalized = errors.New("block is not a descendant of the finalized block")

// CheckBlock checks the block can be imported without importing it.
func (c *Client) CheckBlock(_ context.Context, params consensus.BlockCheckParams) (
	result consensus.ImportResult, err error) {
	for _, hash := range [...]common.Hash{params.Hash, params.ParentHash} {
		bad, err := c.IsBad(hash)
		if err != nil {
			return nil, fmt.Errorf("checking bad block %s: %w", hash.Short(), err)
		} else if bad {
			return consensus.ImportResultKnownBad{}, nil
		}
	}

	exists, err := c.HasBlock(params.Hash)
	if err != nil {
		return nil, fmt.Errorf("checking block %s: %w", params.Hash.Short(), err)
	} else if exists && !params.ImportExisting {
		return consensus.ImportResultAlreadyInChain{}, nil
	}

	parentExists, err := c.HasBlock(params.ParentHash)
	if err != nil {
		return nil, fmt.Errorf("checking parent %s: %w", params.ParentHash.Short(), err)
	}

	if !parentExists {
		switch {
		case params.AllowMissingParent:
			return consensus.ImportResultImported{}, nil
		case params.Number <= c.FinalizedBlock().Number:
			return consensus.ImportResultMissingParentOrForkingUp{}, nil
		default:
			return consensus.ImportResultUnknownParent{}, nil
		}
	}

	parentState, err := c.HasState(params.ParentHash)
	if err != nil {
		return nil, fmt.Errorf("checking parent state %s: %w", params.ParentHash.Short(), err)
	} else if !parentState && !params.AllowMissingState {
		return consensus.ImportResultMissingState{}, nil
	}

	return consensus.ImportResultImported{}, nil
}

// ImportBlock imports the block and all its data in a single write batch.
// Storage errors wrap consensus.ErrBackendFailure.
func (c *Client) ImportBlock(_ context.Context, params consensus.BlockImportParams) (
	result consensus.ImportResult, err error) {
	err = params.CheckFinal()
	if err != nil {
		return nil, err
	}

	c.importMutex.Lock()
	defer c.importMutex.Unlock()

	header := params.PostHeader()
	hash := params.Hash()

	bad, err := c.IsBad(hash)
	if err != nil {
		return nil, backendFailure(err, "checking bad block %s", hash.Short())
	} else if bad {
		return consensus.ImportResultKnownBad{}, nil
	}

	exists, err := c.HasBlock(hash)
	if err != nil {
		return nil, backendFailure(err, "checking block %s", hash.Short())
	} else if exists && !params.ImportExisting {
		return consensus.ImportResultAlreadyInChain{}, nil
	}

	parentExists, err := c.HasBlock(header.ParentHash)
	if err != nil {
		return nil, backendFailure(err, "checking parent %s", header.ParentHash.Short())
	} else if !parentExists {
		return consensus.ImportResultUnknownParent{}, nil
	}

	parentState, err := c.HasState(header.ParentHash)
	if err != nil {
		return nil, backendFailure(err, "checking parent state %s", header.ParentHash.Short())
	}

	writeState := false
	switch params.StateAction.(type) {
	case consensus.StateActionApplyChanges:
		writeState = true
	case consensus.StateActionExecute:
		if !parentState {
			return consensus.ImportResultMissingState{}, nil
		}
		writeState = true
	case consensus.StateActionExecuteIfPossible:
		writeState = parentState
	}

	c.metaMutex.RLock()
	current := c.meta
	c.metaMutex.RUnlock()

	arrival := current.Arrival + 1
	isNewBest, err := consensus.ResolveForkChoice(params.ForkChoice,
		consensus.Candidate{Hash: current.BestHash, Number: current.BestNumber, Arrival: current.BestArrival},
		consensus.Candidate{Hash: hash, Number: header.Number, Arrival: arrival},
		c.options.TieBreaker)
	if err != nil {
		return nil, err
	}

	justifications, finalize, badJustification := c.filterJustifications(hash, header.Number, params.Justifications)
	finalize = finalize || params.Finalized
	if finalize {
		if header.Number <= current.FinalizedNumber {
			return nil, fmt.Errorf("finalizing block #%d (%s): %w: finalized block is #%d",
				header.Number, hash.Short(), errBelowFinalized, current.FinalizedNumber)
		}
		// a finalized block is always on the best chain.
		isNewBest = true
	}

	encodedHeader, err := header.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}

	batch := newImportBatch(c.db.NewWriteBatch())
	batch.set(columns.Header.Key(hash[:]), encodedHeader)

	if params.Body != nil {
		encodedBody, err := params.Body.Encode()
		if err != nil {
			batch.cancel()
			return nil, fmt.Errorf("encoding body: %w", err)
		}
		batch.set(columns.Body.Key(hash[:]), c.encoder.EncodeAll(encodedBody, nil))
	}

	if len(justifications) > 0 {
		encodedJustifications, err := justifications.Encode()
		if err != nil {
			batch.cancel()
			return nil, fmt.Errorf("encoding justifications: %w", err)
		}
		batch.set(columns.Justifications.Key(hash[:]), encodedJustifications)
	}

	for _, entry := range params.Auxiliary {
		if entry.Value == nil {
			batch.delete(columns.Aux.Key(entry.Key))
			continue
		}
		batch.set(columns.Aux.Key(entry.Key), entry.Value)
	}

	if writeState {
		batch.set(columns.State.Key(hash[:]), stateMarker)
	}
	if changes, ok := params.StateAction.(consensus.StateActionApplyChanges); ok {
		for _, change := range changes.Changes {
			key := append(hash.ToBytes(), change.Key...)
			if change.Value == nil {
				batch.delete(columns.State.Key(key))
				continue
			}
			batch.set(columns.State.Key(key), change.Value)
		}
	}

	batch.set(columns.Arrival.Key(hash[:]), encodeUint64(arrival))
	batch.set(columns.Meta.Key(metakeys.ArrivalSequence), encodeUint64(arrival))

	batch.addChild(c.db, header.ParentHash, hash)

	if isNewBest {
		err = c.canonicalize(batch, current, hash, header.Number, header.ParentHash)
		if err != nil {
			batch.cancel()
			return nil, err
		}
		batch.set(columns.Meta.Key(metakeys.BestBlock), hash[:])
	}

	if finalize {
		batch.set(columns.Meta.Key(metakeys.FinalizedBlock), hash[:])
	}

	err = batch.flush()
	if err != nil {
		return nil, backendFailure(err, "importing block #%d (%s)", header.Number, hash.Short())
	}

	c.metaMutex.Lock()
	c.meta.Arrival = arrival
	if isNewBest {
		c.meta.BestHash = hash
		c.meta.BestNumber = header.Number
		c.meta.BestArrival = arrival
	}
	if finalize {
		c.meta.FinalizedHash = hash
		c.meta.FinalizedNumber = header.Number
	}
	c.metaMutex.Unlock()

	aux := consensus.ImportedAux{
		HeaderOnly:       params.Body == nil,
		BadJustification: badJustification,
		IsNewBest:        isNewBest,
		IsNewFinalized:   finalize,
	}
	aux.NeedsJustification = !finalize && c.needsJustification(header.Number)

	logger.Tracef("imported block #%d (%s) with parent %s, best: %t, finalized: %t",
		header.Number, hash.Short(), header.ParentHash.Short(), isNewBest, finalize)

	return consensus.ImportResultImported{Aux: aux}, nil
}

// filterJustifications returns the justifications to store with the block.
// A justification of the configured engine failing verification is
// dropped and reported as bad, otherwise it finalizes the block.
func (c *Client) filterJustifications(hash common.Hash, number uint,
	justifications types.Justifications) (kept types.Justifications, finalize, bad bool) {
	for _, justification := range justifications {
		if justification.EngineID != *c.options.EngineID {
			kept = append(kept, justification)
			continue
		}

		err := c.options.JustificationVerifier(hash, number, justification)
		if err != nil {
			logger.Debugf("dropping justification of block #%d (%s): %s", number, hash.Short(), err)
			bad = true
			continue
		}
		kept = append(kept, justification)
		finalize = true
	}
	return kept, finalize, bad
}

func (c *Client) needsJustification(number uint) bool {
	period := c.options.JustificationPeriod
	return period > 0 && number%period == 0
}

// canonicalize writes the number index entries making the block given
// the head of the canonical chain. Index entries above the block number
// and up to the current best number are removed. It fails if the
// route retracts the finalized block.
func (c *Client) canonicalize(batch *importBatch, current meta,
	hash common.Hash, number uint, parentHash common.Hash) error {
	key, err := newNumberIndexKey(number)
	if err != nil {
		return err
	}
	batch.set(columns.KeyLookup.Key(key[:]), hash[:])

	// walk back until the common ancestor with the canonical chain.
	ancestor := parentHash
	n := number
	for n > 0 {
		n--
		canonical, err := c.HashByNumber(n)
		if err == nil && canonical == ancestor {
			break
		} else if err != nil && !errors.Is(err, database.ErrKeyNotFound) {
			return backendFailure(err, "reading canonical hash at #%d", n)
		}

		key, err := newNumberIndexKey(n)
		if err != nil {
			return err
		}
		batch.set(columns.KeyLookup.Key(key[:]), ancestor[:])

		header, err := readHeader(c.db, ancestor)
		if err != nil {
			return backendFailure(err, "reading ancestor #%d", n)
		}
		ancestor = header.ParentHash
	}

	if n < current.FinalizedNumber {
		return fmt.Errorf("making block #%d (%s) canonical: %w",
			number, hash.Short(), errBelowFinalized)
	}

	for n := number + 1; n <= current.BestNumber; n++ {
		key, err := newNumberIndexKey(n)
		if err != nil {
			return err
		}
		batch.delete(columns.KeyLookup.Key(key[:]))
	}

	return nil
}

func backendFailure(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", consensus.ErrBackendFailure, fmt.Sprintf(format, args...), err)
}

// importBatch is a write batch keeping the first write error.
type importBatch struct {
	batch database.WriteBatch
	err   error
}

func newImportBatch(batch database.WriteBatch) *importBatch {
	return &importBatch{batch: batch}
}

func (b *importBatch) set(key, value []byte) {
	if b.err != nil {
		return
	}
	err := b.batch.Set(key, value)
	if err != nil {
		b.err = fmt.Errorf("setting key %q: %w", key, err)
	}
}

func (b *importBatch) delete(key []byte) {
	if b.err != nil {
		return
	}
	err := b.batch.Delete(key)
	if err != nil {
		b.err = fmt.Errorf("deleting key %q: %w", key, err)
	}
}

func (b *importBatch) addChild(reader database.Reader, parentHash, childHash common.Hash) {
	if b.err != nil {
		return
	}
	err := addChild(reader, b.batch, parentHash, childHash)
	if err != nil {
		b.err = fmt.Errorf("adding child of %s: %w", parentHash.Short(), err)
	}
}

func (b *importBatch) cancel() {
	b.batch.Cancel()
}

// flush commits the batch, or cancels it if a write failed.
func (b *importBatch) flush() error {
	if b.err != nil {
		b.batch.Cancel()
		return b.err
	}

	err := b.batch.Flush()
	if err != nil {
		b.batch.Cancel()
		return fmt.Errorf("flushing batch: %w", err)
	}
	return nil
}
