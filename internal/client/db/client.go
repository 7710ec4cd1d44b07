// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package db implements a chain backend on a key value database,
// importing blocks and justifications atomically.
package db

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/internal/client/db/columns"
	"github.com/ChainSafe/blockimport/internal/client/db/metakeys"
	"github.com/ChainSafe/blockimport/internal/database"
	"github.com/ChainSafe/blockimport/internal/log"
	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/zstd"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "client-db"))

var (
	_ consensus.BlockImport         = (*Client)(nil)
	_ consensus.JustificationImport = (*Client)(nil)
)

// stateMarker is the value stored in the state column for blocks
// whose state is available.
var stateMarker = []byte{1}

// Client is a chain backend storing blocks in a key value database.
// It implements consensus.BlockImport and consensus.JustificationImport.
type Client struct {
	db      database.Database
	options Options

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	// importMutex serializes writes to the database.
	importMutex sync.Mutex
	metaMutex   sync.RWMutex
	meta        meta

	pinned      *pinnedBlocksCache
}

var errNoGenesis = errors.New("database has no genesis block")

// NewClient returns a client using the database given. The genesis block
// is written to the database if the database has no genesis block yet.
func NewClient(db database.Database, genesis types.Header, options Options) (client *Client, err error) {
	client, err = newClient(db, options)
	if err != nil {
		return nil, err
	}

	client.meta, err = readMeta(db)
	switch {
	case err == nil:
		if client.meta.GenesisHash != genesis.Hash() {
			return nil, fmt.Errorf("genesis mismatch: database has %s and given genesis is %s",
				client.meta.GenesisHash, genesis.Hash())
		}
	case errors.Is(err, database.ErrKeyNotFound):
		err = client.writeGenesis(genesis)
		if err != nil {
			return nil, fmt.Errorf("writing genesis: %w", err)
		}
	default:
		return nil, fmt.Errorf("reading meta: %w", err)
	}

	client.logReady()
	return client, nil
}

// OpenClient returns a client using a database which already
// holds a chain.
func OpenClient(db database.Database, options Options) (client *Client, err error) {
	client, err = newClient(db, options)
	if err != nil {
		return nil, err
	}

	client.meta, err = readMeta(db)
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %w", errNoGenesis, err)
	} else if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}

	client.logReady()
	return client, nil
}

func newClient(db database.Database, options Options) (*Client, error) {
	options.SetDefaults()
	err := options.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating options: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	pinned, err := newPinnedBlocksCache(options.PinnedBlocksCacheSize)
	if err != nil {
		return nil, err
	}

	return &Client{
		db:      db,
		options: options,
		encoder: encoder,
		decoder: decoder,
		pinned:  pinned,
	}, nil
}

func (c *Client) logReady() {
	logger.Debugf("chain client ready with best block #%d (%s) and finalized block #%d (%s)",
		c.meta.BestNumber, c.meta.BestHash.Short(),
		c.meta.FinalizedNumber, c.meta.FinalizedHash.Short())
}

func (c *Client) writeGenesis(genesis types.Header) error {
	hash := genesis.Hash()
	encodedHeader, err := genesis.Encode()
	if err != nil {
		return fmt.Errorf("encoding genesis header: %w", err)
	}

	numberKey, err := newNumberIndexKey(genesis.Number)
	if err != nil {
		return err
	}

	batch := c.db.NewWriteBatch()
	writes := []struct {
		key   []byte
		value []byte
	}{
		{columns.Header.Key(hash[:]), encodedHeader},
		{columns.State.Key(hash[:]), stateMarker},
		{columns.Arrival.Key(hash[:]), encodeUint64(0)},
		{columns.KeyLookup.Key(numberKey[:]), hash[:]},
		{columns.Meta.Key(metakeys.GenesisHash), hash[:]},
		{columns.Meta.Key(metakeys.BestBlock), hash[:]},
		{columns.Meta.Key(metakeys.FinalizedBlock), hash[:]},
		{columns.Meta.Key(metakeys.ArrivalSequence), encodeUint64(0)},
	}
	for _, write := range writes {
		err = batch.Set(write.key, write.value)
		if err != nil {
			batch.Cancel()
			return fmt.Errorf("writing genesis to batch: %w", err)
		}
	}

	err = batch.Flush()
	if err != nil {
		return fmt.Errorf("flushing genesis batch: %w", err)
	}

	c.meta = meta{
		BestHash:        hash,
		BestNumber:      genesis.Number,
		FinalizedHash:   hash,
		FinalizedNumber: genesis.Number,
		GenesisHash:     hash,
	}
	return nil
}

// BestBlock returns the number and hash of the best block.
func (c *Client) BestBlock() types.NumberHash {
	c.metaMutex.RLock()
	defer c.metaMutex.RUnlock()
	return types.NumberHash{Hash: c.meta.BestHash, Number: c.meta.BestNumber}
}

// FinalizedBlock returns the number and hash of the last finalized block.
func (c *Client) FinalizedBlock() types.NumberHash {
	c.metaMutex.RLock()
	defer c.metaMutex.RUnlock()
	return types.NumberHash{Hash: c.meta.FinalizedHash, Number: c.meta.FinalizedNumber}
}

// GenesisHash returns the genesis block hash.
func (c *Client) GenesisHash() common.Hash {
	c.metaMutex.RLock()
	defer c.metaMutex.RUnlock()
	return c.meta.GenesisHash
}

// Header returns the header of the block. It returns an error
// wrapping database.ErrKeyNotFound if the block is unknown.
func (c *Client) Header(hash common.Hash) (*types.Header, error) {
	return readHeader(c.db, hash)
}

// HasBlock returns true if the block header is stored.
func (c *Client) HasBlock(hash common.Hash) (bool, error) {
	return database.Has(c.db, columns.Header.Key(hash[:]))
}

// HasState returns true if the state of the block is available.
func (c *Client) HasState(hash common.Hash) (bool, error) {
	return database.Has(c.db, columns.State.Key(hash[:]))
}

// Body returns the body of the block, or nil if no body was imported.
func (c *Client) Body(hash common.Hash) (*types.Body, error) {
	if body, ok := c.pinned.body(hash); ok {
		return body, nil
	}

	compressed, err := c.db.Get(columns.Body.Key(hash[:]))
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("getting body: %w", err)
	}

	encoded, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing body: %w", err)
	}

	decoded, err := types.DecodeBody(encoded)
	if err != nil {
		return nil, err
	}
	return &decoded, nil
}

// Justifications returns the justifications stored for the block.
func (c *Client) Justifications(hash common.Hash) (types.Justifications, error) {
	if justifications, ok := c.pinned.justifications(hash); ok {
		return justifications, nil
	}

	return c.readJustifications(hash)
}

func (c *Client) readJustifications(hash common.Hash) (types.Justifications, error) {
	encoded, err := c.db.Get(columns.Justifications.Key(hash[:]))
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("getting justifications: %w", err)
	}

	return types.DecodeJustifications(encoded)
}

// HashByNumber returns the hash of the canonical block at the given number.
// It returns an error wrapping database.ErrKeyNotFound if there is no
// canonical block at this number.
func (c *Client) HashByNumber(number uint) (common.Hash, error) {
	key, err := newNumberIndexKey(number)
	if err != nil {
		return common.Hash{}, err
	}
	return readHash(c.db, columns.KeyLookup.Key(key[:]))
}

// Children returns the hashes of the children of the block.
func (c *Client) Children(hash common.Hash) ([]common.Hash, error) {
	return readChildren(c.db, hash)
}

// Aux returns the auxiliary value stored at the key. It returns an error
// wrapping database.ErrKeyNotFound if the key is not set.
func (c *Client) Aux(key []byte) ([]byte, error) {
	return c.db.Get(columns.Aux.Key(key))
}

// IsBad returns true if the block was marked as bad.
func (c *Client) IsBad(hash common.Hash) (bool, error) {
	return database.Has(c.db, columns.BadBlocks.Key(hash[:]))
}

// MarkBad persists the block hash as bad. Blocks marked as bad,
// and their descendants, are reported as known bad on import.
func (c *Client) MarkBad(hash common.Hash) error {
	c.importMutex.Lock()
	defer c.importMutex.Unlock()

	err := c.db.Set(columns.BadBlocks.Key(hash[:]), []byte{})
	if err != nil {
		return fmt.Errorf("%w: marking block %s as bad: %w",
			consensus.ErrBackendFailure, hash.Short(), err)
	}
	logger.Infof("marked block %s as bad", hash.Short())
	return nil
}

// PinBlock keeps the body and justifications of the block in memory
// until a matching UnpinBlock call.
func (c *Client) PinBlock(hash common.Hash) error {
	body, err := c.Body(hash)
	if err != nil {
		return err
	}

	justifications, err := c.readJustifications(hash)
	if err != nil {
		return err
	}

	c.pinned.pin(hash, body, justifications)
	return nil
}

// UnpinBlock releases a pin of the block.
func (c *Client) UnpinBlock(hash common.Hash) {
	c.pinned.unpin(hash)
}

// Close closes the client and its database.
func (c *Client) Close() error {
	c.importMutex.Lock()
	defer c.importMutex.Unlock()

	var errs *multierror.Error
	if err := c.encoder.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("closing zstd encoder: %w", err))
	}
	c.decoder.Close()

	c.pinned.purge()

	if err := c.db.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("closing database: %w", err))
	}

	return errs.ErrorOrNil()
}
