// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package db

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/internal/database"
	"github.com/ChainSafe/blockimport/internal/database/memory"
	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/stretchr/testify/require"
)

func newGenesis() types.Header {
	return *types.NewHeader(common.Hash{}, common.Hash{0xff}, common.Hash{}, 0, nil)
}

func newTestClient(t *testing.T, options Options) *Client {
	t.Helper()

	client, err := NewClient(memory.New(), newGenesis(), options)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

// newChildHeader returns a child header of parent, the salt
// differentiating siblings.
func newChildHeader(parent *types.Header, salt byte) *types.Header {
	return types.NewHeader(parent.Hash(), common.Hash{salt}, common.Hash{}, parent.Number+1, nil)
}

func newImportParams(header *types.Header) consensus.BlockImportParams {
	params := consensus.NewBlockImportParams(consensus.BlockOriginOwn, *header)
	params.ForkChoice = consensus.ForkChoiceLongestChain{}
	return params
}

func importHeader(t *testing.T, client *Client, header *types.Header) consensus.ImportedAux {
	t.Helper()

	result, err := client.ImportBlock(context.Background(), newImportParams(header))
	require.NoError(t, err)
	require.IsType(t, consensus.ImportResultImported{}, result)
	return result.(consensus.ImportResultImported).Aux
}

var errTest = errors.New("test error")

// failingDatabase wraps a database so write batches fail
// setting keys with the given prefix.
type failingDatabase struct {
	database.Database
	failPrefix []byte
	failFlush  bool
}

func (f *failingDatabase) NewWriteBatch() database.WriteBatch {
	return &failingWriteBatch{
		WriteBatch: f.Database.NewWriteBatch(),
		failPrefix: f.failPrefix,
		failFlush:  f.failFlush,
	}
}

type failingWriteBatch struct {
	database.WriteBatch
	failPrefix []byte
	failFlush  bool
}

func (f *failingWriteBatch) Set(key, value []byte) error {
	if len(f.failPrefix) > 0 && bytes.HasPrefix(key, f.failPrefix) {
		return errTest
	}
	return f.WriteBatch.Set(key, value)
}

func (f *failingWriteBatch) Flush() error {
	if f.failFlush {
		return errTest
	}
	return f.WriteBatch.Flush()
}
