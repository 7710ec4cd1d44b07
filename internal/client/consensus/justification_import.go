// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package consensus

import (
	"context"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/libp2p/go-libp2p/core/peer"
)

// JustificationImport imports finality proofs independently of block bodies.
type JustificationImport interface {
	// OnStart returns the blocks for which justifications should be
	// requested when the import queue starts.
	OnStart(ctx context.Context) []types.NumberHash
	// ImportJustification imports a justification for the given block.
	// It returns an error wrapping ErrUnknownBlock if the block
	// is not imported yet.
	ImportJustification(ctx context.Context, hash common.Hash, number uint,
		justification types.Justification) error
}

// JustificationItem is a justification submitted to the import queue.
type JustificationItem struct {
	Hash          common.Hash
	Number        uint
	Justification types.Justification
	Who           *peer.ID
}
