// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package db

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/lib/common"
)

var errEmptyJustification = errors.New("justification is empty")

// JustificationVerifier verifies a justification for a block.
type JustificationVerifier func(hash common.Hash, number uint, justification types.Justification) error

// Options are the client options.
type Options struct {
	// TieBreaker picks the best block among chains of equal length.
	// It defaults to consensus.LowestHash.
	TieBreaker consensus.TieBreaker
	// EngineID is the engine of justifications accepted by the client.
	// It defaults to the GRANDPA engine id.
	EngineID *types.ConsensusEngineID
	// JustificationVerifier defaults to accepting any non empty
	// justification of the configured engine.
	JustificationVerifier JustificationVerifier
	// JustificationPeriod is the period of block numbers for which a
	// justification is required. Zero means no justification is required.
	JustificationPeriod uint
	// PinnedBlocksCacheSize is the number of blocks whose body and
	// justifications can be pinned in memory.
	PinnedBlocksCacheSize int
}

// SetDefaults sets the default values on the options.
func (o *Options) SetDefaults() {
	if o.TieBreaker == nil {
		o.TieBreaker = consensus.LowestHash
	}

	if o.EngineID == nil {
		engineID := types.GrandpaEngineID
		o.EngineID = &engineID
	}

	if o.JustificationVerifier == nil {
		o.JustificationVerifier = nonEmptyJustification
	}

	if o.PinnedBlocksCacheSize == 0 {
		o.PinnedBlocksCacheSize = defaultPinnedBlocksCacheSize
	}
}

// Validate validates the options.
func (o Options) Validate() error {
	if o.PinnedBlocksCacheSize < 0 {
		return fmt.Errorf("pinned blocks cache size cannot be negative: %d", o.PinnedBlocksCacheSize)
	}
	return nil
}

func nonEmptyJustification(_ common.Hash, _ uint, justification types.Justification) error {
	if len(justification.Data) == 0 {
		return errEmptyJustification
	}
	return nil
}
