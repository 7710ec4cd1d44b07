// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package consensus

import (
	"fmt"

	"github.com/ChainSafe/blockimport/lib/common"
)

// Candidate is a chain head competing to be the best block.
type Candidate struct {
	Hash   common.Hash
	Number uint
	// Arrival is the import sequence number of the block,
	// lower values having been seen first.
	Arrival uint64
}

// TieBreaker returns true if a wins over b for chains of equal length.
// It must define a strict total order on candidates.
type TieBreaker func(a, b Candidate) bool

// LowestHash is the default tie breaker, picking the
// candidate with the lowest hash byte-wise.
func LowestHash(a, b Candidate) bool {
	return a.Hash.Less(b.Hash)
}

// FirstSeen picks the candidate imported first, using the
// lowest hash for candidates with the same arrival.
func FirstSeen(a, b Candidate) bool {
	if a.Arrival != b.Arrival {
		return a.Arrival < b.Arrival
	}
	return LowestHash(a, b)
}

// ResolveForkChoice returns true if the candidate should replace
// the current best block. It returns an error wrapping
// ErrIncompletePipeline if the strategy is nil.
// A nil tie breaker defaults to LowestHash.
func ResolveForkChoice(strategy ForkChoiceStrategy, best, candidate Candidate,
	tieBreaker TieBreaker) (isNewBest bool, err error) {
	switch strategy := strategy.(type) {
	case ForkChoiceCustom:
		return bool(strategy), nil
	case ForkChoiceLongestChain:
		switch {
		case candidate.Hash == best.Hash:
			return false, nil
		case candidate.Number > best.Number:
			return true, nil
		case candidate.Number < best.Number:
			return false, nil
		}

		if tieBreaker == nil {
			tieBreaker = LowestHash
		}
		return tieBreaker(candidate, best), nil
	default:
		return false, fmt.Errorf("%w: fork choice is %T", ErrIncompletePipeline, strategy)
	}
}
