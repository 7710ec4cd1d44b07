// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package consensus

import "context"

// Verifier verifies a block before import and decorates the import params,
// for example with a fork choice.
// Implementations must be deterministic and must not mutate chain state.
// An error wrapping ErrTransient does not mark the block as bad.
type Verifier interface {
	Verify(ctx context.Context, params BlockImportParams) (BlockImportParams, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, params BlockImportParams) (BlockImportParams, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, params BlockImportParams) (BlockImportParams, error) {
	return f(ctx, params)
}

// LongestChainVerifier accepts every block and sets the fork choice to
// the longest chain if none is set.
type LongestChainVerifier struct{}

// Verify sets the fork choice to ForkChoiceLongestChain if unset.
func (LongestChainVerifier) Verify(_ context.Context, params BlockImportParams) (BlockImportParams, error) {
	if params.ForkChoice == nil {
		params.ForkChoice = ForkChoiceLongestChain{}
	}
	return params, nil
}
