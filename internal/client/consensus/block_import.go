// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package consensus

import (
	"context"
	"fmt"
	"sort"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/lib/common"
)

// ImportResult is the result of a block check or a block import.
// It is one of ImportResultImported, ImportResultAlreadyInChain,
// ImportResultKnownBad, ImportResultUnknownParent, ImportResultMissingState
// or ImportResultMissingParentOrForkingUp.
type ImportResult interface {
	isImportResult()
}

// ImportResultImported is returned when the block was imported,
// or when a block check found the block importable.
type ImportResultImported struct {
	Aux ImportedAux
}

// ImportResultAlreadyInChain is returned for a block already in the chain.
type ImportResultAlreadyInChain struct{}

// ImportResultKnownBad is returned if the block or its parent is known to be bad.
type ImportResultKnownBad struct{}

// ImportResultUnknownParent is returned if the block parent is not in the chain.
type ImportResultUnknownParent struct{}

// ImportResultMissingState is returned if the parent state is missing.
type ImportResultMissingState struct{}

// ImportResultMissingParentOrForkingUp is returned when the parent is
// missing and the block forks below the finalized block.
type ImportResultMissingParentOrForkingUp struct{}

func (ImportResultImported) isImportResult()                 {}
func (ImportResultAlreadyInChain) isImportResult()           {}
func (ImportResultKnownBad) isImportResult()                 {}
func (ImportResultUnknownParent) isImportResult()            {}
func (ImportResultMissingState) isImportResult()             {}
func (ImportResultMissingParentOrForkingUp) isImportResult() {}

// ImportedAux is the auxiliary data associated with an imported block result.
type ImportedAux struct {
	// HeaderOnly is true if only the header has been imported.
	HeaderOnly bool
	// ClearJustificationRequests clears all pending justification requests.
	ClearJustificationRequests bool
	// NeedsJustification requests a justification for the block.
	NeedsJustification bool
	// BadJustification is true if a bad justification was received.
	BadJustification bool
	// IsNewBest is true if the imported block is the new best block.
	IsNewBest bool
	// IsNewFinalized is true if the imported block was finalized on import.
	IsNewFinalized bool
}

// ForkChoiceStrategy is either ForkChoiceLongestChain or ForkChoiceCustom.
type ForkChoiceStrategy interface {
	isForkChoiceStrategy()
}

// ForkChoiceLongestChain picks the longest chain, with a tie breaker
// for chains of equal length.
type ForkChoiceLongestChain struct{}

// ForkChoiceCustom is a custom fork choice rule, where true
// indicates the new block should be the best block.
type ForkChoiceCustom bool

func (ForkChoiceLongestChain) isForkChoiceStrategy() {}
func (ForkChoiceCustom) isForkChoiceStrategy()       {}

// BlockCheckParams is the data required to check the validity of a block.
type BlockCheckParams struct {
	Hash       common.Hash
	Number     uint
	ParentHash common.Hash
	// AllowMissingState allows importing the block skipping state
	// verification if the parent state is missing.
	AllowMissingState bool
	// AllowMissingParent allows importing the block if the parent is missing.
	AllowMissingParent bool
	// ImportExisting re-validates an existing block.
	ImportExisting bool
	// WithBody is true if the block body import is requested.
	WithBody bool
	// WithJustifications is true if justification import is requested.
	WithJustifications bool
}

// StateAction defines how the new state is computed for an imported block.
// It is one of StateActionApplyChanges, StateActionExecute,
// StateActionExecuteIfPossible or StateActionSkip.
type StateAction interface {
	isStateAction()
}

// StateActionApplyChanges applies precomputed changes coming from
// block execution or state sync.
type StateActionApplyChanges struct {
	Changes []AuxEntry
}

// StateActionExecute executes the block body (required) and computes the state.
type StateActionExecute struct{}

// StateActionExecuteIfPossible executes the block body if the parent
// state is available.
type StateActionExecuteIfPossible struct{}

// StateActionSkip does not execute or import state.
type StateActionSkip struct{}

func (StateActionApplyChanges) isStateAction()      {}
func (StateActionExecute) isStateAction()           {}
func (StateActionExecuteIfPossible) isStateAction() {}
func (StateActionSkip) isStateAction()              {}

// AuxEntry is an auxiliary key value write committed with a block.
// A nil value deletes the key.
type AuxEntry struct {
	Key   []byte
	Value []byte
}

// BlockImportParams is the data required to import a block.
type BlockImportParams struct {
	Origin BlockOrigin
	// Header is the header without consensus post-digests applied.
	// Consensus engines which seal the header pass the seal
	// through PostDigests.
	Header types.Header
	// Justifications provided for this block from the outside.
	Justifications types.Justifications
	// PostDigests are digest items added after the runtime
	// for external work, like a consensus signature.
	PostDigests [][]byte
	Body        *types.Body
	IndexedBody [][]byte
	StateAction StateAction
	// Finalized is true for instant finality.
	Finalized bool
	// Intermediates are values interpreted by block importers.
	// Each block importer removes the values it handles, and the
	// final block importer rejects the import if any remain.
	Intermediates map[string]any
	// Auxiliary is consensus data committed in the same batch as the block.
	Auxiliary []AuxEntry
	// ForkChoice is nil when the current importer cannot determine the
	// fork choice and expects a later importer to set it. A nil fork
	// choice reaching the final block import fails the import with
	// ErrIncompletePipeline.
	ForkChoice     ForkChoiceStrategy
	ImportExisting bool
	// PostHash is the cached hash of the header with post-digests applied.
	PostHash *common.Hash
}

// NewBlockImportParams returns import params for the given header
// with the default state action.
func NewBlockImportParams(origin BlockOrigin, header types.Header) BlockImportParams {
	return BlockImportParams{
		Origin:        origin,
		Header:        header,
		StateAction:   StateActionExecute{},
		Intermediates: make(map[string]any),
	}
}

// PostHeader returns the header with the post-digests applied.
func (p *BlockImportParams) PostHeader() types.Header {
	if len(p.PostDigests) == 0 {
		return *p.Header.DeepCopy()
	}
	return *p.Header.WithDigests(p.PostDigests...)
}

// Hash returns the hash of the header with the post-digests applied.
func (p *BlockImportParams) Hash() common.Hash {
	if p.PostHash != nil {
		return *p.PostHash
	}
	header := p.PostHeader()
	return header.Hash()
}

// WithPostHash caches the post hash in the params.
func (p *BlockImportParams) WithPostHash() {
	hash := p.Hash()
	p.PostHash = &hash
}

// InsertIntermediate sets an intermediate value for a later importer.
func (p *BlockImportParams) InsertIntermediate(key string, value any) {
	if p.Intermediates == nil {
		p.Intermediates = make(map[string]any)
	}
	p.Intermediates[key] = value
}

// TakeIntermediate removes and returns the intermediate value at key.
func (p *BlockImportParams) TakeIntermediate(key string) (value any, ok bool) {
	value, ok = p.Intermediates[key]
	if ok {
		delete(p.Intermediates, key)
	}
	return value, ok
}

// CheckFinal returns an error wrapping ErrIncompletePipeline if the params
// cannot be consumed by the final block import.
func (p *BlockImportParams) CheckFinal() error {
	if p.ForkChoice == nil {
		return fmt.Errorf("%w: fork choice is not set for block %s",
			ErrIncompletePipeline, p.Hash().Short())
	}

	if len(p.Intermediates) > 0 {
		keys := make([]string, 0, len(p.Intermediates))
		for key := range p.Intermediates {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return fmt.Errorf("%w: unhandled intermediates %v for block %s",
			ErrIncompletePipeline, keys, p.Hash().Short())
	}

	return nil
}

// BlockImport checks and imports blocks into the chain.
type BlockImport interface {
	// CheckBlock checks the block preconditions cheaply.
	CheckBlock(ctx context.Context, params BlockCheckParams) (ImportResult, error)
	// ImportBlock imports a block atomically.
	ImportBlock(ctx context.Context, params BlockImportParams) (ImportResult, error)
}

// ForkChoiceBlockImport rejects params without a fork choice
// before delegating to the wrapped block import.
type ForkChoiceBlockImport struct {
	inner BlockImport
}

// NewForkChoiceBlockImport wraps the given block import.
func NewForkChoiceBlockImport(inner BlockImport) *ForkChoiceBlockImport {
	return &ForkChoiceBlockImport{inner: inner}
}

// CheckBlock delegates to the wrapped block import.
func (f *ForkChoiceBlockImport) CheckBlock(ctx context.Context, params BlockCheckParams) (
	ImportResult, error) {
	return f.inner.CheckBlock(ctx, params)
}

// ImportBlock delegates to the wrapped block import if the fork choice is set.
func (f *ForkChoiceBlockImport) ImportBlock(ctx context.Context, params BlockImportParams) (
	ImportResult, error) {
	if params.ForkChoice == nil {
		return nil, fmt.Errorf("%w: fork choice is not set for block %s",
			ErrIncompletePipeline, params.Hash().Short())
	}
	return f.inner.ImportBlock(ctx, params)
}
