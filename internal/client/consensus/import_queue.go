// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package consensus

import (
	"context"
	"fmt"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/libp2p/go-libp2p/core/peer"
)

// IncomingBlock is a block to import.
type IncomingBlock struct {
	Hash common.Hash
	// Header is nil for announced blocks not yet fetched.
	Header         *types.Header
	Body           *types.Body
	IndexedBody    [][]byte
	Justifications types.Justifications
	// Origin is the peer the block came from, if any.
	Origin            *peer.ID
	AllowMissingState bool
	ImportExisting    bool
	SkipExecution     bool
	// StateAction overrides the state action derived from the flags above.
	StateAction StateAction
	// Done, if not nil, receives the outcome for this block.
	// The send is non-blocking so the channel should be buffered.
	// The channel is never closed.
	Done chan<- BlockImportOutcome
}

// CheckParams returns the check params of the block.
// The block header must be set.
func (b *IncomingBlock) CheckParams() BlockCheckParams {
	return BlockCheckParams{
		Hash:               b.Hash,
		Number:             b.Header.Number,
		ParentHash:         b.Header.ParentHash,
		AllowMissingState:  b.AllowMissingState,
		ImportExisting:     b.ImportExisting,
		WithBody:           b.Body != nil,
		WithJustifications: len(b.Justifications) > 0,
	}
}

// ImportParams returns the import params of the block, before
// verification. The block header must be set.
func (b *IncomingBlock) ImportParams(origin BlockOrigin) BlockImportParams {
	params := NewBlockImportParams(origin, *b.Header.DeepCopy())
	params.Justifications = b.Justifications
	params.Body = b.Body
	params.IndexedBody = b.IndexedBody
	params.ImportExisting = b.ImportExisting
	postHash := b.Hash
	params.PostHash = &postHash

	switch {
	case b.StateAction != nil:
		params.StateAction = b.StateAction
	case b.SkipExecution:
		params.StateAction = StateActionSkip{}
	case b.AllowMissingState:
		params.StateAction = StateActionExecuteIfPossible{}
	default:
		params.StateAction = StateActionExecute{}
	}

	return params
}

// BlockImportStatus is the status of a successfully processed block.
// It is either ImportedKnown or ImportedUnknown.
type BlockImportStatus interface {
	isBlockImportStatus()
}

// ImportedKnown is the status of a block already in the chain.
type ImportedKnown struct {
	Number uint
	Who    *peer.ID
}

// ImportedUnknown is the status of a newly imported block.
type ImportedUnknown struct {
	Number uint
	Aux    ImportedAux
	Who    *peer.ID
}

func (ImportedKnown) isBlockImportStatus()   {}
func (ImportedUnknown) isBlockImportStatus() {}

// BlockImportError is the error of a failed block.
// Kind is one of the block import error kinds such as ErrUnknownParent.
type BlockImportError struct {
	Kind error
	// Who is the peer the block came from, for reputation changes.
	Who    *peer.ID
	Reason string
	// Err is the underlying error, if any.
	Err error
}

func (e *BlockImportError) Error() string {
	message := e.Kind.Error()
	if e.Reason != "" {
		message += ": " + e.Reason
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

// Unwrap returns the error kind and the underlying error.
func (e *BlockImportError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewBlockImportError returns a block import error of the given kind.
func NewBlockImportError(kind error, who *peer.ID, err error, format string, args ...any) *BlockImportError {
	return &BlockImportError{
		Kind:   kind,
		Who:    who,
		Reason: fmt.Sprintf(format, args...),
		Err:    err,
	}
}

// BlockImportOutcome is the outcome of processing one block.
// Exactly one of Status and Err is set.
type BlockImportOutcome struct {
	Hash   common.Hash
	Status BlockImportStatus
	Err    *BlockImportError
}

// Imported returns true if the block was processed successfully.
func (o BlockImportOutcome) Imported() bool {
	return o.Err == nil
}

// Link is notified of the import queue outcomes, usually by the sync layer.
type Link interface {
	// BlocksProcessed is called with the outcomes of a batch of blocks
	// in the order the blocks were submitted.
	BlocksProcessed(imported, count int, results []BlockImportOutcome)
	// JustificationImported is called once a justification was processed.
	JustificationImported(who *peer.ID, hash common.Hash, number uint, success bool)
	// RequestJustification asks for a justification of the given block.
	RequestJustification(hash common.Hash, number uint)
}

// Report is an import queue outcome which can be replayed on a Link.
type Report interface {
	Replay(link Link)
}

// BlocksProcessedReport reports the outcomes of a batch of blocks.
type BlocksProcessedReport struct {
	Origin   BlockOrigin
	Imported int
	Count    int
	Results  []BlockImportOutcome
}

// Replay calls link.BlocksProcessed.
func (r BlocksProcessedReport) Replay(link Link) {
	link.BlocksProcessed(r.Imported, r.Count, r.Results)
}

// JustificationImportedReport reports a processed justification.
type JustificationImportedReport struct {
	Who     *peer.ID
	Hash    common.Hash
	Number  uint
	Success bool
}

// Replay calls link.JustificationImported.
func (r JustificationImportedReport) Replay(link Link) {
	link.JustificationImported(r.Who, r.Hash, r.Number, r.Success)
}

// RequestJustificationReport asks for a justification.
type RequestJustificationReport struct {
	Hash   common.Hash
	Number uint
}

// Replay calls link.RequestJustification.
func (r RequestJustificationReport) Replay(link Link) {
	link.RequestJustification(r.Hash, r.Number)
}

// ImportQueueService is the enqueue side of an import queue,
// handed to block producers and the sync layer.
type ImportQueueService interface {
	// ImportBlocks enqueues blocks for import, preserving their order.
	ImportBlocks(ctx context.Context, origin BlockOrigin, blocks []IncomingBlock) error
	// ImportJustifications enqueues justifications for import.
	ImportJustifications(ctx context.Context, who *peer.ID, items []JustificationItem) error
}

// ImportQueue imports blocks and justifications in the background.
type ImportQueue interface {
	ImportQueueService
	// ServiceRef returns the enqueue side of the queue.
	ServiceRef() ImportQueueService
	// PollActions replays pending reports on the link and
	// returns how many were replayed.
	PollActions(link Link) int
	Start() error
	Stop() error
}
