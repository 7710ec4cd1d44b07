// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package consensus

import "errors"

// Block import error kinds, reported in BlockImportError.Kind.
var (
	ErrIncompleteHeader   = errors.New("block header is missing")
	ErrVerificationFailed = errors.New("block verification failed")
	ErrBadBlock           = errors.New("block is known to be bad")
	ErrMissingState       = errors.New("parent state is missing")
	ErrUnknownParent      = errors.New("block parent is unknown")
	ErrCancelled          = errors.New("block import cancelled")
	ErrQueueFull          = errors.New("import queue is full")
	ErrOther              = errors.New("block import failed")
)

var (
	// ErrBackendFailure is wrapped by storage errors which may have left
	// the backend in an inconsistent state.
	ErrBackendFailure = errors.New("backend failure")
	// ErrJustificationInvalid is returned for justifications failing validation.
	ErrJustificationInvalid = errors.New("justification is invalid")
	// ErrIncompletePipeline is returned when params reach the final block
	// import with no fork choice or with unhandled intermediates.
	ErrIncompletePipeline = errors.New("incomplete import pipeline")
	// ErrTransient is wrapped by verifier errors which must not mark
	// the block as bad, for example missing auxiliary data.
	ErrTransient = errors.New("transient verification error")
	// ErrUnknownBlock is returned when importing a justification
	// for a block not yet imported.
	ErrUnknownBlock = errors.New("unknown block")
)
