// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"bytes"
	"fmt"

	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// Header is a block header
type Header struct {
	ParentHash     common.Hash `json:"parentHash"`
	Number         uint        `json:"number"`
	StateRoot      common.Hash `json:"stateRoot"`
	ExtrinsicsRoot common.Hash `json:"extrinsicsRoot"`
	Digest         [][]byte    `json:"digest"`
	hash           common.Hash
}

// NewHeader creates a new block header and sets its hash field
func NewHeader(parentHash, stateRoot, extrinsicsRoot common.Hash,
	number uint, digest [][]byte) *Header {
	bh := &Header{
		ParentHash:     parentHash,
		Number:         number,
		StateRoot:      stateRoot,
		ExtrinsicsRoot: extrinsicsRoot,
		Digest:         digest,
	}

	bh.Hash()
	return bh
}

// DeepCopy returns a deep copy of the header to prevent side effects down the road
func (bh *Header) DeepCopy() *Header {
	cp := &Header{
		ParentHash:     bh.ParentHash,
		Number:         bh.Number,
		StateRoot:      bh.StateRoot,
		ExtrinsicsRoot: bh.ExtrinsicsRoot,
		hash:           bh.hash,
	}

	if len(bh.Digest) > 0 {
		cp.Digest = make([][]byte, len(bh.Digest))
		for i, item := range bh.Digest {
			cp.Digest[i] = append([]byte(nil), item...)
		}
	}

	return cp
}

// WithDigests returns a deep copy of the header with the digest
// items given appended to its digest. The cached hash is cleared.
func (bh *Header) WithDigests(items ...[]byte) *Header {
	cp := bh.DeepCopy()
	for _, item := range items {
		cp.Digest = append(cp.Digest, append([]byte(nil), item...))
	}
	cp.hash = common.Hash{}
	return cp
}

// String returns the formatted header as a string
func (bh *Header) String() string {
	return fmt.Sprintf("ParentHash=%s Number=%d StateRoot=%s ExtrinsicsRoot=%s Digest=%d items Hash=%s",
		bh.ParentHash, bh.Number, bh.StateRoot, bh.ExtrinsicsRoot, len(bh.Digest), bh.Hash())
}

// Hash returns the hash of the block header
// If the internal hash field is nil, it hashes the block and sets the hash field.
// If hashing the header errors, this will panic.
func (bh *Header) Hash() common.Hash {
	if bh.hash.IsEmpty() {
		enc, err := bh.Encode()
		if err != nil {
			panic(err)
		}

		bh.hash = common.Blake2bHash(enc)
	}

	return bh.hash
}

// Encode returns the SCALE encoding of a header
func (bh *Header) Encode() ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	encoder := scale.NewEncoder(buffer)

	fields := []interface{}{
		bh.ParentHash,
		uint64(bh.Number),
		bh.StateRoot,
		bh.ExtrinsicsRoot,
		bh.Digest,
	}
	for _, field := range fields {
		if err := encoder.Encode(field); err != nil {
			return nil, fmt.Errorf("encoding header field: %w", err)
		}
	}

	return buffer.Bytes(), nil
}

// DecodeHeader decodes a SCALE encoded header.
func DecodeHeader(encoded []byte) (*Header, error) {
	decoder := scale.NewDecoder(bytes.NewReader(encoded))

	var (
		header Header
		number uint64
	)
	targets := []interface{}{
		&header.ParentHash,
		&number,
		&header.StateRoot,
		&header.ExtrinsicsRoot,
		&header.Digest,
	}
	for _, target := range targets {
		if err := decoder.Decode(target); err != nil {
			return nil, fmt.Errorf("decoding header field: %w", err)
		}
	}
	header.Number = uint(number)

	return &header, nil
}

// NumberHash is the hash and number of a block.
type NumberHash struct {
	Hash   common.Hash
	Number uint
}

func (nh NumberHash) String() string {
	return fmt.Sprintf("#%d (%s)", nh.Number, nh.Hash.Short())
}
