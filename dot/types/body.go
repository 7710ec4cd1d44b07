// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"bytes"
	"fmt"

	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// Extrinsic is a generic transaction whose format is verified in the runtime
type Extrinsic []byte

// Hash returns the blake2b hash of the extrinsic
func (e Extrinsic) Hash() common.Hash {
	return common.Blake2bHash(e)
}

// Body is the ordered list of extrinsics of a block.
type Body []Extrinsic

// Encode returns the SCALE encoding of the body.
func (b Body) Encode() ([]byte, error) {
	raw := make([][]byte, len(b))
	for i, ext := range b {
		raw[i] = ext
	}

	buffer := bytes.NewBuffer(nil)
	err := scale.NewEncoder(buffer).Encode(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}
	return buffer.Bytes(), nil
}

// DecodeBody decodes a SCALE encoded body.
func DecodeBody(encoded []byte) (Body, error) {
	var raw [][]byte
	err := scale.NewDecoder(bytes.NewReader(encoded)).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}

	body := make(Body, len(raw))
	for i, ext := range raw {
		body[i] = ext
	}
	return body, nil
}
