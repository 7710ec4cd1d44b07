// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"bytes"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// ConsensusEngineID is the unique ID of a consensus engine.
type ConsensusEngineID [4]byte

func (id ConsensusEngineID) String() string {
	return string(id[:])
}

var (
	// GrandpaEngineID is the hard-coded grandpa ID
	GrandpaEngineID = ConsensusEngineID{'F', 'R', 'N', 'K'}
	// BabeEngineID is the hard-coded babe ID
	BabeEngineID = ConsensusEngineID{'B', 'A', 'B', 'E'}
)

// Justification is a finality proof for a block, tagged with the
// consensus engine that generated it.
type Justification struct {
	EngineID ConsensusEngineID
	Data     []byte
}

// Justifications is a collection of justifications for a given block,
// multiple justifications may be provided by different consensus engines
// for the same block.
type Justifications []Justification

// Get returns the encoded justification for the given consensus engine, if it exists.
func (j Justifications) Get(engineID ConsensusEngineID) (data []byte, ok bool) {
	for _, justification := range j {
		if justification.EngineID == engineID {
			return justification.Data, true
		}
	}
	return nil, false
}

// Append adds the justification if no justification from the same
// engine is already present. It returns false otherwise.
func (j *Justifications) Append(justification Justification) (appended bool) {
	if _, ok := j.Get(justification.EngineID); ok {
		return false
	}
	*j = append(*j, justification)
	return true
}

type encodedJustification struct {
	EngineID [4]byte
	Data     []byte
}

// Encode returns the SCALE encoding of the justifications.
func (j Justifications) Encode() ([]byte, error) {
	items := make([]encodedJustification, len(j))
	for i, justification := range j {
		items[i] = encodedJustification{
			EngineID: justification.EngineID,
			Data:     justification.Data,
		}
	}

	buffer := bytes.NewBuffer(nil)
	err := scale.NewEncoder(buffer).Encode(items)
	if err != nil {
		return nil, fmt.Errorf("encoding justifications: %w", err)
	}
	return buffer.Bytes(), nil
}

// DecodeJustifications decodes SCALE encoded justifications.
func DecodeJustifications(encoded []byte) (Justifications, error) {
	var items []encodedJustification
	err := scale.NewDecoder(bytes.NewReader(encoded)).Decode(&items)
	if err != nil {
		return nil, fmt.Errorf("decoding justifications: %w", err)
	}

	justifications := make(Justifications, len(items))
	for i, item := range items {
		justifications[i] = Justification{
			EngineID: item.EngineID,
			Data:     item.Data,
		}
	}
	return justifications, nil
}
