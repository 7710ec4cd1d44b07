// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/internal/client/consensus"
)

// blockRecord is a block line of a blocks file.
type blockRecord struct {
	Header         types.Header         `json:"header"`
	Body           *types.Body          `json:"body,omitempty"`
	Justifications types.Justifications `json:"justifications,omitempty"`
}

func (r blockRecord) incomingBlock() consensus.IncomingBlock {
	header := r.Header
	return consensus.IncomingBlock{
		Hash:           header.Hash(),
		Header:         &header,
		Body:           r.Body,
		Justifications: r.Justifications,
	}
}

type blockReader struct {
	decoder *json.Decoder
	line    int
}

func newBlockReader(reader io.Reader) *blockReader {
	return &blockReader{decoder: json.NewDecoder(reader)}
}

// read returns the next block record, or io.EOF.
func (r *blockReader) read() (record blockRecord, err error) {
	err = r.decoder.Decode(&record)
	if err == io.EOF {
		return record, err
	} else if err != nil {
		return record, fmt.Errorf("decoding block %d: %w", r.line+1, err)
	}
	r.line++
	return record, nil
}

type blockWriter struct {
	encoder *json.Encoder
}

func newBlockWriter(writer io.Writer) *blockWriter {
	return &blockWriter{encoder: json.NewEncoder(writer)}
}

func (w *blockWriter) write(record blockRecord) error {
	err := w.encoder.Encode(record)
	if err != nil {
		return fmt.Errorf("encoding block #%d: %w", record.Header.Number, err)
	}
	return nil
}
