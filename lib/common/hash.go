// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// HashLength is the byte length of a Hash.
const HashLength = 32

var (
	ErrNoPrefix   = errors.New("hex string has no 0x prefix")
	ErrHashLength = errors.New("hash length is not valid")
)

// Hash is a 256-bit blake2b block hash.
type Hash [HashLength]byte

// NewHash copies the first 32 bytes of b into a Hash.
func NewHash(b []byte) (h Hash) {
	copy(h[:], b)
	return h
}

// ToBytes returns a copy of the hash as a byte slice.
func (h Hash) ToBytes() []byte {
	return append([]byte(nil), h[:]...)
}

// IsEmpty returns true for the zero hash.
func (h Hash) IsEmpty() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Short returns the first and last 4 bytes of the hash in hex,
// for log lines.
func (h Hash) Short() string {
	const n = 4
	return fmt.Sprintf("0x%x...%x", h[:n], h[HashLength-n:])
}

// Compare compares two hashes byte-wise, returning 0 if
// h == other, -1 if h < other and +1 if h > other.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// Less returns true if h sorts strictly before other.
func (h Hash) Less(other Hash) bool {
	return h.Compare(other) < 0
}

// MarshalText encodes the hash as a 0x prefixed hex string.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a 0x prefixed hex string of exactly 32 bytes.
func (h *Hash) UnmarshalText(text []byte) (err error) {
	*h, err = HexToHash(string(text))
	return err
}

// HexToHash decodes a 0x prefixed hex string of exactly 32 bytes.
func HexToHash(s string) (h Hash, err error) {
	trimmed, ok := strings.CutPrefix(s, "0x")
	if !ok {
		return h, fmt.Errorf("%w: %s", ErrNoPrefix, s)
	}

	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return h, fmt.Errorf("decoding hex string: %w", err)
	} else if len(decoded) != HashLength {
		return h, fmt.Errorf("%w: %d bytes instead of %d", ErrHashLength, len(decoded), HashLength)
	}

	return NewHash(decoded), nil
}
