// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"errors"
	"fmt"
	"strings"
)

// Format is the format of the logger output.
type Format uint8

const (
	// FormatConsole is the console format: time, level,
	// message, caller and context separated by tabs.
	FormatConsole Format = iota
	// FormatJSON writes one JSON object per line.
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatConsole:
		return "console"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ErrFormatNotRecognised is returned by ParseFormat for unknown formats.
var ErrFormatNotRecognised = errors.New("format is not recognised")

// ParseFormat parses a format name case insensitively.
func ParseFormat(s string) (format Format, err error) {
	switch strings.ToLower(s) {
	case "console":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrFormatNotRecognised, s)
}
