// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"io"
)

// Option modifies the settings of a logger.
type Option func(s *settings)

// SetLevel sets the level for the logger.
// The level defaults to info.
func SetLevel(level Level) Option {
	return func(s *settings) {
		s.level = &level
	}
}

// SetCaller sets the caller fields to log, for example
// CallerFile|CallerLine. It defaults to CallerNone.
func SetCaller(fields Caller) Option {
	return func(s *settings) {
		s.caller = &fields
	}
}

// SetFormat set the format for the logger.
// The format defaults to FormatConsole.
func SetFormat(format Format) Option {
	return func(s *settings) {
		s.format = &format
	}
}

// SetWriter set the writer for the logger.
// The writer defaults to os.Stdout.
func SetWriter(writer io.Writer) Option {
	return func(s *settings) {
		s.writer = writer
	}
}

// AddContext adds a key value pair to the logger context. Values
// of a key already present are appended to the existing values.
func AddContext(key, value string) Option {
	return func(s *settings) {
		s.context = appendContext(s.context, contextKeyValues{key: key, values: []string{value}})
	}
}
