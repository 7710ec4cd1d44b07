// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"io"
	"os"
)

type settings struct {
	writer  io.Writer
	level   *Level
	format  *Format
	caller  *Caller
	context []contextKeyValues
}

type contextKeyValues struct {
	key    string
	values []string
}

func newSettings(options []Option) (settings settings) {
	for _, option := range options {
		option(&settings)
	}
	return settings
}

// mergeWith sets values from other settings that are not set
// on the receiving settings. Context key values are prepended
// with the other settings context.
func (s *settings) mergeWith(other settings) {
	if s.writer == nil {
		s.writer = other.writer
	}

	if other.level != nil && (s.level == nil || *s.level == DoNotChange) {
		value := *other.level
		s.level = &value
	}

	if s.format == nil && other.format != nil {
		value := *other.format
		s.format = &value
	}

	if s.caller == nil && other.caller != nil {
		value := *other.caller
		s.caller = &value
	}

	if len(other.context) > 0 {
		context := make([]contextKeyValues, 0, len(other.context)+len(s.context))
		for _, kv := range other.context {
			values := make([]string, len(kv.values))
			copy(values, kv.values)
			context = append(context, contextKeyValues{key: kv.key, values: values})
		}
		for _, kv := range s.context {
			context = appendContext(context, kv)
		}
		s.context = context
	}
}

func appendContext(context []contextKeyValues, kv contextKeyValues) []contextKeyValues {
	for i := range context {
		if context[i].key == kv.key {
			context[i].values = append(context[i].values, kv.values...)
			return context
		}
	}
	return append(context, kv)
}

func (s *settings) setDefaults() {
	if s.writer == nil {
		s.writer = os.Stdout
	}

	if s.level == nil || *s.level == DoNotChange {
		s.level = levelPtr(Info)
	}

	if s.format == nil {
		s.format = formatPtr(FormatConsole)
	}

	if s.caller == nil {
		s.caller = callerPtr(CallerNone)
	}
}

func levelPtr(l Level) *Level { return &l }

func formatPtr(f Format) *Format { return &f }

func callerPtr(c Caller) *Caller { return &c }
