// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Caller is a set of caller fields to add to log lines.
type Caller uint8

const (
	// CallerFile is the base name of the caller file.
	CallerFile Caller = 1 << iota
	// CallerLine is the caller line number.
	CallerLine
	// CallerFunc is the caller function name.
	CallerFunc
	// CallerNone disables caller logging.
	CallerNone Caller = 0
)

func (c Caller) has(field Caller) bool { return c&field != 0 }

func getCallerString(fields Caller) (s string) {
	if fields == CallerNone {
		return ""
	}

	// log method -> Logger.log -> getCallerString
	const depth = 3
	pc, file, line, ok := runtime.Caller(depth)
	if !ok {
		return "error"
	}

	parts := make([]string, 0, 3)
	if fields.has(CallerFile) {
		parts = append(parts, filepath.Base(file))
	}

	if fields.has(CallerLine) {
		parts = append(parts, "L"+strconv.Itoa(line))
	}

	if fields.has(CallerFunc) {
		if details := runtime.FuncForPC(pc); details != nil {
			parts = append(parts, strings.TrimLeft(filepath.Ext(details.Name()), "."))
		}
	}

	return strings.Join(parts, ":")
}
