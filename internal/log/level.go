// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color" //nolint:misspell
)

// Level is the level of the logger.
type Level uint8

const (
	// Trace is the trace (trce) level.
	Trace Level = iota
	// Debug is the debug (dbug) level.
	Debug
	// Info is the info level.
	Info
	// Warn is the warn level.
	Warn
	// Error is the error (eror) level.
	Error
	// Critical is the critical (crit) level.
	Critical
	// DoNotChange indicates the level of the logger should be
	// left as is.
	DoNotChange Level = Level(^uint8(0))
)

type levelDetails struct {
	name      string
	shortName string
	colour    color.Attribute
}

var levels = [...]levelDetails{
	Trace:    {name: "TRACE", shortName: "TRCE", colour: color.FgHiCyan},
	Debug:    {name: "DEBUG", shortName: "DBUG", colour: color.FgHiBlue},
	Info:     {name: "INFO", shortName: "INFO", colour: color.FgCyan},
	Warn:     {name: "WARN", shortName: "WARN", colour: color.FgYellow},
	Error:    {name: "ERROR", shortName: "EROR", colour: color.FgHiRed},
	Critical: {name: "CRITICAL", shortName: "CRIT", colour: color.FgRed},
}

func (level Level) String() (s string) {
	if int(level) >= len(levels) {
		return "???"
	}
	return levels[level].name
}

// ColouredString returns the level string coloured for terminals.
func (level Level) ColouredString() (s string) {
	if int(level) >= len(levels) {
		return color.New(color.Reset).Sprint(level.String())
	}
	return color.New(levels[level].colour).Sprint(level.String())
}

// ErrLevelNotRecognised is returned by ParseLevel for unknown levels.
var ErrLevelNotRecognised = errors.New("level is not recognised")

// ParseLevel parses a long or short level name case insensitively.
func ParseLevel(s string) (level Level, err error) {
	upper := strings.ToUpper(s)
	for i, details := range levels {
		if upper == details.name || upper == details.shortName {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrLevelNotRecognised, s)
}
