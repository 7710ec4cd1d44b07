// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

import (
	"errors"
	"fmt"
	"io"

	"github.com/ChainSafe/blockimport/internal/log"
	"github.com/go-playground/validator/v10"
	"github.com/naoina/toml"
)

// Policy is the behaviour of the queue when its mailbox is full.
type Policy string

const (
	// PolicySuspend blocks producers until space frees up in the mailbox.
	PolicySuspend Policy = "suspend"
	// PolicyDrop reports blocks not fitting in the mailbox as failed.
	PolicyDrop Policy = "drop"
)

const (
	defaultCapacity                 = 2048
	defaultBadBlockCacheSize        = 1024
	defaultJustificationBuffer      = 128
	defaultJustificationChannelSize = 256
	defaultVerificationWorkers      = 4
)

var ErrInvalidConfig = errors.New("invalid import queue configuration")

// Config is the import queue configuration.
type Config struct {
	// Capacity is the maximum number of blocks queued or in flight.
	Capacity int `toml:"capacity" validate:"gte=1"`
	// Policy is either "suspend" or "drop".
	Policy Policy `toml:"policy" validate:"oneof=suspend drop"`
	// VerificationWorkers is the number of blocks verified in parallel.
	VerificationWorkers int `toml:"verification-workers" validate:"gte=1"`
	// BadBlockCacheSize is the number of bad block hashes remembered.
	BadBlockCacheSize int `toml:"bad-block-cache-size" validate:"gte=1"`
	// JustificationBuffer is the number of blocks for which justifications
	// received ahead of the block are kept.
	JustificationBuffer int `toml:"justification-buffer" validate:"gte=1"`
	// JustificationChannelSize is the number of justification batches
	// waiting to be processed.
	JustificationChannelSize int `toml:"justification-channel-size" validate:"gte=1"`
	// LogLevel is the import queue log level, defaulting to the global one.
	LogLevel string `toml:"log-level"`

	// Logger is used instead of the package logger if set.
	Logger log.LeveledLogger `toml:"-"`
	// Metrics defaults to no-op metrics.
	Metrics Metrics `toml:"-"`
}

// SetDefaults sets the default values on the config.
func (c *Config) SetDefaults() {
	if c.Capacity == 0 {
		c.Capacity = defaultCapacity
	}

	if c.Policy == "" {
		c.Policy = PolicySuspend
	}

	if c.VerificationWorkers == 0 {
		c.VerificationWorkers = defaultVerificationWorkers
	}

	if c.BadBlockCacheSize == 0 {
		c.BadBlockCacheSize = defaultBadBlockCacheSize
	}

	if c.JustificationBuffer == 0 {
		c.JustificationBuffer = defaultJustificationBuffer
	}

	if c.JustificationChannelSize == 0 {
		c.JustificationChannelSize = defaultJustificationChannelSize
	}

	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
}

// Validate validates the config.
func (c Config) Validate() (err error) {
	err = validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.LogLevel != "" {
		_, err = log.ParseLevel(c.LogLevel)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	return nil
}

// LoadConfig decodes a TOML config from the reader, sets
// its defaults and validates it.
func LoadConfig(reader io.Reader) (config Config, err error) {
	err = toml.NewDecoder(reader).Decode(&config)
	if err != nil {
		return config, fmt.Errorf("decoding toml: %w", err)
	}

	config.SetDefaults()
	err = config.Validate()
	if err != nil {
		return config, fmt.Errorf("validating config: %w", err)
	}

	return config, nil
}

func (c Config) leveledLogger() log.LeveledLogger {
	if c.Logger != nil {
		return c.Logger
	}

	if c.LogLevel == "" {
		return logger
	}

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return logger
	}
	return logger.New(log.SetLevel(level))
}
