// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Settings_SetDefaults(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		original Settings
		expected Settings
	}{
		"empty_settings": {
			expected: Settings{
				Path:       ptrTo(""),
				InMemory:   ptrTo(false),
				SyncWrites: ptrTo(true),
			},
		},
		"non_empty_settings": {
			original: Settings{
				Path:       ptrTo("x"),
				InMemory:   ptrTo(true),
				SyncWrites: ptrTo(false),
			},
			expected: Settings{
				Path:       ptrTo("x"),
				InMemory:   ptrTo(true),
				SyncWrites: ptrTo(false),
			},
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			settings := testCase.original
			settings.SetDefaults()

			assert.Equal(t, testCase.expected, settings)
		})
	}
}

func Test_Settings_Validate(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		settings   Settings
		errWrapped error
		errMessage string
	}{
		"valid_path": {
			settings: Settings{
				Path:     ptrTo("x"),
				InMemory: ptrTo(false),
			},
		},
		"in_memory": {
			settings: Settings{
				Path:     ptrTo(""),
				InMemory: ptrTo(true),
			},
		},
		"in_memory_with_path": {
			settings: Settings{
				Path:     ptrTo("x"),
				InMemory: ptrTo(true),
			},
			errWrapped: ErrPathSetInMemory,
			errMessage: "path must be empty for an in-memory database: x",
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := testCase.settings.Validate()

			assert.ErrorIs(t, err, testCase.errWrapped)
			if testCase.errWrapped != nil {
				assert.EqualError(t, err, testCase.errMessage)
			}
		})
	}
}

func Test_Settings_badgerOptions(t *testing.T) {
	t.Parallel()

	settings := Settings{Path: ptrTo("/tmp/chain"), SyncWrites: ptrTo(false)}
	settings.SetDefaults()

	options := settings.badgerOptions()

	assert.Equal(t, "/tmp/chain", options.Dir)
	assert.Equal(t, "/tmp/chain", options.ValueDir)
	assert.False(t, options.SyncWrites)
	assert.False(t, options.InMemory)
	assert.Nil(t, options.Logger)
}
