// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_mailbox_split(t *testing.T) {
	t.Parallel()

	m := newMailbox(2, func(int) {})
	blocks := make([]consensus.IncomingBlock, 5)

	chunks := m.split(consensus.BlockOriginOwn, blocks)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].blocks, 2)
	assert.Len(t, chunks[1].blocks, 2)
	assert.Len(t, chunks[2].blocks, 1)
	assert.Same(t, chunks[0].batch, chunks[2].batch)
}

func Test_mailbox_tryAcquire(t *testing.T) {
	t.Parallel()

	m := newMailbox(3, func(int) {})
	c := chunk{blocks: make([]consensus.IncomingBlock, 2)}

	assert.Equal(t, 2, m.tryAcquire(c))
	assert.Equal(t, 1, m.tryAcquire(c))
	assert.Equal(t, 0, m.tryAcquire(c))

	m.release(3)
	assert.Equal(t, 2, m.tryAcquire(c))
}

func Test_mailbox_acquire_suspends(t *testing.T) {
	t.Parallel()

	var occupancy int
	m := newMailbox(1, func(blocks int) { occupancy = blocks })
	c := chunk{blocks: []consensus.IncomingBlock{{Hash: common.Hash{1}}}}

	err := m.acquire(context.Background(), c)
	require.NoError(t, err)
	m.send(c)
	assert.True(t, m.contains(common.Hash{1}))
	assert.Equal(t, 1, occupancy)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = m.acquire(ctx, c)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	<-m.chunks
	m.done(common.Hash{1})
	assert.False(t, m.contains(common.Hash{1}))
	assert.Equal(t, 0, occupancy)

	err = m.acquire(context.Background(), c)
	assert.NoError(t, err)
}
