// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/internal/client/db"
	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/google/go-cmp/cmp"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_New(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Capacity: -1}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	queue, err := New(Config{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultCapacity, queue.config.Capacity)
}

func Test_Queue_StartStop(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	justificationImport := NewMockJustificationImport(ctrl)
	justificationImport.EXPECT().OnStart(gomock.Any()).Return([]types.NumberHash{
		{Hash: common.Hash{1}, Number: 1},
	})

	queue, err := New(Config{}, NewMockBlockImport(ctrl), NewMockVerifier(ctrl), justificationImport)
	require.NoError(t, err)

	err = queue.Start()
	require.NoError(t, err)

	err = queue.Start()
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	expectedReports := []consensus.Report{
		consensus.RequestJustificationReport{Hash: common.Hash{1}, Number: 1},
	}
	assert.Equal(t, expectedReports, queue.Reports())

	err = queue.Stop()
	require.NoError(t, err)

	// stopping twice is a no-op.
	err = queue.Stop()
	require.NoError(t, err)

	err = queue.Start()
	assert.ErrorIs(t, err, ErrQueueStopped)

	err = queue.ImportBlocks(context.Background(), consensus.BlockOriginOwn,
		newIncomingBlocks(newChild(&testGenesis, 1)))
	assert.ErrorIs(t, err, ErrQueueStopped)

	err = queue.ImportJustifications(context.Background(), nil, []consensus.JustificationItem{{}})
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func Test_Queue_startAfterStopWithoutStart(t *testing.T) {
	t.Parallel()

	queue, err := New(Config{}, nil, nil, nil)
	require.NoError(t, err)

	err = queue.Stop()
	require.NoError(t, err)

	err = queue.Start()
	assert.ErrorIs(t, err, ErrQueueStopped)
}

// Blocks and justifications enqueued through the service handle are
// processed by the queue.
func Test_Queue_serviceRef(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, db.Options{})
	queue := newTestQueue(t, Config{}, client, consensus.LongestChainVerifier{}, client)
	require.NoError(t, queue.Start())

	service := queue.ServiceRef()
	block1 := newChild(&testGenesis, 1)
	who := peer.ID("peer")

	err := service.ImportBlocks(context.Background(), consensus.BlockOriginNetworkBroadcast,
		newIncomingBlocks(block1))
	require.NoError(t, err)
	reports := waitReports(t, queue, processedBlocks(1))
	outcomes := blockOutcomes(reports)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Imported())

	err = service.ImportJustifications(context.Background(), &who,
		[]consensus.JustificationItem{grandpaItem(block1, 1)})
	require.NoError(t, err)
	reports = waitReports(t, queue, justificationReported(block1.Hash()))
	assert.Equal(t, []consensus.Report{
		consensus.JustificationImportedReport{Who: &who, Hash: block1.Hash(), Number: 1, Success: true},
	}, reports)
	assert.Equal(t, types.NumberHash{Hash: block1.Hash(), Number: 1}, client.FinalizedBlock())

	err = queue.Stop()
	require.NoError(t, err)

	err = service.ImportBlocks(context.Background(), consensus.BlockOriginNetworkBroadcast,
		newIncomingBlocks(newChild(block1, 1)))
	assert.ErrorIs(t, err, ErrQueueStopped)
}

// Failures are attributed to the sending peer only for blocks
// received from the network.
func Test_Queue_failureAttribution(t *testing.T) {
	t.Parallel()

	who := peer.ID("peer")
	orphanParent := newChild(&testGenesis, 1)

	testCases := map[string]struct {
		origin      consensus.BlockOrigin
		expectedWho *peer.ID
	}{
		"network_initial_sync": {
			origin:      consensus.BlockOriginNetworkInitialSync,
			expectedWho: &who,
		},
		"network_broadcast": {
			origin:      consensus.BlockOriginNetworkBroadcast,
			expectedWho: &who,
		},
		"consensus_broadcast": {
			origin:      consensus.BlockOriginConsensusBroadcast,
			expectedWho: &who,
		},
		"own": {
			origin: consensus.BlockOriginOwn,
		},
		"file": {
			origin: consensus.BlockOriginFile,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, db.Options{})
			queue := newTestQueue(t, Config{}, client, consensus.LongestChainVerifier{}, client)
			require.NoError(t, queue.Start())

			blocks := newIncomingBlocks(newChild(orphanParent, 1))
			blocks[0].Origin = &who
			err := queue.ImportBlocks(context.Background(), testCase.origin, blocks)
			require.NoError(t, err)

			outcomes := blockOutcomes(waitReports(t, queue, processedBlocks(1)))
			require.Len(t, outcomes, 1)
			require.NotNil(t, outcomes[0].Err)
			assert.ErrorIs(t, outcomes[0].Err, consensus.ErrUnknownParent)
			assert.Equal(t, testCase.expectedWho, outcomes[0].Err.Who)
		})
	}
}

func Test_Queue_importChain(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, db.Options{})
	queue := newTestQueue(t, Config{}, client, consensus.LongestChainVerifier{}, client)
	require.NoError(t, queue.Start())

	chain := newChain(&testGenesis, 3)
	done := make(chan consensus.BlockImportOutcome, 1)
	blocks := newIncomingBlocks(chain...)
	blocks[2].Done = done

	err := queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkInitialSync, blocks)
	require.NoError(t, err)

	reports := waitReports(t, queue, processedBlocks(3))

	expected := []consensus.Report{
		consensus.BlocksProcessedReport{
			Origin:   consensus.BlockOriginNetworkInitialSync,
			Imported: 3,
			Count:    3,
			Results: []consensus.BlockImportOutcome{
				{
					Hash: chain[0].Hash(),
					Status: consensus.ImportedUnknown{
						Number: 1,
						Aux:    consensus.ImportedAux{HeaderOnly: true, IsNewBest: true},
					},
				},
				{
					Hash: chain[1].Hash(),
					Status: consensus.ImportedUnknown{
						Number: 2,
						Aux:    consensus.ImportedAux{HeaderOnly: true, IsNewBest: true},
					},
				},
				{
					Hash: chain[2].Hash(),
					Status: consensus.ImportedUnknown{
						Number: 3,
						Aux:    consensus.ImportedAux{HeaderOnly: true, IsNewBest: true},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(expected, reports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}

	outcome := <-done
	assert.Equal(t, chain[2].Hash(), outcome.Hash)
	assert.True(t, outcome.Imported())
	assert.Equal(t, types.NumberHash{Hash: chain[2].Hash(), Number: 3}, client.BestBlock())
}

func Test_Queue_pollActions(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newTestClient(t, db.Options{JustificationPeriod: 1})
	queue := newTestQueue(t, Config{}, client, consensus.LongestChainVerifier{}, client)
	require.NoError(t, queue.Start())

	block1 := newChild(&testGenesis, 1)
	err := queue.ImportBlocks(context.Background(), consensus.BlockOriginOwn, newIncomingBlocks(block1))
	require.NoError(t, err)

	reports := waitReports(t, queue, func(reports []consensus.Report) bool {
		return len(reports) >= 2
	})

	link := NewMockLink(ctrl)
	gomock.InOrder(
		link.EXPECT().BlocksProcessed(1, 1, gomock.Len(1)),
		link.EXPECT().RequestJustification(block1.Hash(), uint(1)),
	)
	for _, report := range reports {
		report.Replay(link)
	}

	assert.Equal(t, 0, queue.PollActions(link))
	assert.Equal(t, JustificationStateAwaitingJustification, queue.JustificationState(block1.Hash()))
}

// N concurrent submissions of the same block give a single commit.
func Test_Queue_concurrentDuplicates(t *testing.T) {
	t.Parallel()

	const submissions = 8
	client := newTestClient(t, db.Options{})
	blockImport := &countingBlockImport{BlockImport: client}
	queue := newTestQueue(t, Config{}, blockImport, consensus.LongestChainVerifier{}, client)
	require.NoError(t, queue.Start())

	block1 := newChild(&testGenesis, 1)

	var wg sync.WaitGroup
	wg.Add(submissions)
	for i := 0; i < submissions; i++ {
		go func() {
			defer wg.Done()
			err := queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkBroadcast,
				newIncomingBlocks(block1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	reports := waitReports(t, queue, processedBlocks(submissions))

	unknown, known := 0, 0
	for _, outcome := range blockOutcomes(reports) {
		switch outcome.Status.(type) {
		case consensus.ImportedUnknown:
			unknown++
		case consensus.ImportedKnown:
			known++
		default:
			t.Errorf("unexpected outcome %+v", outcome)
		}
	}
	assert.Equal(t, 1, unknown)
	assert.Equal(t, submissions-1, known)
	assert.Equal(t, 1, blockImport.imported)
}

// Descendants of a block failing verification in the same batch
// are never verified.
func Test_Queue_failedParentInBatch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newTestClient(t, db.Options{})
	chain := newChain(&testGenesis, 3)

	verifier := NewMockVerifier(ctrl)
	verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params consensus.BlockImportParams) (
			consensus.BlockImportParams, error) {
			assert.Equal(t, chain[0].Hash(), params.Hash())
			return params, errors.New("bad seal")
		})

	queue := newTestQueue(t, Config{}, client, verifier, client)
	require.NoError(t, queue.Start())

	err := queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkInitialSync,
		newIncomingBlocks(chain...))
	require.NoError(t, err)

	reports := waitReports(t, queue, processedBlocks(3))
	outcomes := blockOutcomes(reports)

	expectedKinds := []error{
		consensus.ErrVerificationFailed,
		consensus.ErrUnknownParent,
		consensus.ErrUnknownParent,
	}
	assert.Equal(t, expectedKinds, outcomeKinds(outcomes))
	assert.ErrorContains(t, outcomes[0].Err, "bad seal")

	assert.True(t, queue.badBlocks.contains(chain[0].Hash()))
	assert.False(t, queue.badBlocks.contains(chain[1].Hash()))
}

// A block failing verification, and its children, are rejected
// without verification once known bad.
func Test_Queue_badBlockStickiness(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newTestClient(t, db.Options{})
	block1 := newChild(&testGenesis, 1)
	block2 := newChild(block1, 1)

	verifier := NewMockVerifier(ctrl)
	verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		Return(consensus.BlockImportParams{}, errors.New("bad seal"))

	queue := newTestQueue(t, Config{}, client, verifier, client)
	require.NoError(t, queue.Start())

	var kinds []error
	for _, header := range []*types.Header{block1, block1, block2} {
		err := queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkBroadcast,
			newIncomingBlocks(header))
		require.NoError(t, err)
		reports := waitReports(t, queue, processedBlocks(1))
		kinds = append(kinds, outcomeKinds(blockOutcomes(reports))...)
	}

	expectedKinds := []error{
		consensus.ErrVerificationFailed,
		consensus.ErrBadBlock,
		consensus.ErrBadBlock,
	}
	assert.Equal(t, expectedKinds, kinds)
}

func Test_Queue_knownBadFromBackend(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, db.Options{})
	block1 := newChild(&testGenesis, 1)
	require.NoError(t, client.MarkBad(block1.Hash()))

	queue := newTestQueue(t, Config{}, client, consensus.LongestChainVerifier{}, client)
	require.NoError(t, queue.Start())

	err := queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkBroadcast,
		newIncomingBlocks(block1))
	require.NoError(t, err)

	reports := waitReports(t, queue, processedBlocks(1))
	assert.Equal(t, []error{consensus.ErrBadBlock}, outcomeKinds(blockOutcomes(reports)))
	assert.True(t, queue.badBlocks.contains(block1.Hash()))
}

// An unknown parent is not a reason to mark a block bad,
// nor to request a justification.
func Test_Queue_unknownParent(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, db.Options{JustificationPeriod: 1})
	queue := newTestQueue(t, Config{}, client, consensus.LongestChainVerifier{}, client)
	require.NoError(t, queue.Start())

	orphan := newChild(newChild(&testGenesis, 1), 1)
	err := queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkBroadcast,
		newIncomingBlocks(orphan))
	require.NoError(t, err)

	reports := waitReports(t, queue, processedBlocks(1))
	require.NoError(t, queue.Stop())
	reports = append(reports, queue.Reports()...)

	require.Len(t, reports, 1)
	assert.Equal(t, []error{consensus.ErrUnknownParent}, outcomeKinds(blockOutcomes(reports)))
	assert.False(t, queue.badBlocks.contains(orphan.Hash()))
}

func Test_Queue_commitFailures(t *testing.T) {
	t.Parallel()

	block1 := newChild(&testGenesis, 1)

	testCases := map[string]struct {
		block    consensus.IncomingBlock
		verifier consensus.Verifier
		kind     error
		bad      bool
	}{
		"incomplete_header": {
			block:    consensus.IncomingBlock{Hash: block1.Hash()},
			verifier: consensus.LongestChainVerifier{},
			kind:     consensus.ErrIncompleteHeader,
		},
		"transient_verification_error": {
			block: newIncomingBlock(block1),
			verifier: consensus.VerifierFunc(func(context.Context, consensus.BlockImportParams) (
				consensus.BlockImportParams, error) {
				return consensus.BlockImportParams{}, fmt.Errorf("%w: epoch data missing", consensus.ErrTransient)
			}),
			kind: consensus.ErrOther,
		},
		"incomplete_pipeline": {
			block: newIncomingBlock(block1),
			verifier: consensus.VerifierFunc(func(_ context.Context, params consensus.BlockImportParams) (
				consensus.BlockImportParams, error) {
				return params, nil
			}),
			kind: consensus.ErrOther,
		},
		"verification_failed": {
			block: newIncomingBlock(block1),
			verifier: consensus.VerifierFunc(func(context.Context, consensus.BlockImportParams) (
				consensus.BlockImportParams, error) {
				return consensus.BlockImportParams{}, errors.New("bad seal")
			}),
			kind: consensus.ErrVerificationFailed,
			bad:  true,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, db.Options{})
			queue := newTestQueue(t, Config{}, client, testCase.verifier, client)
			require.NoError(t, queue.Start())

			err := queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkBroadcast,
				[]consensus.IncomingBlock{testCase.block})
			require.NoError(t, err)

			reports := waitReports(t, queue, processedBlocks(1))
			assert.Equal(t, []error{testCase.kind}, outcomeKinds(blockOutcomes(reports)))
			assert.Equal(t, testCase.bad, queue.badBlocks.contains(testCase.block.Hash))
		})
	}
}

func Test_Queue_missingState(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, db.Options{})
	queue := newTestQueue(t, Config{}, client, consensus.LongestChainVerifier{}, client)
	require.NoError(t, queue.Start())

	chain := newChain(&testGenesis, 2)
	blocks := newIncomingBlocks(chain...)
	blocks[0].SkipExecution = true

	err := queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkBroadcast, blocks)
	require.NoError(t, err)

	reports := waitReports(t, queue, processedBlocks(2))
	assert.Equal(t, []error{nil, consensus.ErrMissingState}, outcomeKinds(blockOutcomes(reports)))
}

func Test_Queue_backendFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	chain := newChain(&testGenesis, 2)
	errDiskFull := errors.New("disk full")

	blockImport := NewMockBlockImport(ctrl)
	blockImport.EXPECT().CheckBlock(gomock.Any(), gomock.Any()).
		Return(consensus.ImportResultImported{}, nil)
	blockImport.EXPECT().ImportBlock(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: %w", consensus.ErrBackendFailure, errDiskFull))

	verifier := NewMockVerifier(ctrl)
	verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).
		DoAndReturn(consensus.LongestChainVerifier{}.Verify).MaxTimes(2)

	queue := newTestQueue(t, Config{}, blockImport, verifier, nil)
	require.NoError(t, queue.Start())

	err := queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkBroadcast,
		newIncomingBlocks(chain[0]))
	require.NoError(t, err)

	fatal := <-queue.Fatal()
	assert.ErrorIs(t, fatal, errDiskFull)

	reports := waitReports(t, queue, processedBlocks(1))
	outcomes := blockOutcomes(reports)
	assert.Equal(t, []error{consensus.ErrCancelled}, outcomeKinds(outcomes))
	assert.ErrorIs(t, outcomes[0].Err, consensus.ErrBackendFailure)

	// later blocks are not committed.
	err = queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkBroadcast,
		newIncomingBlocks(chain[1]))
	require.NoError(t, err)

	reports = waitReports(t, queue, processedBlocks(1))
	assert.Equal(t, []error{consensus.ErrCancelled}, outcomeKinds(blockOutcomes(reports)))
}

func Test_Queue_dropPolicy(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, db.Options{})
	queue := newTestQueue(t, Config{Capacity: 2, Policy: PolicyDrop}, client,
		consensus.LongestChainVerifier{}, client)

	chain := newChain(&testGenesis, 5)
	err := queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkInitialSync,
		newIncomingBlocks(chain...))
	require.NoError(t, err)

	// dropped blocks are reported right away.
	reports := queue.Reports()
	expectedKinds := []error{consensus.ErrQueueFull, consensus.ErrQueueFull, consensus.ErrQueueFull}
	assert.Equal(t, expectedKinds, outcomeKinds(blockOutcomes(reports)))

	require.NoError(t, queue.Start())
	reports = waitReports(t, queue, processedBlocks(2))
	assert.Equal(t, []error{nil, nil}, outcomeKinds(blockOutcomes(reports)))
}

func Test_Queue_suspendPolicy_cancelled(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, db.Options{})
	queue := newTestQueue(t, Config{Capacity: 1}, client, consensus.LongestChainVerifier{}, client)

	chain := newChain(&testGenesis, 2)
	err := queue.ImportBlocks(context.Background(), consensus.BlockOriginOwn, newIncomingBlocks(chain[0]))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = queue.ImportBlocks(ctx, consensus.BlockOriginOwn, newIncomingBlocks(chain[1]))
	assert.ErrorIs(t, err, context.Canceled)

	reports := queue.Reports()
	assert.Equal(t, []error{consensus.ErrCancelled}, outcomeKinds(blockOutcomes(reports)))
}

func Test_Queue_stopCancelsPending(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	queue, err := New(Config{}, NewMockBlockImport(ctrl), NewMockVerifier(ctrl), nil)
	require.NoError(t, err)

	chain := newChain(&testGenesis, 3)
	done := make(chan consensus.BlockImportOutcome, 1)
	blocks := newIncomingBlocks(chain...)
	blocks[1].Done = done

	err = queue.ImportBlocks(context.Background(), consensus.BlockOriginOwn, blocks)
	require.NoError(t, err)

	who := peer.ID("peer")
	err = queue.ImportJustifications(context.Background(), &who, []consensus.JustificationItem{
		{Hash: chain[0].Hash(), Number: 1},
	})
	require.NoError(t, err)

	err = queue.Stop()
	require.NoError(t, err)

	reports := queue.Reports()
	expected := []consensus.Report{
		consensus.BlocksProcessedReport{
			Origin: consensus.BlockOriginOwn,
			Count:  3,
			Results: []consensus.BlockImportOutcome{
				{Hash: chain[0].Hash(), Err: consensus.NewBlockImportError(
					consensus.ErrCancelled, nil, nil, "%s", ErrQueueStopped)},
				{Hash: chain[1].Hash(), Err: consensus.NewBlockImportError(
					consensus.ErrCancelled, nil, nil, "%s", ErrQueueStopped)},
				{Hash: chain[2].Hash(), Err: consensus.NewBlockImportError(
					consensus.ErrCancelled, nil, nil, "%s", ErrQueueStopped)},
			},
		},
		consensus.JustificationImportedReport{Who: &who, Hash: chain[0].Hash(), Number: 1},
	}
	diff := cmp.Diff(expected, reports, cmp.Comparer(func(a, b error) bool {
		return a == b || (a != nil && b != nil && a.Error() == b.Error())
	}))
	if diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}

	outcome := <-done
	assert.ErrorIs(t, outcome.Err, consensus.ErrCancelled)
	assert.Equal(t, 0, queue.mailbox.occupancy())
}

// The mailbox never holds more blocks than its capacity.
func Test_Queue_backpressure(t *testing.T) {
	t.Parallel()

	const (
		blocks    = 10000
		capacity  = 100
		producers = 4
		chunkSize = 10
	)

	blockImport := &acceptingBlockImport{}
	metrics := &recordingMetrics{}
	queue := newTestQueue(t, Config{Capacity: capacity, Metrics: metrics}, blockImport,
		consensus.LongestChainVerifier{}, nil)
	require.NoError(t, queue.Start())

	headers := make([]*types.Header, blocks)
	for i := range headers {
		headers[i] = newChild(&testGenesis, uint16(i))
	}

	errs := make([]error, producers)
	maxOccupancies := make([]int, producers)
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := p * chunkSize; i < blocks; i += producers * chunkSize {
				end := i + chunkSize
				if end > blocks {
					end = blocks
				}
				err := queue.ImportBlocks(context.Background(), consensus.BlockOriginNetworkInitialSync,
					newIncomingBlocks(headers[i:end]...))
				if err != nil {
					errs[p] = err
					return
				}
				if occupancy := queue.mailbox.occupancy(); occupancy > maxOccupancies[p] {
					maxOccupancies[p] = occupancy
				}
			}
		}(p)
	}
	wg.Wait()

	for p := 0; p < producers; p++ {
		assert.NoError(t, errs[p])
		assert.LessOrEqual(t, maxOccupancies[p], capacity)
	}

	reports := waitReports(t, queue, processedBlocks(blocks))

	imported := 0
	for _, outcome := range blockOutcomes(reports) {
		if outcome.Imported() {
			imported++
		}
	}
	assert.Equal(t, blocks, imported)

	blockImport.mutex.Lock()
	assert.Equal(t, blocks, blockImport.imported)
	blockImport.mutex.Unlock()

	metrics.mutex.Lock()
	defer metrics.mutex.Unlock()
	assert.LessOrEqual(t, metrics.maxOccupancy, capacity)
	assert.Positive(t, metrics.maxOccupancy)
}

// Of two siblings, the one with the lowest hash is the best block,
// whatever the import order.
func Test_Queue_tieBreak(t *testing.T) {
	t.Parallel()

	siblingA := newChild(&testGenesis, 1)
	siblingB := newChild(&testGenesis, 2)
	expectedBest := siblingA.Hash()
	if siblingB.Hash().Less(expectedBest) {
		expectedBest = siblingB.Hash()
	}

	orders := [][]*types.Header{
		{siblingA, siblingB},
		{siblingB, siblingA},
		{siblingA, siblingB},
	}
	for _, order := range orders {
		client := newTestClient(t, db.Options{})
		queue := newTestQueue(t, Config{}, client, consensus.LongestChainVerifier{}, client)
		require.NoError(t, queue.Start())

		origins := []consensus.BlockOrigin{consensus.BlockOriginNetworkBroadcast, consensus.BlockOriginOwn}
		for i, header := range order {
			err := queue.ImportBlocks(context.Background(), origins[i], newIncomingBlocks(header))
			require.NoError(t, err)
		}

		waitReports(t, queue, processedBlocks(2))
		assert.Equal(t, expectedBest, client.BestBlock().Hash)
	}
}
