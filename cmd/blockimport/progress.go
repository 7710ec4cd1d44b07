// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"fmt"
	"sync"

	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/libp2p/go-libp2p/core/peer"
)

var _ consensus.Link = (*progressLink)(nil)

// progressLink counts the outcomes reported by the import queue.
type progressLink struct {
	mutex           sync.Mutex
	processed       int
	imported        int
	failures        map[string]int
	justified       int
	requested       int
	reportedFailure bool
	// progress is signalled after each processed batch.
	progress chan struct{}
}

func newProgressLink() *progressLink {
	return &progressLink{
		failures: make(map[string]int),
		progress: make(chan struct{}, 1),
	}
}

func (l *progressLink) BlocksProcessed(imported, count int, results []consensus.BlockImportOutcome) {
	l.mutex.Lock()
	l.processed += count
	l.imported += imported
	for _, result := range results {
		if result.Err == nil {
			continue
		}
		l.failures[result.Err.Kind.Error()]++
		if !l.reportedFailure {
			l.reportedFailure = true
			logger.Warnf("block %s failed to import: %s", result.Hash.Short(), result.Err)
		}
	}
	l.mutex.Unlock()

	select {
	case l.progress <- struct{}{}:
	default:
	}
}

func (l *progressLink) JustificationImported(_ *peer.ID, hash common.Hash, number uint, success bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if success {
		l.justified++
		return
	}
	logger.Debugf("justification for block #%d (%s) was not imported", number, hash.Short())
}

func (l *progressLink) RequestJustification(hash common.Hash, number uint) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.requested++
	logger.Debugf("block #%d (%s) needs a justification", number, hash.Short())
}

func (l *progressLink) processedCount() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.processed
}

func (l *progressLink) summary() importSummary {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	failures := make(map[string]int, len(l.failures))
	for kind, count := range l.failures {
		failures[kind] = count
	}
	return importSummary{
		Processed:              l.processed,
		Imported:               l.imported,
		Failures:               failures,
		JustificationsImported: l.justified,
		JustificationsRequired: l.requested,
	}
}

type importSummary struct {
	Processed              int
	Imported               int
	Failures               map[string]int
	JustificationsImported int
	JustificationsRequired int
}

func (s importSummary) String() string {
	failed := 0
	for _, count := range s.Failures {
		failed += count
	}
	return fmt.Sprintf("imported %d of %d blocks, %d failed, %d justifications imported, %d required",
		s.Imported, s.Processed, failed, s.JustificationsImported, s.JustificationsRequired)
}
