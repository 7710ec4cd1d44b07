// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

import (
	"sync"

	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ef-ds/deque"
)

// outbox is the FIFO of reports waiting to be polled.
// It is unbounded, but reports are only produced for blocks
// and justifications accepted by the queue.
type outbox struct {
	mutex   sync.Mutex
	reports deque.Deque
	ready   chan struct{}
}

func newOutbox() *outbox {
	return &outbox{
		ready: make(chan struct{}, 1),
	}
}

func (o *outbox) push(reports ...consensus.Report) {
	if len(reports) == 0 {
		return
	}

	o.mutex.Lock()
	for _, report := range reports {
		o.reports.PushBack(report)
	}
	o.mutex.Unlock()

	select {
	case o.ready <- struct{}{}:
	default:
	}
}

func (o *outbox) drain() (reports []consensus.Report) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	reports = make([]consensus.Report, 0, o.reports.Len())
	for {
		element, ok := o.reports.PopFront()
		if !ok {
			return reports
		}
		reports = append(reports, element.(consensus.Report))
	}
}
