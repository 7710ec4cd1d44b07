// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records import queue events.
type Metrics interface {
	BlockImported(known bool)
	BlockFailed(kind error)
	JustificationProcessed(success bool)
	BadBlockCacheHit()
	SetMailboxOccupancy(blocks int)
}

type noopMetrics struct{}

func (noopMetrics) BlockImported(bool)          {}
func (noopMetrics) BlockFailed(error)           {}
func (noopMetrics) JustificationProcessed(bool) {}
func (noopMetrics) BadBlockCacheHit()           {}
func (noopMetrics) SetMailboxOccupancy(int)     {}

var _ Metrics = (*Prometheus)(nil)

// Prometheus is the Prometheus implementation of Metrics.
type Prometheus struct {
	blocksImported         *prometheus.CounterVec
	blocksFailed           *prometheus.CounterVec
	justificationsImported *prometheus.CounterVec
	badBlockCacheHits      prometheus.Counter
	mailboxOccupancy       prometheus.Gauge
}

const metricsNamespace = "blockimport_queue"

// NewPrometheus creates the import queue metrics and registers
// them on the registerer given.
func NewPrometheus(registerer prometheus.Registerer) (metrics *Prometheus, err error) {
	metrics = new(Prometheus)
	collectorsToRegister := make(map[string]prometheus.Collector)

	metrics.blocksImported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "blocks_imported_total",
		Help:      "blocks processed successfully, by whether they were already in chain",
	}, []string{"status"})
	collectorsToRegister["blocks imported counter"] = metrics.blocksImported

	metrics.blocksFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "blocks_failed_total",
		Help:      "blocks failing import, by failure kind",
	}, []string{"kind"})
	collectorsToRegister["blocks failed counter"] = metrics.blocksFailed

	metrics.justificationsImported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "justifications_total",
		Help:      "justifications processed, by result",
	}, []string{"result"})
	collectorsToRegister["justifications counter"] = metrics.justificationsImported

	metrics.badBlockCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "bad_block_cache_hits_total",
		Help:      "blocks rejected by the bad block cache",
	})
	collectorsToRegister["bad block cache hits counter"] = metrics.badBlockCacheHits

	metrics.mailboxOccupancy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "mailbox_blocks",
		Help:      "blocks queued or in flight",
	})
	collectorsToRegister["mailbox occupancy gauge"] = metrics.mailboxOccupancy

	for collectorName, collectorToRegister := range collectorsToRegister {
		err = registerer.Register(collectorToRegister)
		if err != nil && !errors.As(err, &prometheus.AlreadyRegisteredError{}) {
			return nil, fmt.Errorf("cannot register %s: %w", collectorName, err)
		}
	}

	return metrics, nil
}

// BlockImported increments the imported blocks counter.
func (p *Prometheus) BlockImported(known bool) {
	status := "imported"
	if known {
		status = "known"
	}
	p.blocksImported.WithLabelValues(status).Inc()
}

// BlockFailed increments the failed blocks counter for the kind given.
func (p *Prometheus) BlockFailed(kind error) {
	p.blocksFailed.WithLabelValues(kindLabel(kind)).Inc()
}

// JustificationProcessed increments the justifications counter.
func (p *Prometheus) JustificationProcessed(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	p.justificationsImported.WithLabelValues(result).Inc()
}

// BadBlockCacheHit increments the bad block cache hits counter.
func (p *Prometheus) BadBlockCacheHit() {
	p.badBlockCacheHits.Inc()
}

// SetMailboxOccupancy sets the number of blocks queued or in flight.
func (p *Prometheus) SetMailboxOccupancy(blocks int) {
	p.mailboxOccupancy.Set(float64(blocks))
}

func kindLabel(kind error) string {
	switch {
	case errors.Is(kind, consensus.ErrIncompleteHeader):
		return "incomplete_header"
	case errors.Is(kind, consensus.ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(kind, consensus.ErrBadBlock):
		return "bad_block"
	case errors.Is(kind, consensus.ErrMissingState):
		return "missing_state"
	case errors.Is(kind, consensus.ErrUnknownParent):
		return "unknown_parent"
	case errors.Is(kind, consensus.ErrCancelled):
		return "cancelled"
	case errors.Is(kind, consensus.ErrQueueFull):
		return "queue_full"
	default:
		return "other"
	}
}
