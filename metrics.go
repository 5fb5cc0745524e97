package goSession

import (
	internalmetrics "github.com/MrEthical07/goSession/internal/metrics"
)

// MetricID identifies one engine counter.
type MetricID = internalmetrics.MetricID

// Metrics is the engine's counter set.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot = internalmetrics.Snapshot

const (
	MetricSessionCreated         = internalmetrics.MetricSessionCreated
	MetricSessionCreateDenied    = internalmetrics.MetricSessionCreateDenied
	MetricMFARequired            = internalmetrics.MetricMFARequired
	MetricMFAPolicyUnavailable   = internalmetrics.MetricMFAPolicyUnavailable
	MetricSessionEvicted         = internalmetrics.MetricSessionEvicted
	MetricSessionIdleExpired     = internalmetrics.MetricSessionIdleExpired
	MetricSessionInvalidated     = internalmetrics.MetricSessionInvalidated
	MetricLogoutAll              = internalmetrics.MetricLogoutAll
	MetricValidateSuccess        = internalmetrics.MetricValidateSuccess
	MetricValidateFailure        = internalmetrics.MetricValidateFailure
	MetricRefreshSuccess         = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure         = internalmetrics.MetricRefreshFailure
	MetricRefreshExpired         = internalmetrics.MetricRefreshExpired
	MetricRefreshOrphanCleaned   = internalmetrics.MetricRefreshOrphanCleaned
	MetricRefreshRateLimited     = internalmetrics.MetricRefreshRateLimited
	MetricMFAVerificationExpired = internalmetrics.MetricMFAVerificationExpired
	MetricMFAStepUp              = internalmetrics.MetricMFAStepUp
	MetricMFACleared             = internalmetrics.MetricMFACleared
	MetricReaperSweep            = internalmetrics.MetricReaperSweep
	MetricReaperRefreshPurged    = internalmetrics.MetricReaperRefreshPurged
	MetricValidateLatency        = internalmetrics.MetricValidateLatency
)

// NewMetrics returns a counter set configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}

// MetricsSnapshot returns the current counters. It never returns nil maps.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}
