package goSession

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// SweepResult summarizes one reaper pass.
type SweepResult struct {
	// PurgedRefresh counts refresh records removed for reaching absolute
	// expiry.
	PurgedRefresh int
	// RefreshExpired counts sessions ended because their refresh record
	// expired.
	RefreshExpired int
	// IdleExpired counts sessions ended for inactivity.
	IdleExpired int
}

type reaper struct {
	engine   *Engine
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func startReaper(e *Engine, interval time.Duration) *reaper {
	r := &reaper{
		engine:   e,
		interval: interval,
		stop:     make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *reaper) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.engine.sweep(context.Background())
		case <-r.stop:
			return
		}
	}
}

// close stops the worker and waits for an in-flight sweep to finish.
func (r *reaper) close() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		close(r.stop)
		r.wg.Wait()
	})
}

// Sweep runs one reaper pass immediately: refresh records past absolute
// expiry are purged with their sessions, then idle sessions are removed.
// It is safe to call while the background reaper is running.
func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	if !e.ready() {
		return SweepResult{}, ErrEngineNotReady
	}
	return e.sweep(ctx), nil
}

func (e *Engine) sweep(ctx context.Context) SweepResult {
	now := e.now()
	res := e.store.Sweep(now, e.config.Session.IdleTimeout)

	for _, sess := range res.RefreshExpiredSessions {
		e.onSessionRemoved(sess.SessionID)
		e.emitAudit(ctx, AuditEventSessionInvalidated, true, sess.PrincipalID, sess.SessionID, nil, func() map[string]string {
			return map[string]string{"reason": "refresh_expired"}
		})
	}
	for _, sess := range res.IdleSessions {
		e.onSessionRemoved(sess.SessionID)
		e.emitAudit(ctx, AuditEventSessionIdleExpired, true, sess.PrincipalID, sess.SessionID, nil, nil)
	}
	// Limiter entries for sessions that went quiet without being removed
	// through the engine.
	pruned := e.refreshLimiter.Prune(now, e.config.Session.IdleTimeout)

	out := SweepResult{
		PurgedRefresh:  res.PurgedRefresh,
		RefreshExpired: len(res.RefreshExpiredSessions),
		IdleExpired:    len(res.IdleSessions),
	}

	e.metricInc(MetricReaperSweep)
	e.metricAdd(MetricReaperRefreshPurged, out.PurgedRefresh)
	e.metricAdd(MetricRefreshExpired, out.RefreshExpired)
	e.metricAdd(MetricSessionInvalidated, out.RefreshExpired)
	e.metricAdd(MetricSessionIdleExpired, out.IdleExpired)

	if out.PurgedRefresh > 0 || out.IdleExpired > 0 {
		e.logger.Info("reaper sweep",
			"refresh_purged", out.PurgedRefresh,
			"refresh_expired_sessions", out.RefreshExpired,
			"idle_sessions", out.IdleExpired,
			"limiter_pruned", pruned,
		)
		e.emitAudit(ctx, AuditEventReaperSweep, true, "", "", nil, func() map[string]string {
			return map[string]string{
				"refresh_purged": strconv.Itoa(out.PurgedRefresh),
				"idle_expired":   strconv.Itoa(out.IdleExpired),
			}
		})
	}
	return out
}
