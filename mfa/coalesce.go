package mfa

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Coalescing shares one in-flight backend lookup among all concurrent
// callers asking about the same principal.
//
// The shared lookup runs detached from any single caller's cancellation and
// is bounded by Timeout instead. Each caller still returns as soon as its own
// context ends.
type Coalescing struct {
	inner   Gate
	timeout time.Duration
	group   singleflight.Group
}

// NewCoalescing wraps inner. timeout <= 0 means the shared lookup inherits
// only the first caller's deadline.
func NewCoalescing(inner Gate, timeout time.Duration) *Coalescing {
	return &Coalescing{inner: inner, timeout: timeout}
}

type lookupResult struct {
	enabled bool
}

func (c *Coalescing) IsMFAEnabled(ctx context.Context, principalID string) (bool, error) {
	ch := c.group.DoChan(principalID, func() (interface{}, error) {
		lookupCtx := context.WithoutCancel(ctx)
		var cancel context.CancelFunc
		if c.timeout > 0 {
			lookupCtx, cancel = context.WithTimeout(lookupCtx, c.timeout)
		} else if deadline, ok := ctx.Deadline(); ok {
			lookupCtx, cancel = context.WithDeadline(lookupCtx, deadline)
		}
		if cancel != nil {
			defer cancel()
		}
		enabled, err := c.inner.IsMFAEnabled(lookupCtx, principalID)
		return lookupResult{enabled: enabled}, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(lookupResult).enabled, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
