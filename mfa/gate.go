package mfa

import (
	"context"
	"errors"
	"sync"
)

// ErrLookupFailed wraps every backend error returned by a gate.
var ErrLookupFailed = errors.New("mfa lookup failed")

// Gate reports whether MFA is enabled for a principal.
type Gate interface {
	IsMFAEnabled(ctx context.Context, principalID string) (bool, error)
}

// Func adapts a plain function to [Gate].
type Func func(ctx context.Context, principalID string) (bool, error)

func (f Func) IsMFAEnabled(ctx context.Context, principalID string) (bool, error) {
	return f(ctx, principalID)
}

// Static is an in-memory gate. The zero value reports false for everyone.
type Static struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

// NewStatic returns a gate seeded with the given principals as MFA-enabled.
func NewStatic(principals ...string) *Static {
	s := &Static{enabled: make(map[string]bool, len(principals))}
	for _, p := range principals {
		s.enabled[p] = true
	}
	return s
}

// Set changes the flag for principalID.
func (s *Static) Set(principalID string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled == nil {
		s.enabled = make(map[string]bool)
	}
	s.enabled[principalID] = enabled
}

func (s *Static) IsMFAEnabled(ctx context.Context, principalID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[principalID], nil
}
