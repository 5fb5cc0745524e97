package goSession

import (
	"context"
	"errors"
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is one structured audit record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers audit events on a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink writes audit events as structured log records.
type SlogSink = internalaudit.SlogSink

func NewChannelSink(buffer int) *ChannelSink { return internalaudit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return internalaudit.NewJSONWriterSink(w) }

func NewSlogSink(logger *slog.Logger) *SlogSink { return internalaudit.NewSlogSink(logger) }

const (
	AuditEventSessionCreated       = "session_created"
	AuditEventSessionCreateDenied  = "session_create_denied"
	AuditEventSessionInvalidated   = "session_invalidated"
	AuditEventLogoutAll            = "logout_all"
	AuditEventSessionEvicted       = "session_evicted"
	AuditEventSessionIdleExpired   = "session_idle_expired"
	AuditEventRefreshSuccess       = "refresh_success"
	AuditEventRefreshDenied        = "refresh_denied"
	AuditEventRefreshOrphanCleaned = "refresh_orphan_cleaned"
	AuditEventMFAStepUp            = "mfa_step_up"
	AuditEventMFACleared           = "mfa_cleared"
	AuditEventReaperSweep          = "reaper_sweep"
)

// auditErrCode is the stable, non-sensitive error label carried by audit
// events.
type auditErrCode string

const (
	auditErrUnauthenticated       auditErrCode = "unauthenticated"
	auditErrMFARequired           auditErrCode = "mfa_required"
	auditErrMFAExpired            auditErrCode = "mfa_verification_expired"
	auditErrMFAUnavailable        auditErrCode = "mfa_policy_unavailable"
	auditErrRateLimited           auditErrCode = "rate_limited"
	auditErrInvalidAuthentication auditErrCode = "invalid_authentication"
	auditErrSessionCreationFailed auditErrCode = "session_creation_failed"
	auditErrInternal              auditErrCode = "internal_error"
)

// AuditDropped returns how many audit events were discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   e.now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		SessionID:   sessionID,
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) auditErrCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrMFARequired):
		return auditErrMFARequired
	case errors.Is(err, ErrMFAVerificationExpired):
		return auditErrMFAExpired
	case errors.Is(err, ErrMFAPolicyUnavailable):
		return auditErrMFAUnavailable
	case errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidAuthentication):
		return auditErrInvalidAuthentication
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreationFailed
	default:
		return auditErrInternal
	}
}
