package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

const (
	AuditDroppedName   = "gosession_audit_dropped_total"
	AuditDroppedHelp   = "Dropped audit events due to dispatcher backpressure."
	ActiveSessionsName = "gosession_active_sessions"
	ActiveSessionsHelp = "Live sessions in the registry."
)

var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Created sessions."},
	{ID: goSession.MetricSessionCreateDenied, Name: "gosession_session_create_denied_total", Help: "Session creations denied."},
	{ID: goSession.MetricMFARequired, Name: "gosession_mfa_required_total", Help: "Session creations rejected for missing MFA."},
	{ID: goSession.MetricMFAPolicyUnavailable, Name: "gosession_mfa_policy_unavailable_total", Help: "Failed MFA policy lookups."},
	{ID: goSession.MetricSessionEvicted, Name: "gosession_session_evicted_total", Help: "Sessions evicted by the per-principal ceiling."},
	{ID: goSession.MetricSessionIdleExpired, Name: "gosession_session_idle_expired_total", Help: "Sessions ended for inactivity."},
	{ID: goSession.MetricSessionInvalidated, Name: "gosession_session_invalidated_total", Help: "Sessions invalidated by logout or refresh expiry."},
	{ID: goSession.MetricLogoutAll, Name: "gosession_logout_all_total", Help: "Logout-all operations."},
	{ID: goSession.MetricValidateSuccess, Name: "gosession_validate_success_total", Help: "Accepted access tokens."},
	{ID: goSession.MetricValidateFailure, Name: "gosession_validate_failure_total", Help: "Rejected access tokens."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful refresh operations."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: goSession.MetricRefreshExpired, Name: "gosession_refresh_expired_total", Help: "Refresh records that reached absolute expiry."},
	{ID: goSession.MetricRefreshOrphanCleaned, Name: "gosession_refresh_orphan_cleaned_total", Help: "Refresh records removed for a missing session."},
	{ID: goSession.MetricRefreshRateLimited, Name: "gosession_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: goSession.MetricMFAVerificationExpired, Name: "gosession_mfa_verification_expired_total", Help: "Refreshes rejected for lapsed MFA verification."},
	{ID: goSession.MetricMFAStepUp, Name: "gosession_mfa_step_up_total", Help: "MFA step-up confirmations."},
	{ID: goSession.MetricMFACleared, Name: "gosession_mfa_cleared_total", Help: "Cleared MFA verifications."},
	{ID: goSession.MetricReaperSweep, Name: "gosession_reaper_sweep_total", Help: "Reaper passes."},
	{ID: goSession.MetricReaperRefreshPurged, Name: "gosession_reaper_refresh_purged_total", Help: "Refresh records purged by the reaper."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "ValidateAccessToken latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's fixed
// latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix renders each bound as a metric-name-safe suffix, for
// backends without label-based buckets.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
