// Package prometheus exposes goSession metrics through prometheus/client_golang.
//
// [PrometheusExporter] is a Collector built from one engine snapshot per
// scrape. It ships with its own registry for [PrometheusExporter.Handler],
// and it can also be registered into an application registry. Counter names
// are prefixed gosession_*_total; the single histogram is
// gosession_validate_latency_seconds and the single gauge is
// gosession_active_sessions.
//
// Nothing is registered in the default global registry.
package prometheus
