// Package otel binds goSession metrics to OpenTelemetry instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter,
// one Int64ObservableGauge per latency bucket plus a count, and a gauge for
// live sessions. The caller owns the MeterProvider.
package otel
