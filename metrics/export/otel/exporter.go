package otel

import (
	"context"
	"errors"
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is the read side of an engine. *goSession.Engine satisfies
// it.
type MetricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
	ActiveSessionCount() int
}

// latencyInstruments mirrors one histogram as cumulative bucket gauges plus
// a sample count.
type latencyInstruments struct {
	id      goSession.MetricID
	buckets []metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine metrics through observable instruments. A
// single callback reads one snapshot per collection.
type OTelExporter struct {
	source       MetricsSource
	registration metric.Registration

	counters     map[goSession.MetricID]metric.Int64ObservableCounter
	latencies    []latencyInstruments
	auditDropped metric.Int64ObservableCounter
	active       metric.Int64ObservableGauge

	observables []metric.Observable
}

// NewOTelExporter registers the instruments on meter. Call Close to
// unregister them.
func NewOTelExporter(meter metric.Meter, engine *goSession.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:   source,
		counters: make(map[goSession.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	if err := e.createCounters(meter); err != nil {
		return nil, err
	}
	if err := e.createLatencies(meter); err != nil {
		return nil, err
	}
	if err := e.createGauges(meter); err != nil {
		return nil, err
	}

	registration, err := meter.RegisterCallback(e.observe, e.observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) createCounters(meter metric.Meter) error {
	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = ins
		e.observables = append(e.observables, ins)
	}
	return nil
}

func (e *OTelExporter) createLatencies(meter metric.Meter) error {
	for _, def := range internaldefs.HistogramDefs {
		li := latencyInstruments{id: def.ID}
		for _, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			li.buckets = append(li.buckets, ins)
			e.observables = append(e.observables, ins)
		}

		name := def.Name + "_count"
		count, err := meter.Int64ObservableGauge(name, metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return fmt.Errorf("create histogram count gauge %s: %w", name, err)
		}
		li.count = count
		e.observables = append(e.observables, count)
		e.latencies = append(e.latencies, li)
	}
	return nil
}

func (e *OTelExporter) createGauges(meter metric.Meter) error {
	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return fmt.Errorf("create audit dropped counter: %w", err)
	}
	active, err := meter.Int64ObservableGauge(internaldefs.ActiveSessionsName, metric.WithDescription(internaldefs.ActiveSessionsHelp))
	if err != nil {
		return fmt.Errorf("create active sessions gauge: %w", err)
	}
	e.auditDropped = dropped
	e.active = active
	e.observables = append(e.observables, dropped, active)
	return nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for id, ins := range e.counters {
		observer.ObserveInt64(ins, int64(snapshot.Counters[id]))
	}
	for _, li := range e.latencies {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[li.id]))
		for i, ins := range li.buckets {
			observer.ObserveInt64(ins, int64(cumulative[i]))
		}
		observer.ObserveInt64(li.count, int64(cumulative[len(cumulative)-1]))
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	observer.ObserveInt64(e.active, int64(e.source.ActiveSessionCount()))
	return nil
}

// Close unregisters the callback. It is safe on a nil exporter.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
