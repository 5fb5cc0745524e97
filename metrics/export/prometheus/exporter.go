package prometheus

import (
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// MetricsSource is the read side of an engine. *goSession.Engine satisfies
// it.
type MetricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
	ActiveSessionCount() int
}

type counterDesc struct {
	id   goSession.MetricID
	desc *promclient.Desc
}

type histogramDesc struct {
	id   goSession.MetricID
	desc *promclient.Desc
}

// PrometheusExporter is a [promclient.Collector] that turns one engine
// snapshot into const metrics per scrape. It owns a private registry so it
// can be served on its own or registered into an existing one.
type PrometheusExporter struct {
	source   MetricsSource
	registry *promclient.Registry

	counters     []counterDesc
	histograms   []histogramDesc
	auditDropped *promclient.Desc
	active       *promclient.Desc
}

func NewPrometheusExporter(engine *goSession.Engine) *PrometheusExporter {
	return NewPrometheusExporterFromSource(engine)
}

// NewPrometheusExporterFromSource creates an exporter over any [MetricsSource].
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	p := &PrometheusExporter{
		source:       source,
		registry:     promclient.NewRegistry(),
		auditDropped: promclient.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
		active:       promclient.NewDesc(internaldefs.ActiveSessionsName, internaldefs.ActiveSessionsHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		p.counters = append(p.counters, counterDesc{id: def.ID, desc: promclient.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		p.histograms = append(p.histograms, histogramDesc{id: def.ID, desc: promclient.NewDesc(def.Name, def.Help, nil, nil)})
	}
	p.registry.MustRegister(p)
	return p
}

// Describe implements [promclient.Collector].
func (p *PrometheusExporter) Describe(ch chan<- *promclient.Desc) {
	for _, c := range p.counters {
		ch <- c.desc
	}
	for _, h := range p.histograms {
		ch <- h.desc
	}
	ch <- p.auditDropped
	ch <- p.active
}

// Collect implements [promclient.Collector]. Nothing is emitted while
// metrics are disabled and no audit event has been dropped.
func (p *PrometheusExporter) Collect(ch chan<- promclient.Metric) {
	if p.source == nil {
		return
	}
	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for _, c := range p.counters {
		ch <- promclient.MustNewConstMetric(c.desc, promclient.CounterValue, float64(snapshot.Counters[c.id]))
	}
	for _, h := range p.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			buckets[bound] = cumulative[i]
		}
		// Snapshots carry bucket counts only, so the sum is always zero.
		ch <- promclient.MustNewConstHistogram(h.desc, cumulative[len(cumulative)-1], 0, buckets)
	}
	ch <- promclient.MustNewConstMetric(p.auditDropped, promclient.CounterValue, float64(dropped))
	ch <- promclient.MustNewConstMetric(p.active, promclient.GaugeValue, float64(p.source.ActiveSessionCount()))
}

// Registry returns the exporter's private registry.
func (p *PrometheusExporter) Registry() *promclient.Registry {
	return p.registry
}

// Handler serves the exporter's registry.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Render returns the current metrics in Prometheus text exposition format.
// It returns "" when metrics are disabled and nothing has been dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil {
		return ""
	}
	families, err := p.registry.Gather()
	if err != nil {
		return ""
	}

	var b strings.Builder
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&b, mf); err != nil {
			return ""
		}
	}
	return b.String()
}
