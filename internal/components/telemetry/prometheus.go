package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushAPI decorates another API, mirroring counts and breakages into
// prometheus collectors that are pushed to a Pushgateway once the process is
// done. Batch jobs live too briefly to be scraped.
type PushAPI struct {
	inner    API
	registry *prometheus.Registry
	counts   *prometheus.GaugeVec
	broken   *prometheus.CounterVec
	warnings *prometheus.CounterVec
}

func NewPushAPI(inner API) PushAPI {
	registry := prometheus.NewRegistry()
	counts := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rewardfeed_report_count",
			Help: "Last value reported through ReportCount, labeled by report id.",
		},
		[]string{"id"},
	)
	broken := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewardfeed_broken_total",
			Help: "Number of broken component reports, labeled by report id.",
		},
		[]string{"id"},
	)
	warnings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewardfeed_warnings_total",
			Help: "Number of warnings, labeled by report id.",
		},
		[]string{"id"},
	)
	registry.MustRegister(counts, broken, warnings)

	return PushAPI{
		inner:    inner,
		registry: registry,
		counts:   counts,
		broken:   broken,
		warnings: warnings,
	}
}

func (p PushAPI) ReportBroken(id string, params ...any) {
	p.broken.WithLabelValues(id).Inc()
	p.inner.ReportBroken(id, params...)
}

func (p PushAPI) ReportWarning(id string, params ...any) {
	p.warnings.WithLabelValues(id).Inc()
	p.inner.ReportWarning(id, params...)
}

func (p PushAPI) ReportDebug(msg string, params ...any) {
	p.inner.ReportDebug(msg, params...)
}

func (p PushAPI) ReportCount(id string, count int64) {
	p.counts.WithLabelValues(id).Set(float64(count))
	p.inner.ReportCount(id, count)
}

// Gatherer exposes the underlying registry.
func (p PushAPI) Gatherer() prometheus.Gatherer {
	return p.registry
}

// Push sends everything collected so far to the gateway under job.
func (p PushAPI) Push(ctx context.Context, gatewayUrl, job string) error {
	err := push.New(gatewayUrl, job).
		Gatherer(p.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
