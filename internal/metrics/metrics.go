package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for one mirror run. They live on a
// private registry and are written once as a textfile at the end of the run.
type Metrics struct {
	registry *prometheus.Registry

	PagesTotal         *prometheus.CounterVec
	ArtifactsTotal     *prometheus.CounterVec
	DocumentLinksTotal prometheus.Counter
	DiscoveredPages    prometheus.Gauge
	RunDuration        prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitemirror_pages_total",
			Help: "Pages processed, by outcome",
		}, []string{"status"}), // ok, failed
		ArtifactsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitemirror_artifacts_total",
			Help: "Embedded artifacts handled, by kind and outcome",
		}, []string{"kind", "status"}),
		DocumentLinksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sitemirror_document_links_total",
			Help: "View-only document links recorded",
		}),
		DiscoveredPages: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sitemirror_discovered_pages",
			Help: "Internal pages found during discovery",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sitemirror_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
	}
}

func (m *Metrics) IncPage(status string) {
	m.PagesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) AddArtifacts(kind, status string, n int) {
	if n <= 0 {
		return
	}
	m.ArtifactsTotal.WithLabelValues(kind, status).Add(float64(n))
}

func (m *Metrics) AddDocumentLinks(n int) {
	if n <= 0 {
		return
	}
	m.DocumentLinksTotal.Add(float64(n))
}

func (m *Metrics) SetDiscovered(n int) {
	m.DiscoveredPages.Set(float64(n))
}

func (m *Metrics) ObserveRun(d time.Duration) {
	m.RunDuration.Set(d.Seconds())
}

// WriteTextfile writes all metrics in the text exposition format
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
