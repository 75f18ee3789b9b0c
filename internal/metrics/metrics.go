// Package metrics exports Prometheus counters for classification outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veraticus/panel-ledger/internal/model"
)

const namespace = "ledger"

// Recorder holds the ledger counters. A nil *Recorder discards every observation.
type Recorder struct {
	gatherer     prometheus.Gatherer
	classified   *prometheus.CounterVec
	skipped      prometheus.Counter
	reclassified *prometheus.CounterVec
	scrapeErrors prometheus.Counter
}

// NewRecorder registers the counters on reg. A nil reg gets a fresh registry,
// so several recorders can coexist in tests.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Recorder{
		gatherer: reg,
		classified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_classified_total",
			Help:      "Feed lines classified, by action type",
		}, []string{"action_type"}),
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_lines_skipped_total",
			Help:      "Feed lines that did not describe an action",
		}),
		reclassified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reclassified_total",
			Help:      "Stored actions rescued by reclassification, by new type",
		}, []string{"new_type"}),
		scrapeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_errors_total",
			Help:      "Failed feed fetches",
		}),
	}
}

// Classified counts one classified line.
func (r *Recorder) Classified(t model.ActionType) {
	if r == nil {
		return
	}
	r.classified.WithLabelValues(string(t)).Inc()
}

// Skipped counts one line that produced no record.
func (r *Recorder) Skipped() {
	if r == nil {
		return
	}
	r.skipped.Inc()
}

// Reclassified counts one rescued record.
func (r *Recorder) Reclassified(newType model.ActionType) {
	if r == nil {
		return
	}
	r.reclassified.WithLabelValues(string(newType)).Inc()
}

// ScrapeError counts one failed fetch.
func (r *Recorder) ScrapeError() {
	if r == nil {
		return
	}
	r.scrapeErrors.Inc()
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
