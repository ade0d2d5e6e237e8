// Package metrics exports session synchronization counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clawtui/internal/sessionsync"
)

const namespace = "clawtui"

const (
	historyApplied   = "applied"
	historyDiscarded = "discarded"
	historyFailed    = "failed"
)

// Metrics implements sessionsync.Observer on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	RefreshRequests prometheus.Counter
	JoinedRequests  prometheus.Counter
	Fetches         *prometheus.CounterVec
	RefreshState    prometheus.Gauge

	HistoryRequests prometheus.Counter
	HistoryOutcomes *prometheus.CounterVec
	HistoryMessages prometheus.Gauge
}

var _ sessionsync.Observer = (*Metrics)(nil)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Metrics{
		registry: reg,
		RefreshRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_requests_total",
			Help:      "Session info refresh requests, including joined ones.",
		}),
		JoinedRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_joined_total",
			Help:      "Refresh requests absorbed by an outstanding or trailing fetch.",
		}),
		Fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_list_fetches_total",
			Help:      "Session list fetches by outcome.",
		}, []string{"outcome"}),
		RefreshState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_state",
			Help:      "Coalescer state: 0 idle, 1 in flight, 2 in flight with a trailing fetch pending.",
		}),
		HistoryRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_requests_total",
			Help:      "History loads started.",
		}),
		HistoryOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_loads_total",
			Help:      "History loads by outcome.",
		}, []string{"outcome"}),
		HistoryMessages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_messages",
			Help:      "Message count of the last applied history payload.",
		}),
	}
	for _, outcome := range []string{"issued", "succeeded", "failed"} {
		m.Fetches.WithLabelValues(outcome)
	}
	for _, outcome := range []string{historyApplied, historyDiscarded, historyFailed} {
		m.HistoryOutcomes.WithLabelValues(outcome)
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RefreshRequested() { m.RefreshRequests.Inc() }
func (m *Metrics) RefreshJoined()    { m.JoinedRequests.Inc() }
func (m *Metrics) FetchIssued()      { m.Fetches.WithLabelValues("issued").Inc() }
func (m *Metrics) FetchSucceeded()   { m.Fetches.WithLabelValues("succeeded").Inc() }
func (m *Metrics) FetchFailed()      { m.Fetches.WithLabelValues("failed").Inc() }

func (m *Metrics) RefreshStateChanged(state sessionsync.RefreshState) {
	m.RefreshState.Set(float64(state))
}

func (m *Metrics) HistoryRequested() { m.HistoryRequests.Inc() }

func (m *Metrics) HistoryApplied(messages int) {
	m.HistoryOutcomes.WithLabelValues(historyApplied).Inc()
	m.HistoryMessages.Set(float64(messages))
}

func (m *Metrics) HistoryDiscarded() { m.HistoryOutcomes.WithLabelValues(historyDiscarded).Inc() }
func (m *Metrics) HistoryFailed()    { m.HistoryOutcomes.WithLabelValues(historyFailed).Inc() }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
