package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	extractionsTotal       *prometheus.CounterVec
	schemeLookupsTotal     *prometheus.CounterVec
	schemesReturned        *prometheus.HistogramVec
	wizardTransitionsTotal *prometheus.CounterVec
	historyEventsTotal     *prometheus.CounterVec
	transcriptionsTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seva",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "seva",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "seva",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	extractionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seva",
			Subsystem: "profile",
			Name:      "extractions_total",
			Help:      "Total profile extractions by path taken.",
		},
		[]string{"service", "mode"},
	)
	schemeLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seva",
			Subsystem: "schemes",
			Name:      "lookups_total",
			Help:      "Total scheme lookups by language and trigger.",
		},
		[]string{"service", "language", "trigger"},
	)
	schemesReturned := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "seva",
			Subsystem: "schemes",
			Name:      "returned",
			Help:      "Distribution of schemes returned per successful lookup.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	wizardTransitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seva",
			Subsystem: "wizard",
			Name:      "transitions_total",
			Help:      "Total form wizard transitions by kind and status.",
		},
		[]string{"service", "transition", "status"},
	)
	historyEventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seva",
			Subsystem: "history",
			Name:      "events_total",
			Help:      "Total recorded history events by entry type.",
		},
		[]string{"service", "type"},
	)
	transcriptionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seva",
			Subsystem: "speech",
			Name:      "transcriptions_total",
			Help:      "Total speech-to-text requests by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		extractionsTotal,
		schemeLookupsTotal,
		schemesReturned,
		wizardTransitionsTotal,
		historyEventsTotal,
		transcriptionsTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		extractionsTotal:       extractionsTotal,
		schemeLookupsTotal:     schemeLookupsTotal,
		schemesReturned:        schemesReturned,
		wizardTransitionsTotal: wizardTransitionsTotal,
		historyEventsTotal:     historyEventsTotal,
		transcriptionsTotal:    transcriptionsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/forms/"):
		return "/v1/forms/{session_id}"
	case strings.HasPrefix(path, "/v1/schemes/discover/"):
		return "/v1/schemes/discover/{session_id}"
	case strings.HasPrefix(path, "/v1/translations/"):
		return "/v1/translations/{lang}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordExtraction(service string, fallback bool) {
	mode := "remote"
	if fallback {
		mode = "fallback"
	}
	m.extractionsTotal.WithLabelValues(service, mode).Inc()
}

func (m *HTTPServerMetrics) RecordSchemeLookup(service, language, trigger string, schemeCount int) {
	if trigger == "" {
		trigger = "manual"
	}
	m.schemeLookupsTotal.WithLabelValues(service, language, trigger).Inc()
	m.schemesReturned.WithLabelValues(service).Observe(float64(schemeCount))
}

func (m *HTTPServerMetrics) RecordWizardTransition(service, transition string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.wizardTransitionsTotal.WithLabelValues(service, transition, status).Inc()
}

func (m *HTTPServerMetrics) RecordHistoryEvent(service, entryType string) {
	if entryType == "" {
		entryType = "unknown"
	}
	m.historyEventsTotal.WithLabelValues(service, entryType).Inc()
}

func (m *HTTPServerMetrics) RecordTranscription(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.transcriptionsTotal.WithLabelValues(service, status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
