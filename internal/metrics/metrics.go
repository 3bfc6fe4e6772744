package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/raaihank/anonimizador/internal/privacy"
)

// Redaction metrics
var (
	// anonimizador_redactions_total (counter): texts run through the redactor
	RedactionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anonimizador_redactions_total",
		Help: "Number of texts run through the redactor",
	})

	// anonimizador_placeholders_total{entity=dni|telefono|email}
	PlaceholdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anonimizador_placeholders_total",
		Help: "Number of sensitive substrings replaced, by entity",
	}, []string{"entity"})

	// anonimizador_blank_inputs_total (counter): submissions rejected as blank
	BlankInputsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anonimizador_blank_inputs_total",
		Help: "Number of submissions rejected because the text was blank",
	})

	// anonimizador_exports_total{sink=file|writer|blob, result=ok|error}
	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anonimizador_exports_total",
		Help: "Number of exported documents by sink and result",
	}, []string{"sink", "result"})
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anonimizador_http_requests_total",
		Help: "Number of HTTP requests by route and status code",
	}, []string{"route", "code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "anonimizador_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// RecordRedaction counts a redaction and its placeholders
func RecordRedaction(result privacy.Result) {
	RedactionsTotal.Inc()
	for _, f := range result.Findings {
		PlaceholdersTotal.WithLabelValues(f.EntityType).Add(float64(f.Count))
	}
}

// RecordBlankInput counts a rejected blank submission
func RecordBlankInput() {
	BlankInputsTotal.Inc()
}

// RecordExport counts an export attempt
func RecordExport(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ExportsTotal.WithLabelValues(sink, result).Inc()
}

// RecordHTTPRequest counts a finished HTTP request
func RecordHTTPRequest(route string, code int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
