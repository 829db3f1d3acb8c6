package telemetry

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Источники компиляций (метка source).
const (
	SourceAPI    = "api"
	SourceWorker = "worker"
)

var (
	compilationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flust_compilations_total",
		Help: "Total compilations by outcome and error kind",
	}, []string{"source", "status", "kind"})

	compileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flust_compile_duration_seconds",
		Help:    "Time spent generating code for one flow",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"source"})

	generatedLines = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flust_generated_lines",
		Help:    "Lines of generated code per successful compilation",
		Buckets: prometheus.ExponentialBuckets(4, 2, 10),
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flust_compile_cache_lookups_total",
		Help: "Compile cache lookups by result",
	}, []string{"result"})

	reapedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flust_compilations_reaped_total",
		Help: "Compilations failed by the scheduler after staying RUNNING too long",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flust_api_http_requests_total",
		Help: "Total HTTP requests handled by flust-api",
	}, []string{"method", "status"})
)

// ObserveCompilation записывает результат одной компиляции.
// kind — codegen.ErrorKind(err), пустой для успешной.
func ObserveCompilation(source string, elapsed time.Duration, code, kind string) {
	status := "succeeded"
	if kind != "" {
		status = "failed"
	}

	compilationsTotal.WithLabelValues(source, status, kind).Inc()
	compileDuration.WithLabelValues(source).Observe(elapsed.Seconds())

	if kind == "" {
		generatedLines.Observe(float64(strings.Count(code, "\n")))
	}
}

// ObserveReaped учитывает n компиляций, снятых планировщиком.
func ObserveReaped(n int) {
	reapedTotal.Add(float64(n))
}

// ObserveCacheLookup учитывает попадание или промах кэша компиляций.
func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// ObserveHTTPRequest учитывает обработанный HTTP запрос.
func ObserveHTTPRequest(method string, status int) {
	httpRequests.WithLabelValues(method, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
