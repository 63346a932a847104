package observability

import (
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the quote BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	insurerLatency  *prometheus.HistogramVec
	insurerOutcomes *prometheus.CounterVec
	batches         prometheus.Counter
	leads           *prometheus.CounterVec
	textgen         *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		insurerLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_insurer_quote_duration_seconds",
				Help:    "Latency of a single insurer quote call.",
				Buckets: []float64{0.25, 0.5, 1, 1.5, 2, 3, 5, 10},
			},
			[]string{"insurer"},
		),
		insurerOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_insurer_quotes_total",
				Help: "Insurer quote calls by outcome.",
			},
			[]string{"insurer", "status"},
		),
		batches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bfa_quote_batches_total",
				Help: "Total multi-insurer calculations completed.",
			},
		),
		leads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_leads_processed_total",
				Help: "Inbound web leads processed by outcome.",
			},
			[]string{"outcome"},
		),
		textgen: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_textgen_calls_total",
				Help: "Text generation calls by operation and result.",
			},
			[]string{"operation", "result"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordInsurerQuote records one insurer branch of a batch.
func (m *Metrics) RecordInsurerQuote(insurer string, status domain.QuoteStatus, d time.Duration) {
	m.insurerLatency.WithLabelValues(insurer).Observe(d.Seconds())
	m.insurerOutcomes.WithLabelValues(insurer, string(status)).Inc()
}

// IncrBatch counts a completed batch.
func (m *Metrics) IncrBatch() {
	m.batches.Inc()
}

// IncrLead counts a processed web lead; outcome is "ready" or "degraded".
func (m *Metrics) IncrLead(outcome string) {
	m.leads.WithLabelValues(outcome).Inc()
}

// IncrTextGen counts a text generation call; result is "ok" or "fallback".
func (m *Metrics) IncrTextGen(operation, result string) {
	m.textgen.WithLabelValues(operation, result).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// Snapshot gathers the current counters for GET /v1/metrics/engine.
// insurers lists the IDs to report on.
func (m *Metrics) Snapshot(insurers []string) *domain.EngineMetrics {
	out := &domain.EngineMetrics{
		Batches:        int64(counterValue(m.batches)),
		LeadsProcessed: int64(vecValue(m.leads, "ready") + vecValue(m.leads, "degraded")),
		LeadsDegraded:  int64(vecValue(m.leads, "degraded")),
		Insurers:       make(map[string]domain.InsurerMetrics, len(insurers)),
		Period:         "all_time",
	}

	for _, id := range insurers {
		ok := vecValue(m.insurerOutcomes, id, string(domain.QuoteSuccess))
		bad := vecValue(m.insurerOutcomes, id, string(domain.QuoteError))
		im := domain.InsurerMetrics{Success: int64(ok), Errors: int64(bad)}
		if ok+bad > 0 {
			im.SuccessRate = ok / (ok + bad)
		}
		out.Insurers[id] = im
	}

	var calls, fallbacks float64
	for _, op := range textGenOperations {
		calls += vecValue(m.textgen, op, "ok") + vecValue(m.textgen, op, "fallback")
		fallbacks += vecValue(m.textgen, op, "fallback")
	}
	out.TextGenCalls = int64(calls)
	out.TextGenFallbacks = int64(fallbacks)
	if calls > 0 {
		out.FallbackRate = fallbacks / calls
	}

	out.PromptTokens = int64(vecValue(m.tokensUsed, "prompt"))
	out.CompletionTokens = int64(vecValue(m.tokensUsed, "completion"))

	var hits, misses float64
	for _, c := range cacheNames {
		hits += vecValue(m.cacheHits, c)
		misses += vecValue(m.cacheMisses, c)
	}
	if hits+misses > 0 {
		out.CacheHitRate = hits / (hits + misses)
	}
	return out
}

// Label values used by the services; kept here so Snapshot can enumerate them.
var (
	textGenOperations = []string{"chat", "pitch", "analysis", "insight"}
	cacheNames        = []string{"quote_batch", "insight"}
)

func vecValue(cv *prometheus.CounterVec, labels ...string) float64 {
	return counterValue(cv.WithLabelValues(labels...))
}

// counterValue extracts the current float64 value from a counter.
func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
