package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/schema"
	"github.com/boddenberg/broker-quote-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps carries everything the router needs. Routes whose service is nil
// answer 503.
type Deps struct {
	Quotes    *service.QuoteOrchestrator
	Intake    *service.LeadIntake
	Pipeline  *service.LeadPipeline
	Copilot   *service.SalesCopilot
	Validator *schema.Validator

	// Breakers and TextGenReady feed /healthz.
	Breakers     *resilience.Breakers
	TextGenReady bool

	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Breakers, d.TextGenReady))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Seguradoras & Cotação multi-seguradora
		// =============================================
		r.Group(func(r chi.Router) {
			if d.Quotes == nil || d.Validator == nil {
				r.Use(unavailable("quote engine"))
			}
			r.Get("/insurers", listInsurersHandler(d.Quotes, logger))
			r.Post("/quotes", createQuoteHandler(d.Quotes, d.Validator, logger))
			r.Get("/quotes/{batchId}", getQuoteBatchHandler(d.Quotes, logger))
			r.Post("/quotes/{batchId}/results/{resultId}/coverages", editCoverageHandler(d.Quotes, logger))
		})

		// =============================================
		// 2. Webhooks de origem (Vida / Consórcio)
		// =============================================
		r.Group(func(r chi.Router) {
			if d.Intake == nil || d.Validator == nil {
				r.Use(unavailable("lead intake"))
			}
			r.Post("/webhooks/leads", webhookLeadHandler(d.Intake, d.Validator, logger))
			r.Post("/webhooks/leads/simulate", simulateWebhookHandler(d.Intake, logger))
		})

		// =============================================
		// 3. Pipeline de leads (kanban)
		// =============================================
		r.Group(func(r chi.Router) {
			if d.Pipeline == nil {
				r.Use(unavailable("lead pipeline"))
			}
			r.Get("/leads", listLeadsHandler(d.Pipeline, logger))
			r.Post("/leads", createLeadHandler(d.Pipeline, logger))
			r.Get("/leads/{leadId}", getLeadHandler(d.Pipeline, logger))
			r.Put("/leads/{leadId}/status", moveLeadHandler(d.Pipeline, logger))
			r.Post("/leads/{leadId}/accept", acceptProposalHandler(d.Pipeline, logger))
			r.Post("/leads/{leadId}/analysis", analyzeLeadHandler(d.Pipeline, logger))
		})

		// =============================================
		// 4. Assistente de vendas
		// =============================================
		r.Group(func(r chi.Router) {
			if d.Copilot == nil || d.Pipeline == nil {
				r.Use(unavailable("sales copilot"))
			}
			r.Post("/assistant/chat", chatHandler(d.Copilot, logger))
			r.Post("/assistant/draft-reply", draftReplyHandler(d.Copilot, logger))
			r.Get("/insights/pipeline", pipelineInsightHandler(d.Pipeline, d.Copilot, logger))
		})

		// =============================================
		// 5. Métricas do motor
		// =============================================
		r.Get("/metrics/engine", engineMetricsHandler(d.Quotes, d.Metrics))
	})

	return r
}

func unavailable(name string) func(http.Handler) http.Handler {
	return func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusServiceUnavailable, name+" unavailable")
		})
	}
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(breakers *resilience.Breakers, textGenReady bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}

		textgen := domain.ServiceHealth{Name: "textgen", Status: "healthy", LastChecked: now}
		if !textGenReady {
			textgen.Status = "degraded"
			textgen.Detail = "api key not configured; serving fallback texts"
		}
		services = append(services, textgen)

		if breakers != nil {
			states := breakers.States()
			keys := make([]string, 0, len(states))
			for k := range states {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				s := domain.ServiceHealth{Name: "insurer:" + k, Status: "healthy", Detail: "circuit " + states[k], LastChecked: now}
				if states[k] != "closed" {
					s.Status = "degraded"
				}
				services = append(services, s)
			}
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func engineMetricsHandler(quotes *service.QuoteOrchestrator, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ids []string
		if quotes != nil {
			for _, ins := range quotes.Insurers("") {
				ids = append(ids, ins.ID)
			}
		}
		writeJSON(w, http.StatusOK, metrics.Snapshot(ids))
	}
}
