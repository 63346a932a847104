package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/schema"
	"github.com/boddenberg/broker-quote-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Seguradoras & Cotações
// ============================================================

func listInsurersHandler(quotes *service.QuoteOrchestrator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/insurers")
		defer span.End()

		var product domain.ProductType
		if raw := r.URL.Query().Get("product"); raw != "" {
			p, err := domain.ParseProductType(raw)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			product = p
		}

		insurers := quotes.Insurers(product)
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.InsurerProfile]{
			Data:  insurers,
			Total: len(insurers),
		})
	}
}

func createQuoteHandler(quotes *service.QuoteOrchestrator, validator *schema.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotes")
		defer span.End()

		body, err := readBody(w, r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := validator.Validate(schema.QuoteRequest, body); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req domain.QuoteRequest
		if err := unmarshalBody(body, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		start := time.Now()
		batch, err := quotes.TriggerMultiCalculation(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		logger.Info("quote batch settled",
			zap.String("batch_id", batch.ID),
			zap.String("product", string(req.Product())),
			zap.Int("results", len(batch.Results)),
			zap.Int("failures", len(batch.Failures)),
			zap.Duration("elapsed", time.Since(start)),
		)
		writeJSON(w, http.StatusOK, batch)
	}
}

func getQuoteBatchHandler(quotes *service.QuoteOrchestrator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/quotes/{batchId}")
		defer span.End()

		batch, err := quotes.GetBatch(ctx, chi.URLParam(r, "batchId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, batch)
	}
}

func editCoverageHandler(quotes *service.QuoteOrchestrator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotes/{batchId}/results/{resultId}/coverages")
		defer span.End()

		var edit domain.CoverageEditRequest
		if err := decodeJSON(w, r, &edit); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := quotes.EditCoverage(ctx, chi.URLParam(r, "batchId"), chi.URLParam(r, "resultId"), &edit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}
