package handler

import (
	"net/http"
	"strings"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/schema"
	"github.com/boddenberg/broker-quote-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Webhooks de origem
// ============================================================

func webhookLeadHandler(intake *service.LeadIntake, validator *schema.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/webhooks/leads")
		defer span.End()

		body, err := readBody(w, r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := validator.Validate(schema.RawLead, body); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var raw domain.RawLead
		if err := unmarshalBody(body, &raw); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		lead, err := intake.ProcessIncomingWebLead(ctx, &raw)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, lead)
	}
}

func simulateWebhookHandler(intake *service.LeadIntake, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/webhooks/leads/simulate")
		defer span.End()

		lead, err := intake.SimulateWebhookArrival(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, lead)
	}
}

// ============================================================
// Pipeline de leads
// ============================================================

func listLeadsHandler(pipeline *service.LeadPipeline, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads")
		defer span.End()

		leads, err := pipeline.ListLeads(ctx, domain.LeadStatus(r.URL.Query().Get("status")))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Lead]{
			Data:  leads,
			Total: len(leads),
		})
	}
}

func createLeadHandler(pipeline *service.LeadPipeline, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads")
		defer span.End()

		var req domain.CreateLeadRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		lead, err := pipeline.CreateLead(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, lead)
	}
}

func getLeadHandler(pipeline *service.LeadPipeline, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads/{leadId}")
		defer span.End()

		lead, err := pipeline.GetLead(ctx, chi.URLParam(r, "leadId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lead)
	}
}

func moveLeadHandler(pipeline *service.LeadPipeline, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/leads/{leadId}/status")
		defer span.End()

		var req domain.MoveLeadRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		lead, err := pipeline.MoveLead(ctx, chi.URLParam(r, "leadId"), req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lead)
	}
}

func acceptProposalHandler(pipeline *service.LeadPipeline, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/{leadId}/accept")
		defer span.End()

		var req domain.AcceptProposalRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		lead, err := pipeline.AcceptProposal(ctx, chi.URLParam(r, "leadId"), req.QuoteID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lead)
	}
}

func analyzeLeadHandler(pipeline *service.LeadPipeline, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/{leadId}/analysis")
		defer span.End()

		resp, err := pipeline.AnalyzeLead(ctx, chi.URLParam(r, "leadId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Assistente de vendas
// ============================================================

func chatHandler(copilot *service.SalesCopilot, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/assistant/chat")
		defer span.End()

		var req domain.ChatRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}

		writeJSON(w, http.StatusOK, copilot.Chat(ctx, &req))
	}
}

func draftReplyHandler(copilot *service.SalesCopilot, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/assistant/draft-reply")
		defer span.End()

		var req domain.DraftReplyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if strings.TrimSpace(req.CustomerMessage) == "" {
			writeError(w, http.StatusBadRequest, "customerMessage is required")
			return
		}

		writeJSON(w, http.StatusOK, copilot.DraftReply(ctx, &req))
	}
}

func pipelineInsightHandler(pipeline *service.LeadPipeline, copilot *service.SalesCopilot, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/pipeline")
		defer span.End()

		leads, err := pipeline.ListLeads(ctx, "")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, copilot.PipelineInsight(ctx, leads))
	}
}
