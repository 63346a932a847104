package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/port"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const manualLeadScore = 85

// LeadAnalyzer produces a next-best-action text for a lead.
type LeadAnalyzer interface {
	AnalyzeLead(ctx context.Context, lead *domain.Lead) string
}

// LeadPipeline manages the kanban board of leads.
type LeadPipeline struct {
	store    port.LeadStore
	analyzer LeadAnalyzer
	logger   *zap.Logger
}

// NewLeadPipeline creates the pipeline service.
func NewLeadPipeline(store port.LeadStore, analyzer LeadAnalyzer, logger *zap.Logger) *LeadPipeline {
	return &LeadPipeline{store: store, analyzer: analyzer, logger: logger}
}

// CreateLead registers a manually entered lead in the "new" column.
func (p *LeadPipeline) CreateLead(ctx context.Context, req *domain.CreateLeadRequest) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadPipeline.CreateLead")
	defer span.End()

	if strings.TrimSpace(req.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "lead name is required"}
	}
	if !req.Interest.Valid() {
		return nil, &domain.ErrValidation{Field: "interest", Message: "unknown or missing product"}
	}
	if req.Value < 0 {
		return nil, &domain.ErrValidation{Field: "value", Message: "must not be negative"}
	}

	lead := &domain.Lead{
		ID:              ulid.Make().String(),
		Name:            strings.TrimSpace(req.Name),
		Email:           req.Email,
		Phone:           req.Phone,
		Status:          domain.LeadNew,
		Interest:        req.Interest,
		Value:           req.Value,
		Score:           manualLeadScore,
		LastInteraction: "Agora",
		Notes:           req.Notes,
		Origin:          domain.OriginManual,
		TaxID:           req.TaxID,
		VehicleModel:    req.VehicleModel,
		Contemplated:    req.Contemplated,
	}
	if err := p.store.Save(ctx, lead); err != nil {
		return nil, fmt.Errorf("save lead: %w", err)
	}

	p.logger.Info("lead created", zap.String("lead_id", lead.ID), zap.String("interest", string(lead.Interest)))
	return p.store.Get(ctx, lead.ID)
}

// ListLeads returns the board, optionally filtered by column.
func (p *LeadPipeline) ListLeads(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	if status != "" && !status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	return p.store.List(ctx, status)
}

// GetLead returns one lead.
func (p *LeadPipeline) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	return p.store.Get(ctx, id)
}

// MoveLead drags a lead to another column.
func (p *LeadPipeline) MoveLead(ctx context.Context, id string, next domain.LeadStatus) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadPipeline.MoveLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id), attribute.String("status", string(next)))

	if !next.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", next)}
	}

	var from domain.LeadStatus
	lead, err := p.store.Update(ctx, id, func(l *domain.Lead) error {
		from = l.Status
		if !l.Status.CanMoveTo(next) {
			return &domain.ErrConflict{Message: fmt.Sprintf("lead cannot move from %s to %s", l.Status, next)}
		}
		l.Status = next
		l.LastInteraction = "Agora"
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("lead moved",
		zap.String("lead_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
	)
	return lead, nil
}

// AcceptProposal closes the lead as won with the chosen quote. When quotes
// are attached, quoteID must be one of them.
func (p *LeadPipeline) AcceptProposal(ctx context.Context, id, quoteID string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadPipeline.AcceptProposal")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id), attribute.String("quote.id", quoteID))

	if quoteID == "" {
		return nil, &domain.ErrValidation{Field: "quoteId", Message: "quote id is required"}
	}

	lead, err := p.store.Update(ctx, id, func(l *domain.Lead) error {
		switch l.Status {
		case domain.LeadWon:
			return &domain.ErrConflict{Message: "lead already won"}
		case domain.LeadLost:
			return &domain.ErrConflict{Message: "lead is lost; reopen it before accepting a proposal"}
		}
		if len(l.PreCalculatedQuotes) > 0 && !l.HasQuote(quoteID) {
			return &domain.ErrValidation{Field: "quoteId", Message: "quote is not attached to this lead"}
		}
		l.Status = domain.LeadWon
		l.AcceptedQuoteID = quoteID
		l.ReadyToPropose = false
		l.LastInteraction = "Agora"
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("proposal accepted", zap.String("lead_id", id), zap.String("quote_id", quoteID))
	return lead, nil
}

// AnalyzeLead asks the copilot for a next best action and stores it on the lead.
func (p *LeadPipeline) AnalyzeLead(ctx context.Context, id string) (*domain.AnalysisResponse, error) {
	ctx, span := tracer.Start(ctx, "LeadPipeline.AnalyzeLead")
	defer span.End()

	lead, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	text := p.analyzer.AnalyzeLead(ctx, lead)
	if _, err := p.store.Update(ctx, id, func(l *domain.Lead) error {
		l.NextBestAction = text
		return nil
	}); err != nil {
		return nil, err
	}
	return &domain.AnalysisResponse{LeadID: id, Analysis: text}, nil
}
