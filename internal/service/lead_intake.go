package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-quote-bfa-go/internal/port"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Defaults applied to web leads before quoting; the origin forms do not
// collect these fields.
const (
	PlaceholderTaxID      = "000.000.000-00"
	PlaceholderPostalCode = "00000-000"
	DefaultLeadAge        = domain.DefaultClientAge
	DefaultOccupation     = "Profissional Liberal"
	DefaultTopN           = 3

	webLeadScore      = 95
	webRoutingReason  = "Integração API"
	noteQuotesFailed  = " [Erro ao calcular propostas automáticas]"
	noteQuotesReadyFm = " [RPA: %d Propostas Geradas + Pitch IA pronto]"
)

var webLeadTags = []string{"Origem: Web", "Prioridade", "Calculado"}

// DemoWebLead is the payload replayed by SimulateWebhookArrival.
var DemoWebLead = domain.RawLead{
	Name:       "Juliana Martins (Web)",
	Email:      "juliana.martins@email.com",
	Phone:      "(11) 99876-5432",
	Age:        intPtr(32),
	Product:    domain.ProductLife,
	InputValue: 500000,
	Origin:     domain.OriginWebLife,
}

// DemoConsortiumLead is the second sample origin payload.
var DemoConsortiumLead = domain.RawLead{
	Name:       "Pedro Henrique (Web)",
	Email:      "pedro.cons@email.com",
	Phone:      "(41) 98888-5678",
	Age:        intPtr(45),
	Product:    domain.ProductConsortium,
	InputValue: 300000,
	Origin:     domain.OriginWebConsortium,
}

func intPtr(v int) *int { return &v }

// QuoteCalculator runs a multi-insurer calculation.
type QuoteCalculator interface {
	TriggerMultiCalculation(ctx context.Context, req *domain.QuoteRequest) (*domain.QuoteBatch, error)
}

// PitchWriter drafts the comparison message sent to a lead.
type PitchWriter interface {
	GenerateComparisonPitch(ctx context.Context, leadName string, product domain.ProductType, quotes []domain.QuoteResult) string
}

// LeadIntake turns inbound web leads into pipeline leads with quotes attached.
type LeadIntake struct {
	quotes  QuoteCalculator
	pitch   PitchWriter
	store   port.LeadStore
	topN    int
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewLeadIntake creates the intake adapter. topN <= 0 means DefaultTopN.
func NewLeadIntake(
	quotes QuoteCalculator,
	pitch PitchWriter,
	store port.LeadStore,
	topN int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LeadIntake {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &LeadIntake{
		quotes:  quotes,
		pitch:   pitch,
		store:   store,
		topN:    topN,
		metrics: metrics,
		logger:  logger,
	}
}

// ProcessIncomingWebLead maps raw into a lead, quotes it, attaches the best
// results with a pitch, and saves it. Quoting and pitch problems degrade the
// lead with a note; only a structurally invalid payload or a store failure
// is returned as an error.
func (s *LeadIntake) ProcessIncomingWebLead(ctx context.Context, raw *domain.RawLead) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadIntake.ProcessIncomingWebLead")
	defer span.End()

	if raw == nil || strings.TrimSpace(raw.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "lead name is required"}
	}
	if !raw.Product.Valid() {
		return nil, &domain.ErrValidation{Field: "product", Message: "unknown or missing product"}
	}

	lead := NewWebLead(raw)
	span.SetAttributes(
		attribute.String("lead.id", lead.ID),
		attribute.String("product", string(raw.Product)),
	)

	req := BuildQuoteRequest(raw)
	req.LeadID = lead.ID

	s.logger.Info("RPA: starting multi-insurer calculation",
		zap.String("lead_id", lead.ID),
		zap.String("product", string(raw.Product)),
	)

	outcome := "ready"
	batch, err := s.quotes.TriggerMultiCalculation(ctx, req)
	var top []domain.QuoteResult
	if err == nil {
		top = TopQuotes(batch.Results, s.topN)
	}

	switch {
	case err != nil:
		s.logger.Error("automatic calculation failed",
			zap.String("lead_id", lead.ID),
			zap.Error(err),
		)
		lead.Notes += noteQuotesFailed
		outcome = "degraded"
	case len(top) == 0:
		s.logger.Warn("no insurer returned a usable quote",
			zap.String("lead_id", lead.ID),
			zap.String("batch_id", batch.ID),
		)
		lead.Notes += noteQuotesFailed
		outcome = "degraded"
	default:
		lead.PreCalculatedQuotes = top
		lead.ReadyToPropose = true
		lead.AIDraftMessage = s.pitch.GenerateComparisonPitch(ctx, lead.Name, lead.Interest, top)
		lead.Notes += fmt.Sprintf(noteQuotesReadyFm, len(top))
	}

	if err := s.store.Save(context.WithoutCancel(ctx), lead); err != nil {
		return nil, fmt.Errorf("save lead: %w", err)
	}
	s.metrics.IncrLead(outcome)

	s.logger.Info("web lead processed",
		zap.String("lead_id", lead.ID),
		zap.String("outcome", outcome),
		zap.Int("quotes", len(lead.PreCalculatedQuotes)),
	)
	return lead, nil
}

// SimulateWebhookArrival replays DemoWebLead through the intake.
func (s *LeadIntake) SimulateWebhookArrival(ctx context.Context) (*domain.Lead, error) {
	raw := DemoWebLead
	return s.ProcessIncomingWebLead(ctx, &raw)
}

// NewWebLead maps the raw payload into a new pipeline lead.
func NewWebLead(raw *domain.RawLead) *domain.Lead {
	origin := raw.Origin
	if origin == "" {
		origin = defaultOrigin(raw.Product)
	}
	return &domain.Lead{
		ID:              ulid.Make().String(),
		Name:            strings.TrimSpace(raw.Name),
		Email:           raw.Email,
		Phone:           raw.Phone,
		Status:          domain.LeadNew,
		Interest:        raw.Product,
		Value:           raw.InputValue,
		Score:           webLeadScore,
		LastInteraction: "Agora (Automação)",
		Notes:           fmt.Sprintf("Lead captado via Sistema de %s.", originSystem(raw.Product)),
		Tags:            append([]string(nil), webLeadTags...),
		Origin:          origin,
		RoutingReason:   webRoutingReason,
	}
}

func defaultOrigin(p domain.ProductType) domain.LeadOrigin {
	switch p {
	case domain.ProductLife:
		return domain.OriginWebLife
	case domain.ProductConsortium:
		return domain.OriginWebConsortium
	}
	return domain.OriginWeb
}

func originSystem(p domain.ProductType) string {
	switch p {
	case domain.ProductConsortium:
		return "Consórcio"
	case domain.ProductLife:
		return "Vida"
	}
	return p.Label()
}

// BuildQuoteRequest builds the engine request for a raw lead, filling the
// fields the origin forms do not collect. inputValue is read according to
// the product.
func BuildQuoteRequest(raw *domain.RawLead) *domain.QuoteRequest {
	age := DefaultLeadAge
	if raw.Age != nil && *raw.Age > 0 {
		age = *raw.Age
	}

	var item domain.QuoteItem
	switch raw.Product {
	case domain.ProductAuto:
		item = domain.AutoItem{VehicleValue: raw.InputValue}
	case domain.ProductLife:
		item = domain.LifeItem{Occupation: DefaultOccupation, Capital: raw.InputValue}
	case domain.ProductHealth:
		item = domain.HealthItem{Lives: 1}
	case domain.ProductHome:
		item = domain.HomeItem{PropertyValue: raw.InputValue}
	case domain.ProductConsortium:
		item = domain.ConsortiumItem{CreditValue: raw.InputValue}
	}

	return &domain.QuoteRequest{
		Client: domain.ClientData{
			Name:       strings.TrimSpace(raw.Name),
			Age:        age,
			TaxID:      PlaceholderTaxID,
			PostalCode: PlaceholderPostalCode,
		},
		Item: item,
	}
}

// TopQuotes returns up to n successful results ordered by score, highest
// first. Ties keep their original (dispatch) order.
func TopQuotes(results []domain.QuoteResult, n int) []domain.QuoteResult {
	ok := make([]domain.QuoteResult, 0, len(results))
	for _, r := range results {
		if r.Succeeded() {
			ok = append(ok, r)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool { return ok[i].Score > ok[j].Score })
	if len(ok) > n {
		ok = ok[:n]
	}
	return ok
}
