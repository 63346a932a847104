package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/cache"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/broker-quote-bfa-go/internal/port"
	"github.com/boddenberg/broker-quote-bfa-go/internal/pricing"
	"github.com/boddenberg/broker-quote-bfa-go/internal/registry"
	"github.com/boddenberg/broker-quote-bfa-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockGateway struct {
	mu          sync.Mutex
	fail        map[string]error
	block       map[string]bool
	scores      map[string]int
	delay       time.Duration
	inFlight    int
	maxInFlight int
}

func (m *mockGateway) Quote(ctx context.Context, ins domain.InsurerProfile, req *domain.QuoteRequest) (*domain.QuoteResult, error) {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.block[ins.ID] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if err := m.fail[ins.ID]; err != nil {
		return nil, err
	}

	score := 5
	if s, ok := m.scores[ins.ID]; ok {
		score = s
	}
	p := req.Product()
	premium := pricing.Premium(req, ins.Pricing)
	return &domain.QuoteResult{
		InsurerID:    ins.ID,
		InsurerName:  ins.Name,
		InsurerLogo:  ins.Logo,
		Product:      p,
		ProductName:  p.Label() + " " + ins.Tier,
		TotalPremium: premium,
		PremiumBasis: pricing.Basis(p),
		Tax:          pricing.Tax(p, premium),
		Installments: pricing.Installments(p, premium),
		Coverages:    pricing.Coverages(req, ins.Pricing),
		Status:       domain.QuoteSuccess,
		Score:        score,
	}, nil
}

type mockTextGen struct {
	mu    sync.Mutex
	resp  *domain.TextGenResponse
	err   error
	calls int
	last  *domain.TextGenRequest
}

func (m *mockTextGen) Generate(_ context.Context, req *domain.TextGenRequest) (*domain.TextGenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = req
	return m.resp, m.err
}

func (m *mockTextGen) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockCalculator struct {
	batch *domain.QuoteBatch
	err   error
	got   *domain.QuoteRequest
}

func (m *mockCalculator) TriggerMultiCalculation(_ context.Context, req *domain.QuoteRequest) (*domain.QuoteBatch, error) {
	m.got = req
	return m.batch, m.err
}

type mockPitch struct {
	text   string
	quotes []domain.QuoteResult
}

func (m *mockPitch) GenerateComparisonPitch(_ context.Context, _ string, _ domain.ProductType, quotes []domain.QuoteResult) string {
	m.quotes = quotes
	return m.text
}

type mockAnalyzer struct{ text string }

func (m *mockAnalyzer) AnalyzeLead(_ context.Context, _ *domain.Lead) string { return m.text }

// --- Builders ---

func newOrchestrator(gw port.InsurerGateway, cfg resilience.Config) *service.QuoteOrchestrator {
	return service.NewQuoteOrchestrator(
		registry.Default(),
		gw,
		cache.New[*domain.QuoteBatch](5*time.Minute),
		resilience.NewBulkhead(16),
		cfg,
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func newCopilot(gen port.TextGenerator, metrics *observability.Metrics) *service.SalesCopilot {
	return service.NewSalesCopilot(
		gen,
		cache.New[string](time.Minute),
		service.CopilotConfig{Model: "gemini-2.5-flash", FastModel: "gemini-2.5-flash-lite-latest"},
		metrics,
		zap.NewNop(),
	)
}

func autoRequest(age int, value float64) *domain.QuoteRequest {
	return &domain.QuoteRequest{
		Client: domain.ClientData{Name: "Carlos", Age: age},
		Item:   domain.AutoItem{Model: "Corolla", VehicleValue: value},
	}
}
