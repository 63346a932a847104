// Package insurer contains the simulated insurer portal used when no real
// insurer API is configured.
package insurer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/pricing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("infra/insurer")

const pdfBaseURL = "https://fake-insurer-portal.com/proposal/"

var errPortalUnavailable = errors.New("portal da seguradora indisponível")

// Config tunes the latency and failure model.
type Config struct {
	BaseDelay        time.Duration
	InstabilityScale time.Duration // extra delay per reliability point below 100
	Jitter           time.Duration
	Validity         time.Duration
	FailureInjection bool
}

// DefaultConfig mirrors the behaviour of the insurer portals in production demos.
func DefaultConfig() Config {
	return Config{
		BaseDelay:        800 * time.Millisecond,
		InstabilityScale: 100 * time.Millisecond,
		Jitter:           500 * time.Millisecond,
		Validity:         5 * 24 * time.Hour,
	}
}

// SimulatedGateway prices requests locally after a reliability-driven delay.
type SimulatedGateway struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// Option customises a SimulatedGateway.
type Option func(*SimulatedGateway)

// WithRand fixes the random source (score, proposal number, jitter, failures).
func WithRand(src rand.Source) Option {
	return func(g *SimulatedGateway) { g.rng = rand.New(src) }
}

// WithClock replaces time.Now for the validity date.
func WithClock(now func() time.Time) Option {
	return func(g *SimulatedGateway) { g.now = now }
}

// NewSimulatedGateway creates a gateway.
func NewSimulatedGateway(cfg Config, opts ...Option) *SimulatedGateway {
	if cfg.Validity <= 0 {
		cfg.Validity = DefaultConfig().Validity
	}
	g := &SimulatedGateway{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Latency returns the simulated response time for an insurer, excluding jitter.
func (g *SimulatedGateway) Latency(reliability float64) time.Duration {
	instability := 100 - reliability
	if instability < 0 {
		instability = 0
	}
	return g.cfg.BaseDelay + time.Duration(instability*float64(g.cfg.InstabilityScale))
}

// Quote implements port.InsurerGateway.
func (g *SimulatedGateway) Quote(ctx context.Context, ins domain.InsurerProfile, req *domain.QuoteRequest) (*domain.QuoteResult, error) {
	ctx, span := tracer.Start(ctx, "SimulatedGateway.Quote")
	defer span.End()
	span.SetAttributes(
		attribute.String("insurer.id", ins.ID),
		attribute.String("product", string(req.Product())),
	)

	delay := g.Latency(ins.Reliability) + g.jitter()
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	if g.cfg.FailureInjection && g.float() < (100-ins.Reliability)/100 {
		return nil, &domain.ErrExternalService{Service: "insurer:" + ins.ID, Err: errPortalUnavailable}
	}

	product := req.Product()
	premium := pricing.Premium(req, ins.Pricing)
	number := g.proposalNumber(ins.ID)

	return &domain.QuoteResult{
		InsurerID:      ins.ID,
		InsurerName:    ins.Name,
		InsurerLogo:    ins.Logo,
		Product:        product,
		ProductName:    fmt.Sprintf("%s %s", product.Label(), ins.Tier),
		TotalPremium:   premium,
		PremiumBasis:   pricing.Basis(product),
		Tax:            pricing.Tax(product, premium),
		Installments:   pricing.Installments(product, premium),
		Coverages:      pricing.Coverages(req, ins.Pricing),
		Status:         domain.QuoteSuccess,
		ProposalNumber: number,
		PDFURL:         pdfBaseURL + number + ".pdf",
		ValidUntil:     g.now().Add(g.cfg.Validity),
		Score:          g.intn(10) + 1,
	}, nil
}

func (g *SimulatedGateway) proposalNumber(insurerID string) string {
	prefix := insurerID
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s-%06d", strings.ToUpper(prefix), g.intn(1000000))
}

func (g *SimulatedGateway) jitter() time.Duration {
	if g.cfg.Jitter <= 0 {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return time.Duration(g.rng.Int63n(int64(g.cfg.Jitter)))
}

func (g *SimulatedGateway) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

func (g *SimulatedGateway) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}
