package insurer_test

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/insurer"
	"github.com/boddenberg/broker-quote-bfa-go/internal/pricing"
	"github.com/boddenberg/broker-quote-bfa-go/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func instantGateway(cfg insurer.Config) *insurer.SimulatedGateway {
	return insurer.NewSimulatedGateway(cfg,
		insurer.WithRand(rand.NewSource(42)),
		insurer.WithClock(func() time.Time { return fixedNow }),
	)
}

func porto(t *testing.T) domain.InsurerProfile {
	t.Helper()
	p, ok := registry.Default().Get("porto")
	require.True(t, ok)
	return p
}

func autoRequest() *domain.QuoteRequest {
	return &domain.QuoteRequest{
		Client: domain.ClientData{Name: "Ana", Age: 30},
		Item:   domain.AutoItem{Model: "Onix", VehicleValue: 85000},
	}
}

func TestLatency_GrowsWithInstability(t *testing.T) {
	g := instantGateway(insurer.DefaultConfig())

	assert.Equal(t, 850*time.Millisecond, g.Latency(99.5))
	assert.Equal(t, 2300*time.Millisecond, g.Latency(85))
	assert.Equal(t, 800*time.Millisecond, g.Latency(120))
}

func TestQuote_Success(t *testing.T) {
	g := instantGateway(insurer.Config{})
	ins := porto(t)
	req := autoRequest()

	res, err := g.Quote(context.Background(), ins, req)
	require.NoError(t, err)

	assert.Equal(t, domain.QuoteSuccess, res.Status)
	assert.Equal(t, "porto", res.InsurerID)
	assert.Equal(t, "Porto Seguro", res.InsurerName)
	assert.Equal(t, "Seguro Auto Premium", res.ProductName)
	assert.Equal(t, pricing.Premium(req, ins.Pricing), res.TotalPremium)
	assert.Equal(t, pricing.Tax(domain.ProductAuto, res.TotalPremium), res.Tax)
	assert.NotEmpty(t, res.Installments)
	assert.NotEmpty(t, res.Coverages)
	assert.GreaterOrEqual(t, res.Score, 1)
	assert.LessOrEqual(t, res.Score, 10)
	assert.Equal(t, fixedNow.Add(5*24*time.Hour), res.ValidUntil)

	assert.Regexp(t, regexp.MustCompile(`^POR-\d{6}$`), res.ProposalNumber)
	assert.Equal(t, "https://fake-insurer-portal.com/proposal/"+res.ProposalNumber+".pdf", res.PDFURL)
}

func TestQuote_ShortInsurerID(t *testing.T) {
	g := instantGateway(insurer.Config{})
	ins := domain.InsurerProfile{ID: "xy", Name: "XY", Affinities: []domain.Affinity{domain.AffinityGeneral}, Reliability: 100}

	res, err := g.Quote(context.Background(), ins, autoRequest())
	require.NoError(t, err)
	assert.Regexp(t, `^XY-\d{6}$`, res.ProposalNumber)
}

func TestQuote_HonoursContext(t *testing.T) {
	g := instantGateway(insurer.Config{BaseDelay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.Quote(ctx, porto(t), autoRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestQuote_FailureInjection(t *testing.T) {
	g := instantGateway(insurer.Config{FailureInjection: true})

	flaky := domain.InsurerProfile{ID: "flaky", Reliability: 0}
	_, err := g.Quote(context.Background(), flaky, autoRequest())
	require.Error(t, err)

	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "insurer:flaky", ext.Service)

	solid := domain.InsurerProfile{ID: "solid", Reliability: 100}
	for i := 0; i < 20; i++ {
		_, err := g.Quote(context.Background(), solid, autoRequest())
		require.NoError(t, err)
	}
}

func TestQuote_NoFailuresWithoutInjection(t *testing.T) {
	g := instantGateway(insurer.Config{})
	flaky := domain.InsurerProfile{ID: "flaky", Reliability: 0}

	_, err := g.Quote(context.Background(), flaky, autoRequest())
	assert.NoError(t, err)
}
