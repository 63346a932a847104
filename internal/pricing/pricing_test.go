package pricing_test

import (
	"encoding/json"
	"testing"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func autoRequest(age int, value float64) *domain.QuoteRequest {
	return &domain.QuoteRequest{
		Client: domain.ClientData{Name: "Carlos", Age: age},
		Item:   domain.AutoItem{Model: "Onix Plus 1.0 Turbo", VehicleValue: value},
	}
}

func TestAgeRiskBand(t *testing.T) {
	assert.Equal(t, 0.08, pricing.AgeRiskBand(18))
	assert.Equal(t, 0.08, pricing.AgeRiskBand(24))
	assert.Equal(t, 0.04, pricing.AgeRiskBand(25))
	assert.Equal(t, 0.04, pricing.AgeRiskBand(60))
	assert.Equal(t, 0.06, pricing.AgeRiskBand(61))
}

func TestCalcAuto(t *testing.T) {
	req := autoRequest(30, 85000)
	assert.InDelta(t, 85000*0.04*1.1, pricing.CalcAuto(req, 1.1), 1e-9)
	assert.InDelta(t, 85000*0.04*0.95, pricing.CalcAuto(req, 0.95), 1e-9)
}

func TestCalcAuto_DefaultsVehicleValue(t *testing.T) {
	req := autoRequest(30, 0)
	assert.InDelta(t, pricing.DefaultVehicleValue*0.04, pricing.CalcAuto(req, 1), 1e-9)
}

func TestCalcLife(t *testing.T) {
	req := &domain.QuoteRequest{Client: domain.ClientData{Age: 32}, Item: domain.LifeItem{}}
	// 100 thousands × (32 × 0.5)
	assert.InDelta(t, 1600.0, pricing.CalcLife(req, 1), 1e-9)
}

func TestCalcHealth_Tiers(t *testing.T) {
	cases := []struct {
		age   int
		lives int
		want  float64
	}{
		{age: 30, lives: 1, want: 350},
		{age: 41, lives: 2, want: 1200},
		{age: 60, lives: 1, want: 1200},
		{age: 30, lives: 0, want: 350},
	}
	for _, c := range cases {
		req := &domain.QuoteRequest{Client: domain.ClientData{Age: c.age}, Item: domain.HealthItem{Lives: c.lives}}
		assert.InDelta(t, c.want, pricing.CalcHealth(req, 1), 1e-9, "age=%d lives=%d", c.age, c.lives)
	}
}

func TestCalcConsortiumInstallment(t *testing.T) {
	req := &domain.QuoteRequest{Client: domain.ClientData{Age: 45}, Item: domain.ConsortiumItem{CreditValue: 300000}}
	assert.InDelta(t, 300000.0/180*1.12, pricing.CalcConsortiumInstallment(req, 0.12), 1e-9)
	assert.InDelta(t, 300000.0/180*1.15, pricing.CalcConsortiumInstallment(req, 0.15), 1e-9)
}

func TestPremium_IsDeterministic(t *testing.T) {
	f := domain.PricingFactors{Auto: 1.1, Life: 1, Health: 1.2, Home: 1, ConsortiumAdminFee: 0.15}
	reqs := []*domain.QuoteRequest{
		autoRequest(22, 120000),
		{Client: domain.ClientData{Age: 50}, Item: domain.LifeItem{}},
		{Client: domain.ClientData{Age: 50}, Item: domain.HealthItem{Lives: 3}},
		{Client: domain.ClientData{Age: 50}, Item: domain.HomeItem{PropertyValue: 450000}},
		{Client: domain.ClientData{Age: 50}, Item: domain.ConsortiumItem{CreditValue: 250000}},
	}
	for _, r := range reqs {
		first := pricing.Premium(r, f)
		second := pricing.Premium(r, f)
		assert.Equal(t, first, second, "product %s", r.Product())
		assert.Greater(t, first, 0.0, "product %s", r.Product())
	}
}

func TestPremium_LifeWithoutAgeIsPriced(t *testing.T) {
	var req domain.QuoteRequest
	body := `{"productType":"life","clientData":{"name":"X"},"itemData":{"capital":500000}}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	premium := pricing.Premium(&req, domain.PricingFactors{Life: 1})
	assert.Greater(t, premium, 0.0)
	assert.InDelta(t, pricing.CalcLife(&domain.QuoteRequest{
		Client: domain.ClientData{Age: domain.DefaultClientAge},
		Item:   domain.LifeItem{},
	}, 1), premium, 1e-9)
}

func TestInstallments_Reconcile(t *testing.T) {
	for _, p := range domain.Products() {
		premium := 1234.57
		q := &domain.QuoteResult{
			Product:      p,
			TotalPremium: premium,
			Status:       domain.QuoteSuccess,
			Installments: pricing.Installments(p, premium),
		}
		require.NotEmpty(t, q.Installments, "product %s", p)
		assert.True(t, pricing.Reconciles(q), "product %s", p)
	}
}

func TestInstallments_AutoInterestPlan(t *testing.T) {
	plans := pricing.Installments(domain.ProductAuto, 1000)
	require.Len(t, plans, 3)
	assert.Equal(t, 10, plans[2].Count)
	assert.InDelta(t, 105.0, plans[2].Value, 1e-9)
	assert.InDelta(t, 1050.0, plans[2].Total, 1e-9)
}

func TestTax(t *testing.T) {
	assert.InDelta(t, 73.8, pricing.Tax(domain.ProductAuto, 1000), 1e-9)
	assert.Zero(t, pricing.Tax(domain.ProductConsortium, 1000))
}

func TestCoverages_ConsortiumCarriesCreditAndFee(t *testing.T) {
	req := &domain.QuoteRequest{Item: domain.ConsortiumItem{CreditValue: 300000}}
	covs := pricing.Coverages(req, domain.PricingFactors{ConsortiumAdminFee: 0.15})
	require.Len(t, covs, 3)
	assert.Equal(t, 300000.0, covs[0].Value)
	assert.Equal(t, 15.0, covs[1].Value)
	assert.False(t, covs[1].Editable)
}

func TestReprice(t *testing.T) {
	req := autoRequest(30, 85000)
	f := domain.PricingFactors{Auto: 1}
	premium := pricing.Premium(req, f)
	orig := &domain.QuoteResult{
		ID:           "porto-1",
		Product:      domain.ProductAuto,
		TotalPremium: premium,
		Status:       domain.QuoteSuccess,
		Coverages:    pricing.Coverages(req, f),
		Installments: pricing.Installments(domain.ProductAuto, premium),
	}

	raised, err := pricing.Reprice(orig, "Carro Reserva", 15)
	require.NoError(t, err)
	assert.InDelta(t, pricing.Round(premium*1.05), raised.TotalPremium, 1e-9)
	assert.Equal(t, "porto-1", raised.DerivedFrom)
	assert.Equal(t, 15.0, raised.Coverages[3].Value)
	assert.Equal(t, 7.0, orig.Coverages[3].Value, "original must not change")
	assert.Equal(t, premium, orig.TotalPremium)

	lowered, err := pricing.Reprice(orig, "Danos Materiais", 50000)
	require.NoError(t, err)
	assert.InDelta(t, pricing.Round(premium*0.95), lowered.TotalPremium, 1e-9)
}

func TestReprice_Rejections(t *testing.T) {
	req := autoRequest(30, 85000)
	orig := &domain.QuoteResult{
		Product:   domain.ProductAuto,
		Status:    domain.QuoteSuccess,
		Coverages: pricing.Coverages(req, domain.PricingFactors{Auto: 1}),
	}

	var verr *domain.ErrValidation
	_, err := pricing.Reprice(orig, "Vidros Completo", 1)
	assert.ErrorAs(t, err, &verr)

	_, err = pricing.Reprice(orig, "Inexistente", 1)
	assert.ErrorAs(t, err, &verr)

	failed := &domain.QuoteResult{Status: domain.QuoteError}
	var conflict *domain.ErrConflict
	_, err = pricing.Reprice(failed, "Carro Reserva", 1)
	assert.ErrorAs(t, err, &conflict)
}
