// Package pricing holds the actuarial rate tables, coverage templates and
// installment schedules used to price a quote. Everything here is pure:
// no clock, no randomness, no I/O.
package pricing

import (
	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Defaults applied when an optional request field is zero.
const (
	DefaultVehicleValue  = 50000.0
	DefaultLifeCoverage  = 100000.0
	DefaultLives         = 1
	DefaultPropertyValue = 300000.0
	DefaultCreditValue   = 100000.0

	ConsortiumTermMonths = 180

	// IOFRate is the financial operations tax applied on insurance premiums.
	IOFRate = 0.0738

	homeRate = 0.0015
)

// AgeRiskBand returns the auto risk factor for the driver's age.
func AgeRiskBand(age int) float64 {
	switch {
	case age < 25:
		return 0.08
	case age > 60:
		return 0.06
	default:
		return 0.04
	}
}

// HealthTier returns the monthly base price per life for the age bracket.
func HealthTier(age int) float64 {
	switch {
	case age > 59:
		return 1200
	case age > 40:
		return 600
	default:
		return 350
	}
}

// CalcAuto prices auto insurance: vehicle value × age band × insurer factor.
func CalcAuto(req *domain.QuoteRequest, insurerFactor float64) float64 {
	value := DefaultVehicleValue
	if it, ok := req.Item.(domain.AutoItem); ok && it.VehicleValue > 0 {
		value = it.VehicleValue
	}
	return value * AgeRiskBand(req.Client.Age) * insurerFactor
}

// CalcLife prices life insurance: a per-thousand rate of age × 0.5 over the
// fixed 100k coverage base.
func CalcLife(req *domain.QuoteRequest, insurerFactor float64) float64 {
	ratePerThousand := float64(req.Client.Age) * 0.5
	return (DefaultLifeCoverage / 1000) * ratePerThousand * insurerFactor
}

// CalcHealth prices a health plan: lives × age-tier price × insurer factor.
func CalcHealth(req *domain.QuoteRequest, insurerFactor float64) float64 {
	lives := DefaultLives
	if it, ok := req.Item.(domain.HealthItem); ok && it.Lives > 0 {
		lives = it.Lives
	}
	return float64(lives) * HealthTier(req.Client.Age) * insurerFactor
}

// CalcHome prices home insurance as a flat rate over the property value.
func CalcHome(req *domain.QuoteRequest, insurerFactor float64) float64 {
	value := DefaultPropertyValue
	if it, ok := req.Item.(domain.HomeItem); ok && it.PropertyValue > 0 {
		value = it.PropertyValue
	}
	return value * homeRate * insurerFactor
}

// CalcConsortiumInstallment returns the monthly installment of a credit
// letter over the standard term, loaded with the administrator's fee.
func CalcConsortiumInstallment(req *domain.QuoteRequest, adminFeeRate float64) float64 {
	return CreditValue(req) / ConsortiumTermMonths * (1 + adminFeeRate)
}

// CreditValue returns the consortium credit letter, or the default.
func CreditValue(req *domain.QuoteRequest) float64 {
	if it, ok := req.Item.(domain.ConsortiumItem); ok && it.CreditValue > 0 {
		return it.CreditValue
	}
	return DefaultCreditValue
}

// Premium prices req for the given insurer and rounds to cents.
// For consortium the premium is the monthly installment.
func Premium(req *domain.QuoteRequest, f domain.PricingFactors) float64 {
	var raw float64
	switch req.Product() {
	case domain.ProductAuto:
		raw = CalcAuto(req, f.Auto)
	case domain.ProductLife:
		raw = CalcLife(req, f.Life)
	case domain.ProductHealth:
		raw = CalcHealth(req, f.Health)
	case domain.ProductHome:
		raw = CalcHome(req, f.Home)
	case domain.ProductConsortium:
		raw = CalcConsortiumInstallment(req, f.ConsortiumAdminFee)
	}
	return Round(raw)
}

// Basis tells what Premium returns for a product.
func Basis(p domain.ProductType) domain.PremiumBasis {
	switch p {
	case domain.ProductHealth:
		return domain.BasisMonthly
	case domain.ProductConsortium:
		return domain.BasisMonthlyInstallment
	default:
		return domain.BasisAnnual
	}
}

// Tax returns the IOF due on an insurance premium. Consortium is exempt.
func Tax(p domain.ProductType, premium float64) float64 {
	if !p.IsInsurance() {
		return 0
	}
	return Round(premium * IOFRate)
}

// Round rounds a monetary amount half-up to cents.
func Round(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
