package pricing

import (
	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// autoInstallmentInterest is charged on the longest auto plan.
const autoInstallmentInterest = 0.05

// Installments builds the payment plans offered for a premium.
// Plans are alternatives, not a sum: each plan's Total is Count × Value.
func Installments(p domain.ProductType, premium float64) []domain.InstallmentPlan {
	switch p {
	case domain.ProductAuto:
		return []domain.InstallmentPlan{
			plan(1, premium, 0),
			plan(4, premium, 0),
			plan(10, premium, autoInstallmentInterest),
		}
	case domain.ProductLife:
		return []domain.InstallmentPlan{plan(12, premium, 0)}
	case domain.ProductHealth:
		return []domain.InstallmentPlan{plan(1, premium, 0)}
	case domain.ProductHome:
		return []domain.InstallmentPlan{plan(1, premium, 0), plan(3, premium, 0)}
	case domain.ProductConsortium:
		// premium is already the monthly installment
		v := decimal.NewFromFloat(premium).Round(2)
		return []domain.InstallmentPlan{{
			Count: ConsortiumTermMonths,
			Value: v.InexactFloat64(),
			Total: v.Mul(decimal.NewFromInt(ConsortiumTermMonths)).Round(2).InexactFloat64(),
		}}
	}
	return nil
}

func plan(count int, premium, interest float64) domain.InstallmentPlan {
	total := decimal.NewFromFloat(premium).Mul(decimal.NewFromFloat(1 + interest))
	value := total.Div(decimal.NewFromInt(int64(count))).Round(2)
	return domain.InstallmentPlan{
		Count:        count,
		Value:        value.InexactFloat64(),
		Total:        value.Mul(decimal.NewFromInt(int64(count))).Round(2).InexactFloat64(),
		InterestRate: interest,
	}
}

// Reconciles reports whether an interest-free plan adds up to the premium
// within one cent per installment. Plans with interest and consortium
// plans are excluded since they intentionally differ from TotalPremium.
func Reconciles(q *domain.QuoteResult) bool {
	if q.Product == domain.ProductConsortium {
		for _, ip := range q.Installments {
			if !near(ip.Value, q.TotalPremium, 0.01) {
				return false
			}
		}
		return true
	}
	for _, ip := range q.Installments {
		if ip.InterestRate != 0 {
			continue
		}
		if !near(ip.Total, q.TotalPremium, 0.01*float64(ip.Count)) {
			return false
		}
	}
	return true
}

func near(a, b, tol float64) bool {
	d := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs()
	return d.LessThanOrEqual(decimal.NewFromFloat(tol))
}
