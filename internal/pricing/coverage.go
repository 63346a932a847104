package pricing

import (
	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
)

// Coverage re-pricing multipliers applied when a broker edits a coverage.
const (
	raiseFactor = 1.05
	lowerFactor = 0.95
)

// Coverages returns the coverage lines an insurer offers for the request.
func Coverages(req *domain.QuoteRequest, f domain.PricingFactors) []domain.CoverageItem {
	switch req.Product() {
	case domain.ProductAuto:
		return []domain.CoverageItem{
			{Name: "Colisão/Roubo/Incêndio", Value: 100, Unit: domain.UnitPercent, Description: "% FIPE", Kind: domain.CoverageBasic, Editable: true},
			{Name: "Danos Materiais", Value: 100000, Unit: domain.UnitCurrency, Description: "R$", Kind: domain.CoverageBasic, Editable: true},
			{Name: "Danos Corporais", Value: 100000, Unit: domain.UnitCurrency, Description: "R$", Kind: domain.CoverageBasic, Editable: true},
			{Name: "Carro Reserva", Value: 7, Unit: domain.UnitDays, Description: "Dias", Kind: domain.CoverageAdditional, Editable: true},
			{Name: "Vidros Completo", Value: 0, Unit: domain.UnitText, Description: "Incluso", Kind: domain.CoverageAdditional, Editable: false},
		}
	case domain.ProductLife:
		return []domain.CoverageItem{
			{Name: "Morte Qualquer Causa", Value: DefaultLifeCoverage, Unit: domain.UnitCurrency, Description: "R$", Kind: domain.CoverageBasic, Editable: true},
			{Name: "Invalidez por Acidente", Value: DefaultLifeCoverage, Unit: domain.UnitCurrency, Description: "R$", Kind: domain.CoverageBasic, Editable: true},
			{Name: "Auxílio Funeral", Value: 5000, Unit: domain.UnitCurrency, Description: "R$", Kind: domain.CoverageAdditional, Editable: true},
		}
	case domain.ProductHealth:
		return []domain.CoverageItem{
			{Name: "Abrangência", Value: 0, Unit: domain.UnitText, Description: "Nacional", Kind: domain.CoverageBasic, Editable: true},
			{Name: "Acomodação", Value: 0, Unit: domain.UnitText, Description: "Apartamento", Kind: domain.CoverageBasic, Editable: true},
			{Name: "Coparticipação", Value: 30, Unit: domain.UnitPercent, Description: "%", Kind: domain.CoverageBasic, Editable: true},
		}
	case domain.ProductHome:
		value := DefaultPropertyValue
		if it, ok := req.Item.(domain.HomeItem); ok && it.PropertyValue > 0 {
			value = it.PropertyValue
		}
		return []domain.CoverageItem{
			{Name: "Incêndio/Raio/Explosão", Value: value, Unit: domain.UnitCurrency, Description: "R$", Kind: domain.CoverageBasic, Editable: true},
			{Name: "Danos Elétricos", Value: 10000, Unit: domain.UnitCurrency, Description: "R$", Kind: domain.CoverageAdditional, Editable: true},
			{Name: "Assistência 24h", Value: 0, Unit: domain.UnitText, Description: "Incluso", Kind: domain.CoverageAdditional, Editable: false},
		}
	case domain.ProductConsortium:
		return []domain.CoverageItem{
			{Name: "Carta de Crédito", Value: CreditValue(req), Unit: domain.UnitCurrency, Description: "R$", Kind: domain.CoverageBasic, Editable: true},
			{Name: "Taxa de Adm.", Value: Round(f.ConsortiumAdminFee * 100), Unit: domain.UnitPercent, Description: "% Total", Kind: domain.CoverageBasic, Editable: false},
			{Name: "Prazo", Value: ConsortiumTermMonths, Unit: domain.UnitMonths, Description: "Meses", Kind: domain.CoverageBasic, Editable: true},
		}
	}
	return nil
}

// Reprice returns a new result reflecting a coverage edit. The input is not
// modified. Raising a coverage loads the premium by 5%, lowering it
// discounts 5%; an unchanged value returns an identical copy.
func Reprice(q *domain.QuoteResult, coverageName string, newValue float64) (*domain.QuoteResult, error) {
	if !q.Succeeded() {
		return nil, &domain.ErrConflict{Message: "only successful quotes can be edited"}
	}
	if newValue < 0 {
		return nil, &domain.ErrValidation{Field: "value", Message: "must not be negative"}
	}

	idx := -1
	for i, c := range q.Coverages {
		if c.Name == coverageName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &domain.ErrValidation{Field: "coverage", Message: "unknown coverage: " + coverageName}
	}
	if !q.Coverages[idx].Editable {
		return nil, &domain.ErrValidation{Field: "coverage", Message: "coverage is not editable: " + coverageName}
	}

	out := *q
	out.Coverages = append([]domain.CoverageItem(nil), q.Coverages...)
	old := out.Coverages[idx].Value
	out.Coverages[idx].Value = newValue

	factor := 1.0
	switch {
	case newValue > old:
		factor = raiseFactor
	case newValue < old:
		factor = lowerFactor
	}

	out.TotalPremium = Round(q.TotalPremium * factor)
	out.Tax = Tax(q.Product, out.TotalPremium)
	out.Installments = Installments(q.Product, out.TotalPremium)
	out.DerivedFrom = q.ID
	return &out, nil
}
