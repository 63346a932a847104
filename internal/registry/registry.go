// Package registry holds the static list of insurers the engine can quote.
package registry

import (
	"sort"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
)

// Registry is an ordered, read-only set of insurer profiles.
type Registry struct {
	profiles []domain.InsurerProfile
	byID     map[string]int
}

// New builds a registry from profiles. The slice is copied.
func New(profiles []domain.InsurerProfile) *Registry {
	r := &Registry{
		profiles: make([]domain.InsurerProfile, len(profiles)),
		byID:     make(map[string]int, len(profiles)),
	}
	for i, p := range profiles {
		p.Affinities = append([]domain.Affinity(nil), p.Affinities...)
		r.profiles[i] = p
		r.byID[p.ID] = i
	}
	return r
}

// Default returns the registry with the built-in insurers.
func Default() *Registry {
	return New(defaultInsurers)
}

var defaultInsurers = []domain.InsurerProfile{
	{
		ID: "porto", Name: "Porto Seguro", Logo: "P", Tier: "Premium",
		Affinities:  []domain.Affinity{domain.AffinityGeneral, domain.AffinityHealth, domain.AffinityConsortium},
		Reliability: 99.5,
		Pricing:     domain.PricingFactors{Auto: 1.1, Life: 1.0, Health: 1.0, Home: 1.1, ConsortiumAdminFee: 0.15},
	},
	{
		ID: "allianz", Name: "Allianz", Logo: "A", Tier: "Standard",
		Affinities:  []domain.Affinity{domain.AffinityGeneral},
		Reliability: 98.2,
		Pricing:     domain.PricingFactors{Auto: 0.95, Life: 1.0, Health: 1.0, Home: 0.95, ConsortiumAdminFee: 0.12},
	},
	{
		ID: "sulamerica", Name: "SulAmérica", Logo: "S", Tier: "Standard",
		Affinities:  []domain.Affinity{domain.AffinityHealth},
		Reliability: 97.0,
		Pricing:     domain.PricingFactors{Auto: 0.95, Life: 1.0, Health: 1.2, Home: 0.95, ConsortiumAdminFee: 0.12},
	},
	{
		ID: "ademicon", Name: "Ademicon", Logo: "Ad", Tier: "Standard",
		Affinities:  []domain.Affinity{domain.AffinityConsortium},
		Reliability: 96.5,
		Pricing:     domain.PricingFactors{Auto: 0.95, Life: 1.0, Health: 1.0, Home: 0.95, ConsortiumAdminFee: 0.12},
	},
	{
		// lower rate due to captchas on the portal
		ID: "bradesco", Name: "Bradesco Seguros", Logo: "B", Tier: "Standard",
		Affinities:  []domain.Affinity{domain.AffinityGeneral, domain.AffinityHealth},
		Reliability: 85.0,
		Pricing:     domain.PricingFactors{Auto: 0.95, Life: 1.0, Health: 1.0, Home: 0.95, ConsortiumAdminFee: 0.12},
	},
}

// All returns every profile in registry order.
func (r *Registry) All() []domain.InsurerProfile {
	return append([]domain.InsurerProfile(nil), r.profiles...)
}

// Get looks up a profile by ID.
func (r *Registry) Get(id string) (domain.InsurerProfile, bool) {
	i, ok := r.byID[id]
	if !ok {
		return domain.InsurerProfile{}, false
	}
	return r.profiles[i], true
}

// SelectEligible returns the insurers able to quote product, most reliable
// first. Ties keep registry order.
func (r *Registry) SelectEligible(product domain.ProductType) []domain.InsurerProfile {
	want := domain.AffinityFor(product)
	out := make([]domain.InsurerProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		if p.Serves(want) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Reliability > out[j].Reliability
	})
	return out
}
