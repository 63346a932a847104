package domain

// Affinity is the group of products an insurer services.
type Affinity string

const (
	AffinityGeneral    Affinity = "general"
	AffinityHealth     Affinity = "health"
	AffinityConsortium Affinity = "consortium"
)

// AffinityFor maps a product to the affinity an insurer needs to quote it.
func AffinityFor(p ProductType) Affinity {
	switch p {
	case ProductConsortium:
		return AffinityConsortium
	case ProductHealth:
		return AffinityHealth
	default:
		return AffinityGeneral
	}
}

// PricingFactors are the insurer-specific multipliers fed to the rate tables.
type PricingFactors struct {
	Auto               float64 `json:"auto"`
	Life               float64 `json:"life"`
	Health             float64 `json:"health"`
	Home               float64 `json:"home"`
	ConsortiumAdminFee float64 `json:"consortiumAdminFee"`
}

// InsurerProfile describes one quoting endpoint. Profiles are static.
type InsurerProfile struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Logo        string         `json:"logo"`
	Affinities  []Affinity     `json:"affinities"`
	Reliability float64        `json:"successRate"`
	Tier        string         `json:"tier"`
	Pricing     PricingFactors `json:"pricing"`
}

// Serves reports whether the insurer carries the given affinity.
func (p *InsurerProfile) Serves(a Affinity) bool {
	for _, x := range p.Affinities {
		if x == a {
			return true
		}
	}
	return false
}
