package insurer

import (
	"context"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/port"
)

// Router sends each insurer to its own gateway, falling back to a default
// (normally the simulated portal) for insurers without a configured API.
type Router struct {
	fallback port.InsurerGateway
	byID     map[string]port.InsurerGateway
}

// NewRouter creates a Router. byID may be nil.
func NewRouter(fallback port.InsurerGateway, byID map[string]port.InsurerGateway) *Router {
	m := make(map[string]port.InsurerGateway, len(byID))
	for k, v := range byID {
		m[k] = v
	}
	return &Router{fallback: fallback, byID: m}
}

// Quote implements port.InsurerGateway.
func (r *Router) Quote(ctx context.Context, ins domain.InsurerProfile, req *domain.QuoteRequest) (*domain.QuoteResult, error) {
	if gw, ok := r.byID[ins.ID]; ok {
		return gw.Quote(ctx, ins, req)
	}
	return r.fallback.Quote(ctx, ins, req)
}
