// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
)

// InsurerGateway prices a request at one insurer. One implementation per
// insurer endpoint (simulated portal or real HTTP API).
type InsurerGateway interface {
	Quote(ctx context.Context, insurer domain.InsurerProfile, req *domain.QuoteRequest) (*domain.QuoteResult, error)
}

// TextGenerator calls the hosted large-language-model API.
type TextGenerator interface {
	Generate(ctx context.Context, req *domain.TextGenRequest) (*domain.TextGenResponse, error)
}

// LeadStore is the single state container for the lead pipeline.
type LeadStore interface {
	Save(ctx context.Context, lead *domain.Lead) error
	Get(ctx context.Context, id string) (*domain.Lead, error)
	List(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error)
	Update(ctx context.Context, id string, fn func(*domain.Lead) error) (*domain.Lead, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
