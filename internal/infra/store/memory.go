// Package store holds the lead pipeline state in process memory.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("store")

// LeadStore is a mutex-guarded LeadStore. List keeps insertion order
// (newest last) and every read returns a copy.
type LeadStore struct {
	mu     sync.RWMutex
	leads  map[string]*domain.Lead
	order  []string
	now    func() time.Time
	logger *zap.Logger
}

// NewLeadStore creates an empty store.
func NewLeadStore(logger *zap.Logger) *LeadStore {
	return &LeadStore{
		leads:  make(map[string]*domain.Lead),
		now:    time.Now,
		logger: logger,
	}
}

// Save inserts or replaces a lead.
func (s *LeadStore) Save(ctx context.Context, lead *domain.Lead) error {
	_, span := tracer.Start(ctx, "LeadStore.Save")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", lead.ID))

	if lead.ID == "" {
		return &domain.ErrValidation{Field: "id", Message: "lead id is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := cloneLead(lead)
	now := s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if _, exists := s.leads[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.leads[c.ID] = c

	s.logger.Debug("store: lead saved",
		zap.String("lead_id", c.ID),
		zap.String("status", string(c.Status)),
	)
	return nil
}

// Get returns a copy of the lead with the given ID.
func (s *LeadStore) Get(ctx context.Context, id string) (*domain.Lead, error) {
	_, span := tracer.Start(ctx, "LeadStore.Get")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leads[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	return cloneLead(l), nil
}

// List returns leads in insertion order. An empty status returns all of them.
func (s *LeadStore) List(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	_, span := tracer.Start(ctx, "LeadStore.List")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Lead, 0, len(s.order))
	for _, id := range s.order {
		l := s.leads[id]
		if status != "" && l.Status != status {
			continue
		}
		out = append(out, *cloneLead(l))
	}
	return out, nil
}

// Update applies fn to a copy of the lead under the write lock. The change is
// kept only when fn returns nil.
func (s *LeadStore) Update(ctx context.Context, id string, fn func(*domain.Lead) error) (*domain.Lead, error) {
	_, span := tracer.Start(ctx, "LeadStore.Update")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.leads[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}

	next := cloneLead(cur)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = s.now()
	s.leads[id] = next

	return cloneLead(next), nil
}

func cloneLead(l *domain.Lead) *domain.Lead {
	c := *l
	if l.Tags != nil {
		c.Tags = append([]string(nil), l.Tags...)
	}
	if l.PreCalculatedQuotes != nil {
		c.PreCalculatedQuotes = make([]domain.QuoteResult, len(l.PreCalculatedQuotes))
		for i, q := range l.PreCalculatedQuotes {
			q.Installments = append([]domain.InstallmentPlan(nil), q.Installments...)
			q.Coverages = append([]domain.CoverageItem(nil), q.Coverages...)
			c.PreCalculatedQuotes[i] = q
		}
	}
	return &c
}
