package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore() *store.LeadStore {
	return store.NewLeadStore(zap.NewNop())
}

func TestLeadStore_SaveAndGet(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &domain.Lead{ID: "l1", Name: "Ana", Status: domain.LeadNew}))

	got, err := s.Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestLeadStore_GetMissing(t *testing.T) {
	_, err := newStore().Get(context.Background(), "nope")

	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "lead", nf.Resource)
}

func TestLeadStore_SaveRequiresID(t *testing.T) {
	err := newStore().Save(context.Background(), &domain.Lead{Name: "x"})

	var ve *domain.ErrValidation
	assert.ErrorAs(t, err, &ve)
}

func TestLeadStore_ListKeepsOrderAndFilters(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &domain.Lead{ID: "a", Status: domain.LeadNew}))
	require.NoError(t, s.Save(ctx, &domain.Lead{ID: "b", Status: domain.LeadProposal}))
	require.NoError(t, s.Save(ctx, &domain.Lead{ID: "c", Status: domain.LeadNew}))
	require.NoError(t, s.Save(ctx, &domain.Lead{ID: "a", Status: domain.LeadNew, Name: "again"}))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "again", all[0].Name)

	fresh, err := s.List(ctx, domain.LeadNew)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestLeadStore_ReadsAreCopies(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &domain.Lead{ID: "l1", Tags: []string{"Origem: Web"}}))

	got, _ := s.Get(ctx, "l1")
	got.Tags[0] = "mutated"
	got.Name = "mutated"

	again, _ := s.Get(ctx, "l1")
	assert.Equal(t, "Origem: Web", again.Tags[0])
	assert.Empty(t, again.Name)
}

func TestLeadStore_UpdateRollsBackOnError(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &domain.Lead{ID: "l1", Status: domain.LeadNew}))

	boom := errors.New("boom")
	_, err := s.Update(ctx, "l1", func(l *domain.Lead) error {
		l.Status = domain.LeadLost
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, _ := s.Get(ctx, "l1")
	assert.Equal(t, domain.LeadNew, got.Status)

	updated, err := s.Update(ctx, "l1", func(l *domain.Lead) error {
		l.Status = domain.LeadContacted
		l.ID = "hijack"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "l1", updated.ID)
	assert.Equal(t, domain.LeadContacted, updated.Status)
}

func TestLeadStore_ConcurrentUpdates(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &domain.Lead{ID: "l1"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(ctx, "l1", func(l *domain.Lead) error {
				l.Score++
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := s.Get(ctx, "l1")
	assert.Equal(t, 50, got.Score)
}
