package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/broker-quote-bfa-go/internal/port"
	"github.com/boddenberg/broker-quote-bfa-go/internal/pricing"
	"github.com/boddenberg/broker-quote-bfa-go/internal/registry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service")

// QuoteOrchestrator fans a QuoteRequest out to every eligible insurer and
// settles all branches into one QuoteBatch.
type QuoteOrchestrator struct {
	registry *registry.Registry
	gateway  port.InsurerGateway
	batches  port.Cache[*domain.QuoteBatch]
	bulkhead *resilience.Bulkhead
	cfg      resilience.Config
	metrics  *observability.Metrics
	logger   *zap.Logger

	editMu sync.Mutex
	now    func() time.Time
}

// NewQuoteOrchestrator creates the orchestrator with all dependencies injected.
// The bulkhead is shared by every batch in the process; cfg.MaxConcurrency
// bounds a single batch.
func NewQuoteOrchestrator(
	reg *registry.Registry,
	gateway port.InsurerGateway,
	batches port.Cache[*domain.QuoteBatch],
	bulkhead *resilience.Bulkhead,
	cfg resilience.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *QuoteOrchestrator {
	return &QuoteOrchestrator{
		registry: reg,
		gateway:  gateway,
		batches:  batches,
		bulkhead: bulkhead,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// TriggerMultiCalculation quotes req at every eligible insurer concurrently.
// A failing insurer yields an error-status result plus a failure entry, so the
// batch always has exactly one result per eligible insurer, in dispatch order.
// Only cancellation of ctx fails the whole call.
func (o *QuoteOrchestrator) TriggerMultiCalculation(ctx context.Context, req *domain.QuoteRequest) (*domain.QuoteBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil || req.Item == nil {
		return nil, &domain.ErrValidation{Field: "itemData", Message: "quote request has no product item"}
	}
	if req.ID == "" {
		stamped := *req
		stamped.ID = uuid.NewString()
		req = &stamped
	}

	ctx, span := tracer.Start(ctx, "QuoteOrchestrator.TriggerMultiCalculation")
	defer span.End()

	product := req.Product()
	eligible := o.registry.SelectEligible(product)

	start := o.now()
	batch := &domain.QuoteBatch{
		ID:         uuid.NewString(),
		Request:    req,
		Dispatched: make([]string, len(eligible)),
		Results:    make([]domain.QuoteResult, len(eligible)),
		StartedAt:  start,
	}
	for i, ins := range eligible {
		batch.Dispatched[i] = ins.ID
	}
	span.SetAttributes(
		attribute.String("batch.id", batch.ID),
		attribute.String("product", string(product)),
		attribute.Int("batch.insurers", len(eligible)),
	)

	g, gCtx := errgroup.WithContext(ctx)
	if o.cfg.MaxConcurrency > 0 {
		g.SetLimit(o.cfg.MaxConcurrency)
	}
	for i, ins := range eligible {
		i, ins := i, ins
		g.Go(func() error {
			batch.Results[i] = o.quoteOne(gCtx, batch.ID, ins, req)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		o.logger.Warn("quote batch abandoned",
			zap.String("batch_id", batch.ID),
			zap.Error(err),
		)
		return nil, err
	}

	for _, r := range batch.Results {
		if !r.Succeeded() {
			batch.Failures = append(batch.Failures, domain.InsurerFailure{InsurerID: r.InsurerID, Reason: r.Error})
		}
	}
	batch.CompletedAt = o.now()

	o.batches.Set(batch.ID, batch)
	o.metrics.IncrBatch()
	o.metrics.RecordRequestDuration("quote_batch", batch.CompletedAt.Sub(start))

	o.logger.Info("quote batch settled",
		zap.String("batch_id", batch.ID),
		zap.String("product", string(product)),
		zap.Int("insurers", len(eligible)),
		zap.Int("failures", len(batch.Failures)),
		zap.Duration("duration", batch.CompletedAt.Sub(start)),
	)
	return batch, nil
}

func (o *QuoteOrchestrator) quoteOne(ctx context.Context, batchID string, ins domain.InsurerProfile, req *domain.QuoteRequest) domain.QuoteResult {
	ctx, span := tracer.Start(ctx, "QuoteOrchestrator.quoteOne")
	defer span.End()
	span.SetAttributes(attribute.String("insurer.id", ins.ID))

	start := o.now()
	res, err := o.callInsurer(ctx, ins, req)
	elapsed := o.now().Sub(start)

	if err != nil {
		o.logger.Warn("insurer quote failed",
			zap.String("batch_id", batchID),
			zap.String("insurer", ins.ID),
			zap.Error(err),
		)
		span.RecordError(err)
		res = &domain.QuoteResult{
			InsurerID:   ins.ID,
			InsurerName: ins.Name,
			InsurerLogo: ins.Logo,
			Product:     req.Product(),
			Status:      domain.QuoteError,
			Error:       err.Error(),
		}
	}

	res.ID = uuid.NewString()
	res.BatchID = batchID
	res.LatencyMs = elapsed.Milliseconds()

	o.metrics.RecordInsurerQuote(ins.ID, res.Status, elapsed)
	return *res
}

func (o *QuoteOrchestrator) callInsurer(ctx context.Context, ins domain.InsurerProfile, req *domain.QuoteRequest) (*domain.QuoteResult, error) {
	if err := o.bulkhead.Acquire(ctx); err != nil {
		return nil, resilience.Classify("insurer:"+ins.ID, "quote:"+ins.ID, err)
	}
	defer o.bulkhead.Release()

	callCtx, cancel := resilience.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	res, err := o.gateway.Quote(callCtx, ins, req)
	if err != nil {
		return nil, resilience.Classify("insurer:"+ins.ID, "quote:"+ins.ID, err)
	}
	if res == nil {
		return nil, &domain.ErrExternalService{Service: "insurer:" + ins.ID, Err: fmt.Errorf("empty quote response")}
	}
	return res, nil
}

// GetBatch returns a previously settled batch while it is still cached.
func (o *QuoteOrchestrator) GetBatch(ctx context.Context, batchID string) (*domain.QuoteBatch, error) {
	_, span := tracer.Start(ctx, "QuoteOrchestrator.GetBatch")
	defer span.End()

	if b, ok := o.batches.Get(batchID); ok {
		o.metrics.IncrCacheHit("quote_batch")
		return b, nil
	}
	o.metrics.IncrCacheMiss("quote_batch")
	return nil, &domain.ErrNotFound{Resource: "quote batch", ID: batchID}
}

// EditCoverage re-prices one result after a coverage change. The derived
// result gets a new ID and is appended to the batch; the original stays as is.
func (o *QuoteOrchestrator) EditCoverage(ctx context.Context, batchID, resultID string, edit *domain.CoverageEditRequest) (*domain.QuoteResult, error) {
	ctx, span := tracer.Start(ctx, "QuoteOrchestrator.EditCoverage")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", batchID),
		attribute.String("result.id", resultID),
	)

	o.editMu.Lock()
	defer o.editMu.Unlock()

	batch, err := o.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	src, ok := batch.FindResult(resultID)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "quote result", ID: resultID}
	}

	derived, err := pricing.Reprice(src, edit.Coverage, edit.Value)
	if err != nil {
		return nil, err
	}
	derived.ID = uuid.NewString()
	derived.BatchID = batchID

	next := *batch
	next.Results = make([]domain.QuoteResult, 0, len(batch.Results)+1)
	next.Results = append(next.Results, batch.Results...)
	next.Results = append(next.Results, *derived)
	o.batches.Set(batchID, &next)

	o.logger.Info("coverage edited",
		zap.String("batch_id", batchID),
		zap.String("derived_from", resultID),
		zap.String("coverage", edit.Coverage),
		zap.Float64("premium", derived.TotalPremium),
	)
	return derived, nil
}

// Insurers lists the registry, optionally restricted to the insurers
// eligible for product (in dispatch order).
func (o *QuoteOrchestrator) Insurers(product domain.ProductType) []domain.InsurerProfile {
	if product == "" {
		return o.registry.All()
	}
	return o.registry.SelectEligible(product)
}
