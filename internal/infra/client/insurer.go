package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// InsurerClient calls a real insurer quoting API.
type InsurerClient struct {
	httpClient *http.Client
	baseURL    string
	breakers   *resilience.Breakers
	cfg        resilience.Config
}

// NewInsurerClient creates a client for the API at baseURL. Breakers are
// keyed by insurer ID so one failing insurer does not trip the others.
func NewInsurerClient(httpClient *http.Client, baseURL string, breakers *resilience.Breakers, cfg resilience.Config) *InsurerClient {
	return &InsurerClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		breakers:   breakers,
		cfg:        cfg,
	}
}

// Quote posts the flat payload to {baseURL}/v1/quotes with retry and circuit breaking.
func (c *InsurerClient) Quote(ctx context.Context, ins domain.InsurerProfile, req *domain.QuoteRequest) (*domain.QuoteResult, error) {
	ctx, span := tracer.Start(ctx, "InsurerClient.Quote")
	defer span.End()
	span.SetAttributes(
		attribute.String("insurer.id", ins.ID),
		attribute.String("product", string(req.Product())),
	)

	body, err := json.Marshal(domain.PayloadFromRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encode quote payload: %w", err)
	}

	result, err := c.breakers.For(ins.ID).Execute(func() (any, error) {
		var out domain.QuoteResult
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/quotes", bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return resilience.Permanent(fmt.Errorf("insurer API rejected request with status %d", resp.StatusCode))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("insurer API returned status %d", resp.StatusCode)
			}

			out = domain.QuoteResult{}
			return json.NewDecoder(resp.Body).Decode(&out)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &out, nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "insurer:" + ins.ID, Err: err}
	}

	q := result.(*domain.QuoteResult)
	q.InsurerID = ins.ID
	q.InsurerName = ins.Name
	q.InsurerLogo = ins.Logo
	q.Product = req.Product()
	if q.Status == "" {
		q.Status = domain.QuoteSuccess
	}
	return q, nil
}
