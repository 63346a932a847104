package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/handler"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/cache"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/client"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/insurer"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/schema"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/store"
	"github.com/boddenberg/broker-quote-bfa-go/internal/port"
	"github.com/boddenberg/broker-quote-bfa-go/internal/registry"
	"github.com/boddenberg/broker-quote-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeInsurerAPI mimics a real insurer quoting endpoint.
func fakeInsurerAPI(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload domain.QuotePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.QuoteResult{
			ID:           "allianz-remote-1",
			ProductName:  "Allianz Auto Remoto",
			TotalPremium: 2150.40,
			Tax:          147.80,
			Score:        7,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	router  http.Handler
	store   *store.LeadStore
	metrics *observability.Metrics
}

func setupEnv(t *testing.T, allianzStatus int) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	resCfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 5, CallTimeout: 2 * time.Second}

	breakers := resilience.NewBreakers("insurer:")
	api := fakeInsurerAPI(t, allianzStatus)
	gateway := insurer.NewRouter(
		insurer.NewSimulatedGateway(insurer.Config{}),
		map[string]port.InsurerGateway{
			"allianz": client.NewInsurerClient(api.Client(), api.URL, breakers, resCfg),
		},
	)

	batches := cache.New[*domain.QuoteBatch](time.Minute)
	insights := cache.New[string](time.Minute)
	t.Cleanup(batches.Close)
	t.Cleanup(insights.Close)

	// no API key: every text-generation call falls back
	gen := client.NewGeminiClient(http.DefaultClient, "http://127.0.0.1:1", "", resilience.NewCircuitBreaker("textgen"))

	leads := store.NewLeadStore(logger)
	quotes := service.NewQuoteOrchestrator(registry.Default(), gateway, batches, resilience.NewBulkhead(16), resCfg, metrics, logger)
	copilot := service.NewSalesCopilot(gen, insights, service.CopilotConfig{Model: "m", FastModel: "f"}, metrics, logger)
	intake := service.NewLeadIntake(quotes, copilot, leads, 3, metrics, logger)
	pipeline := service.NewLeadPipeline(leads, copilot, logger)

	router := handler.NewRouter(handler.Deps{
		Quotes:    quotes,
		Intake:    intake,
		Pipeline:  pipeline,
		Copilot:   copilot,
		Validator: schema.NewValidator(0),
		Breakers:  breakers,
		Metrics:   metrics,
		Logger:    logger,
	})
	return &testEnv{router: router, store: leads, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

const autoQuoteBody = `{
	"productType": "auto",
	"clientData": {"name": "Carlos Silva", "age": 30, "cpf": "123.456.789-00", "zipCode": "01310-100"},
	"itemData": {"model": "Honda Civic", "fipeValue": 85000}
}`

func TestIntegration_QuoteBatchAcrossGateways(t *testing.T) {
	env := setupEnv(t, http.StatusOK)

	rec := env.do(t, http.MethodPost, "/v1/quotes", autoQuoteBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	batch := decode[domain.QuoteBatch](t, rec)

	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, []string{"porto", "allianz", "bradesco"}, batch.Dispatched)
	require.Len(t, batch.Results, 3)
	assert.Empty(t, batch.Failures)

	byInsurer := map[string]domain.QuoteResult{}
	for _, r := range batch.Results {
		assert.Equal(t, domain.QuoteSuccess, r.Status)
		byInsurer[r.InsurerID] = r
	}
	assert.Equal(t, "Allianz Auto Remoto", byInsurer["allianz"].ProductName)
	assert.Equal(t, "Porto Seguro", byInsurer["porto"].InsurerName)
	assert.NotEmpty(t, byInsurer["porto"].Coverages)

	rec = env.do(t, http.MethodGet, "/v1/quotes/"+batch.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[domain.QuoteBatch](t, rec).Results, 3)

	rec = env.do(t, http.MethodGet, "/v1/quotes/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntegration_FailingInsurerDoesNotSinkBatch(t *testing.T) {
	env := setupEnv(t, http.StatusInternalServerError)

	rec := env.do(t, http.MethodPost, "/v1/quotes", autoQuoteBody)
	require.Equal(t, http.StatusOK, rec.Code)
	batch := decode[domain.QuoteBatch](t, rec)

	require.Len(t, batch.Results, 3)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "allianz", batch.Failures[0].InsurerID)
	assert.Len(t, batch.Successful(), 2)

	rec = env.do(t, http.MethodGet, "/v1/metrics/engine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[domain.EngineMetrics](t, rec)
	assert.Equal(t, int64(1), m.Batches)
	assert.Equal(t, int64(1), m.Insurers["allianz"].Errors)
}

func TestIntegration_QuoteValidation(t *testing.T) {
	env := setupEnv(t, http.StatusOK)

	rec := env.do(t, http.MethodPost, "/v1/quotes", `{"productType": "auto"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/quotes", `{"productType": "boat", "clientData": {}, "itemData": {}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/quotes", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegration_LifeQuoteWithoutAge(t *testing.T) {
	env := setupEnv(t, http.StatusOK)

	rec := env.do(t, http.MethodPost, "/v1/quotes",
		`{"productType": "INSURANCE_LIFE", "clientData": {"name": "X"}, "itemData": {"capital": 500000}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	batch := decode[domain.QuoteBatch](t, rec)
	require.NotNil(t, batch.Request)
	assert.NotEmpty(t, batch.Request.ID)
	assert.Equal(t, domain.DefaultClientAge, batch.Request.Client.Age)

	ok := batch.Successful()
	require.NotEmpty(t, ok)
	for _, r := range ok {
		assert.Greater(t, r.TotalPremium, 0.0, r.InsurerID)
	}
}

func TestIntegration_EditCoverage(t *testing.T) {
	env := setupEnv(t, http.StatusOK)

	batch := decode[domain.QuoteBatch](t, env.do(t, http.MethodPost, "/v1/quotes", autoQuoteBody))
	var porto domain.QuoteResult
	for _, r := range batch.Results {
		if r.InsurerID == "porto" {
			porto = r
		}
	}
	require.NotEmpty(t, porto.ID)

	path := "/v1/quotes/" + batch.ID + "/results/" + porto.ID + "/coverages"
	rec := env.do(t, http.MethodPost, path, `{"coverage": "Danos Materiais", "value": 200000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	derived := decode[domain.QuoteResult](t, rec)
	assert.Equal(t, porto.ID, derived.DerivedFrom)
	assert.Greater(t, derived.TotalPremium, porto.TotalPremium)

	rec = env.do(t, http.MethodPost, path, `{"coverage": "Vidros Completo", "value": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	again := decode[domain.QuoteBatch](t, env.do(t, http.MethodGet, "/v1/quotes/"+batch.ID, ""))
	assert.Len(t, again.Results, 4)
}

func TestIntegration_ListInsurers(t *testing.T) {
	env := setupEnv(t, http.StatusOK)

	all := decode[domain.ListResponse[domain.InsurerProfile]](t, env.do(t, http.MethodGet, "/v1/insurers", ""))
	assert.Equal(t, 5, all.Total)

	consortium := decode[domain.ListResponse[domain.InsurerProfile]](t, env.do(t, http.MethodGet, "/v1/insurers?product=consortium", ""))
	ids := make([]string, 0, consortium.Total)
	for _, p := range consortium.Data {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"porto", "ademicon"}, ids)

	rec := env.do(t, http.MethodGet, "/v1/insurers?product=boat", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegration_WebhookToAcceptedProposal(t *testing.T) {
	env := setupEnv(t, http.StatusOK)

	rec := env.do(t, http.MethodPost, "/v1/webhooks/leads",
		`{"name": "Ana Souza", "email": "ana@email.com", "age": 41, "product": "life", "inputValue": 300000, "origin": "web_life"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lead := decode[domain.Lead](t, rec)

	assert.Equal(t, "Ana Souza (Web)", lead.Name)
	assert.True(t, lead.ReadyToPropose)
	require.Len(t, lead.PreCalculatedQuotes, 3)
	assert.True(t, strings.HasPrefix(lead.AIDraftMessage, "Olá Ana Souza (Web)!"))

	rec = env.do(t, http.MethodPut, "/v1/leads/"+lead.ID+"/status", `{"status": "won"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/leads/"+lead.ID+"/accept", `{"quoteId": "`+lead.PreCalculatedQuotes[0].ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	won := decode[domain.Lead](t, rec)
	assert.Equal(t, domain.LeadWon, won.Status)

	rec = env.do(t, http.MethodPut, "/v1/leads/"+lead.ID+"/status", `{"status": "new"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIntegration_WebhookValidation(t *testing.T) {
	env := setupEnv(t, http.StatusOK)

	rec := env.do(t, http.MethodPost, "/v1/webhooks/leads", `{"product": "life"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/webhooks/leads", `{"name": "Ana", "product": "life", "age": -3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	all, err := env.store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIntegration_SimulatedWebhook(t *testing.T) {
	env := setupEnv(t, http.StatusOK)

	rec := env.do(t, http.MethodPost, "/v1/webhooks/leads/simulate", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	lead := decode[domain.Lead](t, rec)
	assert.Equal(t, domain.OriginWebLife, lead.Origin)

	list := decode[domain.ListResponse[domain.Lead]](t, env.do(t, http.MethodGet, "/v1/leads?status=new", ""))
	assert.Equal(t, 1, list.Total)
}

func TestIntegration_ManualLeadAndCopilotFallbacks(t *testing.T) {
	env := setupEnv(t, http.StatusOK)

	rec := env.do(t, http.MethodPost, "/v1/leads",
		`{"name": "Roberto Almeida", "email": "roberto@email.com", "interest": "consortium", "value": 250000, "contemplated": true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lead := decode[domain.Lead](t, rec)

	rec = env.do(t, http.MethodGet, "/v1/leads/"+lead.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/leads/"+lead.ID+"/analysis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.AnalysisFallback, decode[domain.AnalysisResponse](t, rec).Analysis)

	rec = env.do(t, http.MethodPost, "/v1/assistant/chat", `{"message": "Qual seguradora tem o melhor preço?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	chat := decode[domain.ChatResponse](t, rec)
	assert.Equal(t, service.ChatFallback, chat.Text)

	rec = env.do(t, http.MethodPost, "/v1/assistant/chat", `{"message": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/insights/pipeline", "")
	require.Equal(t, http.StatusOK, rec.Code)
	insight := decode[domain.InsightResponse](t, rec)
	assert.Equal(t, service.InsightFallback, insight.Insight)
	assert.Equal(t, 1, insight.PipelineSize)
	assert.Equal(t, 1, insight.Contemplated)

	rec = env.do(t, http.MethodPost, "/v1/assistant/draft-reply", `{"customerMessage": "Preciso do boleto"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.DraftFallback, decode[domain.DraftReplyResponse](t, rec).Draft)

	rec = env.do(t, http.MethodPost, "/v1/assistant/draft-reply", `{"customerMessage": " "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	m := env.metrics.Snapshot(nil)
	assert.Equal(t, int64(4), m.TextGenFallbacks)

	rec = env.do(t, http.MethodGet, "/v1/leads/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
