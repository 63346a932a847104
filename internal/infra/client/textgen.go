package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// ErrMissingAPIKey is returned before any network call when no key is configured.
var ErrMissingAPIKey = errors.New("text generation API key not configured")

// GeminiClient calls the hosted generateContent REST API.
// Calls go through a circuit breaker and are not retried.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
}

// NewGeminiClient creates a new GeminiClient.
func NewGeminiClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker) *GeminiClient {
	return &GeminiClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		cb:         cb,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  *struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// buildGeminiRequest maps History as alternating user/model turns, oldest first.
func buildGeminiRequest(req *domain.TextGenRequest) *geminiRequest {
	out := &geminiRequest{}
	for i, h := range req.History {
		role := "user"
		if i%2 == 1 {
			role = "model"
		}
		out.Contents = append(out.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: h}}})
	}
	out.Contents = append(out.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}})

	if req.System != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.Temperature > 0 {
		out.GenerationConfig = &struct {
			Temperature float64 `json:"temperature"`
		}{Temperature: req.Temperature}
	}
	return out
}

// Generate implements port.TextGenerator.
func (c *GeminiClient) Generate(ctx context.Context, req *domain.TextGenRequest) (*domain.TextGenResponse, error) {
	ctx, span := tracer.Start(ctx, "GeminiClient.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("textgen.model", req.Model))

	if c.apiKey == "" {
		return nil, &domain.ErrExternalService{Service: "textgen", Err: ErrMissingAPIKey}
	}

	body, err := json.Marshal(buildGeminiRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encode textgen request: %w", err)
	}

	result, err := c.cb.Execute(func() (any, error) {
		url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, req.Model)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("textgen API returned status %d", resp.StatusCode)
		}

		var gr geminiResponse
		if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
			return nil, fmt.Errorf("decode textgen response: %w", err)
		}
		return &gr, nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "textgen", Err: err}
	}

	gr := result.(*geminiResponse)
	var sb strings.Builder
	if len(gr.Candidates) > 0 {
		for _, p := range gr.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}

	span.SetAttributes(
		attribute.Int("textgen.prompt_tokens", gr.UsageMetadata.PromptTokenCount),
		attribute.Int("textgen.completion_tokens", gr.UsageMetadata.CandidatesTokenCount),
	)

	return &domain.TextGenResponse{
		Text:             strings.TrimSpace(sb.String()),
		PromptTokens:     gr.UsageMetadata.PromptTokenCount,
		CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
	}, nil
}
