package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// EngineMetrics is returned by GET /v1/metrics/engine.
type EngineMetrics struct {
	Batches          int64                     `json:"batches"`
	LeadsProcessed   int64                     `json:"leadsProcessed"`
	LeadsDegraded    int64                     `json:"leadsDegraded"`
	Insurers         map[string]InsurerMetrics `json:"insurers"`
	TextGenCalls     int64                     `json:"textGenCalls"`
	TextGenFallbacks int64                     `json:"textGenFallbacks"`
	FallbackRate     float64                   `json:"fallbackRate"`
	PromptTokens     int64                     `json:"promptTokens"`
	CompletionTokens int64                     `json:"completionTokens"`
	CacheHitRate     float64                   `json:"cacheHitRate"`
	Period           string                    `json:"period"`
}

// InsurerMetrics summarises one insurer's outcomes.
type InsurerMetrics struct {
	Success     int64   `json:"success"`
	Errors      int64   `json:"errors"`
	SuccessRate float64 `json:"successRate"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}
