package domain

// ============================================================
// Geração de texto (LLM hospedado)
// ============================================================

// TextGenRequest é o pedido enviado ao serviço de geração de texto.
type TextGenRequest struct {
	Model       string   `json:"model"`
	System      string   `json:"system,omitempty"`
	Prompt      string   `json:"prompt"`
	History     []string `json:"history,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
}

// TextGenResponse contém o texto gerado e o consumo de tokens.
type TextGenResponse struct {
	Text             string `json:"text"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// ============================================================
// API do Assistente: Request/Response
// ============================================================

// ChatRequest é o body do POST /v1/assistant/chat.
type ChatRequest struct {
	Message        string   `json:"message"`
	History        []string `json:"history,omitempty"`
	ConversationID string   `json:"conversationId,omitempty"`
}

// ChatResponse é a resposta do assistente de vendas.
type ChatResponse struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Role           string `json:"role"`
	Text           string `json:"text"`
	Timestamp      string `json:"timestamp"`
	LatencyMs      int64  `json:"latencyMs"`
}

// PolicyContext resume a apólice vinculada à conversa com o cliente.
type PolicyContext struct {
	Insurer       string `json:"insurer"`
	ProductName   string `json:"productName"`
	ValidityStart string `json:"validityStart"`
	ValidityEnd   string `json:"validityEnd"`
	Status        string `json:"status"`
}

// DraftReplyRequest é o body do POST /v1/assistant/draft-reply.
type DraftReplyRequest struct {
	CustomerMessage string         `json:"customerMessage"`
	Policy          *PolicyContext `json:"policy,omitempty"`
}

// DraftReplyResponse traz o rascunho de resposta para o WhatsApp.
type DraftReplyResponse struct {
	Draft string `json:"draft"`
}

// InsightResponse é a frase estratégica do painel.
type InsightResponse struct {
	Insight      string  `json:"insight"`
	PipelineSize int     `json:"pipelineSize"`
	TotalValue   float64 `json:"totalValue"`
	Contemplated int     `json:"contemplated"`
}

// AnalysisResponse traz a análise de oportunidade de um lead.
type AnalysisResponse struct {
	LeadID   string `json:"leadId"`
	Analysis string `json:"analysis"`
}
