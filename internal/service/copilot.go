package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-quote-bfa-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Textos de contingência exibidos quando o modelo falha ou não responde.
const (
	ChatFallback      = "Desculpe, estou conectando aos servidores da Matriz. Tente em instantes."
	ChatNoAnswer      = "Não consegui gerar uma resposta no momento."
	AnalysisFallback  = "Não foi possível analisar o lead neste momento."
	AnalysisNoAnswer  = "Análise indisponível."
	InsightFallback   = "Foque nos clientes com maior potencial de cross-sell hoje!"
	InsightNoAnswer   = "Vamos transformar oportunidades em patrimônio hoje!"
	DraftFallback     = "Olá, recebi sua mensagem. Um momento por favor."
	DraftNoAnswer     = "Olá, vou verificar sua solicitação agora mesmo."
	chatTemperature   = 0.7
	pitchTemperature  = 0.6
	insightCacheLabel = "insight"
)

const systemInstruction = `Você é a "Inteligência Mestre" do ecossistema Acesso Master.
Sua missão é orquestrar o sucesso do corretor de franquias multiproduto.
Você não é apenas um chatbot, é um estrategista de vendas.

Seus Princípios:
1. Visão Integral: um cliente de consórcio é sempre um prospect para seguro (proteção de dívida ou bem).
2. Clareza e Humanidade: explique termos técnicos (lance embutido, sinistro, prêmio) de forma simples.
3. Foco na Ação: sempre sugira o próximo passo (Next Best Action).

Cenários Chave:
- Se o cliente foi contemplado no consórcio, sugira Seguro Residencial/Auto ou Seguro Prestamista.
- Se o cliente tem família nova, sugira Seguro de Vida.
- Se o cliente quer investir, sugira Consórcio como planejamento financeiro.`

// CopilotConfig selects the models used per operation.
type CopilotConfig struct {
	Model     string // chat, pitch, lead analysis
	FastModel string // dashboard insight
}

// SalesCopilot wraps the text generator with per-operation prompts and
// canned fallbacks. None of its methods return errors.
type SalesCopilot struct {
	gen      port.TextGenerator
	insights port.Cache[string]
	cfg      CopilotConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewSalesCopilot creates the copilot with all dependencies injected.
func NewSalesCopilot(
	gen port.TextGenerator,
	insights port.Cache[string],
	cfg CopilotConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SalesCopilot {
	return &SalesCopilot{
		gen:      gen,
		insights: insights,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// generate returns the model text, noAnswer when the model replied with
// nothing, or fallback on error. ok is false only for the fallback.
func (c *SalesCopilot) generate(ctx context.Context, op string, req *domain.TextGenRequest, noAnswer, fallback string) (text string, ok bool) {
	ctx, span := tracer.Start(ctx, "SalesCopilot."+op)
	defer span.End()
	span.SetAttributes(attribute.String("textgen.model", req.Model))

	start := c.now()
	resp, err := c.gen.Generate(ctx, req)
	c.metrics.RecordRequestDuration("textgen_"+op, c.now().Sub(start))

	if err != nil {
		c.logger.Warn("text generation failed, using fallback",
			zap.String("operation", op),
			zap.Error(err),
		)
		c.metrics.IncrTextGen(op, "fallback")
		return fallback, false
	}

	c.metrics.IncrTextGen(op, "ok")
	c.metrics.RecordTokens(resp.PromptTokens, resp.CompletionTokens)

	if strings.TrimSpace(resp.Text) == "" {
		return noAnswer, true
	}
	return strings.TrimSpace(resp.Text), true
}

// Chat answers a broker's free-form question.
func (c *SalesCopilot) Chat(ctx context.Context, req *domain.ChatRequest) *domain.ChatResponse {
	start := c.now()
	text, _ := c.generate(ctx, "chat", &domain.TextGenRequest{
		Model:       c.cfg.Model,
		System:      systemInstruction,
		Prompt:      req.Message,
		History:     req.History,
		Temperature: chatTemperature,
	}, ChatNoAnswer, ChatFallback)

	conv := req.ConversationID
	if conv == "" {
		conv = uuid.NewString()
	}
	now := c.now()
	return &domain.ChatResponse{
		ConversationID: conv,
		MessageID:      uuid.NewString(),
		Role:           "assistant",
		Text:           text,
		Timestamp:      now.Format(time.RFC3339),
		LatencyMs:      now.Sub(start).Milliseconds(),
	}
}

// GenerateComparisonPitch writes a short message presenting the given quotes
// to the lead. Without a model answer it falls back to a locally built pitch.
func (c *SalesCopilot) GenerateComparisonPitch(ctx context.Context, leadName string, product domain.ProductType, quotes []domain.QuoteResult) string {
	fallback := localPitch(leadName, product, quotes)
	if len(quotes) == 0 {
		return fallback
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Cliente: %s\nProduto: %s\nOpções calculadas:\n", leadName, product.Label())
	for i, q := range quotes {
		fmt.Fprintf(&sb, "%d. %s - %s - R$ %s (score %d)\n", i+1, q.InsurerName, q.ProductName, brl(q.TotalPremium), q.Score)
	}
	sb.WriteString(`
TAREFA:
Escreva uma mensagem curta de WhatsApp apresentando essas opções ao cliente,
destacando a melhor relação custo-benefício. Não invente valores.`)

	text, _ := c.generate(ctx, "pitch", &domain.TextGenRequest{
		Model:       c.cfg.Model,
		System:      systemInstruction,
		Prompt:      sb.String(),
		Temperature: pitchTemperature,
	}, fallback, fallback)
	return text
}

func localPitch(leadName string, product domain.ProductType, quotes []domain.QuoteResult) string {
	if len(quotes) == 0 {
		return fmt.Sprintf("Olá %s! Estamos finalizando as cotações de %s e em breve enviaremos as melhores opções.", leadName, product.Label())
	}
	names := make([]string, len(quotes))
	for i, q := range quotes {
		names[i] = fmt.Sprintf("%s (R$ %s)", q.InsurerName, brl(q.TotalPremium))
	}
	return fmt.Sprintf("Olá %s! Separei %d opções de %s para você: %s. Posso enviar a proposta da %s?",
		leadName, len(quotes), product.Label(), strings.Join(names, ", "), quotes[0].InsurerName)
}

// brl formats v as a Brazilian amount without the currency sign, e.g. 1234.5 → "1.234,50".
func brl(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var out []byte
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, intPart[i])
	}
	res := string(out) + "," + frac
	if neg {
		res = "-" + res
	}
	return res
}

// DraftReply writes a short customer-service reply for WhatsApp, grounded
// on the linked policy when there is one.
func (c *SalesCopilot) DraftReply(ctx context.Context, req *domain.DraftReplyRequest) *domain.DraftReplyResponse {
	contextInfo := "Sem dados de apólice vinculados."
	if p := req.Policy; p != nil {
		contextInfo = fmt.Sprintf(`
Apólice: %s - %s
Vigência: %s até %s
Status: %s
Link Boleto: [Link do Boleto]`, p.Insurer, p.ProductName, p.ValidityStart, p.ValidityEnd, p.Status)
	}

	prompt := fmt.Sprintf(`Atue como um assistente de atendimento da Corretora Master.
Mensagem do Cliente: %q
Contexto do Sistema (Dados Reais): %s

TAREFA:
Escreva uma resposta curta, profissional e humana para o WhatsApp.
Se o cliente pediu boleto e a apólice está ativa, diga que segue em anexo.
Se a apólice venceu, sugira renovação.
Não invente dados.`, req.CustomerMessage, contextInfo)

	text, _ := c.generate(ctx, "draft", &domain.TextGenRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
	}, DraftNoAnswer, DraftFallback)
	return &domain.DraftReplyResponse{Draft: text}
}

// AnalyzeLead produces an approach script and cross-sell suggestion.
func (c *SalesCopilot) AnalyzeLead(ctx context.Context, lead *domain.Lead) string {
	contemplated := "NÃO"
	if lead.Contemplated {
		contemplated = "SIM"
	}
	notes := lead.Notes
	if notes == "" {
		notes = "Sem notas"
	}

	prompt := fmt.Sprintf(`Analise este lead sob a ótica do ecossistema Acesso Master.

DADOS DO CLIENTE:
Nome: %s
Interesse Principal: %s
Status: %s
Valor: R$ %s
Score Propensão: %d
Contemplado: %s
Notas: %s

TAREFA:
1. Gere um "Script de Abordagem" curto e empático (máx 2 linhas).
2. Identifique a oportunidade de Cross-Sell mais óbvia (ex: se contemplado, Seguro do Bem).
3. Explique em 1 frase por que esse lead é prioritário.`,
		lead.Name, lead.Interest.Label(), lead.Status.Label(), brl(lead.Value), lead.Score, contemplated, notes)

	text, _ := c.generate(ctx, "analysis", &domain.TextGenRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
	}, AnalysisNoAnswer, AnalysisFallback)
	return text
}

// PipelineInsight returns the motivational dashboard line for the pipeline.
// Generated lines are cached per pipeline fingerprint; fallbacks are not.
func (c *SalesCopilot) PipelineInsight(ctx context.Context, leads []domain.Lead) *domain.InsightResponse {
	var total float64
	contemplated := 0
	for _, l := range leads {
		total += l.Value
		if l.Contemplated {
			contemplated++
		}
	}
	out := &domain.InsightResponse{
		PipelineSize: len(leads),
		TotalValue:   total,
		Contemplated: contemplated,
	}

	key := fmt.Sprintf("insight:%d:%s:%d", len(leads), decimal.NewFromFloat(total).StringFixed(2), contemplated)
	if cached, ok := c.insights.Get(key); ok {
		c.metrics.IncrCacheHit(insightCacheLabel)
		out.Insight = cached
		return out
	}
	c.metrics.IncrCacheMiss(insightCacheLabel)

	prompt := fmt.Sprintf(`Eu sou um corretor Acesso Master.
Pipeline Total: R$ %s.
Clientes Contemplados (Ouro para Cross-sell): %d.

Gere uma frase de 'Bom dia' estratégica e motivacional, lembrando-me de focar no cross-sell dos contemplados se houver algum.`,
		brl(total), contemplated)

	text, ok := c.generate(ctx, "insight", &domain.TextGenRequest{
		Model:  c.cfg.FastModel,
		Prompt: prompt,
	}, InsightNoAnswer, InsightFallback)
	if ok {
		c.insights.Set(key, text)
	}
	out.Insight = text
	return out
}
