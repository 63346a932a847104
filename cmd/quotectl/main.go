// quotectl runs the quote engine in-process, without the HTTP server.
//
// Usage:
//
//	quotectl insurers [--product auto]
//	quotectl quote --product auto --age 30 --value 85000 [--json]
//	quotectl intake --file lead.json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/config"
	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/cache"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/client"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/insurer"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/schema"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/store"
	"github.com/boddenberg/broker-quote-bfa-go/internal/registry"
	"github.com/boddenberg/broker-quote-bfa-go/internal/service"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "quotectl",
		Usage:   "Multi-insurer quote engine from the command line",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "error",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.DurationFlag{
				Name:    "base-delay",
				Value:   0,
				Usage:   "Simulated insurer base latency",
				EnvVars: []string{"QUOTE_BASE_DELAY"},
			},
			&cli.BoolFlag{
				Name:    "simulate-failures",
				Usage:   "Let simulated insurers fail according to their reliability",
				EnvVars: []string{"SIMULATE_FAILURES"},
			},
		},
		Commands: []*cli.Command{
			insurersCommand(),
			quoteCommand(),
			intakeCommand(),
		},
	}
}

// engine is the in-process wiring shared by every command.
type engine struct {
	registry *registry.Registry
	quotes   *service.QuoteOrchestrator
	intake   *service.LeadIntake
	leads    *store.LeadStore
	closers  []func()
}

func newEngine(c *cli.Context) *engine {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	logger := zap.NewNop()
	if c.String("log-level") != "error" {
		logger = observability.NewLogger(c.String("log-level"), "quotectl")
	}
	metrics := observability.NewMetrics()

	simCfg := insurer.DefaultConfig()
	simCfg.BaseDelay = c.Duration("base-delay")
	simCfg.InstabilityScale = 0
	simCfg.Jitter = 0
	simCfg.FailureInjection = c.Bool("simulate-failures")

	resCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
		CallTimeout:    cfg.QuoteCallTimeout,
	}

	batches := cache.New[*domain.QuoteBatch](cfg.CacheTTL)
	insights := cache.New[string](cfg.CacheTTL)

	reg := registry.Default()
	quotes := service.NewQuoteOrchestrator(
		reg,
		insurer.NewSimulatedGateway(simCfg),
		batches,
		resilience.NewBulkhead(cfg.MaxConcurrency),
		resCfg,
		metrics,
		logger,
	)
	gen := client.NewGeminiClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.TextGenAPIURL, cfg.TextGenAPIKey, resilience.NewCircuitBreaker("textgen"))
	copilot := service.NewSalesCopilot(gen, insights,
		service.CopilotConfig{Model: cfg.TextGenModel, FastModel: cfg.TextGenFastModel}, metrics, logger)
	leads := store.NewLeadStore(logger)

	return &engine{
		registry: reg,
		quotes:   quotes,
		intake:   service.NewLeadIntake(quotes, copilot, leads, cfg.LeadTopN, metrics, logger),
		leads:    leads,
		closers:  []func(){batches.Close, insights.Close},
	}
}

func (e *engine) Close() {
	for _, fn := range e.closers {
		fn()
	}
}

// =============================================================================
// INSURERS COMMAND
// =============================================================================

func insurersCommand() *cli.Command {
	return &cli.Command{
		Name:  "insurers",
		Usage: "List insurers, optionally only those eligible for a product",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "product", Aliases: []string{"p"}, Usage: "auto, life, health, home or consortium"},
		},
		Action: func(c *cli.Context) error {
			e := newEngine(c)
			defer e.Close()

			var product domain.ProductType
			if raw := c.String("product"); raw != "" {
				p, err := domain.ParseProductType(raw)
				if err != nil {
					return err
				}
				product = p
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTIER\tRELIABILITY\tAFFINITIES")
			for _, ins := range e.quotes.Insurers(product) {
				affinities := make([]string, len(ins.Affinities))
				for i, a := range ins.Affinities {
					affinities[i] = string(a)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%s\n",
					ins.ID, ins.Name, ins.Tier, ins.Reliability, strings.Join(affinities, ","))
			}
			return tw.Flush()
		},
	}
}

// =============================================================================
// QUOTE COMMAND
// =============================================================================

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "Quote one request at every eligible insurer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "product", Aliases: []string{"p"}, Required: true, Usage: "auto, life, health, home or consortium"},
			&cli.IntFlag{Name: "age", Value: service.DefaultLeadAge, Usage: "Client age"},
			&cli.Float64Flag{Name: "value", Usage: "Vehicle, property, credit or capital value"},
			&cli.IntFlag{Name: "lives", Value: 1, Usage: "Covered lives (health)"},
			&cli.StringFlag{Name: "name", Value: "Cliente", Usage: "Client name"},
			&cli.BoolFlag{Name: "json", Usage: "Print the batch as JSON"},
		},
		Action: runQuote,
	}
}

func runQuote(c *cli.Context) error {
	product, err := domain.ParseProductType(c.String("product"))
	if err != nil {
		return err
	}

	var payload domain.QuotePayload
	payload.ProductType = product
	payload.ClientData = domain.ClientData{Name: c.String("name"), Age: c.Int("age")}
	v := c.Float64("value")
	switch product {
	case domain.ProductAuto:
		payload.ItemData.FipeValue = v
	case domain.ProductHome:
		payload.ItemData.PropertyValue = v
	case domain.ProductConsortium:
		payload.ItemData.CreditValue = v
	case domain.ProductLife:
		payload.ItemData.Capital = v
		payload.ItemData.Occupation = service.DefaultOccupation
	case domain.ProductHealth:
		payload.ItemData.Lives = c.Int("lives")
	}

	req, err := payload.ToRequest()
	if err != nil {
		return err
	}

	e := newEngine(c)
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	batch, err := e.quotes.TriggerMultiCalculation(ctx, req)
	if err != nil {
		return fmt.Errorf("quote failed: %w", err)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	}
	return printBatch(c.App.Writer, batch)
}

func printBatch(w io.Writer, batch *domain.QuoteBatch) error {
	fmt.Fprintf(w, "Batch %s (%d insurers, %d failures)\n\n", batch.ID, len(batch.Results), len(batch.Failures))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INSURER\tSTATUS\tPREMIUM\tTAX\tSCORE\tPROPOSAL")
	for _, r := range batch.Results {
		if !r.Succeeded() {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t%s\n", r.InsurerName, r.Status, r.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\tR$ %s\tR$ %s\t%d\t%s\n",
			r.InsurerName, r.Status,
			decimal.NewFromFloat(r.TotalPremium).StringFixed(2),
			decimal.NewFromFloat(r.Tax).StringFixed(2),
			r.Score, r.ProposalNumber)
	}
	return tw.Flush()
}

// =============================================================================
// INTAKE COMMAND
// =============================================================================

func intakeCommand() *cli.Command {
	return &cli.Command{
		Name:  "intake",
		Usage: "Process a raw web lead from a JSON file (or the demo lead)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Path to a raw lead JSON file; omit for the demo lead"},
		},
		Action: runIntake,
	}
}

func runIntake(c *cli.Context) error {
	raw := service.DemoWebLead
	if path := c.String("file"); path != "" {
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read lead file: %w", err)
		}
		if err := schema.NewValidator(0).Validate(schema.RawLead, body); err != nil {
			return err
		}
		raw = domain.RawLead{}
		if err := json.Unmarshal(body, &raw); err != nil {
			return fmt.Errorf("decode lead file: %w", err)
		}
	}

	e := newEngine(c)
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	lead, err := e.intake.ProcessIncomingWebLead(ctx, &raw)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(lead)
}
