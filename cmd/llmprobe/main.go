// Command llmprobe sends chat completions to OpenAI-compatible backends
// and reports what came back.
//
// Exit codes:
//
//	0 - success
//	1 - request or probe failure
//	2 - configuration error (missing credentials, bad flags)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/config"
	"github.com/mkraev/llmprobe/pkg/history"
	historymemory "github.com/mkraev/llmprobe/pkg/history/memory"
	"github.com/mkraev/llmprobe/pkg/history/postgres"
	historyredis "github.com/mkraev/llmprobe/pkg/history/redis"
	"github.com/mkraev/llmprobe/pkg/observability"
	"github.com/mkraev/llmprobe/pkg/provider"
	"github.com/mkraev/llmprobe/pkg/provider/grok"
	"github.com/mkraev/llmprobe/pkg/provider/local"
	"github.com/mkraev/llmprobe/pkg/provider/openai"
	"github.com/mkraev/llmprobe/pkg/tokens"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath   = flag.String("config", "", "Path to config file (default: discovery)")
		providerName = flag.String("provider", "local", "Provider: openai, grok, or local")
		baseURL      = flag.String("base", "", "Override the provider base URL")
		model        = flag.String("model", "", "Model name (default: provider default)")
		system       = flag.String("system", "", "System prompt")
		temp         = flag.Float64("temp", -1, "Sampling temperature (0-2)")
		maxTokens    = flag.Int("max-tokens", 0, "Maximum completion tokens")
		stream       = flag.Bool("stream", false, "Stream the response as it arrives")
		timeout      = flag.Duration("timeout", 0, "Request timeout (default: from config)")
		listModels   = flag.Bool("models", false, "List the provider's models and exit")
		probe        = flag.Bool("probe", false, "Probe provider availability and exit")
		noColor      = flag.Bool("no-color", false, "Disable colored output")
		showVersion  = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("llmprobe %s\n", version)
		return 0
	}

	if *noColor {
		color.NoColor = true
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if *timeout > 0 {
		cfg.Request.Timeout = *timeout
	}

	prov, err := buildProvider(cfg, *providerName, *baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	defer prov.Close()

	if cfg.Metrics.Enabled {
		prov = observability.Instrument(prov)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *probe {
		return runProbe(ctx, prov)
	}
	if *listModels {
		return runListModels(ctx, prov)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: llmprobe [flags] <prompt>")
		flag.PrintDefaults()
		return 2
	}
	prompt := strings.Join(args, " ")

	req := buildRequest(cfg, *model, *system, *temp, *maxTokens, prompt)

	store, err := buildStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	defer store.Close()

	if *stream {
		return runStream(ctx, prov, store, req)
	}
	return runComplete(ctx, cfg, prov, store, req)
}

// buildProvider constructs the requested provider from config, with the
// command line base URL taking precedence.
func buildProvider(cfg *config.Config, name, baseOverride string) (provider.Provider, error) {
	switch name {
	case "openai":
		pc := cfg.Providers.OpenAI
		if baseOverride != "" {
			pc.BaseURL = baseOverride
		}
		if pc.APIKey == "" {
			return nil, fmt.Errorf("%w: %s is not set", provider.ErrMissingCredential, openai.EnvAPIKey)
		}
		return openai.New(openai.Config{
			APIKey:  pc.APIKey,
			BaseURL: pc.BaseURL,
			Model:   pc.Model,
			Timeout: cfg.Request.Timeout,
		})
	case "grok":
		pc := cfg.Providers.Grok
		if baseOverride != "" {
			pc.BaseURL = baseOverride
		}
		if pc.APIKey == "" {
			return nil, fmt.Errorf("%w: %s is not set", provider.ErrMissingCredential, grok.EnvAPIKey)
		}
		return grok.New(grok.Config{
			APIKey:  pc.APIKey,
			BaseURL: pc.BaseURL,
			Model:   pc.Model,
			Timeout: cfg.Request.Timeout,
		})
	case "local":
		pc := cfg.Providers.Local
		if baseOverride != "" {
			pc.BaseURL = baseOverride
		}
		return local.New(local.Config{
			BaseURL: pc.BaseURL,
			Model:   pc.Model,
			Timeout: cfg.Request.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want openai, grok, or local)", name)
	}
}

// buildStore constructs the configured history store.
func buildStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	switch cfg.History.Type {
	case "postgres":
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.History.Postgres.DSN,
			MaxConns:       cfg.History.Postgres.MaxConns,
			MigrateOnStart: cfg.History.Postgres.MigrateOnStart,
		})
	case "redis":
		return historyredis.New(ctx, historyredis.Config{
			Addr:     cfg.History.Redis.Addr,
			Password: cfg.History.Redis.Password,
			DB:       cfg.History.Redis.DB,
			TTL:      cfg.History.Redis.TTL,
		})
	default:
		return historymemory.New(cfg.History.MaxSize), nil
	}
}

func buildRequest(cfg *config.Config, model, system string, temp float64, maxTokens int, prompt string) *api.ChatRequest {
	req := &api.ChatRequest{Model: model}
	if req.Model == "" {
		req.Model = cfg.Request.Model
	}

	if system != "" {
		req.Messages = append(req.Messages, api.ChatMessage{Role: api.RoleSystem, Content: system})
	}
	req.Messages = append(req.Messages, api.ChatMessage{Role: api.RoleUser, Content: prompt})

	if temp >= 0 {
		req.Temperature = &temp
	} else if cfg.Request.Temperature != nil {
		req.Temperature = cfg.Request.Temperature
	}

	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	} else if cfg.Request.MaxTokens > 0 {
		mt := cfg.Request.MaxTokens
		req.MaxTokens = &mt
	}

	return req
}

func runProbe(ctx context.Context, prov provider.Provider) int {
	var err error
	if g, ok := prov.(interface{ CheckAvailability(context.Context) error }); ok {
		err = g.CheckAvailability(ctx)
	} else {
		err = prov.Ping(ctx)
	}

	if err != nil {
		color.Red("%s: unavailable (%v)", prov.Name(), err)
		return 1
	}
	color.Green("%s: available", prov.Name())
	return 0
}

func runListModels(ctx context.Context, prov provider.Provider) int {
	models, err := prov.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for _, m := range models {
		fmt.Println(m.ID)
	}
	return 0
}

func runComplete(ctx context.Context, cfg *config.Config, prov provider.Provider, store history.Store, req *api.ChatRequest) int {
	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = fmt.Sprintf(" waiting for %s", prov.Name())
	spin.Start()

	start := time.Now()
	resp, err := prov.Complete(ctx, req)
	latency := time.Since(start)

	spin.Stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println(resp.Reply())
	printUsage(resp.Model, resp.Usage, latency, req)

	saveExchange(ctx, store, prov.Name(), req, resp.Reply(), finishReason(resp), resp.Usage, latency)
	return 0
}

func runStream(ctx context.Context, prov provider.Provider, store history.Store, req *api.ChatRequest) int {
	start := time.Now()
	events, err := prov.Stream(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var reply strings.Builder
	var usage *api.Usage
	var finish string

	for ev := range events {
		switch ev.Type {
		case provider.EventTextDelta:
			fmt.Print(ev.Delta)
			reply.WriteString(ev.Delta)
		case provider.EventDone:
			if ev.Usage != nil {
				usage = ev.Usage
			}
			if ev.FinishReason != "" {
				finish = ev.FinishReason
			}
		case provider.EventError:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", ev.Err)
			return 1
		}
	}
	fmt.Println()

	model := req.Model
	if model == "" {
		model = prov.DefaultModel()
	}

	latency := time.Since(start)
	printUsage(model, usage, latency, req)

	saveExchange(ctx, store, prov.Name(), req, reply.String(), finish, usage, latency)
	return 0
}

// printUsage reports token usage on stderr. When the backend omits usage,
// the prompt side is estimated locally.
func printUsage(model string, usage *api.Usage, latency time.Duration, req *api.ChatRequest) {
	dim := color.New(color.Faint)

	if usage != nil {
		dim.Fprintf(os.Stderr, "[%s | %d prompt + %d completion = %d tokens | %s]\n",
			model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, latency.Round(time.Millisecond))
		return
	}

	counter, err := tokens.NewCounter(model)
	if err != nil {
		dim.Fprintf(os.Stderr, "[%s | %s]\n", model, latency.Round(time.Millisecond))
		return
	}
	dim.Fprintf(os.Stderr, "[%s | ~%d prompt tokens (estimated) | %s]\n",
		model, counter.CountMessages(req.Messages), latency.Round(time.Millisecond))
}

func saveExchange(ctx context.Context, store history.Store, providerName string, req *api.ChatRequest, reply, finish string, usage *api.Usage, latency time.Duration) {
	ex := &history.Exchange{
		ID:           fmt.Sprintf("ex_%d", time.Now().UnixNano()),
		Provider:     providerName,
		Model:        req.Model,
		Messages:     req.Messages,
		Reply:        reply,
		FinishReason: finish,
		Usage:        usage,
		Latency:      latency,
		CreatedAt:    time.Now(),
	}
	if err := store.Save(ctx, ex); err != nil {
		slog.Warn("failed to record exchange", "error", err)
	}
}

func finishReason(resp *api.ChatResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].FinishReason
}
