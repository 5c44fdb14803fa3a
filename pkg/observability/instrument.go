package observability

import (
	"context"
	"errors"
	"time"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/provider"
)

// Instrument wraps a provider so completions, latency, token usage, and
// failed probes are recorded as Prometheus metrics.
func Instrument(p provider.Provider) provider.Provider {
	return &instrumented{Provider: p}
}

type instrumented struct {
	provider.Provider
}

func (i *instrumented) Complete(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	model := i.requestModel(req)
	start := time.Now()

	resp, err := i.Provider.Complete(ctx, req)

	ProviderLatency.WithLabelValues(i.Name(), model).Observe(time.Since(start).Seconds())
	ProviderRequestsTotal.WithLabelValues(i.Name(), model, statusLabel(err)).Inc()

	if resp != nil && resp.Usage != nil {
		ProviderTokensTotal.WithLabelValues(i.Name(), model, "input").Add(float64(resp.Usage.PromptTokens))
		ProviderTokensTotal.WithLabelValues(i.Name(), model, "output").Add(float64(resp.Usage.CompletionTokens))
	}

	return resp, err
}

func (i *instrumented) Stream(ctx context.Context, req *api.ChatRequest) (<-chan provider.Event, error) {
	model := i.requestModel(req)
	start := time.Now()

	events, err := i.Provider.Stream(ctx, req)
	if err != nil {
		ProviderRequestsTotal.WithLabelValues(i.Name(), model, statusLabel(err)).Inc()
		return nil, err
	}

	out := make(chan provider.Event, 16)
	go func() {
		defer close(out)

		status := "ok"
		for ev := range events {
			if ev.Type == provider.EventError {
				status = statusLabel(ev.Err)
			}
			if ev.Type == provider.EventDone && ev.Usage != nil {
				ProviderTokensTotal.WithLabelValues(i.Name(), model, "input").Add(float64(ev.Usage.PromptTokens))
				ProviderTokensTotal.WithLabelValues(i.Name(), model, "output").Add(float64(ev.Usage.CompletionTokens))
			}
			out <- ev
		}

		ProviderLatency.WithLabelValues(i.Name(), model).Observe(time.Since(start).Seconds())
		ProviderRequestsTotal.WithLabelValues(i.Name(), model, status).Inc()
	}()

	return out, nil
}

func (i *instrumented) Ping(ctx context.Context) error {
	err := i.Provider.Ping(ctx)
	if err != nil {
		ProbeFailuresTotal.WithLabelValues(i.Name()).Inc()
	}
	return err
}

func (i *instrumented) requestModel(req *api.ChatRequest) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	return i.DefaultModel()
}

// statusLabel maps an error to a low-cardinality status label.
func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Type)
	}
	return "error"
}
