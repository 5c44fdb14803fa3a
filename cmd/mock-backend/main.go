// Command mock-backend runs a deterministic Chat Completions server on the
// conventional local inference port. It answers a handful of known prompts
// with fixed replies so client behavior can be tested without a real model.
//
// Configuration:
//
//	MOCK_PORT  - Listen port (default: 8999)
//	MOCK_MODEL - Model name advertised by /v1/models (default: Vikhrmodels/QVikhr-3-4B-Instruction)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkraev/llmprobe/pkg/api"
	"github.com/mkraev/llmprobe/pkg/observability"
	"github.com/mkraev/llmprobe/pkg/tokens"
)

var servedModel = "Vikhrmodels/QVikhr-3-4B-Instruction"

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "8999"
	}
	if m := os.Getenv("MOCK_MODEL"); m != "" {
		servedModel = m
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: observability.MetricsMiddleware(mux),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port, "model", servedModel)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := api.ValidateRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Stream {
		handleStreaming(w, &req)
		return
	}

	resp := makeResponse(&req, replyFor(&req))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// replyFor picks the canned reply for the last user message.
func replyFor(req *api.ChatRequest) string {
	last := lastUserMessage(req)
	lower := strings.ToLower(last)

	switch {
	case strings.Contains(lower, "capital of france"):
		return "The capital of France is Paris."
	case strings.Contains(lower, "count from 1 to 5"):
		return "1, 2, 3, 4, 5"
	case hasSystemPrompt(req):
		return "Ahoy there, matey! Welcome aboard!"
	default:
		return "Hello, nice day!"
	}
}

func makeResponse(req *api.ChatRequest, text string) api.ChatResponse {
	model := req.Model
	if model == "" {
		model = servedModel
	}

	return api.ChatResponse{
		ID:      fmt.Sprintf("chatcmpl-mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []api.ChatChoice{
			{
				Index:        0,
				Message:      api.ChatMessage{Role: api.RoleAssistant, Content: text},
				FinishReason: "stop",
			},
		},
		Usage: countUsage(req, text),
	}
}

// countUsage tokenizes the prompt and reply so reported usage behaves like
// a real backend's.
func countUsage(req *api.ChatRequest, reply string) *api.Usage {
	counter, err := tokens.NewCounter(req.Model)
	if err != nil {
		return &api.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	}

	prompt := counter.CountMessages(req.Messages)
	completion := counter.CountText(reply)
	return &api.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// --- Streaming ---

func handleStreaming(w http.ResponseWriter, req *api.ChatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	model := req.Model
	if model == "" {
		model = servedModel
	}

	reply := replyFor(req)
	words := strings.SplitAfter(reply, " ")

	// Role chunk first, then one chunk per word.
	writeChunk(w, model, map[string]any{"role": "assistant"}, nil, nil)
	flusher.Flush()

	for _, word := range words {
		writeChunk(w, model, map[string]any{"content": word}, nil, nil)
		flusher.Flush()
	}

	finish := "stop"
	writeChunk(w, model, map[string]any{}, &finish, countUsage(req, reply))
	flusher.Flush()

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeChunk(w http.ResponseWriter, model string, delta map[string]any, finishReason *string, usage *api.Usage) {
	chunk := map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"delta":         delta,
				"finish_reason": finishReason,
			},
		},
	}
	if usage != nil {
		chunk["usage"] = usage
	}

	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := api.ModelsResponse{
		Object: "list",
		Data: []api.Model{
			{ID: servedModel, Object: "model", OwnedBy: "llmprobe-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: &api.APIError{Type: api.ErrorTypeInvalidRequest, Message: message},
	})
}

func lastUserMessage(req *api.ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == api.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

func hasSystemPrompt(req *api.ChatRequest) bool {
	for _, msg := range req.Messages {
		if msg.Role == api.RoleSystem {
			return true
		}
	}
	return false
}
