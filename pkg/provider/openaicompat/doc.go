// Package openaicompat implements the HTTP client for any OpenAI-compatible
// Chat Completions backend: request serialization, response parsing, SSE
// streaming, availability probing, error mapping, and optional retry with
// escalating per-attempt timeouts.
//
// Provider adapters (openai, grok, local) embed the Client from this package
// and delegate their Complete/Stream/ListModels/Ping calls to it.
package openaicompat
