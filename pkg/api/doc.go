// Package api defines the OpenAI Chat Completions wire contract shared by
// all provider adapters: request/response types, streaming chunk types,
// request validation, and the structured error model.
package api
