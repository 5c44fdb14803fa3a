// Package provider abstracts an LLM chat-completion backend behind a common
// interface and defines environment-sourced credential loading. Concrete
// adapters live in the subpackages openai, grok, and local; all of them
// delegate HTTP work to the shared openaicompat client.
package provider
