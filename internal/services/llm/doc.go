// Package llm provides an Anthropic Messages API client used for the
// questionnaire conversation and scene generation.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.Chat: send a conversation, receive the first text block.
// Client.GenerateStructured: force a single tool call whose input schema is
// the requested JSON Schema and return the tool input.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries HTTP 408/429/5xx responses, network timeouts, and
// connection failures with exponential backoff (base 4s, max 60s, 3 attempts
// by default), honouring Retry-After. Authentication and bad-request errors
// are returned immediately. Context cancellation aborts retries.
package llm
