// Package llm provides an OpenRouter-compatible chat client for LLM-based
// request classification.
//
// The analysis stage uses this client to map a free-form user request onto
// one of the supported image operations. The client sends the request text
// with a structured prompt demanding JSON output; the response carries the
// chosen operation, a confidence score (0-1), reasoning, and suggested
// provider parameters.
//
// # Configuration
//
// Requires api_key, model, and optionally base_url, referer, title, timeout.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 3 attempts by default).
// Context cancellation aborts retries immediately.
//
// # Fallback
//
// If the LLM is unavailable or returns an error, callers fall back to the
// default operation at neutral confidence. Classification failures are never
// fatal to a task.
package llm
