// Package llm provides the chat-completion clients used to draft and translate
// ad scripts.
//
// Two backends satisfy the Completer interface:
//   - Client talks to OpenRouter (or any OpenAI-compatible endpoint) over plain
//     HTTP with JSON-mode responses, OpenRouter attribution headers, and its
//     own retry loop.
//   - OpenAIClient uses the official openai-go SDK against api.openai.com.
//
// New selects a backend from configuration.
//
// # Retry Behaviour
//
// Client retries on HTTP 408/429/5xx errors, empty completions, and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default), honouring Retry-After. Context cancellation aborts retries
// immediately. OpenAIClient relies on the SDK's built-in retries.
//
// DecodeLLMJSON tolerates code fences and prose around the JSON payload.
package llm
