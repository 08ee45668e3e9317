// Package llm provides an OpenRouter chat-completions client used by the
// vision classifier.
//
// Requests are single-turn: a system instruction plus one user message whose
// content is a list of parts (text and inline images as data URLs). The client
// returns the assistant's text content and leaves interpretation to callers.
//
// # Configuration
//
// Requires api_key and model; base_url, referer, title and timeout are
// optional. A client without an API key fails every call with
// services.ErrMissingCredentials before any network traffic.
//
// # Errors
//
// Non-2xx responses surface as *StatusError carrying the error code
// "openrouter_<status>". An undecodable body is coded "parse_error" and an
// empty completion is services.ErrInvalidResponse.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions and network
// timeouts with exponential backoff (base 1s, max 10s, up to 3 attempts by
// default). A Retry-After header caps the wait. Context cancellation aborts
// retries immediately.
package llm
