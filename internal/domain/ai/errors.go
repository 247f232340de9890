package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrUpstreamUnavailable covers transport failures, timeouts and non-2xx replies.
var ErrUpstreamUnavailable = errors.New("analysis service unavailable")

// ErrMalformedResponse means the reply did not have the expected shape.
var ErrMalformedResponse = errors.New("analysis response malformed")
