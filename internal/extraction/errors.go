package extraction

import "errors"

// Error classes for the extraction pipeline. Callers branch with errors.Is;
// the pipeline records every extraction error as an error-status outcome, so
// a misconfigured credential shows up in telemetry rather than killing boot.
var (
	// ErrNoAPIKey means no model credential is configured.
	ErrNoAPIKey = errors.New("GEMINI_API_KEY is not configured")

	// ErrModel means the remote model call failed or timed out.
	ErrModel = errors.New("model call failed")

	// ErrParse means the model's textual response was not interpretable as
	// the expected structure.
	ErrParse = errors.New("model returned invalid JSON")
)
