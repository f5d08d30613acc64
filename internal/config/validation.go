package config

import (
	"fmt"
	"os"
)

// Validate performs fail-fast validation of the loaded configuration.
//
// Deliberately NOT validated here: MaxResults. A non-positive result cap is
// classified at the tool layer and surfaced to the model as an actionable
// configuration-error message instead of aborting startup, so that a running
// deployment degrades with a clear explanation rather than refusing queries.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (must be one of: gemini, ollama, openai)", ErrInvalidProvider, c.Provider)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}

	if c.MaxRounds < 1 || c.MaxRounds > 10 {
		return fmt.Errorf("%w: %d (must be between 1 and 10)", ErrInvalidMaxRounds, c.MaxRounds)
	}

	if c.MaxHistory < 0 || c.MaxHistory > 100 {
		return fmt.Errorf("%w: %d (must be between 0 and 100)", ErrInvalidMaxHistory, c.MaxHistory)
	}

	if c.QueryTimeout <= 0 {
		return fmt.Errorf("%w: %v (must be positive)", ErrInvalidQueryTimeout, c.QueryTimeout)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	// Provider API keys are read directly by the Genkit plugins; check
	// presence here so the failure happens at startup, not mid-query.
	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for the gemini provider", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for the openai provider", ErrMissingAPIKey)
		}
	}

	return nil
}
