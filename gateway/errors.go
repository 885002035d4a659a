package gateway

import "fmt"

// ProviderError is a completion backend failure, surfaced after the fallback
// retry (if any) has also failed.
type ProviderError struct {
	Endpoint string
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s endpoint %s: %v", e.Provider, e.Endpoint, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *ProviderError) Unwrap() error { return e.Err }

// SchemaParseError indicates an output schema was requested but the backend
// text could not be coerced to it after every extraction pass. It unwraps to
// a ProviderError so retry logic can treat both failure families uniformly.
type SchemaParseError struct {
	// RawText is the backend output that failed to parse or validate.
	RawText string
	Detail  string
	cause   *ProviderError
}

// Error implements the error interface.
func (e *SchemaParseError) Error() string {
	return fmt.Sprintf("structured output parse failed: %s", e.Detail)
}

// Unwrap returns the ProviderError wrapper.
func (e *SchemaParseError) Unwrap() error { return e.cause }

func newSchemaParseError(endpoint, provider, rawText, detail string, cause error) *SchemaParseError {
	return &SchemaParseError{
		RawText: rawText,
		Detail:  detail,
		cause:   &ProviderError{Endpoint: endpoint, Provider: provider, Err: cause},
	}
}
