package providers

import "errors"

var (
	// ErrUnsupportedProvider is returned when no factory is registered for a
	// provider name.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrUnsupportedModel is returned when a factory has no registered
	// sub-model for the requested name and fallback is disabled. This is
	// distinct from a catalog miss: the catalog and the vendor registration
	// can drift, so both are checked independently.
	ErrUnsupportedModel = errors.New("unsupported model")
)
