// Package tools provides the charge point MCP tool implementations.
package tools

import (
	"fmt"
)

// APIError is a user-facing failure with guidance on how to recover.
type APIError struct {
	Service     string // The service the failure relates to (e.g., "geocode", "config")
	Message     string // Error message
	Recoverable bool   // Whether retrying with different input can help
	Guidance    string // Guidance for users on how to recover
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s: %s. %s", e.Service, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

// Common error guidance messages
const (
	GuidanceMissingAPIKey = "Set GEOCODE_API_KEY in the server environment and restart it."
	GuidanceEmptyAddress  = "Provide a street address, landmark or city, e.g. \"Alexanderplatz, Berlin\"."
	GuidanceAddressFormat = "Try a more standard address format and include the city and country."
)

// MissingAPIKeyError reports that the geocoding key is not configured.
func MissingAPIKeyError() *APIError {
	return &APIError{
		Service:  "config",
		Message:  "Geocoding API key is not configured",
		Guidance: GuidanceMissingAPIKey,
	}
}

// EmptyAddressError reports a blank address argument.
func EmptyAddressError() *APIError {
	return &APIError{
		Service:     "validation",
		Message:     "Address must not be empty",
		Recoverable: true,
		Guidance:    GuidanceEmptyAddress,
	}
}

// AddressNotFoundError reports that an address could not be geocoded.
func AddressNotFoundError(address string) *APIError {
	return &APIError{
		Service:     "geocode",
		Message:     fmt.Sprintf("Could not find coordinates for address: %s", address),
		Recoverable: true,
		Guidance:    GuidanceAddressFormat,
	}
}

// Text renders the error as shown to the user.
func (e *APIError) Text() string {
	if e.Guidance == "" {
		return e.Message
	}
	return fmt.Sprintf("%s\n\nGuidance: %s", e.Message, e.Guidance)
}
