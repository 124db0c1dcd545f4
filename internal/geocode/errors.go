package geocode

import (
	"fmt"
	"net/http"
)

// ProviderError is a non-200 response from a geocoding provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// RateLimited reports whether the provider refused the call for exceeding
// its request quota.
func (e *ProviderError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}
